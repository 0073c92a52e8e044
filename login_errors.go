package jobboard

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// LoginFailure describes one row of the login failure table.
type LoginFailure struct {
	Kind    Kind
	Title   string
	Message string
	Status  int
}

var loginFailures = map[Kind]LoginFailure{
	KindPendingValidation: {
		Kind:    KindPendingValidation,
		Title:   "Compte en attente de validation",
		Message: "Votre compte est actuellement en cours de vérification par nos équipes. Vous recevrez un email de confirmation dès que votre compte sera activé. Cette opération prend généralement entre 24 et 48 heures.",
		Status:  http.StatusForbidden,
	},
	KindEmailUnverified: {
		Kind:    KindEmailUnverified,
		Title:   "Email non vérifié",
		Message: "Veuillez vérifier votre boîte email et cliquer sur le lien de confirmation que nous vous avons envoyé lors de votre inscription.",
		Status:  http.StatusForbidden,
	},
	KindAccountBlocked: {
		Kind:    KindAccountBlocked,
		Title:   "Compte bloqué",
		Message: "Votre compte a été temporairement bloqué. Veuillez contacter le support pour obtenir de l'aide.",
		Status:  http.StatusForbidden,
	},
	KindAccountRejected: {
		Kind:    KindAccountRejected,
		Title:   "Compte refusé",
		Message: "Votre demande d'inscription a été refusée. Veuillez contacter notre équipe pour plus d'informations.",
		Status:  http.StatusForbidden,
	},
	KindBadCredentials: {
		Kind:    KindBadCredentials,
		Title:   "Identifiants incorrects",
		Message: "L'email ou le mot de passe que vous avez saisi est incorrect. Veuillez réessayer ou réinitialiser votre mot de passe.",
		Status:  http.StatusUnauthorized,
	},
	KindForbidden: {
		Kind:    KindForbidden,
		Title:   "Accès refusé",
		Message: "Vous n'avez pas l'autorisation d'accéder à cette ressource.",
		Status:  http.StatusForbidden,
	},
	KindValidationFailed: {
		Kind:    KindValidationFailed,
		Title:   "Données invalides",
		Message: "Veuillez vérifier les informations saisies et réessayer.",
		Status:  http.StatusUnprocessableEntity,
	},
	KindRateLimited: {
		Kind:    KindRateLimited,
		Title:   "Trop de tentatives",
		Message: "Vous avez effectué trop de tentatives de connexion. Veuillez patienter 5 minutes avant de réessayer.",
		Status:  http.StatusTooManyRequests,
	},
	KindServerError: {
		Kind:    KindServerError,
		Title:   "Erreur serveur",
		Message: "Une erreur technique est survenue sur nos serveurs. Veuillez réessayer dans quelques instants.",
		Status:  http.StatusInternalServerError,
	},
	KindNetworkError: {
		Kind:    KindNetworkError,
		Title:   "Problème de connexion",
		Message: "Impossible de contacter le serveur. Veuillez vérifier votre connexion internet et réessayer.",
	},
	KindUnknownAuthError: {
		Kind:    KindUnknownAuthError,
		Title:   "Erreur de connexion",
		Message: "Une erreur inattendue s'est produite. Si le problème persiste, contactez notre support.",
	},
}

var pendingValidationPhrases = []string{
	"compte en attente de validation",
	"compte en attente",
	"attente de validation",
	"en attente de validation",
	"compte non validé",
	"compte non activé",
	"not validated",
	"not verified",
	"waiting for validation",
	"account pending validation",
	"pending validation",
	"en cours de validation",
}

var blockedPhrases = []string{"bloqué", "suspendu", "désactivé", "banned", "suspended"}

var rejectedPhrases = []string{"rejeté", "refusé", "rejected"}

var credentialPhrases = []string{
	"identifiant",
	"credentials",
	"invalid email",
	"invalid password",
	"mot de passe incorrect",
}

var rateLimitPhrases = []string{"tentative", "too many", "rate limit"}

var connectivityPhrases = []string{"network", "failed to fetch"}

// LoginFailureFor returns the fixed title and message for kind.
func LoginFailureFor(kind Kind) LoginFailure {
	if f, ok := loginFailures[kind]; ok {
		return f
	}
	return loginFailures[KindUnknownAuthError]
}

// ClassifyLoginFailure maps a failed login onto a kind. Rules are evaluated
// in priority order and the first match wins: a pending validation message
// must never land in the 403 bucket, and "not verified" must be caught as
// pending before the looser email rule runs.
func ClassifyLoginFailure(status int, message string) Kind {
	msg := strings.ToLower(strings.TrimSpace(message))
	pending := containsAny(msg, pendingValidationPhrases)

	switch {
	case pending:
		return KindPendingValidation
	case strings.Contains(msg, "email") &&
		!strings.Contains(msg, "connexion") &&
		containsAny(msg, []string{"vérif", "confirm", "non vérifié"}):
		return KindEmailUnverified
	case containsAny(msg, blockedPhrases):
		return KindAccountBlocked
	case containsAny(msg, rejectedPhrases):
		return KindAccountRejected
	case status == http.StatusUnauthorized ||
		containsAny(msg, credentialPhrases) ||
		(strings.Contains(msg, "incorrect") && !strings.Contains(msg, "validation")):
		return KindBadCredentials
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusUnprocessableEntity:
		return KindValidationFailed
	case status == http.StatusTooManyRequests || containsAny(msg, rateLimitPhrases):
		return KindRateLimited
	case status >= http.StatusInternalServerError:
		return KindServerError
	case status == 0 || containsAny(msg, connectivityPhrases):
		return KindNetworkError
	default:
		return KindUnknownAuthError
	}
}

// NewLoginError classifies a failed authentication call and returns the rich
// error shown to the user. The backend message is taken from err metadata
// when the pipeline recorded one, otherwise from the error text.
func NewLoginError(err error) *goerrors.Error {
	status, message, fields := loginFailureInput(err)
	kind := ClassifyLoginFailure(status, message)
	return newLoginError(kind, status, message, fields, err)
}

func newLoginError(kind Kind, status int, message string, fields map[string][]string, cause error) *goerrors.Error {
	failure := LoginFailureFor(kind)

	text := failure.Message
	switch kind {
	case KindForbidden, KindUnknownAuthError:
		if message != "" {
			text = message
		}
	case KindValidationFailed:
		if summary := summarizeFields(fields); summary != "" {
			text = summary
		}
	}

	code := status
	if code == 0 {
		code = failure.Status
	}

	category := goerrors.CategoryAuth
	switch kind {
	case KindValidationFailed:
		category = goerrors.CategoryValidation
	case KindRateLimited:
		category = goerrors.CategoryRateLimit
	case KindServerError:
		category = goerrors.CategoryInternal
	case KindNetworkError:
		category = goerrors.CategoryOperation
	case KindPendingValidation, KindEmailUnverified, KindAccountBlocked,
		KindAccountRejected, KindForbidden:
		category = goerrors.CategoryAuthz
	}

	meta := map[string]any{MetaTitle: failure.Title}
	if len(fields) > 0 {
		meta[MetaFields] = fields
	}
	if message != "" {
		meta[MetaServerMessage] = message
	}

	rich := goerrors.New(text, category).
		WithTextCode(string(kind)).
		WithCode(code)
	rich.Source = cause
	rich.Metadata = meta
	return rich
}

func loginFailureInput(err error) (int, string, map[string][]string) {
	if err == nil {
		return 0, "", nil
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		message := ""
		if rich.Metadata != nil {
			if m, ok := rich.Metadata[MetaServerMessage].(string); ok {
				message = m
			}
		}
		if message == "" {
			message = rich.Message
		}
		return rich.Code, message, FieldErrors(rich)
	}

	return 0, err.Error(), nil
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
