package jobboard

import (
	"net/http"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Kind is the normalized error kind surfaced to callers. It is stored in the
// TextCode of the rich error.
type Kind string

const (
	KindMissingCredentials Kind = "MISSING_CREDENTIALS"
	KindBadCredentials     Kind = "BAD_CREDENTIALS"
	KindPendingValidation  Kind = "PENDING_VALIDATION"
	KindEmailUnverified    Kind = "EMAIL_UNVERIFIED"
	KindAccountBlocked     Kind = "ACCOUNT_BLOCKED"
	KindAccountRejected    Kind = "ACCOUNT_REJECTED"
	KindForbidden          Kind = "FORBIDDEN"
	KindValidationFailed   Kind = "VALIDATION_FAILED"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindServerError        Kind = "SERVER_ERROR"
	KindNetworkError       Kind = "NETWORK_ERROR"
	KindTimeout            Kind = "TIMEOUT"
	KindPayloadTooLarge    Kind = "PAYLOAD_TOO_LARGE"
	KindInvalidTransition  Kind = "INVALID_TRANSITION"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindHTTPError          Kind = "HTTP_ERROR"
	KindUnknownAuthError   Kind = "UNKNOWN_AUTH_ERROR"
	KindTenantNotManaged   Kind = "TENANT_NOT_MANAGED"
)

// MetaFields is the metadata key holding field level validation messages.
const MetaFields = "fields"

// MetaTitle is the metadata key holding the short user facing title.
const MetaTitle = "title"

// MetaServerMessage is the metadata key holding the message sent by the
// backend in the error body.
const MetaServerMessage = "server_message"

// ErrMissingCredentials is returned when a protected request is attempted
// without a token. The request never reaches the network.
var ErrMissingCredentials = goerrors.New("authentication token required for this request", goerrors.CategoryAuth).
	WithTextCode(string(KindMissingCredentials)).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthorized is returned for a 401 on a protected request; the session
// has already been torn down when callers see it.
var ErrUnauthorized = goerrors.New("session expired, please sign in again", goerrors.CategoryAuth).
	WithTextCode(string(KindUnauthorized)).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned when the actor is not allowed to perform an action.
var ErrForbidden = goerrors.New("you are not allowed to access this resource", goerrors.CategoryAuthz).
	WithTextCode(string(KindForbidden)).
	WithCode(goerrors.CodeForbidden)

// ErrValidationFailed carries field level messages in its metadata.
var ErrValidationFailed = goerrors.New("please check the submitted information", goerrors.CategoryValidation).
	WithTextCode(string(KindValidationFailed)).
	WithCode(http.StatusUnprocessableEntity)

// ErrTimeout is returned when a request exceeds its deadline.
var ErrTimeout = goerrors.New("the server took too long to answer", goerrors.CategoryOperation).
	WithTextCode(string(KindTimeout)).
	WithCode(0)

// ErrNetwork is returned when the transport failed without an HTTP status.
var ErrNetwork = goerrors.New("unable to reach the server, check your connection", goerrors.CategoryOperation).
	WithTextCode(string(KindNetworkError)).
	WithCode(0)

// ErrPayloadTooLarge is returned for HTTP 413.
var ErrPayloadTooLarge = goerrors.New("the uploaded file is too large", goerrors.CategoryBadInput).
	WithTextCode(string(KindPayloadTooLarge)).
	WithCode(http.StatusRequestEntityTooLarge)

// ErrHTTP wraps any other failure status; the status is preserved in Code.
var ErrHTTP = goerrors.New("request failed", goerrors.CategoryOperation).
	WithTextCode(string(KindHTTPError)).
	WithCode(goerrors.CodeInternal)

// ErrInvalidTransition is returned when an offer or candidature status change
// is not an edge of the workflow graph.
var ErrInvalidTransition = goerrors.New("invalid status transition", goerrors.CategoryConflict).
	WithTextCode(string(KindInvalidTransition)).
	WithCode(goerrors.CodeConflict)

// ErrTenantNotManaged is returned when selecting an organization that is not
// part of the managed list.
var ErrTenantNotManaged = goerrors.New("organization is not managed by this account", goerrors.CategoryBadInput).
	WithTextCode(string(KindTenantNotManaged)).
	WithCode(goerrors.CodeBadRequest)

// NewKindError clones base and attaches status, cause and metadata. A zero
// status keeps the base code.
func NewKindError(base *goerrors.Error, status int, cause error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if status != 0 {
		clone.Code = status
	}
	if cause != nil {
		clone.Source = cause
	}
	if len(meta) > 0 {
		m := make(map[string]any, len(meta))
		for k, v := range meta {
			m[k] = v
		}
		clone.Metadata = m
	}
	return clone
}

// NewValidationError builds a ValidationFailed error from field messages.
func NewValidationError(message string, fields map[string][]string) *goerrors.Error {
	err := NewKindError(ErrValidationFailed, 0, nil, map[string]any{MetaFields: fields})
	if message != "" {
		err.Message = message
	} else if summary := summarizeFields(fields); summary != "" {
		err.Message = summary
	}
	return err
}

// KindOf returns the normalized kind carried by err, or "" if err is not a
// rich error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return Kind(rich.TextCode)
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the HTTP status recorded on err, 0 when none.
func StatusOf(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return rich.Code
	}
	return 0
}

// FieldErrors returns the field messages attached to a validation error.
func FieldErrors(err error) map[string][]string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich == nil || rich.Metadata == nil {
		return nil
	}
	fields, _ := rich.Metadata[MetaFields].(map[string][]string)
	return fields
}

func summarizeFields(fields map[string][]string) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if len(fields[k]) == 0 {
			continue
		}
		parts = append(parts, k+": "+strings.Join(fields[k], ", "))
	}
	return strings.Join(parts, "; ")
}
