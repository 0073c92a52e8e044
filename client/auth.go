package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-jobboard"
)

// Login posts the credentials to auth/login.
func (c *Client) Login(ctx context.Context, req jobboard.LoginRequest) (*jobboard.AuthResult, error) {
	body, err := c.Do(ctx, http.MethodPost, "auth/login", jsonBody(req))
	if err != nil {
		return nil, err
	}
	return DecodeAuthResult(body)
}

// RegisterCandidate posts to auth/register-candidat.
func (c *Client) RegisterCandidate(ctx context.Context, req jobboard.CandidateRegistration) (*jobboard.AuthResult, error) {
	body, err := c.Do(ctx, http.MethodPost, "auth/register-candidat", jsonBody(req))
	if err != nil {
		return nil, err
	}
	return DecodeAuthResult(body)
}

// RegisterRecruiter posts to auth/register-recruteur.
func (c *Client) RegisterRecruiter(ctx context.Context, req jobboard.RecruiterRegistration) (*jobboard.AuthResult, error) {
	body, err := c.Do(ctx, http.MethodPost, "auth/register-recruteur", jsonBody(req))
	if err != nil {
		return nil, err
	}
	return DecodeAuthResult(body)
}

// Me reads the current identity and roles from auth/me.
func (c *Client) Me(ctx context.Context) (*jobboard.AuthResult, error) {
	body, err := c.Do(ctx, http.MethodGet, "auth/me", nil)
	if err != nil {
		return nil, err
	}
	return DecodeAuthResult(body)
}

// ForgotPassword asks the backend to mail a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.send(ctx, http.MethodPost, "auth/forgot-password", map[string]string{
		"email": strings.TrimSpace(email),
	}, nil)
}

// PasswordReset is the payload of auth/reset-password.
type PasswordReset struct {
	Token                string `json:"token"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// ResetPassword sets a new password with a reset token.
func (c *Client) ResetPassword(ctx context.Context, req PasswordReset) error {
	return c.send(ctx, http.MethodPost, "auth/reset-password", req, nil)
}

// VerifyResetToken checks a reset token before showing the reset form.
func (c *Client) VerifyResetToken(ctx context.Context, token, email string) error {
	return c.send(ctx, http.MethodPost, "auth/verify-reset-token", map[string]string{
		"token": token,
		"email": email,
	}, nil)
}

// DecodeAuthResult reads the token, the user and the role names out of the
// several answer shapes of the auth endpoints. Roles are looked up in the
// top level "roles", then in the user's "roles", then in the user's single
// "role" field.
func DecodeAuthResult(body []byte) (*jobboard.AuthResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, jobboard.NewKindError(jobboard.ErrHTTP, 0, err, map[string]any{
			"reason": "unexpected auth response",
		})
	}

	data := map[string]json.RawMessage{}
	if raw, ok := top["data"]; ok && !isNull(raw) {
		_ = json.Unmarshal(raw, &data)
	}

	out := &jobboard.AuthResult{}
	out.Token = firstText(top["access_token"], data["token"], top["token"], data["access_token"])

	userRaw := firstRaw(top["user"], data["user"])
	if userRaw == nil && len(data) > 0 && data["email"] != nil {
		// auth/me may return the user directly under data
		userRaw = top["data"]
	}

	var user wireUser
	if userRaw != nil {
		if err := json.Unmarshal(userRaw, &user); err != nil {
			return nil, jobboard.NewKindError(jobboard.ErrHTTP, 0, err, map[string]any{
				"reason": "unexpected user record",
			})
		}
		out.Identity = user.identity()
	}

	out.Roles = roleNames(top["roles"])
	if len(out.Roles) == 0 {
		out.Roles = roleNames(data["roles"])
	}
	if len(out.Roles) == 0 {
		out.Roles = roleNames(user.Roles)
	}
	if len(out.Roles) == 0 && user.Role != "" {
		out.Roles = []string{user.Role}
	}
	return out, nil
}

type wireUser struct {
	ID           json.Number     `json:"id"`
	Email        string          `json:"email"`
	Nom          string          `json:"nom"`
	LastName     string          `json:"lastname"`
	LastName2    string          `json:"last_name"`
	Prenom       string          `json:"prenom"`
	FirstName    string          `json:"firstname"`
	FirstName2   string          `json:"first_name"`
	Telephone    string          `json:"telephone"`
	Role         string          `json:"role"`
	Roles        json.RawMessage `json:"roles"`
	EntrepriseID json.Number     `json:"entreprise_id"`
	Entreprise   *struct {
		ID json.Number `json:"id"`
	} `json:"entreprise"`
}

func (u wireUser) identity() jobboard.Identity {
	id, _ := u.ID.Int64()
	out := jobboard.Identity{
		ID:        id,
		Email:     u.Email,
		LastName:  firstNonEmpty(u.Nom, u.LastName, u.LastName2),
		FirstName: firstNonEmpty(u.Prenom, u.FirstName, u.FirstName2),
		Phone:     u.Telephone,
		Role:      u.Role,
	}
	tenant := u.EntrepriseID
	if tenant == "" && u.Entreprise != nil {
		tenant = u.Entreprise.ID
	}
	if v, err := tenant.Int64(); err == nil && v != 0 {
		out.EntrepriseID = &v
	}
	return out
}

// roleNames accepts ["admin"], [{"nom": "admin"}] and [{"name": "admin"}].
func roleNames(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
			continue
		}
		var obj struct {
			Nom  string `json:"nom"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &obj); err == nil {
			if name = strings.TrimSpace(firstNonEmpty(obj.Nom, obj.Name)); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func firstText(values ...json.RawMessage) string {
	for _, raw := range values {
		if isNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstRaw(values ...json.RawMessage) json.RawMessage {
	for _, raw := range values {
		if !isNull(raw) {
			return raw
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
