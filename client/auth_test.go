package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-jobboard"
	"github.com/goliatone/go-jobboard/client"
)

func TestDecodeAuthResult(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		token    string
		id       int64
		email    string
		roles    []string
		tenantID int64
	}{
		{
			name:  "login shape",
			body:  `{"access_token":"t1","user":{"id":5,"email":"jane@example.com","nom":"Doe","prenom":"Jane","role":"candidat"},"roles":["candidat"]}`,
			token: "t1",
			id:    5,
			email: "jane@example.com",
			roles: []string{"candidat"},
		},
		{
			name:     "wrapped with role objects on the user",
			body:     `{"data":{"token":"t2","user":{"id":"6","email":"rh@acme.fr","roles":[{"nom":"recruteur"}],"entreprise":{"id":12}}}}`,
			token:    "t2",
			id:       6,
			email:    "rh@acme.fr",
			roles:    []string{"recruteur"},
			tenantID: 12,
		},
		{
			name:  "me returns the user under data",
			body:  `{"data":{"id":7,"email":"cm@example.com","role":"community_manager","entreprise_id":null}}`,
			id:    7,
			email: "cm@example.com",
			roles: []string{"community_manager"},
		},
		{
			name:  "role objects with name and blanks",
			body:  `{"token":"t3","user":{"id":1,"email":"root@example.com"},"roles":[{"name":"administrateur"}," "]}`,
			token: "t3",
			id:    1,
			email: "root@example.com",
			roles: []string{"administrateur"},
		},
		{
			name:  "no user at all",
			body:  `{"access_token":"t4"}`,
			token: "t4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := client.DecodeAuthResult([]byte(tt.body))
			require.NoError(t, err)

			assert.Equal(t, tt.token, res.Token)
			assert.Equal(t, tt.id, res.Identity.ID)
			assert.Equal(t, tt.email, res.Identity.Email)
			assert.Equal(t, tt.roles, res.Roles)
			if tt.tenantID == 0 {
				assert.Nil(t, res.Identity.EntrepriseID)
			} else {
				require.NotNil(t, res.Identity.EntrepriseID)
				assert.Equal(t, tt.tenantID, *res.Identity.EntrepriseID)
			}
		})
	}
}

func TestDecodeAuthResultNames(t *testing.T) {
	res, err := client.DecodeAuthResult([]byte(`{"user":{"id":2,"last_name":"Martin","firstname":"Léa"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Martin", res.Identity.LastName)
	assert.Equal(t, "Léa", res.Identity.FirstName)
}

func TestDecodeAuthResultRejectsGarbage(t *testing.T) {
	_, err := client.DecodeAuthResult([]byte(`<html>`))
	require.Error(t, err)
	assert.Equal(t, jobboard.KindHTTPError, jobboard.KindOf(err))

	_, err = client.DecodeAuthResult([]byte(`{"user":"nobody"}`))
	require.Error(t, err)
}

func TestLoginIsSentWithoutCredentials(t *testing.T) {
	b := newBackend(t)
	b.on(http.MethodPost, "/api/auth/login", http.StatusOK,
		`{"access_token":"fresh","user":{"id":5,"email":"jane@example.com"},"roles":["candidat"]}`)

	c := client.New(client.Config{BaseURL: b.baseURL(), Credentials: tokenSource("stale")})

	res, err := c.Login(context.Background(), jobboard.LoginRequest{Email: "jane@example.com", Password: "secret123", Remember: true})
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.Token)

	req := b.last()
	assert.Empty(t, req.Header.Get("Authorization"))
	assert.NotEmpty(t, req.Header.Get("X-Request-ID"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.Equal(t, map[string]any{"email": "jane@example.com", "password": "secret123"}, sent)
}

func TestLoginFailureIsNormalized(t *testing.T) {
	b := newBackend(t)
	b.on(http.MethodPost, "/api/auth/login", http.StatusUnprocessableEntity,
		`{"message":"The given data was invalid.","errors":{"email":["Ces identifiants ne correspondent pas."]}}`)

	c := client.New(client.Config{BaseURL: b.baseURL()})

	_, err := c.Login(context.Background(), jobboard.LoginRequest{Email: "jane@example.com", Password: "wrong-pass"})
	require.Error(t, err)
	assert.Equal(t, jobboard.KindValidationFailed, jobboard.KindOf(err))
	assert.Equal(t, http.StatusUnprocessableEntity, jobboard.StatusOf(err))
	assert.Equal(t, []string{"Ces identifiants ne correspondent pas."}, jobboard.FieldErrors(err)["email"])
}

func TestMeUsesBearerToken(t *testing.T) {
	b := newBackend(t)
	b.on(http.MethodGet, "/api/auth/me", http.StatusOK, `{"data":{"id":3,"email":"cm@example.com","role":"community_manager"}}`)

	c := client.New(client.Config{BaseURL: b.baseURL(), Credentials: tokenSource("opaque")})

	res, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"community_manager"}, res.Roles)
	assert.Equal(t, "Bearer opaque", b.last().Header.Get("Authorization"))
}

func TestPasswordResetEndpoints(t *testing.T) {
	b := newBackend(t)
	b.on(http.MethodPost, "/api/auth/forgot-password", http.StatusOK, `{"message":"sent"}`)
	b.on(http.MethodPost, "/api/auth/verify-reset-token", http.StatusOK, `{"valid":true}`)
	b.on(http.MethodPost, "/api/auth/reset-password", http.StatusOK, `{}`)

	c := client.New(client.Config{BaseURL: b.baseURL()})
	ctx := context.Background()

	require.NoError(t, c.ForgotPassword(ctx, "  jane@example.com "))
	assert.JSONEq(t, `{"email":"jane@example.com"}`, b.last().Body)

	require.NoError(t, c.VerifyResetToken(ctx, "tok", "jane@example.com"))
	assert.JSONEq(t, `{"token":"tok","email":"jane@example.com"}`, b.last().Body)

	require.NoError(t, c.ResetPassword(ctx, client.PasswordReset{
		Token:                "tok",
		Email:                "jane@example.com",
		Password:             "n3w-secret",
		PasswordConfirmation: "n3w-secret",
	}))
	assert.Equal(t, "/api/auth/reset-password", b.last().Path)
	assert.Equal(t, 3, b.count())
}
