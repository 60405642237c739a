package auth

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueClientCredentials(t *testing.T, env *testEnv, clientID string) (accessToken, refreshToken string) {
	t.Helper()
	resp := decodeToken(t, env.postForm(t, "/token", url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientID + "-secret"},
	}))
	return resp.AccessToken, resp.RefreshToken
}

func TestRefreshTokenFlow(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, "acme", 0)
	env.seedAccount(t, client, "svc@acme.iam.gserviceaccount.com", "")
	access, refresh := issueClientCredentials(t, env, "acme")

	resp := decodeToken(t, env.postForm(t, "/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {"acme"},
	}))
	assert.NotEqual(t, access, resp.AccessToken)
	assert.NotEqual(t, refresh, resp.RefreshToken)
	assert.Equal(t, int64(1), env.mappingCount(t))

	w := env.get(t, "/tokeninfo?access_token="+url.QueryEscape(access))
	assertOAuthError(t, w, http.StatusBadRequest, "invalid_token")
	w = env.get(t, "/tokeninfo?access_token="+url.QueryEscape(resp.AccessToken))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshOfRevokedMapping(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, "acme", 0)
	env.seedAccount(t, client, "svc@acme.iam.gserviceaccount.com", "")
	access, refresh := issueClientCredentials(t, env, "acme")

	require.Equal(t, http.StatusOK, env.postForm(t, "/revoke", url.Values{"token": {access}}).Code)
	before := env.mappingCount(t)

	w := env.postForm(t, "/token", url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
		"client_id":     {"acme"},
	})
	assertOAuthError(t, w, http.StatusBadRequest, "invalid_grant")
	assert.Equal(t, before, env.mappingCount(t))
}

func TestRefreshTokenRejections(t *testing.T) {
	env := newTestEnv(t)
	client := env.seedClient(t, "acme", 0)
	env.seedAccount(t, client, "svc@acme.iam.gserviceaccount.com", "")
	other := env.seedClient(t, "other", 0)
	env.seedAccount(t, other, "svc@other.iam.gserviceaccount.com", "")
	_, refresh := issueClientCredentials(t, env, "acme")

	testCases := []struct {
		name   string
		form   url.Values
		status int
		code   string
	}{
		{
			name:   "missing refresh token",
			form:   url.Values{"client_id": {"acme"}},
			status: http.StatusBadRequest,
			code:   "invalid_request",
		},
		{
			name:   "unknown refresh token",
			form:   url.Values{"client_id": {"acme"}, "refresh_token": {"1//0unknown"}},
			status: http.StatusBadRequest,
			code:   "invalid_grant",
		},
		{
			name:   "foreign client",
			form:   url.Values{"client_id": {"other"}, "refresh_token": {refresh}},
			status: http.StatusBadRequest,
			code:   "invalid_grant",
		},
		{
			name:   "wrong secret",
			form:   url.Values{"client_id": {"acme"}, "client_secret": {"wrong"}, "refresh_token": {refresh}},
			status: http.StatusUnauthorized,
			code:   "invalid_client",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			tt.form.Set("grant_type", "refresh_token")
			w := env.postForm(t, "/token", tt.form)
			assertOAuthError(t, w, tt.status, tt.code)
		})
	}
}
