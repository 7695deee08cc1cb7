package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acaslabs/mcp-server/internal/common"
)

func newAuthFixture(t *testing.T, rooStatus int, rooUser map[string]any) *Authenticator {
	t.Helper()
	roo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/authors/getuser", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("Cookie"))
		if rooStatus != http.StatusOK {
			w.WriteHeader(rooStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(rooUser))
	}))
	t.Cleanup(roo.Close)

	return NewAuthenticator(common.AuthConfig{
		ROOBaseURL: roo.URL,
		APITokens: map[string]common.ServiceIdentity{
			"cron-token": {Name: "File Processing Cron Job", Roles: []string{common.RoleFileProcessor}},
		},
	}, zap.NewNop())
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := common.IdentityFromContext(r.Context())
		writeJSON(w, http.StatusOK, id)
	})
}

func serveAuth(auth *Authenticator, roles []string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	handler := auth.Middleware(roles...)(echoIdentity())
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthAPITokenAccepted(t *testing.T) {
	auth := newAuthFixture(t, http.StatusOK, nil)

	rec := serveAuth(auth, []string{common.RoleFileProcessor}, func(r *http.Request) {
		r.Header.Set("X-API-Token", "cron-token")
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var id common.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &id))
	assert.Equal(t, "File Processing Cron Job", id.Name)
	assert.Equal(t, "api-token", id.AuthenticatedVia)
}

func TestAuthAPITokenWithoutRequiredRole(t *testing.T) {
	auth := newAuthFixture(t, http.StatusOK, nil)

	rec := serveAuth(auth, []string{common.RoleACASAdmin}, func(r *http.Request) {
		r.Header.Set("X-API-Token", "cron-token")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthNoCredentials(t *testing.T) {
	auth := newAuthFixture(t, http.StatusOK, nil)

	rec := serveAuth(auth, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthUnknownTokenFallsThroughToSession(t *testing.T) {
	auth := newAuthFixture(t, http.StatusOK, nil)

	// An unrecognized token without a cookie ends up unauthenticated.
	rec := serveAuth(auth, nil, func(r *http.Request) {
		r.Header.Set("X-API-Token", "wrong-token")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthSessionAccepted(t *testing.T) {
	auth := newAuthFixture(t, http.StatusOK, map[string]any{
		"name":     "Jane Scientist",
		"username": "jscientist",
		"roles":    []string{common.RoleACASAdmin},
	})

	rec := serveAuth(auth, []string{common.RoleACASAdmin}, func(r *http.Request) {
		r.Header.Set("Cookie", "connect.sid=abc123")
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var id common.Identity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &id))
	assert.Equal(t, "Jane Scientist", id.Name)
	assert.Equal(t, "session", id.AuthenticatedVia)
}

func TestAuthSessionWithoutRequiredRole(t *testing.T) {
	auth := newAuthFixture(t, http.StatusOK, map[string]any{
		"username": "jscientist",
		"roles":    []string{"ROLE_VIEWER"},
	})

	rec := serveAuth(auth, []string{common.RoleACASAdmin}, func(r *http.Request) {
		r.Header.Set("Cookie", "connect.sid=abc123")
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthExpiredSession(t *testing.T) {
	auth := newAuthFixture(t, http.StatusUnauthorized, nil)

	rec := serveAuth(auth, nil, func(r *http.Request) {
		r.Header.Set("Cookie", "connect.sid=expired")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid or expired session", body["message"])
}

func TestAuthServiceUnavailable(t *testing.T) {
	auth := NewAuthenticator(common.AuthConfig{
		ROOBaseURL: "http://127.0.0.1:1", // nothing listening
	}, zap.NewNop())

	rec := serveAuth(auth, nil, func(r *http.Request) {
		r.Header.Set("Cookie", "connect.sid=abc123")
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
