package rpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testAuth = AuthConfig{Secret: "s3cret", Issuer: "questchain", Audience: "query"}

func (f *fixture) getWithToken(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAuthRequiresValidBearer(t *testing.T) {
	f := newFixture(t, Config{Auth: testAuth})
	now := time.Now()

	require.Equal(t, http.StatusUnauthorized, f.getWithToken(t, "/v1/status", "").Code)
	require.Equal(t, http.StatusOK, f.get(t, "/healthz").Code)

	token, err := IssueToken(testAuth, "ops", nil, time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, f.getWithToken(t, "/v1/status", token).Code)

	wrongAudience := testAuth
	wrongAudience.Audience = "other"
	bad, err := IssueToken(wrongAudience, "ops", nil, time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, f.getWithToken(t, "/v1/status", bad).Code)

	wrongSecret := testAuth
	wrongSecret.Secret = "other"
	forged, err := IssueToken(wrongSecret, "ops", nil, time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, f.getWithToken(t, "/v1/status", forged).Code)

	expired, err := IssueToken(testAuth, "ops", nil, time.Minute, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, f.getWithToken(t, "/v1/status", expired).Code)
}

func TestHistoryRequiresScope(t *testing.T) {
	f := newFixture(t, Config{Auth: testAuth})
	now := time.Now()
	plain, err := IssueToken(testAuth, "ops", []string{"status"}, time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, f.getWithToken(t, "/v1/events/history", plain).Code)

	scoped, err := IssueToken(testAuth, "ops", []string{ScopeEventHistory}, time.Hour, now)
	require.NoError(t, err)
	// The fixture has no archive attached.
	require.Equal(t, http.StatusNotFound, f.getWithToken(t, "/v1/events/history", scoped).Code)
}

func TestExtractBearer(t *testing.T) {
	require.Equal(t, "abc", extractBearer("Bearer abc"))
	require.Equal(t, "abc", extractBearer("bearer  abc "))
	require.Empty(t, extractBearer("Basic abc"))
	require.Empty(t, extractBearer(""))
}

func TestIssueTokenNeedsSecret(t *testing.T) {
	_, err := IssueToken(AuthConfig{}, "ops", nil, time.Hour, time.Now())
	require.Error(t, err)
	require.Nil(t, NewAuthenticator(AuthConfig{}, nil))
}
