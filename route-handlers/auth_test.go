package routehandlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rcopley/faved/models"
	"github.com/rcopley/faved/session"
	"github.com/rcopley/faved/twitter"
	"github.com/rcopley/faved/webutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fakes

type fakeAuthProvider struct {
	requestTokenErr error
	accessTokenErr  error

	gotRequestToken  string
	gotRequestSecret string
	gotVerifier      string
}

func (f *fakeAuthProvider) RequestToken() (string, string, string, error) {
	if f.requestTokenErr != nil {
		return "", "", "", f.requestTokenErr
	}
	return "req-token", "req-secret", "https://provider.example/authorize?oauth_token=req-token", nil
}

func (f *fakeAuthProvider) AccessToken(requestToken, requestSecret, verifier string) (string, string, error) {
	f.gotRequestToken = requestToken
	f.gotRequestSecret = requestSecret
	f.gotVerifier = verifier
	if f.accessTokenErr != nil {
		return "", "", f.accessTokenErr
	}
	return "access-token", "access-secret", nil
}

func (f *fakeAuthProvider) VerifyCredentials(ctx context.Context, accessToken, accessSecret string) (*twitter.Profile, error) {
	return &twitter.Profile{ExternalID: "ext-42", Username: "tester"}, nil
}

type fakeAccountWriter struct {
	upserts []models.Account
}

func (f *fakeAccountWriter) UpsertByExternalID(ctx context.Context, account *models.Account) (*models.Account, error) {
	f.upserts = append(f.upserts, *account)
	stored := *account
	stored.ID = "stored-account-id"
	return &stored, nil
}

type authFixture struct {
	provider *fakeAuthProvider
	accounts *fakeAccountWriter
	sessions *session.Manager
	handler  *AuthHandler
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		provider: &fakeAuthProvider{},
		accounts: &fakeAccountWriter{},
		sessions: session.NewManager([]byte("0123456789abcdef0123456789abcdef"), false),
	}
	f.handler = NewAuthHandler(f.provider, f.accounts, f.sessions)
	return f
}

// Tests

func TestLoginRedirectsToProvider(t *testing.T) {
	f := newAuthFixture()

	rec := httptest.NewRecorder()
	webutil.MakeHandler(f.handler.HandleLogin)(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://provider.example/authorize?oauth_token=req-token", rec.Header().Get("Location"))

	// The request token pair is pending in the session.
	callback := httptest.NewRequest(http.MethodGet, "/callback", nil)
	for _, c := range rec.Result().Cookies() {
		callback.AddCookie(c)
	}
	token, secret, ok := f.sessions.PopRequestToken(httptest.NewRecorder(), callback)
	require.True(t, ok)
	assert.Equal(t, "req-token", token)
	assert.Equal(t, "req-secret", secret)
}

func TestLoginProviderUnreachable(t *testing.T) {
	f := newAuthFixture()
	f.provider.requestTokenErr = errors.New("connection refused")

	rec := httptest.NewRecorder()
	webutil.MakeHandler(f.handler.HandleLogin)(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestCallbackEstablishesAuthenticatedSession(t *testing.T) {
	f := newAuthFixture()

	// Step 1: login stashes the request token.
	loginRec := httptest.NewRecorder()
	webutil.MakeHandler(f.handler.HandleLogin)(loginRec, httptest.NewRequest(http.MethodGet, "/login", nil))

	// Step 2: the provider redirects back with a verifier.
	callback := httptest.NewRequest(http.MethodGet, "/callback?oauth_verifier=verifier-xyz", nil)
	for _, c := range loginRec.Result().Cookies() {
		callback.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	webutil.MakeHandler(f.handler.HandleCallback)(rec, callback)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/bookmarks", rec.Header().Get("Location"))

	assert.Equal(t, "req-token", f.provider.gotRequestToken)
	assert.Equal(t, "req-secret", f.provider.gotRequestSecret)
	assert.Equal(t, "verifier-xyz", f.provider.gotVerifier)

	require.Len(t, f.accounts.upserts, 1)
	upserted := f.accounts.upserts[0]
	assert.Equal(t, "ext-42", upserted.ExternalID)
	assert.Equal(t, "tester", upserted.Username)
	assert.Equal(t, "access-token", upserted.AccessToken)
	assert.Equal(t, "access-secret", upserted.AccessSecret)

	// The session now carries the stored account id.
	next := httptest.NewRequest(http.MethodGet, "/bookmarks", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	accountID, ok := f.sessions.AccountID(next)
	require.True(t, ok)
	assert.Equal(t, "stored-account-id", accountID)
}

func TestCallbackWithoutPendingTokenRestartsLogin(t *testing.T) {
	f := newAuthFixture()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/callback?oauth_verifier=verifier-xyz", nil)
	webutil.MakeHandler(f.handler.HandleCallback)(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Empty(t, f.accounts.upserts)
}

func TestCallbackWithoutVerifierRestartsLogin(t *testing.T) {
	f := newAuthFixture()

	loginRec := httptest.NewRecorder()
	webutil.MakeHandler(f.handler.HandleLogin)(loginRec, httptest.NewRequest(http.MethodGet, "/login", nil))

	callback := httptest.NewRequest(http.MethodGet, "/callback", nil)
	for _, c := range loginRec.Result().Cookies() {
		callback.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	webutil.MakeHandler(f.handler.HandleCallback)(rec, callback)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestCallbackExchangeFailureRestartsLogin(t *testing.T) {
	f := newAuthFixture()
	f.provider.accessTokenErr = errors.New("token expired")

	loginRec := httptest.NewRecorder()
	webutil.MakeHandler(f.handler.HandleLogin)(loginRec, httptest.NewRequest(http.MethodGet, "/login", nil))

	callback := httptest.NewRequest(http.MethodGet, "/callback?oauth_verifier=verifier-xyz", nil)
	for _, c := range loginRec.Result().Cookies() {
		callback.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	webutil.MakeHandler(f.handler.HandleCallback)(rec, callback)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Empty(t, f.accounts.upserts)
}

func TestLogoutClearsSession(t *testing.T) {
	f := newAuthFixture()

	authRec := httptest.NewRecorder()
	require.NoError(t, f.sessions.SetAccountID(authRec, httptest.NewRequest(http.MethodGet, "/", nil), "acct"))

	logout := httptest.NewRequest(http.MethodGet, "/logout", nil)
	for _, c := range authRec.Result().Cookies() {
		logout.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	webutil.MakeHandler(f.handler.HandleLogout)(rec, logout)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	after := httptest.NewRequest(http.MethodGet, "/bookmarks", nil)
	for _, c := range rec.Result().Cookies() {
		after.AddCookie(c)
	}
	_, ok := f.sessions.AccountID(after)
	assert.False(t, ok)
}
