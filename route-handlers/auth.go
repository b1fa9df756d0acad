package routehandlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rcopley/faved/models"
	"github.com/rcopley/faved/session"
	"github.com/rcopley/faved/twitter"
	"github.com/rcopley/faved/views"
	"github.com/rcopley/faved/webutil"
)

// AuthProvider is the three-legged OAuth surface of the external provider.
type AuthProvider interface {
	RequestToken() (token, secret, authorizationURL string, err error)
	AccessToken(requestToken, requestSecret, verifier string) (token, secret string, err error)
	VerifyCredentials(ctx context.Context, accessToken, accessSecret string) (*twitter.Profile, error)
}

// AccountWriter is the slice of the account store the auth flow needs.
type AccountWriter interface {
	UpsertByExternalID(ctx context.Context, account *models.Account) (*models.Account, error)
}

type AuthHandler struct {
	provider AuthProvider
	accounts AccountWriter
	sessions *session.Manager
}

func NewAuthHandler(provider AuthProvider, accounts AccountWriter, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		accounts: accounts,
		sessions: sessions,
	}
}

// HandleHome serves the static landing page.
func (h *AuthHandler) HandleHome(w http.ResponseWriter, r *http.Request) error {
	return views.RenderHome(w)
}

// HandleLogin starts the authorization dance: obtain a request token, stash
// it in the session, and bounce the browser to the provider.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	token, secret, authorizationURL, err := h.provider.RequestToken()
	if err != nil {
		return webutil.ErrBadGatewayWrap("Authorization provider unreachable", err)
	}

	if err := h.sessions.SetRequestToken(w, r, token, secret); err != nil {
		return webutil.ErrInternalServerWrap("failed to persist request token in session", err)
	}

	http.Redirect(w, r, authorizationURL, http.StatusFound)
	return nil
}

// HandleCallback completes the dance: the pending request token plus the
// provider's verifier become a long-lived access-token pair, the account row
// is created or its credentials refreshed, and the session becomes
// authenticated. Any break in the chain sends the user back to /login to
// start over.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) error {
	verifier := r.URL.Query().Get("oauth_verifier")
	requestToken, requestSecret, ok := h.sessions.PopRequestToken(w, r)
	if !ok || verifier == "" {
		// Expired, replayed, or denied authorization. Re-authenticate.
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil
	}

	accessToken, accessSecret, err := h.provider.AccessToken(requestToken, requestSecret, verifier)
	if err != nil {
		// The provider rejected the exchange; the request token is spent
		// either way, so the only recovery is a fresh login.
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil
	}

	profile, err := h.provider.VerifyCredentials(r.Context(), accessToken, accessSecret)
	if err != nil {
		return webutil.ErrBadGatewayWrap("Failed to resolve authenticated account", err)
	}

	stored, err := h.accounts.UpsertByExternalID(r.Context(), &models.Account{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		ExternalID:   profile.ExternalID,
		Username:     profile.Username,
		AccessToken:  accessToken,
		AccessSecret: accessSecret,
	})
	if err != nil {
		return err
	}

	if err := h.sessions.SetAccountID(w, r, stored.ID); err != nil {
		return webutil.ErrInternalServerWrap("failed to establish session", err)
	}

	http.Redirect(w, r, "/bookmarks", http.StatusFound)
	return nil
}

// HandleLogout clears the session.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) error {
	if err := h.sessions.Clear(w, r); err != nil {
		return webutil.ErrInternalServerWrap("failed to clear session", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}
