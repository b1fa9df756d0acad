// Package session keeps the per-browser state this application needs: a
// transient OAuth request-token pair while the authorization redirect is in
// flight, and the authenticated account id afterwards. Everything lives in a
// signed cookie; the server stores nothing.
package session

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	cookieName = "faved_session"

	keyRequestToken  = "request_token"
	keyRequestSecret = "request_secret"
	keyAccountID     = "account_id"
)

type Manager struct {
	store *sessions.CookieStore
}

func NewManager(signingSecret []byte, secureCookies bool) *Manager {
	store := sessions.NewCookieStore(signingSecret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store}
}

// SetRequestToken stashes the pending request-token pair for the duration of
// the provider redirect.
func (m *Manager) SetRequestToken(w http.ResponseWriter, r *http.Request, token, secret string) error {
	s, _ := m.store.Get(r, cookieName)
	s.Values[keyRequestToken] = token
	s.Values[keyRequestSecret] = secret
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("session: failed to save request token: %w", err)
	}
	return nil
}

// PopRequestToken consumes the pending request-token pair. It returns
// ok=false when no pair is pending, which is how an expired or replayed
// callback is detected.
func (m *Manager) PopRequestToken(w http.ResponseWriter, r *http.Request) (token, secret string, ok bool) {
	s, _ := m.store.Get(r, cookieName)
	token, tokenOK := s.Values[keyRequestToken].(string)
	secret, secretOK := s.Values[keyRequestSecret].(string)
	delete(s.Values, keyRequestToken)
	delete(s.Values, keyRequestSecret)
	_ = s.Save(r, w)
	if !tokenOK || !secretOK || token == "" {
		return "", "", false
	}
	return token, secret, true
}

// SetAccountID marks the session as authenticated.
func (m *Manager) SetAccountID(w http.ResponseWriter, r *http.Request, accountID string) error {
	s, _ := m.store.Get(r, cookieName)
	s.Values[keyAccountID] = accountID
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("session: failed to save account id: %w", err)
	}
	return nil
}

// AccountID returns the authenticated account id, or ok=false for an
// anonymous session.
func (m *Manager) AccountID(r *http.Request) (string, bool) {
	s, _ := m.store.Get(r, cookieName)
	accountID, ok := s.Values[keyAccountID].(string)
	return accountID, ok && accountID != ""
}

// Clear drops all session state.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	s, _ := m.store.Get(r, cookieName)
	s.Options.MaxAge = -1
	s.Values = make(map[any]any)
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("session: failed to clear session: %w", err)
	}
	return nil
}
