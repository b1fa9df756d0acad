package routehandlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rcopley/faved/models"
	"github.com/rcopley/faved/session"
	"github.com/rcopley/faved/validate"
	"github.com/rcopley/faved/views"
	"github.com/rcopley/faved/webutil"
)

// AccountReader is the slice of the account store the bookmarks view needs.
type AccountReader interface {
	GetAccountByID(ctx context.Context, accountID string) (*models.Account, error)
	UpdateEmail(ctx context.Context, accountID, email string) error
}

// BookmarkViewStore lists and mutates the bookmarks shown on the page.
type BookmarkViewStore interface {
	ListByAccount(ctx context.Context, accountID string) ([]models.Bookmark, error)
	MarkRead(ctx context.Context, accountID, bookmarkID string) error
}

// Syncer pulls the account's recent likes into the bookmark store.
type Syncer interface {
	Sync(ctx context.Context, account *models.Account) (int, error)
}

type BookmarksHandler struct {
	accounts  AccountReader
	bookmarks BookmarkViewStore
	syncer    Syncer
	sessions  *session.Manager
}

func NewBookmarksHandler(accounts AccountReader, bookmarks BookmarkViewStore, syncer Syncer, sessions *session.Manager) *BookmarksHandler {
	return &BookmarksHandler{
		accounts:  accounts,
		bookmarks: bookmarks,
		syncer:    syncer,
		sessions:  sessions,
	}
}

// HandleBookmarks serves GET and POST /bookmarks. POST additionally accepts
// an "email" form field; an invalid address renders the page from stored
// state with an inline error and persists nothing. Every successful request
// syncs recent likes before rendering the full list.
func (h *BookmarksHandler) HandleBookmarks(w http.ResponseWriter, r *http.Request) error {
	account, err := h.authenticatedAccount(w, r)
	if err != nil || account == nil {
		return err
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			return webutil.ErrBadRequest("Malformed form submission")
		}
		email, err := validate.Email(r.PostFormValue("email"))
		if err != nil {
			return h.renderFromStore(w, r, account, http.StatusUnprocessableEntity, err.Error())
		}
		if err := h.accounts.UpdateEmail(r.Context(), account.ID, email); err != nil {
			return err
		}
		account.Email = email
	}

	if _, err := h.syncer.Sync(r.Context(), account); err != nil {
		return webutil.ErrBadGatewayWrap("Failed to sync liked posts", err)
	}

	return h.renderFromStore(w, r, account, http.StatusOK, "")
}

// HandleMarkRead flips one owned bookmark to read and returns to the list.
func (h *BookmarksHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) error {
	accountID, ok := h.sessions.AccountID(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil
	}

	bookmarkID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(bookmarkID); err != nil {
		return webutil.ErrBadRequest("Invalid bookmark ID format")
	}

	if err := h.bookmarks.MarkRead(r.Context(), accountID, bookmarkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return webutil.ErrNotFound("Bookmark not found")
		}
		return err
	}

	http.Redirect(w, r, "/bookmarks", http.StatusSeeOther)
	return nil
}

// authenticatedAccount resolves the session to an account. A nil account
// with nil error means a redirect to /login was already written.
func (h *BookmarksHandler) authenticatedAccount(w http.ResponseWriter, r *http.Request) (*models.Account, error) {
	accountID, ok := h.sessions.AccountID(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil, nil
	}

	account, err := h.accounts.GetAccountByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The session refers to an account that no longer resolves.
			_ = h.sessions.Clear(w, r)
			http.Redirect(w, r, "/login", http.StatusFound)
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

func (h *BookmarksHandler) renderFromStore(w http.ResponseWriter, r *http.Request, account *models.Account, status int, validationError string) error {
	list, err := h.bookmarks.ListByAccount(r.Context(), account.ID)
	if err != nil {
		return err
	}
	return views.RenderBookmarks(w, status, views.BookmarksData{
		Username:  account.Username,
		Email:     account.Email,
		Bookmarks: list,
		Error:     validationError,
	})
}
