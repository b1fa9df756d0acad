// Package digest builds and sends the daily email of unread bookmarks.
package digest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/rcopley/faved/delivery"
	"github.com/rcopley/faved/models"
)

const subject = "Your unread bookmarks"

// AccountStore lists the accounts eligible for a digest.
type AccountStore interface {
	ListWithEmail(ctx context.Context) ([]models.Account, error)
}

// BookmarkStore lists what each digest should contain.
type BookmarkStore interface {
	ListUnreadByAccount(ctx context.Context, accountID string) ([]models.Bookmark, error)
}

// Service runs the digest scan: every account with an email and at least one
// unread bookmark gets exactly one message per run. Read flags are never
// touched here, so items repeat daily until read through the web flow.
type Service struct {
	accounts  AccountStore
	bookmarks BookmarkStore
	provider  delivery.EmailProvider
}

func NewService(accounts AccountStore, bookmarks BookmarkStore, provider delivery.EmailProvider) *Service {
	return &Service{
		accounts:  accounts,
		bookmarks: bookmarks,
		provider:  provider,
	}
}

// Run executes a single digest cycle and returns the number of messages
// sent. A failure for one account is logged and does not stop the rest; only
// a failure to list accounts aborts the run.
func (s *Service) Run(ctx context.Context) (int, error) {
	accounts, err := s.accounts.ListWithEmail(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list accounts for digest: %w", err)
	}

	sent := 0
	for i := range accounts {
		if s.processAccount(ctx, &accounts[i]) {
			sent++
		}
	}

	return sent, nil
}

// processAccount sends one account's digest. Returns true if a message went
// out.
func (s *Service) processAccount(ctx context.Context, account *models.Account) bool {
	unread, err := s.bookmarks.ListUnreadByAccount(ctx, account.ID)
	if err != nil {
		log.Printf("ERROR (Digest): Failed to list unread bookmarks for account %s: %v", account.ID, err)
		return false
	}
	if len(unread) == 0 {
		return false
	}

	body := BuildBody(unread)
	if err := s.provider.Send(ctx, account.Email, subject, body); err != nil {
		log.Printf("ERROR (Digest): Failed to send digest to account %s via %s: %v", account.ID, s.provider.Type(), err)
		return false
	}

	log.Printf("INFO (Digest): Sent %d unread bookmarks to account %s", len(unread), account.ID)
	return true
}

// BuildBody formats the plain-text digest: each item's original text and
// summary, items separated by a blank line.
func BuildBody(bookmarks []models.Bookmark) string {
	items := make([]string, 0, len(bookmarks))
	for _, b := range bookmarks {
		items = append(items, fmt.Sprintf("Original: %s\nSummary: %s", b.Text, b.Summary))
	}
	return strings.Join(items, "\n\n")
}

// HandleTick is an HTTP handler that triggers a digest run. Lets an external
// cron drive the digest instead of (or alongside) the in-process schedule.
func (s *Service) HandleTick(w http.ResponseWriter, r *http.Request) {
	log.Println("INFO (Digest): Run triggered via HTTP")

	sent, err := s.Run(r.Context())
	if err != nil {
		log.Printf("ERROR (Digest): Run failed: %v", err)
		http.Error(w, "digest run failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK: sent %d digests", sent)
}

// CronSpec converts a wall-clock "HH:MM" trigger time into a daily cron
// expression.
func CronSpec(wallClock string) (string, error) {
	var hour, min int
	if _, err := fmt.Sscanf(wallClock, "%d:%d", &hour, &min); err != nil {
		return "", fmt.Errorf("invalid digest time %q (want HH:MM): %w", wallClock, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return "", fmt.Errorf("invalid digest time %q (want HH:MM)", wallClock)
	}
	return fmt.Sprintf("%d %d * * *", min, hour), nil
}
