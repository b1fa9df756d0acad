// Package ingestion turns an account's recent liked posts into stored
// bookmarks: fetch, sanitize, summarize, insert-if-absent.
package ingestion

import (
	"context"
	"html"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rcopley/faved/models"
	"github.com/rcopley/faved/summarize"
	"github.com/rcopley/faved/twitter"
)

// DefaultPageSize is how many recent likes are requested per sync.
const DefaultPageSize = 20

// PostFetcher fetches an account's most recent liked posts, newest first.
type PostFetcher interface {
	Likes(ctx context.Context, accessToken, accessSecret string, count int) ([]twitter.Post, error)
}

// BookmarkStore is the slice of the datastore the ingestor needs.
type BookmarkStore interface {
	ListExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]bool, error)
	InsertIfAbsent(ctx context.Context, bookmark *models.Bookmark) (bool, error)
}

// Ingestor orchestrates one sync pass for one account.
type Ingestor struct {
	fetcher    PostFetcher
	summarizer summarize.Summarizer
	bookmarks  BookmarkStore
	sanitizer  *bluemonday.Policy
	pageSize   int
}

func NewIngestor(fetcher PostFetcher, summarizer summarize.Summarizer, bookmarks BookmarkStore) *Ingestor {
	return &Ingestor{
		fetcher:    fetcher,
		summarizer: summarizer,
		bookmarks:  bookmarks,
		sanitizer:  bluemonday.StrictPolicy(),
		pageSize:   DefaultPageSize,
	}
}

// Sync fetches the account's recent likes and persists the ones not seen
// before, summarizing each first so a summarization failure leaves nothing
// partially persisted. Already-captured post ids are skipped up front —
// checked system-wide, since external ids are unique across accounts — so a
// post that stays in the recent likes is never re-summarized; the
// storage-layer unique constraint remains the backstop against concurrent
// workers racing on the same post. Returns the number of bookmarks created.
func (ing *Ingestor) Sync(ctx context.Context, account *models.Account) (int, error) {
	posts, err := ing.fetcher.Likes(ctx, account.AccessToken, account.AccessSecret, ing.pageSize)
	if err != nil {
		return 0, err
	}

	fetchedIDs := make([]string, 0, len(posts))
	for _, post := range posts {
		fetchedIDs = append(fetchedIDs, post.ExternalID)
	}

	seen, err := ing.bookmarks.ListExistingExternalIDs(ctx, fetchedIDs)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, post := range posts {
		if seen[post.ExternalID] {
			continue
		}

		text := ing.sanitize(post.Text)
		if text == "" {
			continue
		}

		summary, err := ing.summarizer.Summarize(ctx, text)
		if err != nil {
			// Fatal to this sync pass: the post is not persisted at all and
			// will be picked up again on the next visit.
			return created, err
		}

		bookmark := models.Bookmark{
			ID:         uuid.NewString(),
			CreatedAt:  time.Now().UTC(),
			ExternalID: post.ExternalID,
			AccountID:  account.ID,
			Text:       text,
			Summary:    summary,
			Read:       false,
		}

		inserted, err := ing.bookmarks.InsertIfAbsent(ctx, &bookmark)
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		} else {
			// Lost a race to another worker. Harmless.
			log.Printf("INFO (Ingestor): Bookmark %s already captured concurrently", post.ExternalID)
		}
	}

	return created, nil
}

// sanitize strips any markup from provider text and decodes HTML entities,
// leaving plain text for storage, summarization, and digest email bodies.
func (ing *Ingestor) sanitize(text string) string {
	stripped := ing.sanitizer.Sanitize(text)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
