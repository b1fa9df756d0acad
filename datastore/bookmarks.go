package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rcopley/faved/models"
)

type BookmarkRepository struct {
	db *sql.DB
}

func NewBookmarkRepository(db *sql.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// InsertIfAbsent inserts the bookmark unless a row with the same external
// post id already exists. Duplicate fetches and concurrent workers both land
// on the unique constraint, which makes the insert a harmless no-op rather
// than an error. Returns true when a row was actually inserted.
func (r *BookmarkRepository) InsertIfAbsent(ctx context.Context, bookmark *models.Bookmark) (bool, error) {
	query := `
		INSERT INTO bookmarks (id, created_at, external_id, account_id, text, summary, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		bookmark.ID, bookmark.CreatedAt, bookmark.ExternalID,
		bookmark.AccountID, bookmark.Text, bookmark.Summary, bookmark.Read,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert bookmark %s: %w", bookmark.ExternalID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result for bookmark %s: %w", bookmark.ExternalID, err)
	}
	return affected > 0, nil
}

// ListExistingExternalIDs reports which of the given external post ids are
// already captured. External ids are unique across the whole table, so the
// check is system-wide: a post bookmarked under any account must not be
// summarized again.
func (r *BookmarkRepository) ListExistingExternalIDs(ctx context.Context, externalIDs []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(externalIDs))
	if len(externalIDs) == 0 {
		return seen, nil
	}

	query := `SELECT external_id FROM bookmarks WHERE external_id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(externalIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmark ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var externalID string
		if err := rows.Scan(&externalID); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark id: %w", err)
		}
		seen[externalID] = true
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmark ids: %w", err)
	}

	return seen, nil
}

// ListByAccount returns all of an account's bookmarks, newest first.
func (r *BookmarkRepository) ListByAccount(ctx context.Context, accountID string) ([]models.Bookmark, error) {
	query := `
		SELECT id, created_at, external_id, account_id, text, summary, read
		FROM bookmarks
		WHERE account_id = $1
		ORDER BY created_at DESC, external_id DESC
	`
	return r.queryBookmarks(ctx, query, accountID)
}

// ListUnreadByAccount returns an account's unread bookmarks, newest first.
func (r *BookmarkRepository) ListUnreadByAccount(ctx context.Context, accountID string) ([]models.Bookmark, error) {
	query := `
		SELECT id, created_at, external_id, account_id, text, summary, read
		FROM bookmarks
		WHERE account_id = $1 AND read = false
		ORDER BY created_at DESC, external_id DESC
	`
	return r.queryBookmarks(ctx, query, accountID)
}

// MarkRead flips the read flag on a single bookmark, scoped to the owning
// account so one user cannot mark another's bookmarks. Returns sql.ErrNoRows
// (wrapped) when no owned bookmark matches.
func (r *BookmarkRepository) MarkRead(ctx context.Context, accountID, bookmarkID string) error {
	query := `UPDATE bookmarks SET read = true WHERE id = $1 AND account_id = $2`
	result, err := r.db.ExecContext(ctx, query, bookmarkID, accountID)
	if err != nil {
		return fmt.Errorf("failed to mark bookmark %s read: %w", bookmarkID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for bookmark %s: %w", bookmarkID, err)
	}
	if affected == 0 {
		return fmt.Errorf("bookmark %s not found for account %s: %w", bookmarkID, accountID, sql.ErrNoRows)
	}
	return nil
}

func (r *BookmarkRepository) queryBookmarks(ctx context.Context, query string, args ...any) ([]models.Bookmark, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []models.Bookmark
	for rows.Next() {
		var b models.Bookmark
		if err := rows.Scan(&b.ID, &b.CreatedAt, &b.ExternalID, &b.AccountID, &b.Text, &b.Summary, &b.Read); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark row: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookmark rows: %w", err)
	}

	return bookmarks, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (class 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
