package models

import "time"

// Bookmark is one saved external post: the captured text, its derived
// summary, and whether the owner has read it yet. ExternalID is the
// provider's post id and is unique across the whole table.
type Bookmark struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	ExternalID string    `json:"external_id"`
	AccountID  string    `json:"account_id"`
	Text       string    `json:"text"`
	Summary    string    `json:"summary"`
	Read       bool      `json:"read"`
}
