package models

import "time"

// Account is a user identified by their external social-network account,
// plus the OAuth credential pair needed to read their likes on their behalf.
// Email is optional and empty when the user has not registered one.
type Account struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	ExternalID   string    `json:"external_id"`
	Username     string    `json:"username"`
	AccessToken  string    `json:"-"` // Never exposed in responses
	AccessSecret string    `json:"-"`
	Email        string    `json:"email,omitempty"`
}
