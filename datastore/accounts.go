package datastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rcopley/faved/models"
)

type AccountRepository struct {
	db *sql.DB // The actual database connection pool
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// UpsertByExternalID creates the account on first authentication, or
// refreshes its username and credential pair on re-authentication. The
// external id is the conflict target, so a returning user never produces a
// duplicate row. The stored row (including any existing email) is returned.
func (r *AccountRepository) UpsertByExternalID(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, created_at, external_id, username, access_token, access_secret)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id) DO UPDATE
		SET username = EXCLUDED.username,
		    access_token = EXCLUDED.access_token,
		    access_secret = EXCLUDED.access_secret
		RETURNING id, created_at, external_id, username, access_token, access_secret, COALESCE(email, '')
	`
	var stored models.Account
	row := r.db.QueryRowContext(ctx, query,
		account.ID, account.CreatedAt, account.ExternalID,
		account.Username, account.AccessToken, account.AccessSecret,
	)
	err := row.Scan(&stored.ID, &stored.CreatedAt, &stored.ExternalID,
		&stored.Username, &stored.AccessToken, &stored.AccessSecret, &stored.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account %s: %w", account.ExternalID, err)
	}
	return &stored, nil
}

// GetAccountByID retrieves an account by its internal id.
func (r *AccountRepository) GetAccountByID(ctx context.Context, accountID string) (*models.Account, error) {
	query := `
		SELECT id, created_at, external_id, username, access_token, access_secret, COALESCE(email, '')
		FROM accounts
		WHERE id = $1
	`
	var account models.Account
	row := r.db.QueryRowContext(ctx, query, accountID)
	err := row.Scan(&account.ID, &account.CreatedAt, &account.ExternalID,
		&account.Username, &account.AccessToken, &account.AccessSecret, &account.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("account not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return &account, nil
}

// UpdateEmail persists a validated notification email on the account.
func (r *AccountRepository) UpdateEmail(ctx context.Context, accountID, email string) error {
	query := `UPDATE accounts SET email = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, accountID, email)
	if err != nil {
		return fmt.Errorf("failed to update email for account %s: %w", accountID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for account %s: %w", accountID, err)
	}
	if affected == 0 {
		return fmt.Errorf("account %s not found: %w", accountID, sql.ErrNoRows)
	}
	return nil
}

// ListWithEmail returns every account that has registered a notification
// email. The digest loop iterates exactly this set.
func (r *AccountRepository) ListWithEmail(ctx context.Context) ([]models.Account, error) {
	query := `
		SELECT id, created_at, external_id, username, access_token, access_secret, email
		FROM accounts
		WHERE email IS NOT NULL AND email <> ''
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts with email: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var account models.Account
		if err := rows.Scan(&account.ID, &account.CreatedAt, &account.ExternalID,
			&account.Username, &account.AccessToken, &account.AccessSecret, &account.Email); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}
