// ABOUTME: Credential record persistence for mailbox owners
// ABOUTME: Load and merge-save of OAuth token fields; this package is the sole writer
package db

import (
	"database/sql"
	"time"

	"github.com/harperreed/sift/models"
)

// LoadCredential returns the stored credential for ownerID, or nil if the
// owner has never completed the consent flow.
func LoadCredential(db *sql.DB, ownerID string) (*models.Credential, error) {
	cred := &models.Credential{}
	var refreshToken sql.NullString
	var expiry sql.NullTime

	err := db.QueryRow(`
		SELECT owner_id, access_token, refresh_token, expiry, updated_at
		FROM credentials WHERE owner_id = ?
	`, ownerID).Scan(
		&cred.OwnerID,
		&cred.AccessToken,
		&refreshToken,
		&expiry,
		&cred.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if refreshToken.Valid {
		cred.RefreshToken = refreshToken.String
	}
	if expiry.Valid {
		cred.Expiry = expiry.Time
	}

	return cred, nil
}

// SaveCredential upserts token fields for an owner. The access token always
// replaces; an empty refresh token or zero expiry preserves whatever is
// already stored, so a partial refresh response never erases prior values.
func SaveCredential(db *sql.DB, cred *models.Credential) error {
	existing, err := LoadCredential(db, cred.OwnerID)
	if err != nil {
		return err
	}

	merged := *cred
	if existing != nil {
		if merged.RefreshToken == "" {
			merged.RefreshToken = existing.RefreshToken
		}
		if merged.Expiry.IsZero() {
			merged.Expiry = existing.Expiry
		}
	}
	merged.UpdatedAt = time.Now()

	var refreshToken *string
	if merged.RefreshToken != "" {
		refreshToken = &merged.RefreshToken
	}
	var expiry *time.Time
	if !merged.Expiry.IsZero() {
		expiry = &merged.Expiry
	}

	_, err = db.Exec(`
		INSERT INTO credentials (owner_id, access_token, refresh_token, expiry, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`, merged.OwnerID, merged.AccessToken, refreshToken, expiry, merged.UpdatedAt)

	return err
}
