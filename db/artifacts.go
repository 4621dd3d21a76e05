// ABOUTME: Opaque artifact blob persistence (summaries, prompts, drafts)
// ABOUTME: Artifacts are append-only and keyed by ULID for time-sortable listing
package db

import (
	"database/sql"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/harperreed/sift/models"
)

func newArtifactID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func CreateArtifact(db *sql.DB, artifact *models.Artifact) error {
	if artifact.ID == "" {
		artifact.ID = newArtifactID()
	}
	artifact.CreatedAt = time.Now()

	var refID *string
	if artifact.RefID != "" {
		refID = &artifact.RefID
	}

	_, err := db.Exec(`
		INSERT INTO artifacts (id, owner_id, kind, ref_id, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, artifact.ID, artifact.OwnerID, artifact.Kind, refID, artifact.Content, artifact.CreatedAt)

	return err
}

func GetArtifact(db *sql.DB, id string) (*models.Artifact, error) {
	artifact := &models.Artifact{}
	var refID sql.NullString

	err := db.QueryRow(`
		SELECT id, owner_id, kind, ref_id, content, created_at
		FROM artifacts WHERE id = ?
	`, id).Scan(
		&artifact.ID,
		&artifact.OwnerID,
		&artifact.Kind,
		&refID,
		&artifact.Content,
		&artifact.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if refID.Valid {
		artifact.RefID = refID.String
	}

	return artifact, nil
}

// FindArtifacts lists an owner's artifacts of one kind, newest first.
// ULID primary keys sort lexicographically by creation time.
func FindArtifacts(db *sql.DB, ownerID, kind string, limit int) ([]models.Artifact, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT id, owner_id, kind, ref_id, content, created_at
		FROM artifacts
		WHERE owner_id = ? AND kind = ?
		ORDER BY id DESC
		LIMIT ?
	`, ownerID, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []models.Artifact
	for rows.Next() {
		var artifact models.Artifact
		var refID sql.NullString
		if err := rows.Scan(
			&artifact.ID,
			&artifact.OwnerID,
			&artifact.Kind,
			&refID,
			&artifact.Content,
			&artifact.CreatedAt,
		); err != nil {
			return nil, err
		}
		if refID.Valid {
			artifact.RefID = refID.String
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, rows.Err()
}
