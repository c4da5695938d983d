package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Luca1234105/torren/internal/models"
)

const (
	// DefaultOrphanListLimit is used when no limit is requested
	DefaultOrphanListLimit = 50
	// MaxOrphanListLimit caps ListRecent
	MaxOrphanListLimit = 500
)

// OrphanStore persists remote resources whose deletion failed
type OrphanStore struct {
	db *sql.DB
}

// NewOrphanStore creates a new orphan store
func NewOrphanStore(db *sql.DB) *OrphanStore {
	return &OrphanStore{db: db}
}

// EnsureSchema creates the orphaned_resources table if it does not exist
func (s *OrphanStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS orphaned_resources (
			id UUID PRIMARY KEY,
			service TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			credential_fingerprint TEXT NOT NULL,
			phase TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create orphaned_resources: %w", err)
	}
	return nil
}

// RecordOrphan inserts one orphan record. ID and CreatedAt are filled in when zero.
func (s *OrphanStore) RecordOrphan(ctx context.Context, orphan models.OrphanedResource) error {
	if orphan.ID == uuid.Nil {
		orphan.ID = uuid.New()
	}
	if orphan.CreatedAt.IsZero() {
		orphan.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO orphaned_resources
			(id, service, resource_id, content_hash, credential_fingerprint, phase, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		orphan.ID,
		orphan.Service,
		orphan.ResourceID,
		orphan.ContentHash.String(),
		orphan.CredentialFingerprint,
		orphan.Phase,
		orphan.Error,
		orphan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert orphaned resource %s: %w", orphan.ResourceID, err)
	}
	return nil
}

// ListRecent returns the newest orphan records first
func (s *OrphanStore) ListRecent(ctx context.Context, limit int) ([]models.OrphanedResource, error) {
	if limit <= 0 {
		limit = DefaultOrphanListLimit
	}
	if limit > MaxOrphanListLimit {
		limit = MaxOrphanListLimit
	}

	query := `
		SELECT id, service, resource_id, content_hash, credential_fingerprint, phase, error, created_at
		FROM orphaned_resources
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query orphaned resources: %w", err)
	}
	defer rows.Close()

	orphans := make([]models.OrphanedResource, 0)
	for rows.Next() {
		var (
			o    models.OrphanedResource
			hash string
		)
		if err := rows.Scan(&o.ID, &o.Service, &o.ResourceID, &hash, &o.CredentialFingerprint, &o.Phase, &o.Error, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan orphaned resource: %w", err)
		}
		o.ContentHash = models.ContentHash(hash)
		orphans = append(orphans, o)
	}

	return orphans, rows.Err()
}

// Ping checks the database connection
func (s *OrphanStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
