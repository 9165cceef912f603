// Package postgres implements the version store on PostgreSQL. Version
// history lives in document_versions with a uniqueness constraint on
// (document_id, version); the latest content is the row with the highest
// version.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"insightdocs-backend/application/ports"
)

// Schema expected by this store:
//
//	CREATE TABLE IF NOT EXISTS document_versions (
//	    id             UUID PRIMARY KEY,
//	    document_id    TEXT NOT NULL,
//	    version        INTEGER NOT NULL,
//	    content        TEXT NOT NULL,
//	    saved_by       TEXT NOT NULL DEFAULT '',
//	    save_type      TEXT NOT NULL DEFAULT 'auto',
//	    commit_message TEXT NOT NULL DEFAULT '',
//	    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
//	    UNIQUE (document_id, version)
//	);

// VersionStore is a PostgreSQL-backed version store
type VersionStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewVersionStore connects to PostgreSQL and verifies the connection
func NewVersionStore(ctx context.Context, databaseURL string, logger *zap.Logger) (*VersionStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &VersionStore{pool: pool, logger: logger}, nil
}

// Close releases the connection pool
func (s *VersionStore) Close() {
	s.pool.Close()
}

// LoadLatest returns the newest persisted content for a document
func (s *VersionStore) LoadLatest(ctx context.Context, documentID string) (ports.LatestContent, error) {
	var latest ports.LatestContent
	err := s.pool.QueryRow(ctx,
		`SELECT content, version
		 FROM document_versions
		 WHERE document_id = $1
		 ORDER BY version DESC
		 LIMIT 1`,
		documentID,
	).Scan(&latest.Content, &latest.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.LatestContent{}, ports.ErrVersionNotFound
	}
	if err != nil {
		return ports.LatestContent{}, fmt.Errorf("failed to load latest version: %w", err)
	}
	return latest, nil
}

// LoadVersion returns the content persisted at an exact version
func (s *VersionStore) LoadVersion(ctx context.Context, documentID string, version int) (string, error) {
	var content string
	err := s.pool.QueryRow(ctx,
		`SELECT content
		 FROM document_versions
		 WHERE document_id = $1 AND version = $2`,
		documentID, version,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ports.ErrVersionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load version %d: %w", version, err)
	}
	return content, nil
}

// AppendVersion records a new version, upserting on (document_id, version)
func (s *VersionStore) AppendVersion(ctx context.Context, record ports.VersionRecord) (ports.VersionRecord, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO document_versions
		     (id, document_id, version, content, saved_by, save_type, commit_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (document_id, version) DO UPDATE
		     SET content = EXCLUDED.content,
		         saved_by = EXCLUDED.saved_by,
		         save_type = EXCLUDED.save_type,
		         commit_message = EXCLUDED.commit_message,
		         created_at = EXCLUDED.created_at`,
		record.ID, record.DocumentID, record.Version, record.Content,
		record.SavedBy, record.SaveType, record.CommitMessage, record.CreatedAt,
	)
	if err != nil {
		return ports.VersionRecord{}, fmt.Errorf("failed to append version %d: %w", record.Version, err)
	}

	s.logger.Debug("version persisted",
		zap.String("documentId", record.DocumentID),
		zap.Int("version", record.Version),
		zap.String("saveType", string(record.SaveType)))
	return record, nil
}

// ListVersions returns up to limit records, newest first
func (s *VersionStore) ListVersions(ctx context.Context, documentID string, limit int) ([]ports.VersionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, version, content, saved_by, save_type, commit_message, created_at
		 FROM document_versions
		 WHERE document_id = $1
		 ORDER BY version DESC
		 LIMIT $2`,
		documentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var records []ports.VersionRecord
	for rows.Next() {
		var r ports.VersionRecord
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Version, &r.Content,
			&r.SavedBy, &r.SaveType, &r.CommitMessage, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate version records: %w", err)
	}
	return records, nil
}
