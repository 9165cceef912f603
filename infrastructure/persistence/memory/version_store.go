// Package memory provides an in-process version store used in development
// and tests. It mirrors the durable stores' semantics, including version
// uniqueness, without any external dependency.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"insightdocs-backend/application/ports"
)

// VersionStore keeps the full version history of every document in memory.
type VersionStore struct {
	mu      sync.RWMutex
	records map[string][]ports.VersionRecord // documentID -> ascending versions
}

// NewVersionStore creates an empty in-memory version store
func NewVersionStore() *VersionStore {
	return &VersionStore{
		records: make(map[string][]ports.VersionRecord),
	}
}

// LoadLatest returns the newest persisted content for a document
func (s *VersionStore) LoadLatest(_ context.Context, documentID string) (ports.LatestContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.records[documentID]
	if len(history) == 0 {
		return ports.LatestContent{}, ports.ErrVersionNotFound
	}
	latest := history[len(history)-1]
	return ports.LatestContent{Content: latest.Content, Version: latest.Version}, nil
}

// LoadVersion returns the content persisted at an exact version
func (s *VersionStore) LoadVersion(_ context.Context, documentID string, version int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.records[documentID] {
		if record.Version == version {
			return record.Content, nil
		}
	}
	return "", ports.ErrVersionNotFound
}

// AppendVersion records a new version. An existing record at the same
// version is overwritten, matching the durable stores' upsert behavior.
func (s *VersionStore) AppendVersion(_ context.Context, record ports.VersionRecord) (ports.VersionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	history := s.records[record.DocumentID]
	for i, existing := range history {
		if existing.Version == record.Version {
			history[i] = record
			return record, nil
		}
	}

	// Keep history sorted by version ascending.
	inserted := false
	for i, existing := range history {
		if record.Version < existing.Version {
			history = append(history[:i], append([]ports.VersionRecord{record}, history[i:]...)...)
			inserted = true
			break
		}
	}
	if !inserted {
		history = append(history, record)
	}
	s.records[record.DocumentID] = history
	return record, nil
}

// ListVersions returns up to limit records, newest first
func (s *VersionStore) ListVersions(_ context.Context, documentID string, limit int) ([]ports.VersionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.records[documentID]
	out := make([]ports.VersionRecord, 0, len(history))
	for i := len(history) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, history[i])
	}
	return out, nil
}
