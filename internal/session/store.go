// Package session keeps resumable snapshots of candidate sessions, keyed
// by job id, so that re-opening the same link continues where the
// candidate left off.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

var ErrNotFound = errors.New("session snapshot not found")

// Snapshot is everything needed to resume a session. The credential is
// not part of it.
type Snapshot struct {
	JobID      int64                      `json:"jobId"`
	Session    *models.CandidateSession   `json:"session"`
	Responses  []models.InterviewResponse `json:"responses,omitempty"`
	Transcript []models.TranscriptEntry   `json:"transcript,omitempty"`
	SavedAt    time.Time                  `json:"savedAt"`
}

type Store interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context, jobID int64) (*Snapshot, error)
	Delete(ctx context.Context, jobID int64) error
}

// MemoryStore keeps snapshots for the life of the process.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[int64][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[int64][]byte)}
}

func (m *MemoryStore) Save(_ context.Context, snapshot *Snapshot) error {
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.JobID] = data
	return nil
}

func (m *MemoryStore) Load(_ context.Context, jobID int64) (*Snapshot, error) {
	m.mu.RLock()
	data, ok := m.snapshots[jobID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return decodeSnapshot(data)
}

func (m *MemoryStore) Delete(_ context.Context, jobID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, jobID)
	return nil
}

// NopStore never resumes anything.
type NopStore struct{}

func (NopStore) Save(context.Context, *Snapshot) error { return nil }

func (NopStore) Load(context.Context, int64) (*Snapshot, error) { return nil, ErrNotFound }

func (NopStore) Delete(context.Context, int64) error { return nil }

// NewFromConfig picks the backend named in cfg. db is only used by the
// postgres backend.
func NewFromConfig(cfg config.SessionConfig, db *sql.DB, log logger.Logger) (Store, error) {
	switch cfg.SnapshotBackend {
	case "", config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendNone:
		return NopStore{}, nil
	case config.BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres connection is required for the postgres snapshot backend")
		}
		return NewPostgresStore(db, cfg.SnapshotTable, log)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
}

func validateSnapshot(snapshot *Snapshot) error {
	if snapshot == nil || snapshot.Session == nil {
		return fmt.Errorf("snapshot has no session")
	}
	if snapshot.JobID <= 0 {
		return fmt.Errorf("snapshot job id must be positive")
	}
	return nil
}

func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}
