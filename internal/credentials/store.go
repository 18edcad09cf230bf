// Package credentials keeps the two credential slots of a candidate run:
// the short-lived session credential and the recruiter credential. Each slot
// is a single value under its own key and is only reachable through typed
// accessors, so one slot can never be read or overwritten through the other.
package credentials

import (
	"context"
	"strings"
	"sync"

	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
)

// Slot names a credential slot.
type Slot string

const (
	SlotSession   Slot = "session"
	SlotRecruiter Slot = "recruiter"
)

// Backend persists raw slot values. Get returns "" for an empty slot.
type Backend interface {
	Get(ctx context.Context, slot Slot) (string, error)
	Set(ctx context.Context, slot Slot, value string) error
	Clear(ctx context.Context, slot Slot) error
}

type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  logger.Logger
}

func NewStore(backend Backend, log logger.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger.OrDefault(log),
	}
}

// NewMemoryStore returns a Store backed by process memory.
func NewMemoryStore(log logger.Logger) *Store {
	return NewStore(NewMemoryBackend(), log)
}

func (s *Store) SessionCredential(ctx context.Context) (string, error) {
	return s.get(ctx, SlotSession)
}

// SetSessionCredential writes a freshly issued session credential.
func (s *Store) SetSessionCredential(ctx context.Context, token string) error {
	return s.set(ctx, SlotSession, token)
}

func (s *Store) ClearSessionCredential(ctx context.Context) error {
	return s.clear(ctx, SlotSession)
}

// HasSessionCredential reports whether the session slot holds a value. A
// backend failure counts as no credential.
func (s *Store) HasSessionCredential(ctx context.Context) bool {
	token, err := s.SessionCredential(ctx)
	return err == nil && token != ""
}

func (s *Store) RecruiterCredential(ctx context.Context) (string, error) {
	return s.get(ctx, SlotRecruiter)
}

func (s *Store) SetRecruiterCredential(ctx context.Context, token string) error {
	return s.set(ctx, SlotRecruiter, token)
}

func (s *Store) ClearRecruiterCredential(ctx context.Context) error {
	return s.clear(ctx, SlotRecruiter)
}

func (s *Store) get(ctx context.Context, slot Slot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := s.backend.Get(ctx, slot)
	if err != nil {
		s.logger.Error("Failed to read credential slot", map[string]interface{}{
			"slot":  string(slot),
			"error": err.Error(),
		})
		return "", errors.NewCredentialStoreFailedError(err)
	}
	return value, nil
}

func (s *Store) set(ctx context.Context, slot Slot, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.NewValidationFailedError("Credential must not be empty.", "slot: "+string(slot))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Set(ctx, slot, token); err != nil {
		s.logger.Error("Failed to write credential slot", map[string]interface{}{
			"slot":  string(slot),
			"error": err.Error(),
		})
		return errors.NewCredentialStoreFailedError(err)
	}

	s.logger.Debug("Credential slot written", map[string]interface{}{
		"slot": string(slot),
	})
	return nil
}

func (s *Store) clear(ctx context.Context, slot Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Clear(ctx, slot); err != nil {
		s.logger.Error("Failed to clear credential slot", map[string]interface{}{
			"slot":  string(slot),
			"error": err.Error(),
		})
		return errors.NewCredentialStoreFailedError(err)
	}

	s.logger.Debug("Credential slot cleared", map[string]interface{}{
		"slot": string(slot),
	})
	return nil
}
