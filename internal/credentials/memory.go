package credentials

import (
	"context"
	"sync"
)

type MemoryBackend struct {
	mu    sync.RWMutex
	slots map[Slot]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{slots: make(map[Slot]string)}
}

func (m *MemoryBackend) Get(_ context.Context, slot Slot) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slots[slot], nil
}

func (m *MemoryBackend) Set(_ context.Context, slot Slot, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = value
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context, slot Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, slot)
	return nil
}
