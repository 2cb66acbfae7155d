package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/parley-hq/parley/pkg/models"
)

// sweepSchedule is how often the in-memory store drops expired sessions.
const sweepSchedule = "@every 10m"

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process session store with TTL-based expiry. States
// are stored as JSON snapshots so callers never share mutable state with
// the store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	logger  *slog.Logger
	cron    *cron.Cron
}

// NewMemoryStore creates an in-memory store and starts its expiry sweep.
// A non-positive ttl falls back to DefaultTTL.
func NewMemoryStore(logger *slog.Logger, ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	store := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		logger:  logger.With("module", "memory_session_store"),
		cron:    cron.New(),
	}

	_, _ = store.cron.AddFunc(sweepSchedule, store.sweep)
	store.cron.Start()

	return store
}

func (s *MemoryStore) Create(_ context.Context, state *models.WorkflowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[state.ConversationID]; ok && time.Now().Before(entry.expiresAt) {
		return ErrSessionExists
	}

	s.entries[state.ConversationID] = memoryEntry{data: data, expiresAt: time.Now().Add(s.ttl)}

	return nil
}

func (s *MemoryStore) Get(_ context.Context, conversationID string) (*models.WorkflowState, error) {
	s.mu.RLock()
	entry, ok := s.entries[conversationID]
	s.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}

	var state models.WorkflowState
	if err := json.Unmarshal(entry.data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *MemoryStore) Update(_ context.Context, state *models.WorkflowState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state.ConversationID]
	if !ok || time.Now().After(entry.expiresAt) {
		return ErrSessionNotFound
	}

	s.entries[state.ConversationID] = memoryEntry{data: data, expiresAt: time.Now().Add(s.ttl)}

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[conversationID]; !ok {
		return ErrSessionNotFound
	}

	delete(s.entries, conversationID)

	return nil
}

func (s *MemoryStore) HealthCheck(_ context.Context) error {
	return nil
}

func (s *MemoryStore) Close(_ context.Context) error {
	s.cron.Stop()

	return nil
}

// sweep drops entries past their expiry.
func (s *MemoryStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)

			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("Expired abandoned sessions", "count", removed)
	}
}
