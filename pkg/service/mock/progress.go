package mock

import (
	"context"
	"sync"

	"github.com/AccelByte/extend-duel-orchestrator/pkg/service"
)

// ProgressStore is a mock implementation of service.ProgressStore and
// service.CatalogStore for testing.
type ProgressStore struct {
	mu sync.Mutex

	// Species fixtures keyed by lowercase species name
	Species map[string]*service.SpeciesInfo

	DefaultError error

	// Call tracking
	ProgressCalls []ProgressCall
}

// ProgressCall tracks parameters for IncrementProgress calls.
type ProgressCall struct {
	UserID string
	Key    string
	Delta  int
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		Species: make(map[string]*service.SpeciesInfo),
	}
}

func (s *ProgressStore) IncrementProgress(ctx context.Context, userID, key string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProgressCalls = append(s.ProgressCalls, ProgressCall{UserID: userID, Key: key, Delta: delta})
	return s.DefaultError
}

func (s *ProgressStore) SpeciesInfo(ctx context.Context, name string) (*service.SpeciesInfo, error) {
	return s.Species[name], s.DefaultError
}
