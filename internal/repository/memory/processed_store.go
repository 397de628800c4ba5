package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"meetuphere/internal/domain"
)

// ProcessedStore keeps dedup markers in process memory. Markers are lost on
// restart and are not shared between consumer processes.
type ProcessedStore struct {
	markers *cache.Cache
}

var _ domain.ProcessedStore = (*ProcessedStore)(nil)

// NewProcessedStore returns a store whose expired markers are evicted every
// cleanupInterval. A non-positive interval disables eviction; expired
// markers can still be claimed again.
func NewProcessedStore(cleanupInterval time.Duration) *ProcessedStore {
	return &ProcessedStore{markers: cache.New(cache.NoExpiration, cleanupInterval)}
}

// Claim fails only while an unexpired marker for key exists.
func (s *ProcessedStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := s.markers.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *ProcessedStore) Release(ctx context.Context, key string) error {
	s.markers.Delete(key)
	return nil
}

// Len counts markers not yet evicted, expired or not.
func (s *ProcessedStore) Len() int {
	return s.markers.ItemCount()
}
