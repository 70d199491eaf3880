package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fpang/brand-feed/internal/engagement"
)

// MemoryStore is an in-process FeedStore for the local server, the simulator
// and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	catalog []string
	saves   map[string]map[string]struct{}
	likes   map[string]map[string]struct{}
	scores  map[string]map[string]engagement.Score
}

// Compile-time interface check.
var _ FeedStore = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding catalog.
func NewMemoryStore(catalog []string) *MemoryStore {
	return &MemoryStore{
		catalog: append([]string(nil), catalog...),
		saves:   make(map[string]map[string]struct{}),
		likes:   make(map[string]map[string]struct{}),
		scores:  make(map[string]map[string]engagement.Score),
	}
}

func (m *MemoryStore) Catalog(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.catalog...), nil
}

func (m *MemoryStore) PutCatalog(ctx context.Context, brands []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = append([]string(nil), brands...)
	return nil
}

func (m *MemoryStore) SaveBrand(ctx context.Context, userID, brand string) error {
	m.add(m.saves, userID, brand)
	return nil
}

func (m *MemoryStore) UnsaveBrand(ctx context.Context, userID, brand string) error {
	m.remove(m.saves, userID, brand)
	return nil
}

func (m *MemoryStore) SavedBrands(ctx context.Context, userID string) ([]string, error) {
	return m.list(m.saves, userID), nil
}

func (m *MemoryStore) LikeProduct(ctx context.Context, userID, product string) error {
	m.add(m.likes, userID, product)
	return nil
}

func (m *MemoryStore) UnlikeProduct(ctx context.Context, userID, product string) error {
	m.remove(m.likes, userID, product)
	return nil
}

func (m *MemoryStore) LikedProducts(ctx context.Context, userID string) ([]string, error) {
	return m.list(m.likes, userID), nil
}

func (m *MemoryStore) LoadScores(ctx context.Context, userID string) (map[string]engagement.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]engagement.Score, len(m.scores[userID]))
	for b, sc := range m.scores[userID] {
		out[b] = sc
	}
	return out, nil
}

func (m *MemoryStore) PutScores(ctx context.Context, userID string, scores map[string]engagement.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.scores[userID]
	if !ok {
		user = make(map[string]engagement.Score, len(scores))
		m.scores[userID] = user
	}
	for b, sc := range scores {
		user[b] = sc
	}
	return nil
}

func (m *MemoryStore) add(set map[string]map[string]struct{}, userID, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set[userID] == nil {
		set[userID] = make(map[string]struct{})
	}
	set[userID][id] = struct{}{}
}

func (m *MemoryStore) remove(set map[string]map[string]struct{}, userID, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(set[userID], id)
}

func (m *MemoryStore) list(set map[string]map[string]struct{}, userID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(set[userID]))
	for id := range set[userID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
