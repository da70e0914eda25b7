package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MemoryCatalogStore is an in-memory CatalogStore used by tests and local
// runs without Postgres.
type MemoryCatalogStore struct {
	mu       sync.RWMutex
	contents map[uuid.UUID]Content
	order    []uuid.UUID
	users    map[uuid.UUID]string
}

func NewMemoryCatalogStore() *MemoryCatalogStore {
	return &MemoryCatalogStore{
		contents: make(map[uuid.UUID]Content),
		users:    make(map[uuid.UUID]string),
	}
}

func (s *MemoryCatalogStore) AddUser(id uuid.UUID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = name
}

// AddContent registers content; insertion order is the ranking tie-break.
func (s *MemoryCatalogStore) AddContent(c Content) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contents[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	s.contents[c.ID] = c
}

func (s *MemoryCatalogStore) ResolveContent(_ context.Context, id uuid.UUID) (Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contents[id]
	if !ok {
		return Content{}, status.Error(codes.NotFound, "content not found")
	}
	c.OwnerName = s.users[c.OwnerID]
	return c, nil
}

func (s *MemoryCatalogStore) TopByCategories(_ context.Context, categories []string, limit int) ([]Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := toSet(categories)
	out := make([]Content, 0)
	for _, id := range s.order {
		c := s.contents[id]
		if len(allowed) > 0 && !allowed[c.Category] {
			continue
		}
		c.OwnerName = s.users[c.OwnerID]
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Engagement > out[j].Engagement })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryCatalogStore) TopGroupedByCategory(ctx context.Context, perCategory int) (map[string][]uuid.UUID, error) {
	ranked, err := s.TopByCategories(ctx, nil, 0)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]uuid.UUID)
	for _, c := range ranked {
		if len(out[c.Category]) < perCategory {
			out[c.Category] = append(out[c.Category], c.ID)
		}
	}
	return out, nil
}

func toSet(vals []string) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}
