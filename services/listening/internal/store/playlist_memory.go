package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MemoryPlaylistStore is an in-memory PlaylistStore.
type MemoryPlaylistStore struct {
	mu       sync.RWMutex
	auto     map[string]*memPlaylist
	personal map[string]map[string]*memPlaylist // owner -> title -> playlist
}

type memPlaylist struct {
	id    uuid.UUID
	items []uuid.UUID
}

func NewMemoryPlaylistStore() *MemoryPlaylistStore {
	return &MemoryPlaylistStore{
		auto:     make(map[string]*memPlaylist),
		personal: make(map[string]map[string]*memPlaylist),
	}
}

func (s *MemoryPlaylistStore) UpsertAutoPlaylist(_ context.Context, category string, items []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.auto[category]
	if !ok {
		p = &memPlaylist{id: uuid.New()}
		s.auto[category] = p
	}
	p.items = append([]uuid.UUID(nil), items...)
	return nil
}

func (s *MemoryPlaylistStore) ListAutoPlaylists(_ context.Context, categories []string) ([]PlaylistSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := toSet(categories)
	var out []PlaylistSummary
	for title, p := range s.auto {
		if len(allowed) > 0 && !allowed[title] {
			continue
		}
		out = append(out, PlaylistSummary{ID: p.id, Title: title, ItemCount: len(p.items)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *MemoryPlaylistStore) UpsertPersonalMix(_ context.Context, owner, title string, items []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byTitle, ok := s.personal[owner]
	if !ok {
		byTitle = make(map[string]*memPlaylist)
		s.personal[owner] = byTitle
	}
	p, ok := byTitle[title]
	if !ok {
		p = &memPlaylist{id: uuid.New()}
		byTitle[title] = p
	}
	p.items = append([]uuid.UUID(nil), items...)
	return nil
}

func (s *MemoryPlaylistStore) GetPersonalMix(_ context.Context, owner, title string) (PlaylistSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personal[owner][title]
	if !ok {
		return PlaylistSummary{}, status.Error(codes.NotFound, "mix not found")
	}
	return PlaylistSummary{ID: p.id, Title: title, ItemCount: len(p.items)}, nil
}
