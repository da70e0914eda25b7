package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryHistoryStore is an in-memory HistoryStore. The mutex makes RecordPlay
// the same atomic update-or-insert the Postgres conditional write provides.
type MemoryHistoryStore struct {
	mu      sync.RWMutex
	catalog *MemoryCatalogStore
	ledgers map[string]*memLedger
}

type memLedger struct {
	last    LastPlay
	entries []PlayEntry // most-recent-first insertion order
}

func NewMemoryHistoryStore(catalog *MemoryCatalogStore) *MemoryHistoryStore {
	return &MemoryHistoryStore{
		catalog: catalog,
		ledgers: make(map[string]*memLedger),
	}
}

func (s *MemoryHistoryStore) RecordPlay(ctx context.Context, owner string, contentID uuid.UUID, progress float64, playedAt time.Time) (PlaySnapshot, bool, error) {
	if _, err := s.catalog.ResolveContent(ctx, contentID); err != nil {
		return PlaySnapshot{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[owner]
	if !ok {
		l = &memLedger{}
		s.ledgers[owner] = l
	}

	day := DayOf(playedAt)
	var entry *PlayEntry
	for i := range l.entries {
		e := &l.entries[i]
		if e.ContentID == contentID && DayOf(e.PlayedAt) == day {
			entry = e
			break
		}
	}
	if entry != nil {
		if !entry.PlayedAt.After(playedAt) {
			entry.Progress = progress
			entry.PlayedAt = playedAt
		}
	} else {
		l.entries = append([]PlayEntry{{
			ID:        uuid.New(),
			ContentID: contentID,
			Progress:  progress,
			PlayedAt:  playedAt,
		}}, l.entries...)
		entry = &l.entries[0]
	}

	if !l.last.PlayedAt.After(playedAt) {
		l.last = LastPlay{ContentID: contentID, Progress: progress, PlayedAt: playedAt}
	}

	return PlaySnapshot{
		Owner:      owner,
		Last:       l.last,
		Entry:      *entry,
		EntryCount: len(l.entries),
	}, !ok, nil
}

func (s *MemoryHistoryStore) DeleteAll(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ledgers, owner)
	return nil
}

func (s *MemoryHistoryStore) DeleteEntries(_ context.Context, owner string, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.ledgers[owner]
	if !ok {
		return nil
	}
	drop := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	// last stays as-is even when it referenced a removed entry.
	l.entries = kept
	return nil
}

func (s *MemoryHistoryStore) ListByDay(ctx context.Context, owner string, page, limit int) ([]DayGroup, error) {
	s.mu.RLock()
	flat := s.sortedEntries(owner)
	s.mu.RUnlock()

	flat = paginate(flat, page, limit)

	var groups []DayGroup
	for _, e := range flat {
		title := ""
		if c, err := s.catalog.ResolveContent(ctx, e.ContentID); err == nil {
			title = c.Title
		}
		day := DayOf(e.PlayedAt)
		if n := len(groups); n == 0 || groups[n-1].Date != day {
			groups = append(groups, DayGroup{Date: day})
		}
		g := &groups[len(groups)-1]
		g.Plays = append(g.Plays, DayPlay{
			ID:        e.ID,
			ContentID: e.ContentID,
			Title:     title,
			Progress:  e.Progress,
			PlayedAt:  e.PlayedAt,
		})
	}
	return groups, nil
}

func (s *MemoryHistoryStore) ListRecent(ctx context.Context, owner string, page, limit int) ([]RecentPlay, error) {
	s.mu.RLock()
	flat := s.sortedEntries(owner)
	s.mu.RUnlock()

	flat = paginate(flat, page, limit)

	out := make([]RecentPlay, 0, len(flat))
	for _, e := range flat {
		p := RecentPlay{
			ID:        e.ID,
			ContentID: e.ContentID,
			Progress:  e.Progress,
			PlayedAt:  e.PlayedAt,
		}
		if c, err := s.catalog.ResolveContent(ctx, e.ContentID); err == nil {
			p.Title = c.Title
			p.About = c.About
			p.Category = c.Category
			p.OwnerID = c.OwnerID
			p.OwnerName = c.OwnerName
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *MemoryHistoryStore) CategoriesSince(ctx context.Context, owner string, since time.Time) ([]string, error) {
	s.mu.RLock()
	l, ok := s.ledgers[owner]
	var entries []PlayEntry
	if ok {
		entries = append(entries, l.entries...)
	}
	s.mu.RUnlock()

	seen := make(map[string]bool)
	var cats []string
	for _, e := range entries {
		if e.PlayedAt.Before(since) {
			continue
		}
		c, err := s.catalog.ResolveContent(ctx, e.ContentID)
		if err != nil {
			continue
		}
		if !seen[c.Category] {
			seen[c.Category] = true
			cats = append(cats, c.Category)
		}
	}
	sort.Strings(cats)
	return cats, nil
}

func (s *MemoryHistoryStore) DistinctContentIDs(_ context.Context, owner string) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.ledgers[owner]
	if !ok {
		return nil, nil
	}
	seen := make(map[uuid.UUID]bool, len(l.entries))
	var ids []uuid.UUID
	for _, e := range l.entries {
		if !seen[e.ContentID] {
			seen[e.ContentID] = true
			ids = append(ids, e.ContentID)
		}
	}
	return ids, nil
}

// sortedEntries returns a copy ordered by played_at descending.
// Callers must not hold the lock.
func (s *MemoryHistoryStore) sortedEntries(owner string) []PlayEntry {
	l, ok := s.ledgers[owner]
	if !ok {
		return nil
	}
	flat := append([]PlayEntry(nil), l.entries...)
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].PlayedAt.After(flat[j].PlayedAt) })
	return flat
}

func paginate(entries []PlayEntry, page, limit int) []PlayEntry {
	start := (page - 1) * limit
	if start >= len(entries) {
		return nil
	}
	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}
