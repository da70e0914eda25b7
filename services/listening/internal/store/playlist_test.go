package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestUpsertAutoPlaylist_ReplacesWholesale(t *testing.T) {
	s := NewMemoryPlaylistStore()
	ctx := context.Background()

	if err := s.UpsertAutoPlaylist(ctx, "tech", ids(20)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertAutoPlaylist(ctx, "tech", ids(3)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	out, err := s.ListAutoPlaylists(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one playlist per category, got %d", len(out))
	}
	if out[0].ItemCount != 3 {
		t.Fatalf("expected replaced item list of 3, got %d", out[0].ItemCount)
	}
}

func TestListAutoPlaylists_FilterAndOrder(t *testing.T) {
	s := NewMemoryPlaylistStore()
	ctx := context.Background()
	for _, cat := range []string{"tech", "music", "news"} {
		if err := s.UpsertAutoPlaylist(ctx, cat, ids(5)); err != nil {
			t.Fatalf("upsert %s: %v", cat, err)
		}
	}

	all, _ := s.ListAutoPlaylists(ctx, nil)
	if len(all) != 3 || all[0].Title != "music" || all[2].Title != "tech" {
		t.Fatalf("expected title-ordered playlists, got %+v", all)
	}

	some, _ := s.ListAutoPlaylists(ctx, []string{"tech", "news"})
	if len(some) != 2 {
		t.Fatalf("expected filtered list of 2, got %d", len(some))
	}
}

func TestPersonalMix_UpsertKeepsIdentity(t *testing.T) {
	s := NewMemoryPlaylistStore()
	ctx := context.Background()

	if err := s.UpsertPersonalMix(ctx, "user-1", "Mix 20", ids(20)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	first, err := s.GetPersonalMix(ctx, "user-1", "Mix 20")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if err := s.UpsertPersonalMix(ctx, "user-1", "Mix 20", ids(7)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	second, err := s.GetPersonalMix(ctx, "user-1", "Mix 20")
	if err != nil {
		t.Fatalf("get after replace: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("expected stable playlist identity across upserts")
	}
	if second.ItemCount != 7 {
		t.Fatalf("expected replaced items, got %d", second.ItemCount)
	}
}

func TestGetPersonalMix_NotFound(t *testing.T) {
	s := NewMemoryPlaylistStore()
	_, err := s.GetPersonalMix(context.Background(), "user-1", "Mix 20")
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestPlaylistStoreInterface(t *testing.T) {
	var _ PlaylistStore = (*MemoryPlaylistStore)(nil)
	var _ PlaylistStore = (*PostgresPlaylistStore)(nil)
}
