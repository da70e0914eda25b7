package materialize

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/audio-platform/services/listening/internal/recommend"
	"github.com/example/audio-platform/services/listening/internal/store"
)

type fixture struct {
	m         *Materializer
	history   *store.MemoryHistoryStore
	catalog   *store.MemoryCatalogStore
	playlists *store.MemoryPlaylistStore
}

func newFixture() *fixture {
	catalog := store.NewMemoryCatalogStore()
	history := store.NewMemoryHistoryStore(catalog)
	playlists := store.NewMemoryPlaylistStore()
	rec := recommend.New(history, catalog)
	m := New(history, catalog, playlists, rec, zap.NewNop())
	m.Sampler = recommend.NewSeededSampler(42)
	return &fixture{m: m, history: history, catalog: catalog, playlists: playlists}
}

func (f *fixture) addContent(category string, engagement int64) uuid.UUID {
	id := uuid.New()
	owner := uuid.New()
	f.catalog.AddUser(owner, "uploader")
	f.catalog.AddContent(store.Content{
		ID:         id,
		Title:      "content-" + id.String()[:8],
		Category:   category,
		OwnerID:    owner,
		Engagement: engagement,
		CreatedAt:  time.Now(),
	})
	return id
}

func (f *fixture) play(owner string, id uuid.UUID, playedAt time.Time) error {
	_, _, err := f.history.RecordPlay(context.Background(), owner, id, 1, playedAt)
	return err
}

// Thirty distinct played items sample down to exactly twenty.
func TestPersonalMix_SamplesTwentyOfThirty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	base := time.Now().AddDate(0, 0, -29)
	for i := 0; i < 30; i++ {
		id := f.addContent("tech", int64(i))
		if err := f.play("user-1", id, base.AddDate(0, 0, i%29)); err != nil {
			t.Fatalf("play %d: %v", i, err)
		}
	}

	if err := f.m.PersonalMix(ctx, "user-1"); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	mix, err := f.playlists.GetPersonalMix(ctx, "user-1", MixTitle)
	if err != nil {
		t.Fatalf("get mix: %v", err)
	}
	if mix.ItemCount != DefaultSampleSize {
		t.Fatalf("expected %d sampled items, got %d", DefaultSampleSize, mix.ItemCount)
	}
}

func TestPersonalMix_FewerThanSampleKeepsAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := f.addContent("tech", int64(i))
		if err := f.play("user-1", id, time.Now().Add(-time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("play %d: %v", i, err)
		}
	}

	if err := f.m.PersonalMix(ctx, "user-1"); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	mix, err := f.playlists.GetPersonalMix(ctx, "user-1", MixTitle)
	if err != nil {
		t.Fatalf("get mix: %v", err)
	}
	if mix.ItemCount != 5 {
		t.Fatalf("expected all 5 items, got %d", mix.ItemCount)
	}
}

// Empty history is a no-op, not an error, and never clears an existing mix.
func TestPersonalMix_EmptyHistoryNoOp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if err := f.playlists.UpsertPersonalMix(ctx, "user-1", MixTitle, []uuid.UUID{uuid.New()}); err != nil {
		t.Fatalf("seed mix: %v", err)
	}
	if err := f.m.PersonalMix(ctx, "user-1"); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	mix, err := f.playlists.GetPersonalMix(ctx, "user-1", MixTitle)
	if err != nil {
		t.Fatalf("get mix: %v", err)
	}
	if mix.ItemCount != 1 {
		t.Fatalf("expected existing mix untouched, got %d items", mix.ItemCount)
	}
}

func TestGlobalAutoPlaylists_OnePerCategory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		f.addContent("tech", int64(i))
	}
	for i := 0; i < 3; i++ {
		f.addContent("music", int64(i))
	}

	if err := f.m.GlobalAutoPlaylists(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	autos, err := f.playlists.ListAutoPlaylists(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(autos) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(autos))
	}
	byTitle := make(map[string]int)
	for _, p := range autos {
		byTitle[p.Title] = p.ItemCount
	}
	if byTitle["tech"] != DefaultSampleSize {
		t.Fatalf("expected tech sampled to %d, got %d", DefaultSampleSize, byTitle["tech"])
	}
	if byTitle["music"] != 3 {
		t.Fatalf("expected music to keep all 3, got %d", byTitle["music"])
	}
}

// failOncePlaylists rejects writes for one category and delegates the rest.
type failOncePlaylists struct {
	store.PlaylistStore
	failCategory string
}

func (s *failOncePlaylists) UpsertAutoPlaylist(ctx context.Context, category string, items []uuid.UUID) error {
	if category == s.failCategory {
		return status.Error(codes.Unavailable, "db")
	}
	return s.PlaylistStore.UpsertAutoPlaylist(ctx, category, items)
}

func TestGlobalAutoPlaylists_FailureIsolatedPerCategory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addContent("tech", 1)
	f.addContent("music", 1)

	f.m.Playlists = &failOncePlaylists{PlaylistStore: f.playlists, failCategory: "tech"}

	err := f.m.GlobalAutoPlaylists(ctx)
	if status.Code(err) != codes.Unavailable {
		t.Fatalf("expected first error returned, got %v", err)
	}
	autos, _ := f.playlists.ListAutoPlaylists(ctx, nil)
	if len(autos) != 1 || autos[0].Title != "music" {
		t.Fatal("expected the healthy category to refresh despite the failure")
	}
}

func TestRecommendedPlaylists_CapsAndAppendsMix(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	categories := []string{"tech", "music", "news", "comedy", "science", "art"}
	var techContent uuid.UUID
	for _, cat := range categories {
		id := f.addContent(cat, 10)
		if cat == "tech" {
			techContent = id
		}
		if err := f.playlists.UpsertAutoPlaylist(ctx, cat, []uuid.UUID{id}); err != nil {
			t.Fatalf("seed %s: %v", cat, err)
		}
	}
	if err := f.play("user-1", techContent, time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("play: %v", err)
	}

	out, err := f.m.RecommendedPlaylists(ctx, "user-1")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	// One favorite category plus the mix.
	if len(out) != 2 {
		t.Fatalf("expected [tech, mix], got %d entries", len(out))
	}
	if out[0].Title != "tech" || out[0].Mix {
		t.Fatalf("expected the tech auto playlist first, got %+v", out[0])
	}
	last := out[len(out)-1]
	if !last.Mix || last.Title != MixTitle {
		t.Fatalf("expected the mix appended last, got %+v", last)
	}
}

func TestRecommendedPlaylists_NoFavoritesSamplesAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, cat := range []string{"tech", "music", "news", "comedy", "science", "art"} {
		if err := f.playlists.UpsertAutoPlaylist(ctx, cat, []uuid.UUID{uuid.New()}); err != nil {
			t.Fatalf("seed %s: %v", cat, err)
		}
	}

	out, err := f.m.RecommendedPlaylists(ctx, "user-1")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	// No listening: mix is absent, so the cap alone bounds the result.
	if len(out) != DefaultPlaylistCount {
		t.Fatalf("expected %d playlists, got %d", DefaultPlaylistCount, len(out))
	}
	seen := make(map[string]bool)
	for _, p := range out {
		if p.Mix {
			t.Fatal("expected no mix without listening history")
		}
		if seen[p.Title] {
			t.Fatalf("duplicate playlist %s", p.Title)
		}
		seen[p.Title] = true
	}
}
