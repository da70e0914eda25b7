// Package materialize builds the derived playlists: the per-user mix and
// the global per-category auto playlists.
package materialize

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/audio-platform/internal/platform/analytics"
	"github.com/example/audio-platform/services/listening/internal/recommend"
	"github.com/example/audio-platform/services/listening/internal/store"
)

const (
	// MixTitle names the personal sampled playlist.
	MixTitle = "Mix 20"
	// DefaultSampleSize is the item count of every materialized playlist.
	DefaultSampleSize = 20
	// DefaultPlaylistCount caps how many auto playlists a user is offered.
	DefaultPlaylistCount = 4
	// DefaultPoolSize bounds the per-category candidate pool.
	DefaultPoolSize = 100
)

// Materializer samples candidate pools into stored playlists.
type Materializer struct {
	History   store.HistoryStore
	Catalog   store.CatalogStore
	Playlists store.PlaylistStore
	Rec       *recommend.Recommender
	Sampler   recommend.Sampler
	Analytics *analytics.Publisher
	Log       *zap.Logger

	SampleSize    int
	PlaylistCount int
	PoolSize      int
}

func New(history store.HistoryStore, catalog store.CatalogStore, playlists store.PlaylistStore, rec *recommend.Recommender, log *zap.Logger) *Materializer {
	return &Materializer{
		History:       history,
		Catalog:       catalog,
		Playlists:     playlists,
		Rec:           rec,
		Sampler:       recommend.NewSampler(),
		Log:           log,
		SampleSize:    DefaultSampleSize,
		PlaylistCount: DefaultPlaylistCount,
		PoolSize:      DefaultPoolSize,
	}
}

// PersonalMix rebuilds the user's mix from their distinct played content.
// An empty history leaves any existing mix untouched.
func (m *Materializer) PersonalMix(ctx context.Context, owner string) error {
	pool, err := m.History.DistinctContentIDs(ctx, owner)
	if err != nil {
		return err
	}
	if len(pool) == 0 {
		return nil
	}

	picked := make([]uuid.UUID, 0, m.SampleSize)
	for _, i := range m.Sampler.Sample(len(pool), m.SampleSize) {
		picked = append(picked, pool[i])
	}
	if err := m.Playlists.UpsertPersonalMix(ctx, owner, MixTitle, picked); err != nil {
		return err
	}
	m.Analytics.Publish(analytics.SubjectMixMaterialized, "mix_materialized", owner, map[string]any{
		"item_count": len(picked),
	})
	return nil
}

// GlobalAutoPlaylists rebuilds one playlist per category from each
// category's engagement-ranked candidate pool. A failing category is
// logged and skipped so the rest still refresh; the first error is
// returned after the full pass.
func (m *Materializer) GlobalAutoPlaylists(ctx context.Context) error {
	pools, err := m.Catalog.TopGroupedByCategory(ctx, m.PoolSize)
	if err != nil {
		return err
	}

	var firstErr error
	for category, pool := range pools {
		if len(pool) == 0 {
			continue
		}
		picked := make([]uuid.UUID, 0, m.SampleSize)
		for _, i := range m.Sampler.Sample(len(pool), m.SampleSize) {
			picked = append(picked, pool[i])
		}
		if err := m.Playlists.UpsertAutoPlaylist(ctx, category, picked); err != nil {
			m.Log.Error("auto playlist refresh failed",
				zap.String("category", category), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr == nil {
		m.Analytics.Publish(analytics.SubjectTrendingRefresh, "trending_refreshed", "", map[string]any{
			"categories": len(pools),
		})
	}
	return firstErr
}

// PlaylistEntry is one playlist offered to a user.
type PlaylistEntry struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	ItemCount int       `json:"item_count"`
	Mix       bool      `json:"mix"`
}

// RecommendedPlaylists picks up to PlaylistCount auto playlists matching
// the user's favorite categories (all categories when the user has none)
// and appends the personal mix, materializing it on demand.
func (m *Materializer) RecommendedPlaylists(ctx context.Context, owner string) ([]PlaylistEntry, error) {
	categories, err := m.Rec.FavoriteCategories(ctx, owner)
	if err != nil {
		return nil, err
	}

	autos, err := m.Playlists.ListAutoPlaylists(ctx, categories)
	if err != nil {
		return nil, err
	}

	out := make([]PlaylistEntry, 0, m.PlaylistCount+1)
	for _, i := range m.Sampler.Sample(len(autos), m.PlaylistCount) {
		p := autos[i]
		out = append(out, PlaylistEntry{ID: p.ID, Title: p.Title, ItemCount: p.ItemCount})
	}

	if err := m.PersonalMix(ctx, owner); err != nil {
		return nil, err
	}
	mix, err := m.Playlists.GetPersonalMix(ctx, owner, MixTitle)
	if err == nil {
		out = append(out, PlaylistEntry{ID: mix.ID, Title: mix.Title, ItemCount: mix.ItemCount, Mix: true})
	}
	return out, nil
}
