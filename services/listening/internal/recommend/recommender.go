package recommend

import (
	"context"
	"time"

	"github.com/example/audio-platform/services/listening/internal/store"
)

const (
	// DefaultWindowDays bounds how far back listening informs taste.
	DefaultWindowDays = 30
	// DefaultRecommendLimit caps the recommended content list.
	DefaultRecommendLimit = 10
)

// Recommender derives a user's favorite categories from their recent
// listening and ranks content against them.
type Recommender struct {
	History store.HistoryStore
	Catalog store.CatalogStore

	WindowDays     int
	RecommendLimit int
	Now            func() time.Time
}

func New(history store.HistoryStore, catalog store.CatalogStore) *Recommender {
	return &Recommender{
		History:        history,
		Catalog:        catalog,
		WindowDays:     DefaultWindowDays,
		RecommendLimit: DefaultRecommendLimit,
		Now:            time.Now,
	}
}

// FavoriteCategories returns the distinct categories the user played inside
// the window. No listening yields an empty slice, not an error.
func (r *Recommender) FavoriteCategories(ctx context.Context, owner string) ([]string, error) {
	since := r.Now().AddDate(0, 0, -r.WindowDays)
	return r.History.CategoriesSince(ctx, owner, since)
}

// RecommendedContent ranks content by engagement, restricted to the user's
// favorite categories when any exist. Anonymous callers (empty owner) and
// users without recent listening get the unrestricted global ranking.
func (r *Recommender) RecommendedContent(ctx context.Context, owner string) ([]store.Content, error) {
	var categories []string
	if owner != "" {
		cats, err := r.FavoriteCategories(ctx, owner)
		if err != nil {
			return nil, err
		}
		categories = cats
	}
	return r.Catalog.TopByCategories(ctx, categories, r.RecommendLimit)
}
