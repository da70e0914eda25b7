package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Content is the catalog collaborator's read model. Engagement is the
// popularity signal used for ranking and trending refresh.
type Content struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	About      string    `json:"about,omitempty"`
	Category   string    `json:"category"`
	OwnerID    uuid.UUID `json:"owner_id"`
	OwnerName  string    `json:"owner_name"`
	Engagement int64     `json:"engagement"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlayEntry is one ledger row: unique per (owner, content, calendar day).
type PlayEntry struct {
	ID        uuid.UUID
	ContentID uuid.UUID
	Progress  float64
	PlayedAt  time.Time
}

// LastPlay is the per-owner "last played" pointer. It tracks the most recent
// write regardless of day bucketing and survives per-entry deletion.
type LastPlay struct {
	ContentID uuid.UUID
	Progress  float64
	PlayedAt  time.Time
}

// PlaySnapshot is what a successful RecordPlay returns: the merged entry,
// the updated last pointer and the ledger size after the write.
type PlaySnapshot struct {
	Owner      string
	Last       LastPlay
	Entry      PlayEntry
	EntryCount int
}

// DayPlay is a ledger entry enriched for the day-grouped history view.
type DayPlay struct {
	ID        uuid.UUID `json:"id"`
	ContentID uuid.UUID `json:"content_id"`
	Title     string    `json:"title"`
	Progress  float64   `json:"progress"`
	PlayedAt  time.Time `json:"played_at"`
}

// DayGroup holds one calendar day's plays, date formatted as YYYY-MM-DD.
type DayGroup struct {
	Date  string    `json:"date"`
	Plays []DayPlay `json:"plays"`
}

// RecentPlay is a ledger entry enriched with content and uploader metadata.
type RecentPlay struct {
	ID        uuid.UUID `json:"id"`
	ContentID uuid.UUID `json:"content_id"`
	Title     string    `json:"title"`
	About     string    `json:"about,omitempty"`
	Category  string    `json:"category"`
	Progress  float64   `json:"progress"`
	PlayedAt  time.Time `json:"played_at"`
	OwnerID   uuid.UUID `json:"owner_id"`
	OwnerName string    `json:"owner_name"`
}

// PlaylistSummary is the compact playlist shape returned to recommendation
// surfaces: full item lists are fetched through the playlist browse endpoints.
type PlaylistSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	ItemCount int       `json:"item_count"`
}

// HistoryStore persists per-owner play ledgers.
//
// RecordPlay is the only mutating read path and must be implemented as an
// atomic conditional write keyed on (owner, content, calendar day): concurrent
// same-bucket writers resolve last-write-wins by played_at, never by arrival
// order, and never produce duplicate rows.
type HistoryStore interface {
	// RecordPlay merges a play event into the ledger. The second return is
	// true when the call created the owner's ledger. Fails with NotFound when
	// contentID does not reference existing content.
	RecordPlay(ctx context.Context, owner string, contentID uuid.UUID, progress float64, playedAt time.Time) (PlaySnapshot, bool, error)
	// DeleteAll removes the owner's entire ledger. No-op when none exists.
	DeleteAll(ctx context.Context, owner string) error
	// DeleteEntries removes only the entries whose id is in ids. The last
	// pointer is left untouched even when it references a removed entry.
	DeleteEntries(ctx context.Context, owner string, ids []uuid.UUID) error
	// ListByDay paginates the flattened entry list (newest day first), then
	// groups the page by calendar day.
	ListByDay(ctx context.Context, owner string, page, limit int) ([]DayGroup, error)
	// ListRecent returns entries by played_at descending, paginated, enriched
	// with content and uploader display data.
	ListRecent(ctx context.Context, owner string, page, limit int) ([]RecentPlay, error)
	// CategoriesSince returns the distinct categories of content the owner
	// played at or after since. Empty result is success.
	CategoriesSince(ctx context.Context, owner string, since time.Time) ([]string, error)
	// DistinctContentIDs returns the deduplicated content ids across the
	// owner's entire ledger.
	DistinctContentIDs(ctx context.Context, owner string) ([]uuid.UUID, error)
}

// CatalogStore reads the content catalog projection.
type CatalogStore interface {
	// ResolveContent returns the content row or NotFound.
	ResolveContent(ctx context.Context, id uuid.UUID) (Content, error)
	// TopByCategories ranks content by engagement descending with a stable
	// creation-order tie-break. Empty categories means unrestricted.
	TopByCategories(ctx context.Context, categories []string, limit int) ([]Content, error)
	// TopGroupedByCategory returns, per category, the ids of the most engaged
	// content (at most perCategory each), ordered by engagement descending.
	TopGroupedByCategory(ctx context.Context, perCategory int) (map[string][]uuid.UUID, error)
}

// PlaylistStore persists the system-owned derived playlists. All writes are
// wholesale replaces so readers never observe a half-written item list.
type PlaylistStore interface {
	// UpsertAutoPlaylist replaces the category playlist's items, creating the
	// row when absent. Title is the natural key.
	UpsertAutoPlaylist(ctx context.Context, category string, items []uuid.UUID) error
	// ListAutoPlaylists returns summaries, restricted to the given titles when
	// categories is non-empty.
	ListAutoPlaylists(ctx context.Context, categories []string) ([]PlaylistSummary, error)
	// UpsertPersonalMix replaces the owner's mix playlist wholesale.
	UpsertPersonalMix(ctx context.Context, owner, title string, items []uuid.UUID) error
	// GetPersonalMix returns the owner's mix summary or NotFound.
	GetPersonalMix(ctx context.Context, owner, title string) (PlaylistSummary, error)
}

// DayOf buckets a timestamp into its local calendar day.
func DayOf(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02")
}
