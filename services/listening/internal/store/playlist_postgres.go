package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// VisibilityAuto marks system-materialized playlists; they never take the
// user-editable mutation path.
const VisibilityAuto = "auto"

// PostgresPlaylistStore persists the derived playlists. Every write replaces
// the item list wholesale in a single statement.
type PostgresPlaylistStore struct {
	db *pgxpool.Pool
}

func NewPostgresPlaylistStore(db *pgxpool.Pool) *PostgresPlaylistStore {
	return &PostgresPlaylistStore{db: db}
}

func (s *PostgresPlaylistStore) UpsertAutoPlaylist(ctx context.Context, category string, items []uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `
INSERT INTO auto_playlists (id, title, items, updated_at)
VALUES ($1, $2, $3::uuid[], now())
ON CONFLICT (title)
DO UPDATE SET items = EXCLUDED.items, updated_at = now()`,
		uuid.New(), category, uuidStrings(items),
	); err != nil {
		return status.Error(codes.Unavailable, "db")
	}
	return nil
}

func (s *PostgresPlaylistStore) ListAutoPlaylists(ctx context.Context, categories []string) ([]PlaylistSummary, error) {
	var cats any
	if len(categories) > 0 {
		cats = categories
	}
	rows, err := s.db.Query(ctx, `
SELECT id, title, cardinality(items)
FROM auto_playlists
WHERE ($1::text[] IS NULL OR title = ANY($1))
ORDER BY title`, cats)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "db query")
	}
	defer rows.Close()

	var out []PlaylistSummary
	for rows.Next() {
		var p PlaylistSummary
		if err := rows.Scan(&p.ID, &p.Title, &p.ItemCount); err != nil {
			return nil, status.Error(codes.Unavailable, "db scan")
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *PostgresPlaylistStore) UpsertPersonalMix(ctx context.Context, owner, title string, items []uuid.UUID) error {
	if _, err := s.db.Exec(ctx, `
INSERT INTO personal_playlists (id, owner_id, title, items, visibility, updated_at)
VALUES ($1, $2, $3, $4::uuid[], $5, now())
ON CONFLICT (owner_id, title)
DO UPDATE SET items = EXCLUDED.items, visibility = EXCLUDED.visibility, updated_at = now()`,
		uuid.New(), owner, title, uuidStrings(items), VisibilityAuto,
	); err != nil {
		return status.Error(codes.Unavailable, "db")
	}
	return nil
}

func (s *PostgresPlaylistStore) GetPersonalMix(ctx context.Context, owner, title string) (PlaylistSummary, error) {
	var p PlaylistSummary
	err := s.db.QueryRow(ctx,
		`SELECT id, title, cardinality(items) FROM personal_playlists WHERE owner_id=$1 AND title=$2`,
		owner, title,
	).Scan(&p.ID, &p.Title, &p.ItemCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlaylistSummary{}, status.Error(codes.NotFound, "mix not found")
		}
		return PlaylistSummary{}, status.Error(codes.Unavailable, "db")
	}
	return p, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
