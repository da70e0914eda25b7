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

// PostgresCatalogStore reads the content catalog projection maintained by the
// catalog service.
type PostgresCatalogStore struct {
	db *pgxpool.Pool
}

func NewPostgresCatalogStore(db *pgxpool.Pool) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db}
}

func (s *PostgresCatalogStore) ResolveContent(ctx context.Context, id uuid.UUID) (Content, error) {
	var c Content
	err := s.db.QueryRow(ctx, `
SELECT c.id, c.title, c.about, c.category, c.owner_id, u.name, c.engagement_count, c.created_at
FROM content c
JOIN users u ON u.id = c.owner_id
WHERE c.id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.About, &c.Category, &c.OwnerID, &c.OwnerName, &c.Engagement, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Content{}, status.Error(codes.NotFound, "content not found")
		}
		return Content{}, status.Error(codes.Unavailable, "db")
	}
	return c, nil
}

func (s *PostgresCatalogStore) TopByCategories(ctx context.Context, categories []string, limit int) ([]Content, error) {
	// created_at/id tie-break keeps the ranking stable across runs.
	q := `
SELECT c.id, c.title, c.about, c.category, c.owner_id, u.name, c.engagement_count, c.created_at
FROM content c
JOIN users u ON u.id = c.owner_id
WHERE ($1::text[] IS NULL OR c.category = ANY($1))
ORDER BY c.engagement_count DESC, c.created_at ASC, c.id ASC
LIMIT $2`

	var cats any
	if len(categories) > 0 {
		cats = categories
	}
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.db.Query(ctx, q, cats, lim)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "db query")
	}
	defer rows.Close()

	var out []Content
	for rows.Next() {
		var c Content
		if err := rows.Scan(&c.ID, &c.Title, &c.About, &c.Category, &c.OwnerID, &c.OwnerName, &c.Engagement, &c.CreatedAt); err != nil {
			return nil, status.Error(codes.Unavailable, "db scan")
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *PostgresCatalogStore) TopGroupedByCategory(ctx context.Context, perCategory int) (map[string][]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `
SELECT category, id FROM (
  SELECT category, id,
         ROW_NUMBER() OVER (PARTITION BY category ORDER BY engagement_count DESC, created_at ASC, id ASC) AS rank
  FROM content
) ranked
WHERE rank <= $1
ORDER BY category, rank`, perCategory)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "db query")
	}
	defer rows.Close()

	out := make(map[string][]uuid.UUID)
	for rows.Next() {
		var category string
		var id uuid.UUID
		if err := rows.Scan(&category, &id); err != nil {
			return nil, status.Error(codes.Unavailable, "db scan")
		}
		out[category] = append(out[category], id)
	}
	return out, nil
}
