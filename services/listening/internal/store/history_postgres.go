package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PostgresHistoryStore is the production Postgres-backed implementation.
type PostgresHistoryStore struct {
	db *pgxpool.Pool
}

func NewPostgresHistoryStore(db *pgxpool.Pool) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

func (s *PostgresHistoryStore) RecordPlay(ctx context.Context, owner string, contentID uuid.UUID, progress float64, playedAt time.Time) (PlaySnapshot, bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM content WHERE id=$1)`, contentID).Scan(&exists); err != nil {
		return PlaySnapshot{}, false, status.Error(codes.Unavailable, "db")
	}
	if !exists {
		return PlaySnapshot{}, false, status.Error(codes.NotFound, "content not found")
	}

	day := DayOf(playedAt)

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PlaySnapshot{}, false, status.Error(codes.Unavailable, "db begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var hadLedger bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM play_last WHERE owner_id=$1)`, owner).Scan(&hadLedger); err != nil {
		return PlaySnapshot{}, false, status.Error(codes.Unavailable, "db")
	}

	// Same-day repeats of the same content collapse onto one row. The WHERE
	// clause drops stale writes so concurrent writers resolve by played_at,
	// not arrival order.
	entry := PlayEntry{ContentID: contentID}
	err = tx.QueryRow(ctx, `
INSERT INTO play_history (id, owner_id, content_id, progress, played_at, play_day)
VALUES ($1, $2, $3, $4, $5, $6::date)
ON CONFLICT (owner_id, content_id, play_day)
DO UPDATE SET
  progress  = EXCLUDED.progress,
  played_at = EXCLUDED.played_at
WHERE play_history.played_at <= EXCLUDED.played_at
RETURNING id, progress, played_at`,
		uuid.New(), owner, contentID, progress, playedAt, day,
	).Scan(&entry.ID, &entry.Progress, &entry.PlayedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return PlaySnapshot{}, false, status.Error(codes.Unavailable, "db")
		}
		// Stale write blocked by the WHERE clause; report current state.
		err = tx.QueryRow(ctx,
			`SELECT id, progress, played_at FROM play_history
			 WHERE owner_id=$1 AND content_id=$2 AND play_day=$3::date`,
			owner, contentID, day,
		).Scan(&entry.ID, &entry.Progress, &entry.PlayedAt)
		if err != nil {
			return PlaySnapshot{}, false, status.Error(codes.Unavailable, "db")
		}
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO play_last (owner_id, content_id, progress, played_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (owner_id)
DO UPDATE SET
  content_id = EXCLUDED.content_id,
  progress   = EXCLUDED.progress,
  played_at  = EXCLUDED.played_at
WHERE play_last.played_at <= EXCLUDED.played_at`,
		owner, contentID, progress, playedAt,
	); err != nil {
		return PlaySnapshot{}, false, status.Error(codes.Unavailable, "db")
	}

	snap := PlaySnapshot{Owner: owner, Entry: entry}
	err = tx.QueryRow(ctx,
		`SELECT content_id, progress, played_at FROM play_last WHERE owner_id=$1`, owner,
	).Scan(&snap.Last.ContentID, &snap.Last.Progress, &snap.Last.PlayedAt)
	if err != nil {
		return PlaySnapshot{}, false, status.Error(codes.Unavailable, "db")
	}
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM play_history WHERE owner_id=$1`, owner,
	).Scan(&snap.EntryCount); err != nil {
		return PlaySnapshot{}, false, status.Error(codes.Unavailable, "db")
	}

	if err := tx.Commit(ctx); err != nil {
		return PlaySnapshot{}, false, status.Error(codes.Unavailable, "db commit")
	}
	return snap, !hadLedger, nil
}

func (s *PostgresHistoryStore) DeleteAll(ctx context.Context, owner string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return status.Error(codes.Unavailable, "db begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM play_history WHERE owner_id=$1`, owner); err != nil {
		return status.Error(codes.Unavailable, "db")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM play_last WHERE owner_id=$1`, owner); err != nil {
		return status.Error(codes.Unavailable, "db")
	}
	if err := tx.Commit(ctx); err != nil {
		return status.Error(codes.Unavailable, "db commit")
	}
	return nil
}

func (s *PostgresHistoryStore) DeleteEntries(ctx context.Context, owner string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		strs = append(strs, id.String())
	}
	// play_last is deliberately left alone even when it points at a removed
	// entry; only delete-all clears it.
	if _, err := s.db.Exec(ctx,
		`DELETE FROM play_history WHERE owner_id=$1 AND id = ANY($2::uuid[])`, owner, strs,
	); err != nil {
		return status.Error(codes.Unavailable, "db")
	}
	return nil
}

func (s *PostgresHistoryStore) ListByDay(ctx context.Context, owner string, page, limit int) ([]DayGroup, error) {
	rows, err := s.db.Query(ctx, `
SELECT h.id, h.content_id, c.title, h.progress, h.played_at, h.play_day::text
FROM play_history h
JOIN content c ON c.id = h.content_id
WHERE h.owner_id = $1
ORDER BY h.play_day DESC, h.played_at DESC
OFFSET $2 LIMIT $3`,
		owner, (page-1)*limit, limit)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "db query")
	}
	defer rows.Close()

	var groups []DayGroup
	for rows.Next() {
		var p DayPlay
		var day string
		if err := rows.Scan(&p.ID, &p.ContentID, &p.Title, &p.Progress, &p.PlayedAt, &day); err != nil {
			return nil, status.Error(codes.Unavailable, "db scan")
		}
		if n := len(groups); n == 0 || groups[n-1].Date != day {
			groups = append(groups, DayGroup{Date: day})
		}
		last := &groups[len(groups)-1]
		last.Plays = append(last.Plays, p)
	}
	return groups, nil
}

func (s *PostgresHistoryStore) ListRecent(ctx context.Context, owner string, page, limit int) ([]RecentPlay, error) {
	rows, err := s.db.Query(ctx, `
SELECT h.id, h.content_id, c.title, c.about, c.category, h.progress, h.played_at, u.id, u.name
FROM play_history h
JOIN content c ON c.id = h.content_id
JOIN users u ON u.id = c.owner_id
WHERE h.owner_id = $1
ORDER BY h.played_at DESC
OFFSET $2 LIMIT $3`,
		owner, (page-1)*limit, limit)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "db query")
	}
	defer rows.Close()

	var out []RecentPlay
	for rows.Next() {
		var p RecentPlay
		if err := rows.Scan(&p.ID, &p.ContentID, &p.Title, &p.About, &p.Category, &p.Progress, &p.PlayedAt, &p.OwnerID, &p.OwnerName); err != nil {
			return nil, status.Error(codes.Unavailable, "db scan")
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *PostgresHistoryStore) CategoriesSince(ctx context.Context, owner string, since time.Time) ([]string, error) {
	rows, err := s.db.Query(ctx, `
SELECT DISTINCT c.category
FROM play_history h
JOIN content c ON c.id = h.content_id
WHERE h.owner_id = $1 AND h.played_at >= $2
ORDER BY c.category`,
		owner, since)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "db query")
	}
	defer rows.Close()

	var cats []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, status.Error(codes.Unavailable, "db scan")
		}
		cats = append(cats, c)
	}
	return cats, nil
}

func (s *PostgresHistoryStore) DistinctContentIDs(ctx context.Context, owner string) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT content_id FROM play_history WHERE owner_id=$1`, owner)
	if err != nil {
		return nil, status.Error(codes.Unavailable, "db query")
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, status.Error(codes.Unavailable, "db scan")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
