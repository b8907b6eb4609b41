package favorites

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/m3rciful/listingbot/core/logger"
	"github.com/m3rciful/listingbot/internal/listing"
)

// PostgresStore keeps favorites in the favorites table. Rows are keyed by a
// random UUID; url_hash is stored so Remove does not rehash every row.
type PostgresStore struct {
	db Conn
}

// Conn is the part of *sqlx.DB the store uses.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// NewPostgresStore wraps an open connection. The schema comes from migrations.
func NewPostgresStore(db Conn) *PostgresStore {
	return &PostgresStore{db: db}
}

type favoriteRow struct {
	UserID   int64  `db:"user_id"`
	Title    string `db:"title"`
	Price    string `db:"price"`
	Bedrooms string `db:"bedrooms"`
	Location string `db:"location"`
	URL      string `db:"url"`
	ImageURL string `db:"image_url"`
}

// Append inserts one row.
func (s *PostgresStore) Append(ctx context.Context, userID int64, l listing.Listing) error {
	r := NewRecord(userID, l)
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (id, user_id, url_hash, title, price, bedrooms, location, url, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, r.UserID, r.Hash(), r.Title, r.Price, r.Bedrooms, r.Location, r.URL, r.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("favorites: insert: %w", err)
	}
	logger.Debug(ctx, "favorites", "favorite.appended",
		slog.Int64("user_id", userID),
		slog.String("hash", r.Hash()),
		slog.String("id", id.String()),
	)
	return nil
}

// Remove deletes every row of userID with the given hash.
func (s *PostgresStore) Remove(ctx context.Context, userID int64, hash string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND url_hash = $2`, userID, hash)
	if err != nil {
		return false, fmt.Errorf("favorites: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("favorites: delete: %w", err)
	}
	logger.Debug(ctx, "favorites", "favorite.removed",
		slog.Int64("user_id", userID),
		slog.String("hash", hash),
		slog.Int64("count", n),
	)
	return n > 0, nil
}

// List returns the user's rows in insertion order.
func (s *PostgresStore) List(ctx context.Context, userID int64) ([]Record, error) {
	var rows []favoriteRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, title, price, bedrooms, location, url, image_url
		FROM favorites
		WHERE user_id = $1
		ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("favorites: select: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record(r))
	}
	return out, nil
}
