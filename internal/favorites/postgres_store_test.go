package favorites

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memRow struct {
	id   uuid.UUID
	hash string
	favoriteRow
}

// memConn interprets the three statements PostgresStore issues against an
// in-memory favorites table.
type memConn struct {
	mu      sync.Mutex
	rows    []memRow
	execErr error
}

func (c *memConn) ExecContext(_ context.Context, query string, args ...interface{}) (sql.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.execErr != nil {
		return nil, c.execErr
	}
	q := strings.TrimSpace(query)
	switch {
	case strings.HasPrefix(q, "INSERT INTO favorites"):
		if len(args) != 9 {
			return nil, fmt.Errorf("insert: got %d args", len(args))
		}
		c.rows = append(c.rows, memRow{
			id:   args[0].(uuid.UUID),
			hash: args[2].(string),
			favoriteRow: favoriteRow{
				UserID:   args[1].(int64),
				Title:    args[3].(string),
				Price:    args[4].(string),
				Bedrooms: args[5].(string),
				Location: args[6].(string),
				URL:      args[7].(string),
				ImageURL: args[8].(string),
			},
		})
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(q, "DELETE FROM favorites"):
		userID, hash := args[0].(int64), args[1].(string)
		kept := c.rows[:0]
		for _, r := range c.rows {
			if r.UserID == userID && r.hash == hash {
				continue
			}
			kept = append(kept, r)
		}
		n := len(c.rows) - len(kept)
		c.rows = kept
		return driver.RowsAffected(n), nil
	}
	return nil, fmt.Errorf("unexpected statement: %s", q)
}

func (c *memConn) SelectContext(_ context.Context, dest interface{}, query string, args ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := dest.(*[]favoriteRow)
	if !ok || !strings.Contains(query, "FROM favorites") {
		return fmt.Errorf("unexpected select into %T", dest)
	}
	userID := args[0].(int64)
	for _, r := range c.rows {
		if r.UserID == userID {
			*out = append(*out, r.favoriteRow)
		}
	}
	return nil
}

// checkStoreContract runs the behaviour every Store backend shares.
func checkStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	a, b := flat("https://x.example/a"), flat("https://x.example/b")

	list, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, list)

	require.NoError(t, s.Append(ctx, 1, a))
	require.NoError(t, s.Append(ctx, 1, b))
	require.NoError(t, s.Append(ctx, 1, a))
	require.NoError(t, s.Append(ctx, 2, a))

	list, err = s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []string{a.URL, b.URL, a.URL}, []string{list[0].URL, list[1].URL, list[2].URL})
	require.Equal(t, "15000", list[0].Price)

	removed, err := s.Remove(ctx, 1, a.Hash())
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = s.Remove(ctx, 1, a.Hash())
	require.NoError(t, err)
	require.False(t, removed)

	list, err = s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, b.URL, list[0].URL)

	theirs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, theirs, 1)

	state, err := Toggle(ctx, s, 2, a)
	require.NoError(t, err)
	require.Equal(t, NotSaved, state)
	state, err = Toggle(ctx, s, 2, a)
	require.NoError(t, err)
	require.Equal(t, Saved, state)
}

func TestCSVStoreContract(t *testing.T) {
	s, _ := newStore(t)
	checkStoreContract(t, s)
}

func TestPostgresStoreContract(t *testing.T) {
	conn := &memConn{}
	checkStoreContract(t, NewPostgresStore(conn))

	ids := make(map[uuid.UUID]struct{})
	for _, r := range conn.rows {
		require.Equal(t, r.hash, Record(r.favoriteRow).Hash())
		ids[r.id] = struct{}{}
	}
	require.Len(t, ids, len(conn.rows))
}

func TestPostgresStoreWrapsErrors(t *testing.T) {
	ctx := context.Background()
	conn := &memConn{execErr: errors.New("connection reset")}
	s := NewPostgresStore(conn)

	err := s.Append(ctx, 1, flat("u"))
	require.ErrorContains(t, err, "favorites: insert")
	require.ErrorIs(t, err, conn.execErr)

	_, err = s.Remove(ctx, 1, flat("u").Hash())
	require.ErrorContains(t, err, "favorites: delete")
}
