package favorites

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/listingbot/internal/listing"
)

func newStore(t *testing.T) (*CSVStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "favorites.csv")
	s, err := NewCSVStore(path)
	require.NoError(t, err)
	return s, path
}

func flat(url string) listing.Listing {
	return listing.Listing{
		Title:    "Flat " + url,
		Location: "Thika",
		Bedrooms: "2",
		Price:    15000,
		URL:      url,
		ImageURL: "https://img.example/" + url + ".jpg",
	}
}

func TestNewCSVStoreWritesHeaderOnce(t *testing.T) {
	s, path := newStore(t)
	require.NoError(t, s.Append(context.Background(), 1, flat("u1")))

	again, err := NewCSVStore(path)
	require.NoError(t, err)
	list, err := again.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Equal(t, "user_id,title,price,bedrooms,location,url,image_url", lines[0])
	require.Len(t, lines, 2)
	require.Equal(t, "1,Flat u1,15000,2,Thika,u1,https://img.example/u1.jpg", lines[1])
}

func TestSaveThenRemoveScenario(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	l := flat("https://x.example/a")

	state, err := Toggle(ctx, s, 10, l)
	require.NoError(t, err)
	require.Equal(t, Saved, state)

	list, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []Record{NewRecord(10, l)}, list)

	removed, err := s.Remove(ctx, 10, l.Hash())
	require.NoError(t, err)
	require.True(t, removed)

	list, err = s.List(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, list)

	removed, err = s.Remove(ctx, 10, l.Hash())
	require.NoError(t, err)
	require.False(t, removed)
}

func TestToggleTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	l := flat("u1")
	require.NoError(t, s.Append(ctx, 5, flat("other")))

	before, err := s.List(ctx, 5)
	require.NoError(t, err)

	state, err := Toggle(ctx, s, 5, l)
	require.NoError(t, err)
	require.Equal(t, Saved, state)
	state, err = Toggle(ctx, s, 5, l)
	require.NoError(t, err)
	require.Equal(t, NotSaved, state)

	after, err := s.List(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestIdentityIsURLOnly(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	original := flat("same-url")
	edited := original
	edited.Title = "Renamed"
	edited.Price = 99

	require.NoError(t, s.Append(ctx, 1, original))
	state, err := StateOf(ctx, s, 1, edited)
	require.NoError(t, err)
	require.Equal(t, Saved, state)

	other := original
	other.URL = "different-url"
	state, err = StateOf(ctx, s, 1, other)
	require.NoError(t, err)
	require.Equal(t, NotSaved, state)
}

func TestRemoveDeletesDuplicatesAndSparesOtherUsers(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	l := flat("dup")
	require.NoError(t, s.Append(ctx, 1, l))
	require.NoError(t, s.Append(ctx, 1, l))
	require.NoError(t, s.Append(ctx, 2, l))
	require.NoError(t, s.Append(ctx, 1, flat("keep")))

	removed, err := s.Remove(ctx, 1, l.Hash())
	require.NoError(t, err)
	require.True(t, removed)

	mine, err := s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "keep", mine[0].URL)

	theirs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
}

func TestConcurrentWritesAcrossUsers(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	const users = 8
	for u := int64(1); u <= users; u++ {
		require.NoError(t, s.Append(ctx, u, flat("gone")))
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2*users)
	for u := int64(1); u <= users; u++ {
		wg.Add(2)
		go func(u int64) {
			defer wg.Done()
			_, err := s.Remove(ctx, u, flat("gone").Hash())
			errs <- err
		}(u)
		go func(u int64) {
			defer wg.Done()
			errs <- s.Append(ctx, u, flat("kept"))
		}(u)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for u := int64(1); u <= users; u++ {
		list, err := s.List(ctx, u)
		require.NoError(t, err)
		require.Len(t, list, 1, "user %d", u)
		require.Equal(t, "kept", list[0].URL)
	}
}

func TestRemoveKeepsRowsItDoesNotOwn(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "favorites.csv")
	header := "user_id,title,price,bedrooms,location,url,image_url,note\n"
	mine := "7,Flat,15000,2,Thika,https://x/7,,call after 5\n"
	orphan := ",Orphan,9000,1,Juja,https://x/o,,\n"
	other := "8,Other,12000,1,Ruiru,https://x/8,,\n"
	require.NoError(t, os.WriteFile(path, []byte(header+mine+orphan+other), 0o644))

	s, err := NewCSVStore(path)
	require.NoError(t, err)

	removed, err := s.Remove(ctx, 8, listing.ContentHash("https://x/none"))
	require.NoError(t, err)
	require.False(t, removed)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, header+mine+orphan+other, string(data))

	removed, err = s.Remove(ctx, 8, listing.ContentHash("https://x/8"))
	require.NoError(t, err)
	require.True(t, removed)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, header+mine+orphan, string(data))

	require.NoError(t, s.Append(ctx, 7, flat("b")))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, header+mine+orphan+"7,Flat b,15000,2,Thika,b,https://img.example/b.jpg,\n", string(data))

	list, err := s.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "https://x/7", list[0].URL)
	require.Equal(t, "b", list[1].URL)
}

func TestCSVPreservesQuotedFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	l := flat("q")
	l.Title = `2BR, "spacious" flat`
	require.NoError(t, s.Append(ctx, 3, l))

	list, err := s.List(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, l.Title, list[0].Title)
}

type failingStore struct {
	listErr, appendErr, removeErr error
	records                       []Record
}

func (f *failingStore) Append(context.Context, int64, listing.Listing) error { return f.appendErr }
func (f *failingStore) Remove(context.Context, int64, string) (bool, error) {
	return false, f.removeErr
}
func (f *failingStore) List(context.Context, int64) ([]Record, error) {
	return f.records, f.listErr
}

func TestTogglePropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	l := flat("u")

	_, err := Toggle(ctx, &failingStore{listErr: boom}, 1, l)
	require.ErrorIs(t, err, boom)

	state, err := Toggle(ctx, &failingStore{appendErr: boom}, 1, l)
	require.ErrorIs(t, err, boom)
	require.Equal(t, NotSaved, state)

	state, err = Toggle(ctx, &failingStore{removeErr: boom, records: []Record{NewRecord(1, l)}}, 1, l)
	require.ErrorIs(t, err, boom)
	require.Equal(t, Saved, state)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "saved", Saved.String())
	require.Equal(t, "not_saved", NotSaved.String())
}
