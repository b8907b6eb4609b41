package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/listingbot/internal/listing"
	"github.com/m3rciful/listingbot/internal/search"
)

func sample() []listing.Listing {
	return []listing.Listing{{Title: "A"}, {Title: "B"}, {Title: "C"}}
}

func TestFunnelTransitions(t *testing.T) {
	var s Session
	require.Equal(t, StageStart, s.Stage())
	require.True(t, s.IsEmpty())

	require.ErrorIs(t, s.ChooseBedrooms("2"), ErrIncompleteFunnel)
	require.ErrorIs(t, s.ChooseBudget(search.AtLeast(0), nil), ErrIncompleteFunnel)

	s.ChooseLocation("Thika")
	require.Equal(t, StageLocationChosen, s.Stage())

	require.NoError(t, s.ChooseBedrooms("2"))
	require.Equal(t, StageBedroomsChosen, s.Stage())

	require.NoError(t, s.ChooseBudget(search.Between(0, 10), sample()))
	require.Equal(t, StageResults, s.Stage())
	require.Equal(t, 0, s.Page)
	require.Equal(t, search.Between(0, 10), *s.Budget)

	s.TrackDisplay(DisplayRef{ChatID: 1, MessageID: "7"})
	require.NotNil(t, s.Display)

	// choosing a location from anywhere clears later state
	s.ChooseLocation("Juja")
	require.Equal(t, Session{Location: "Juja"}, s)
}

func TestEmptySnapshotIsDistinctStage(t *testing.T) {
	s := Session{Location: "Thika", Bedrooms: "2"}
	require.NoError(t, s.ChooseBudget(search.AtLeast(0), nil))
	require.Equal(t, StageResultsEmpty, s.Stage())
	_, err := s.Current()
	require.ErrorIs(t, err, ErrNoResults)
	_, err = s.Advance(search.Next)
	require.ErrorIs(t, err, ErrNoResults)
}

func TestBackDropsExactlyOneStep(t *testing.T) {
	full := func() Session {
		s := Session{Location: "Thika", Bedrooms: "2"}
		require.NoError(t, s.ChooseBudget(search.AtLeast(0), sample()))
		s.Page = 2
		s.TrackDisplay(DisplayRef{ChatID: 1, MessageID: "9"})
		return s
	}

	s := full()
	s.BackToBudget()
	require.Equal(t, Session{Location: "Thika", Bedrooms: "2"}, s)
	require.Equal(t, StageBedroomsChosen, s.Stage())

	s = full()
	s.BackToBedrooms()
	require.Equal(t, Session{Location: "Thika"}, s)
	require.Equal(t, StageLocationChosen, s.Stage())

	s = full()
	s.BackToLocation()
	require.Equal(t, Session{}, s)
}

func TestAdvanceStaysInBounds(t *testing.T) {
	s := Session{Location: "Thika", Bedrooms: "2"}
	require.NoError(t, s.ChooseBudget(search.AtLeast(0), sample()))

	changed, err := s.Advance(search.Prev)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 0, s.Page)

	for i := 0; i < 5; i++ {
		_, err = s.Advance(search.Next)
		require.NoError(t, err)
	}
	require.Equal(t, 2, s.Page)
	cur, err := s.Current()
	require.NoError(t, err)
	require.Equal(t, "C", cur.Title)
}

func TestManagerGetCreatesEmptySession(t *testing.T) {
	m := NewManager()
	require.False(t, m.Exists(42))
	s := m.Get(42)
	require.True(t, s.IsEmpty())
	require.True(t, m.Exists(42))
	require.Equal(t, 1, m.Len())
}

func TestManagerReset(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.WithUserLock(1, func(s *Session) error {
		s.ChooseLocation("Thika")
		return nil
	}))
	require.Equal(t, "Thika", m.Get(1).Location)
	m.Reset(1)
	require.True(t, m.Get(1).IsEmpty())
	require.True(t, m.Exists(1))
}

func TestWithUserLockSerializesSameUser(t *testing.T) {
	m := NewManager()
	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithUserLock(7, func(s *Session) error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				s.Page++
				time.Sleep(100 * time.Microsecond)
				inside.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), maxSeen.Load())
	require.Equal(t, 50, m.Get(7).Page)
	require.Equal(t, 1, m.Len())
}

func TestWithUserLockParallelAcrossUsers(t *testing.T) {
	m := NewManager()
	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = m.WithUserLock(1, func(*Session) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	go func() {
		_ = m.WithUserLock(2, func(*Session) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("user 2 blocked by user 1's lock")
	}
	close(release)
}

func TestEvictSkipsBusyAndFreshSessions(t *testing.T) {
	now := time.Unix(1000, 0)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
	m := NewManager(WithIdleTTL(time.Minute), WithClock(clock))

	m.Get(1)
	m.Get(2)
	advance(2 * time.Minute)
	m.Get(2)

	holding := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		_ = m.WithUserLock(3, func(*Session) error {
			close(holding)
			<-release
			return nil
		})
		close(finished)
	}()
	<-holding
	advance(2 * time.Minute)
	m.Get(2)

	require.Equal(t, 1, m.Evict())
	require.False(t, m.Exists(1))
	require.True(t, m.Exists(2))
	require.True(t, m.Exists(3))
	close(release)
	<-finished
}

func TestEvictDisabledByDefault(t *testing.T) {
	m := NewManager()
	m.Get(1)
	require.Equal(t, 0, m.Evict())
	require.True(t, m.Exists(1))
}
