package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func message(updateID int, userID int64) tele.Context {
	return tele.NewContext(nil, tele.Update{
		ID: updateID,
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
			Text:   "/start",
		},
	})
}

func callback(updateID int, userID int64) tele.Context {
	return tele.NewContext(nil, tele.Update{
		ID: updateID,
		Callback: &tele.Callback{
			Sender: &tele.User{ID: userID},
			Data:   "page|next",
		},
	})
}

func TestRateLimitPerUser(t *testing.T) {
	var handled, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(message(1, 10)))
	require.NoError(t, h(message(2, 10)))
	require.NoError(t, h(message(3, 11)))
	require.Equal(t, 2, handled)
	require.Equal(t, 1, limited)

	// callbacks bypass the limiter so double taps reach the handler
	require.NoError(t, h(callback(4, 10)))
	require.NoError(t, h(callback(5, 10)))
	require.Equal(t, 4, handled)
}

func TestRateLimitBurst(t *testing.T) {
	var handled int
	h := RateLimitMiddleware(RateLimitOptions{Interval: time.Hour, Burst: 3})(
		func(tele.Context) error { handled++; return nil })
	for i := 0; i < 5; i++ {
		require.NoError(t, h(message(i, 1)))
	}
	require.Equal(t, 3, handled)
}

func TestRateLimitDisabled(t *testing.T) {
	var handled int
	h := RateLimitMiddleware(RateLimitOptions{})(func(tele.Context) error { handled++; return nil })
	for i := 0; i < 3; i++ {
		require.NoError(t, h(message(i, 1)))
	}
	require.Equal(t, 3, handled)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	var err error
	require.NotPanics(t, func() { err = h(message(1, 1)) })
	require.EqualError(t, err, "panic: boom")
}

func TestLoggerMiddlewareStoresRID(t *testing.T) {
	c := callback(42, 7)
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get("rid").(string)
		return nil
	})
	require.NoError(t, h(c))
	require.Equal(t, "42:0:7", rid)
}

func TestUpdateKind(t *testing.T) {
	require.Equal(t, "callback", UpdateKind(callback(1, 1).Update()))
	require.Equal(t, "message", UpdateKind(message(1, 1).Update()))
	require.Equal(t, "other", UpdateKind(tele.Update{}))
}
