package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, func() string) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelDebug,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	flush := func() string {
		require.NoError(t, aw.Flush())
		require.NoError(t, aw.Close())
		return strings.TrimSpace(buf.String())
	}
	return slog.New(handler), flush
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, flush := newTestLogger(t, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", "app"), slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)

	tokens := strings.Split(flush(), " ")
	require.GreaterOrEqual(t, len(tokens), 6)
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		require.True(t, strings.HasPrefix(tokens[i], prefix), "token %d = %s, expected prefix %s", i, tokens[i], prefix)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	log, flush := newTestLogger(t, formatJSON)
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	LogEvent(ctx, log.With("component", "favorites"), slog.LevelError, "favorite.toggle_failed",
		slog.String("status", "fail"),
		slog.String("err", "disk full"),
		slog.String("err_code", "STORE_IO"),
	)

	line := flush()
	require.True(t, strings.HasPrefix(line, "{"), line)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"favorites"`, `"event":"favorite.toggle_failed"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		require.NotEqual(t, -1, idx, "prefix %s missing in %s", pref, line)
		require.Greater(t, idx, pos, "prefix %s out of order in %s", pref, line)
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := BuildRID(123, 456, 789)

	log, flush := newTestLogger(t, formatKV)
	LogEvent(WithRID(Background(), rawRID), log, slog.LevelInfo, "rid.test")
	line := flush()
	require.Contains(t, line, "rid="+CompactRID(rawRID))
	require.NotContains(t, line, "rid_full=")

	log, flush = newTestLogger(t, formatJSON)
	LogEvent(WithRID(Background(), rawRID), log, slog.LevelInfo, "rid.test")
	line = flush()
	require.Contains(t, line, `"rid":"`+CompactRID(rawRID)+`"`)
	require.Contains(t, line, `"rid_full":"`+rawRID+`"`)
	require.Contains(t, line, `"ts_unix_nano"`)
}

func TestStructuredHandlerActionFromContext(t *testing.T) {
	log, flush := newTestLogger(t, formatKV)
	ctx := WithAction(WithUpdateMeta(Background(), 1, 2, 3), "fav_toggle")

	LogEvent(ctx, log, slog.LevelInfo, "action.handled", slog.Int("page", 4))

	line := flush()
	require.Contains(t, line, "action=fav_toggle")
	require.Less(t, strings.Index(line, "user_id=2"), strings.Index(line, "action=fav_toggle"))
	require.Less(t, strings.Index(line, "action=fav_toggle"), strings.Index(line, "page=4"))
}

func TestStructuredHandlerDurationKeys(t *testing.T) {
	log, flush := newTestLogger(t, formatKV)
	LogEvent(Background(), log, slog.LevelInfo, "timing",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.Duration("idle_ttl", time.Second),
		slog.Duration("render_duration", 3*time.Millisecond),
	)
	line := flush()
	require.Contains(t, line, "duration_ms=2")
	require.Contains(t, line, "idle_ttl_ms=1000")
	require.Contains(t, line, "render_duration_ms=3")
}

func TestStructuredHandlerDropsUnknownOutcome(t *testing.T) {
	log, flush := newTestLogger(t, formatKV)
	LogEvent(Background(), log, slog.LevelInfo, "outcome",
		slog.String("outcome", "sideways"),
		slog.String("status", "Rate_Limited"),
		slog.String("empty", ""),
	)
	line := flush()
	require.NotContains(t, line, "outcome=")
	require.NotContains(t, line, "empty=")
	require.Contains(t, line, "status=rate_limited")
	require.Contains(t, line, "component=app")
}

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	require.Nil(t, L)
	require.NotPanics(t, func() {
		Info(context.Background(), "sessions", "noop")
		LogEvent(context.TODO(), nil, slog.LevelWarn, "noop")
	})
	require.Nil(t, Component("display"))
}

func TestSanitizeLimit(t *testing.T) {
	require.Equal(t, "abc", SanitizeLimit("a\x00b\u200bc", 10))
	require.Equal(t, "héllo", SanitizeLimit("héllo world", 5))
	require.Equal(t, "", SanitizeLimit("anything", 0))
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/10": {1, 10},
		"20":   {1, 20},
		"0":    {0, 0},
		"junk": {0, 0},
	}
	for in, want := range cases {
		num, den := parseRatioSpec(in)
		require.Equal(t, want, [2]int{num, den}, in)
	}

	s := newRatioSampler(1, 3)
	var allowed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	require.Equal(t, 3, allowed)
}
