package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/listingbot/core/telegram"
	"github.com/m3rciful/listingbot/core/telegram/commands"
)

type codedErr struct{ code string }

func (e codedErr) Error() string { return "coded" }
func (e codedErr) Code() string  { return e.code }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	require.Equal(t, "", deriveErrorCode(nil))
	require.Equal(t, "SESSION_EXPIRED", deriveErrorCode(codedErr{code: "session expired"}))
	require.Equal(t, "STORE_IO", deriveErrorCode(fmt.Errorf("wrap: %w", codedErr{code: "store_io"})))
	require.Equal(t, "PLAINERR", deriveErrorCode(&plainErr{}))
	require.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
}

func callbackCtx(data string) tele.Context {
	return tele.NewContext(nil, tele.Update{
		ID:       9,
		Callback: &tele.Callback{ID: "cb", Sender: &tele.User{ID: 3}, Data: data},
	})
}

func TestCallbackRouteDispatchesByKey(t *testing.T) {
	reg := tg.NewRegistry()
	var got []string
	require.NoError(t, reg.RegisterCallback("page", func(c tele.Context) error {
		got = append(got, c.Callback().Data)
		return nil
	}))
	var missing int
	route := CallbackRoute(reg, CallbackOptions{NotFound: func(tele.Context) error {
		missing++
		return nil
	}})
	require.Equal(t, tele.OnCallback, route.Endpoint)

	require.NoError(t, route.Handler(callbackCtx("page|next")))
	require.NoError(t, route.Handler(callbackCtx("bogus|1")))
	require.Equal(t, []string{"page|next"}, got)
	require.Equal(t, 1, missing)
}

func TestCallbackRouteReturnsHandlerError(t *testing.T) {
	reg := tg.NewRegistry()
	boom := codedErr{code: "invalid_action"}
	require.NoError(t, reg.RegisterCallback("budget", func(tele.Context) error { return boom }))
	route := CallbackRoute(reg, CallbackOptions{})
	require.ErrorIs(t, route.Handler(callbackCtx("budget|x|y")), boom)
}

func TestTextRoutesFallback(t *testing.T) {
	reg := tg.NewRegistry()
	var started, fell int
	reg.RegisterCommand("/start", commands.Command{
		Description: "Start",
		Handler:     func(tele.Context) error { started++; return nil },
	})
	reg.SetTextFallback(func(tele.Context) error { fell++; return nil })

	routes := TextRoutes(reg)
	require.Len(t, routes, 1)
	text := func(s string) tele.Context {
		return tele.NewContext(nil, tele.Update{ID: 1, Message: &tele.Message{
			Sender: &tele.User{ID: 1}, Chat: &tele.Chat{ID: 1}, Text: s,
		}})
	}
	require.NoError(t, routes[0].Handler(text("start")))
	require.NoError(t, routes[0].Handler(text("2 bedroom in Thika?")))
	require.Equal(t, 1, started)
	require.Equal(t, 1, fell)
}

func TestCommandRoutes(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/help", commands.Command{Description: "Help", Handler: func(tele.Context) error { return nil }})
	routes := CommandRoutes(reg)
	require.Len(t, routes, 1)
	require.Equal(t, "/help", routes[0].Endpoint)
	require.Nil(t, CommandRoutes(nil))
}
