package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/listingbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"})
	reg.RegisterCommand("/help", commands.Command{Handler: noop, Description: "Help", Aliases: []string{"h"}})
	reg.RegisterCommand("/secret", commands.Command{Handler: noop, Description: "Hidden", Hidden: true})
	reg.RegisterCommand("nostart", commands.Command{Handler: noop, Description: "ignored"})
	reg.RegisterCommand("/empty", commands.Command{Handler: noop})

	require.Len(t, reg.Commands(), 3)
	require.Equal(t, []tele.Command{
		{Text: "help", Description: "Help"},
		{Text: "start", Description: "Start"},
	}, reg.ListCommands(true))
	require.Len(t, reg.ListCommands(false), 3)
}

func TestLookupCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/favorites", commands.Command{Handler: noop, Description: "Saved", Aliases: []string{"favs"}})

	for _, in := range []string{"/favorites", "favorites", "/favorites@listing_bot", "/favs", " favs "} {
		key, _, ok := reg.LookupCommand(in)
		require.True(t, ok, in)
		require.Equal(t, "/favorites", key, in)
	}
	_, _, ok := reg.LookupCommand("hello there")
	require.False(t, ok)
	_, _, ok = reg.LookupCommand("")
	require.False(t, ok)
}

func TestRegisterCallback(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("page", noop))
	require.Error(t, reg.RegisterCallback("page", noop))
	require.Error(t, reg.RegisterCallback("", noop))
	require.Error(t, reg.RegisterCallback("budget", nil))
	require.NoError(t, reg.RegisterCallback("budget", noop))

	_, ok := reg.GetCallback("page")
	require.True(t, ok)
	_, ok = reg.GetCallback("location")
	require.False(t, ok)
	require.Equal(t, []string{"budget", "page"}, reg.ListCallbacks())
	require.NotNil(t, reg.CallbackNotFound())
}
