package telegram

import (
	"context"
	"strconv"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/listingbot/core/telegram"
	"github.com/m3rciful/listingbot/core/telegram/callbacks"
	"github.com/m3rciful/listingbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/listingbot/core/telegram/helpers"
	"github.com/m3rciful/listingbot/internal/action"
	"github.com/m3rciful/listingbot/internal/bot"
	"github.com/m3rciful/listingbot/internal/display"
	"github.com/m3rciful/listingbot/internal/session"
)

// Engine is the conversation engine as seen by the handlers.
type Engine interface {
	Start(ctx context.Context, ev bot.Event) error
	Help(ctx context.Context, ev bot.Event) error
	Favorites(ctx context.Context, ev bot.Event) error
	Text(ctx context.Context, ev bot.Event) error
	Action(ctx context.Context, ev bot.Event, raw string) error
}

// Register wires the commands, one callback per action kind, the unknown
// callback fallback and the free-text fallback into reg.
func Register(reg *tg.Registry, engine Engine) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     eventHandler(engine.Start),
		Description: "Start a new search",
		Aliases:     []string{"/restart"},
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     eventHandler(engine.Help),
		Description: "How to use the bot",
	})
	reg.RegisterCommand("/favorites", commands.Command{
		Handler:     eventHandler(engine.Favorites),
		Description: "Show saved listings",
	})

	onAction := actionHandler(engine)
	for _, kind := range action.Kinds() {
		if err := reg.RegisterCallback(string(kind), onAction); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(onAction)
	reg.SetTextFallback(eventHandler(engine.Text))
	return nil
}

func eventHandler(fn func(ctx context.Context, ev bot.Event) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		return fn(tghelpers.BuildContext(c), EventFrom(c))
	}
}

func actionHandler(engine Engine) tele.HandlerFunc {
	return func(c tele.Context) error {
		return engine.Action(tghelpers.BuildContext(c), EventFrom(c), callbacks.RawData(c))
	}
}

// EventFrom extracts the engine event from an update. For callbacks the
// pressed message becomes the event source.
func EventFrom(c tele.Context) bot.Event {
	userID, chatID := tghelpers.IDs(c)
	ev := bot.Event{UserID: userID, ChatID: chatID}
	cb := c.Callback()
	if cb == nil {
		return ev
	}
	ev.Ref = display.EventRef{ID: cb.ID}
	if m := cb.Message; m != nil && m.ID != 0 {
		ref := session.DisplayRef{ChatID: chatID, MessageID: strconv.Itoa(m.ID)}
		if m.Chat != nil {
			ref.ChatID = m.Chat.ID
			if ev.ChatID == 0 {
				ev.ChatID = m.Chat.ID
			}
		}
		ev.Source = &ref
	}
	return ev
}
