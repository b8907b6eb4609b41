// Package telegram connects the conversation engine to Telegram: it renders
// display views through the Bot API and turns updates into engine events.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/listingbot/core/telegram/keyboard"
	"github.com/m3rciful/listingbot/internal/display"
	"github.com/m3rciful/listingbot/internal/session"
)

// API is the subset of the Bot API the transport uses. *tele.Bot satisfies it.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditMedia(msg tele.Editable, media tele.Inputtable, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Transport implements display.Transport over the Bot API.
type Transport struct {
	api API
}

var _ display.Transport = (*Transport)(nil)

// NewTransport wraps api.
func NewTransport(api API) *Transport {
	return &Transport{api: api}
}

// SendPrompt sends v as a new message.
func (t *Transport) SendPrompt(_ context.Context, chatID int64, v display.View) (session.DisplayRef, error) {
	return t.send(chatID, v)
}

// SendFavoriteCard sends a favorite card as a new message.
func (t *Transport) SendFavoriteCard(_ context.Context, chatID int64, v display.View) (session.DisplayRef, error) {
	return t.send(chatID, v)
}

// EditMessage replaces the content of ref. Views with an image swap the
// media; others edit the text. An edit that changes nothing succeeds.
func (t *Transport) EditMessage(_ context.Context, ref session.DisplayRef, v display.View) error {
	msg := storedMessage(ref)
	var err error
	if v.ImageURL != "" {
		_, err = t.api.EditMedia(msg, photo(v), sendOptions(v))
	} else {
		_, err = t.api.Edit(msg, v.Text, sendOptions(v))
	}
	if err != nil && !isNotModified(err) {
		return fmt.Errorf("telegram: edit %s: %w", ref.MessageID, err)
	}
	return nil
}

// DeleteMessage removes ref from the chat.
func (t *Transport) DeleteMessage(_ context.Context, ref session.DisplayRef) error {
	if err := t.api.Delete(storedMessage(ref)); err != nil {
		return fmt.Errorf("telegram: delete %s: %w", ref.MessageID, err)
	}
	return nil
}

// Acknowledge answers a callback query. Events without an id, such as
// commands, need no answer.
func (t *Transport) Acknowledge(_ context.Context, ev display.EventRef, notice string) error {
	if ev.ID == "" {
		return nil
	}
	resp := &tele.CallbackResponse{Text: notice}
	if err := t.api.Respond(&tele.Callback{ID: ev.ID}, resp); err != nil {
		return fmt.Errorf("telegram: answer callback: %w", err)
	}
	return nil
}

func (t *Transport) send(chatID int64, v display.View) (session.DisplayRef, error) {
	var what interface{} = v.Text
	if v.ImageURL != "" {
		what = photo(v)
	}
	msg, err := t.api.Send(tele.ChatID(chatID), what, sendOptions(v))
	if err != nil {
		return session.DisplayRef{}, fmt.Errorf("telegram: send: %w", err)
	}
	if msg == nil {
		return session.DisplayRef{}, errors.New("telegram: send: empty response")
	}
	ref := session.DisplayRef{ChatID: chatID, MessageID: strconv.Itoa(msg.ID)}
	if msg.Chat != nil {
		ref.ChatID = msg.Chat.ID
	}
	return ref, nil
}

func storedMessage(ref session.DisplayRef) tele.StoredMessage {
	return tele.StoredMessage{MessageID: ref.MessageID, ChatID: ref.ChatID}
}

func photo(v display.View) *tele.Photo {
	return &tele.Photo{File: tele.FromURL(v.ImageURL), Caption: v.Text}
}

func sendOptions(v display.View) *tele.SendOptions {
	opts := &tele.SendOptions{ReplyMarkup: Markup(v.Keyboard)}
	if v.Markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	return opts
}

// Markup converts view buttons into an inline keyboard.
func Markup(rows [][]display.Button) *tele.ReplyMarkup {
	out := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		r := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			r = append(r, keyboard.InlineBtn{Text: b.Label, Data: b.Action.Encode()})
		}
		out = append(out, r)
	}
	return keyboard.InlineButtonsRows(out...)
}

func isNotModified(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "message is not modified")
}
