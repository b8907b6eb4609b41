package display

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/listingbot/core/logger"
	"github.com/m3rciful/listingbot/internal/favorites"
	"github.com/m3rciful/listingbot/internal/session"
)

const component = "display"

// EventRef identifies the inbound event being acknowledged. ID is empty
// for events that need no acknowledgement on the wire, such as commands.
type EventRef struct {
	ID string
}

// Transport is the outbound side of the chat platform.
type Transport interface {
	SendPrompt(ctx context.Context, chatID int64, v View) (session.DisplayRef, error)
	EditMessage(ctx context.Context, ref session.DisplayRef, v View) error
	SendFavoriteCard(ctx context.Context, chatID int64, v View) (session.DisplayRef, error)
	DeleteMessage(ctx context.Context, ref session.DisplayRef) error
	Acknowledge(ctx context.Context, ev EventRef, notice string) error
}

// Controller owns the edit-vs-send policy on top of a Transport.
type Controller struct {
	t Transport
}

// NewController wraps t.
func NewController(t Transport) *Controller {
	return &Controller{t: t}
}

// Prompt shows a funnel view. It edits source when one is given and sends
// a new message when there is none or the edit fails.
func (c *Controller) Prompt(ctx context.Context, chatID int64, source *session.DisplayRef, v View) error {
	if source != nil {
		err := c.t.EditMessage(ctx, *source, v)
		if err == nil {
			return nil
		}
		logger.Warn(ctx, component, "prompt.edit_failed",
			slog.String("message_id", source.MessageID),
			slog.String("delivery", "send_new"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	_, err := c.send(ctx, chatID, v, c.t.SendPrompt)
	return err
}

// Send delivers v as a new message.
func (c *Controller) Send(ctx context.Context, chatID int64, v View) error {
	_, err := c.send(ctx, chatID, v, c.t.SendPrompt)
	return err
}

// ShowResult renders a result page. The tracked display message is edited
// in place when possible; otherwise a new message is sent and tracked.
func (c *Controller) ShowResult(ctx context.Context, chatID int64, s *session.Session, v View) error {
	if s.Display != nil {
		err := c.t.EditMessage(ctx, *s.Display, v)
		if err == nil {
			logger.Debug(ctx, component, "result.rendered",
				slog.String("delivery", "edit"),
				slog.Int("page", s.Page),
				slog.String("message_id", s.Display.MessageID),
			)
			return nil
		}
		logger.Warn(ctx, component, "result.edit_failed",
			slog.String("message_id", s.Display.MessageID),
			slog.String("delivery", "send_new"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	ref, err := c.send(ctx, chatID, v, c.t.SendPrompt)
	if err != nil {
		return err
	}
	s.TrackDisplay(ref)
	logger.Debug(ctx, component, "result.rendered",
		slog.String("delivery", "send"),
		slog.Int("page", s.Page),
		slog.String("message_id", ref.MessageID),
	)
	return nil
}

// Favorites sends one card per record, or a hint when there are none.
// A card that cannot be delivered is logged and skipped.
func (c *Controller) Favorites(ctx context.Context, chatID int64, records []favorites.Record) error {
	if len(records) == 0 {
		return c.Send(ctx, chatID, Text(TextNoFavorites))
	}
	var failed int
	var last error
	for _, r := range records {
		if _, err := c.send(ctx, chatID, FavoriteCard(r), c.t.SendFavoriteCard); err != nil {
			failed++
			last = err
			logger.Warn(ctx, component, "favorite.card_failed",
				slog.String("hash", r.Hash()),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
	}
	if failed == len(records) {
		return fmt.Errorf("display: no favorite card delivered: %w", last)
	}
	return nil
}

// Remove deletes a message, logging instead of failing.
func (c *Controller) Remove(ctx context.Context, ref session.DisplayRef) {
	if err := c.t.DeleteMessage(ctx, ref); err != nil {
		logger.Warn(ctx, component, "message.delete_failed",
			slog.String("message_id", ref.MessageID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

// Ack answers the inbound event with an optional short notice.
func (c *Controller) Ack(ctx context.Context, ev EventRef, notice string) {
	if err := c.t.Acknowledge(ctx, ev, notice); err != nil {
		logger.Warn(ctx, component, "ack.failed",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

type sendFunc func(ctx context.Context, chatID int64, v View) (session.DisplayRef, error)

// send delivers v with fn; a photo that cannot be sent falls back to text.
func (c *Controller) send(ctx context.Context, chatID int64, v View, fn sendFunc) (session.DisplayRef, error) {
	ref, err := fn(ctx, chatID, v)
	if err == nil || v.ImageURL == "" {
		if err != nil {
			return session.DisplayRef{}, fmt.Errorf("display: send: %w", err)
		}
		return ref, nil
	}
	logger.Warn(ctx, component, "photo.send_failed",
		slog.String("delivery", "text"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	ref, err = fn(ctx, chatID, v.WithoutImage())
	if err != nil {
		return session.DisplayRef{}, fmt.Errorf("display: send: %w", err)
	}
	return ref, nil
}
