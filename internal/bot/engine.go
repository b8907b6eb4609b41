// Package bot is the conversation engine: it applies inbound events to the
// user's session under the user's lock and renders the outcome.
package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/listingbot/core/logger"
	"github.com/m3rciful/listingbot/internal/action"
	"github.com/m3rciful/listingbot/internal/display"
	"github.com/m3rciful/listingbot/internal/favorites"
	"github.com/m3rciful/listingbot/internal/listing"
	"github.com/m3rciful/listingbot/internal/search"
	"github.com/m3rciful/listingbot/internal/session"
)

const component = "bot"

// Event is one inbound interaction.
type Event struct {
	UserID int64
	ChatID int64
	// Source is the message whose button was pressed; nil for commands and text.
	Source *session.DisplayRef
	Ref    display.EventRef
}

// Options is the funnel vocabulary.
type Options struct {
	Locations []string
	Bedrooms  []string
	Budgets   []search.Budget
}

// Engine dispatches events. It is safe for concurrent use.
type Engine struct {
	listings []listing.Listing
	favs     favorites.Store
	sessions *session.Manager
	view     *display.Controller
	opts     Options
}

// New builds an Engine over an immutable listing snapshot.
func New(listings []listing.Listing, favs favorites.Store, sessions *session.Manager, t display.Transport, opts Options) *Engine {
	if len(opts.Bedrooms) == 0 {
		opts.Bedrooms = search.DefaultBedrooms()
	}
	if len(opts.Budgets) == 0 {
		opts.Budgets = search.DefaultBudgets()
	}
	return &Engine{
		listings: listings,
		favs:     favs,
		sessions: sessions,
		view:     display.NewController(t),
		opts:     opts,
	}
}

// handle runs fn under the user's lock and acknowledges the event exactly
// once afterwards with the notice fn produced.
func (e *Engine) handle(ctx context.Context, ev Event, fn func(s *session.Session) (string, error)) error {
	var notice string
	err := e.sessions.WithUserLock(ev.UserID, func(s *session.Session) error {
		var err error
		notice, err = fn(s)
		return err
	})
	e.view.Ack(ctx, ev.Ref, notice)
	return err
}

// Start clears the session and shows the location prompt.
func (e *Engine) Start(ctx context.Context, ev Event) error {
	return e.handle(ctx, ev, func(s *session.Session) (string, error) {
		return "", e.restart(ctx, ev, s)
	})
}

// Help sends the usage text.
func (e *Engine) Help(ctx context.Context, ev Event) error {
	return e.handle(ctx, ev, func(*session.Session) (string, error) {
		return "", e.send(ctx, ev, display.Help())
	})
}

// Favorites sends one card per saved listing.
func (e *Engine) Favorites(ctx context.Context, ev Event) error {
	return e.handle(ctx, ev, func(*session.Session) (string, error) {
		return "", e.showFavorites(ctx, ev)
	})
}

// Text answers free text that is not a command.
func (e *Engine) Text(ctx context.Context, ev Event) error {
	return e.handle(ctx, ev, func(*session.Session) (string, error) {
		return "", e.send(ctx, ev, display.Text(display.TextFallback))
	})
}

// Action applies a button payload.
func (e *Engine) Action(ctx context.Context, ev Event, raw string) error {
	p, err := action.Decode(raw)
	if err != nil {
		return e.handle(ctx, ev, func(*session.Session) (string, error) {
			e.reject(ctx, CodeInvalidAction, err)
			return "", e.send(ctx, ev, display.Text(display.TextInvalidAction))
		})
	}
	ctx = logger.WithAction(ctx, string(p.Kind))
	return e.handle(ctx, ev, func(s *session.Session) (string, error) {
		before := s.Stage()
		notice, err := e.apply(ctx, ev, s, p)
		logger.Debug(ctx, component, "funnel.step",
			slog.String("stage", before.String()+"->"+s.Stage().String()),
			slog.Int("page", s.Page),
		)
		return notice, err
	})
}

func (e *Engine) apply(ctx context.Context, ev Event, s *session.Session, p action.Payload) (string, error) {
	switch p.Kind {
	case action.KindRestart:
		return "", e.restart(ctx, ev, s)

	case action.KindHelp:
		return "", e.send(ctx, ev, display.Help())

	case action.KindFavorites:
		return "", e.showFavorites(ctx, ev)

	case action.KindLocation:
		s.ChooseLocation(p.Value)
		return "", e.prompt(ctx, ev, display.BedroomsPrompt(s.Location, e.opts.Bedrooms))

	case action.KindBedrooms:
		if err := s.ChooseBedrooms(p.Value); err != nil {
			return "", e.expired(ctx, ev, err)
		}
		return "", e.prompt(ctx, ev, display.BudgetPrompt(s.Bedrooms, e.opts.Budgets))

	case action.KindBudget:
		if s.Location == "" || s.Bedrooms == "" {
			return "", e.expired(ctx, ev, session.ErrIncompleteFunnel)
		}
		results := search.Filter(e.listings, s.Location, s.Bedrooms, p.Budget)
		if err := s.ChooseBudget(p.Budget, results); err != nil {
			return "", e.expired(ctx, ev, err)
		}
		logger.Info(ctx, component, "search.completed",
			slog.String("location", s.Location),
			slog.String("bedrooms", s.Bedrooms),
			slog.String("budget", p.Encode()),
			slog.Int("total", len(results)),
		)
		if len(results) == 0 {
			return "", e.prompt(ctx, ev, display.NoResults())
		}
		return "", e.showResult(ctx, ev, s)

	case action.KindPage:
		changed, err := s.Advance(p.Direction)
		if err != nil {
			return "", e.expired(ctx, ev, err)
		}
		if !changed {
			return "", nil
		}
		return "", e.showResult(ctx, ev, s)

	case action.KindFavToggle:
		return e.toggle(ctx, ev, s)

	case action.KindFavRemove:
		return e.removeCard(ctx, ev, p.Hash)

	case action.KindBackToLocation:
		s.BackToLocation()
		return "", e.prompt(ctx, ev, display.Welcome(e.opts.Locations))

	case action.KindBackToBedrooms:
		if s.Location == "" {
			return "", e.expired(ctx, ev, session.ErrIncompleteFunnel)
		}
		s.BackToBedrooms()
		return "", e.prompt(ctx, ev, display.BedroomsPrompt(s.Location, e.opts.Bedrooms))

	case action.KindBackToBudget:
		if s.Location == "" || s.Bedrooms == "" {
			return "", e.expired(ctx, ev, session.ErrIncompleteFunnel)
		}
		s.BackToBudget()
		return "", e.prompt(ctx, ev, display.BudgetPrompt(s.Bedrooms, e.opts.Budgets))
	}
	e.reject(ctx, CodeInvalidAction, action.ErrInvalidPayload)
	return "", e.send(ctx, ev, display.Text(display.TextInvalidAction))
}

func (e *Engine) restart(ctx context.Context, ev Event, s *session.Session) error {
	*s = session.Session{}
	return e.prompt(ctx, ev, display.Welcome(e.opts.Locations))
}

func (e *Engine) toggle(ctx context.Context, ev Event, s *session.Session) (string, error) {
	cur, err := s.Current()
	if err != nil {
		return display.NoticeNoListing, e.expired(ctx, ev, err)
	}
	state, err := favorites.Toggle(ctx, e.favs, ev.UserID, cur)
	if err != nil {
		notice := display.NoticeSaveFailed
		if state == favorites.Saved {
			notice = display.NoticeNotRemoved
		}
		return notice, newError(CodeStoreIO, "toggle favorite", err)
	}
	logger.Info(ctx, component, "favorite.toggled",
		slog.String("hash", cur.Hash()),
		slog.String("state", state.String()),
	)
	notice := display.NoticeSaved
	if state == favorites.NotSaved {
		notice = display.NoticeRemoved
	}
	return notice, e.renderResult(ctx, ev, s, state)
}

func (e *Engine) removeCard(ctx context.Context, ev Event, hash string) (string, error) {
	removed, err := e.favs.Remove(ctx, ev.UserID, hash)
	if err != nil {
		return display.NoticeNotRemoved, newError(CodeStoreIO, "remove favorite", err)
	}
	logger.Info(ctx, component, "favorite.removed",
		slog.String("hash", hash),
		slog.Bool("removed", removed),
	)
	if !removed {
		return display.NoticeNotFound, nil
	}
	if ev.Source != nil {
		e.view.Remove(ctx, *ev.Source)
	}
	return display.NoticeCardRemoved, nil
}

func (e *Engine) showFavorites(ctx context.Context, ev Event) error {
	records, err := e.favs.List(ctx, ev.UserID)
	if err != nil {
		_ = e.send(ctx, ev, display.Text(display.TextFavoritesError))
		return newError(CodeStoreIO, "list favorites", err)
	}
	if err := e.view.Favorites(ctx, ev.ChatID, records); err != nil {
		return newError(CodeRender, "favorites", err)
	}
	return nil
}

// showResult renders the current page with a freshly read favorite state.
func (e *Engine) showResult(ctx context.Context, ev Event, s *session.Session) error {
	cur, err := s.Current()
	if err != nil {
		return e.expired(ctx, ev, err)
	}
	state, err := favorites.StateOf(ctx, e.favs, ev.UserID, cur)
	if err != nil {
		logger.Warn(ctx, component, "favorite.state_failed",
			slog.String("hash", cur.Hash()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return e.renderResult(ctx, ev, s, state)
}

func (e *Engine) renderResult(ctx context.Context, ev Event, s *session.Session, state favorites.State) error {
	cur, err := s.Current()
	if err != nil {
		return e.expired(ctx, ev, err)
	}
	v := display.ResultPage(cur, s.Page, len(s.Results), state)
	if err := e.view.ShowResult(ctx, ev.ChatID, s, v); err != nil {
		return newError(CodeRender, "result page", err)
	}
	return nil
}

func (e *Engine) prompt(ctx context.Context, ev Event, v display.View) error {
	if err := e.view.Prompt(ctx, ev.ChatID, ev.Source, v); err != nil {
		return newError(CodeRender, "prompt", err)
	}
	return nil
}

func (e *Engine) send(ctx context.Context, ev Event, v display.View) error {
	if err := e.view.Send(ctx, ev.ChatID, v); err != nil {
		return newError(CodeRender, "message", err)
	}
	return nil
}

// expired tells the user to start over without touching the session.
func (e *Engine) expired(ctx context.Context, ev Event, cause error) error {
	e.reject(ctx, CodeSessionExpired, cause)
	return e.send(ctx, ev, display.Text(display.TextSessionExpired))
}

func (e *Engine) reject(ctx context.Context, code string, cause error) {
	level := logger.Info
	if errors.Is(cause, action.ErrInvalidPayload) {
		level = logger.Warn
	}
	level(ctx, component, "action.rejected",
		slog.String("err_code", code),
		slog.String("err", logger.SanitizeLimit(cause.Error(), 256)),
	)
}
