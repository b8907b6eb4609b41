// Package app assembles the listing bot from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/listingbot/core/bootstrap"
	coreconfig "github.com/m3rciful/listingbot/core/config"
	"github.com/m3rciful/listingbot/core/logger"
	tg "github.com/m3rciful/listingbot/core/telegram"
	"github.com/m3rciful/listingbot/core/telegram/router"
	"github.com/m3rciful/listingbot/internal/action"
	"github.com/m3rciful/listingbot/internal/bot"
	"github.com/m3rciful/listingbot/internal/favorites"
	"github.com/m3rciful/listingbot/internal/listing"
	"github.com/m3rciful/listingbot/internal/search"
	"github.com/m3rciful/listingbot/internal/session"
	transport "github.com/m3rciful/listingbot/internal/transport/telegram"
)

const rateLimitedNotice = "Too many requests, slow down."

// App holds the wired components of a running bot.
type App struct {
	cfg      *coreconfig.Config
	infra    *bootstrap.Result
	bot      *tele.Bot
	registry *tg.Registry
	sessions *session.Manager

	stopJanitor context.CancelFunc
}

// New initializes logging and storage, loads the listing catalogue and
// builds the bot.
func New(ctx context.Context, cfg *coreconfig.Config) (*App, error) {
	infra, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	a, err := build(ctx, cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *coreconfig.Config, infra *bootstrap.Result) (*App, error) {
	listings, err := ListingSource(cfg, infra.DB).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: load listings: %w", err)
	}
	store, err := FavoritesStore(cfg, infra.DB)
	if err != nil {
		return nil, fmt.Errorf("app: favorites store: %w", err)
	}
	opts, err := EngineOptions(cfg, listings)
	if err != nil {
		return nil, err
	}

	b, err := tg.NewBot(cfg)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(session.WithIdleTTL(cfg.Session.IdleTTL))
	engine := bot.New(listings, store, sessions, transport.NewTransport(b), opts)

	reg := tg.NewRegistry()
	if err := transport.Register(reg, engine); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	logger.Info(ctx, "app", "assembled",
		slog.String("source", cfg.Listings.Source),
		slog.Int("count", len(listings)),
		slog.Int("locations", len(opts.Locations)),
		slog.String("favorites_backend", cfg.Favorites.Backend),
	)
	return &App{
		cfg:      cfg,
		infra:    infra,
		bot:      b,
		registry: reg,
		sessions: sessions,
	}, nil
}

// ListingSource picks the configured catalogue loader.
func ListingSource(cfg *coreconfig.Config, db *sqlx.DB) listing.Source {
	if cfg.Listings.Source == coreconfig.BackendPostgres {
		if db == nil {
			return listing.PostgresSource{}
		}
		return listing.PostgresSource{DB: db}
	}
	return listing.CSVSource{Path: cfg.Listings.Path}
}

// FavoritesStore opens the configured favorites backend.
func FavoritesStore(cfg *coreconfig.Config, db *sqlx.DB) (favorites.Store, error) {
	if cfg.Favorites.Backend == coreconfig.BackendPostgres {
		if db == nil {
			return nil, fmt.Errorf("postgres favorites backend without a database")
		}
		return favorites.NewPostgresStore(db), nil
	}
	return favorites.NewCSVStore(cfg.Favorites.Path)
}

// EngineOptions derives the funnel vocabulary from configuration and the
// loaded catalogue. Empty funnel lists select the search defaults.
func EngineOptions(cfg *coreconfig.Config, listings []listing.Listing) (bot.Options, error) {
	bedrooms := cfg.Funnel.Bedrooms
	if len(bedrooms) == 0 {
		bedrooms = search.DefaultBedrooms()
	}
	budgets := search.DefaultBudgets()
	if len(cfg.Funnel.Budgets) > 0 {
		budgets = make([]search.Budget, 0, len(cfg.Funnel.Budgets))
		for _, b := range cfg.Funnel.Budgets {
			max, bounded, err := b.MaxValue()
			if err != nil {
				return bot.Options{}, fmt.Errorf("app: budget %q: %w", b.Label, err)
			}
			r := search.AtLeast(b.Min)
			if bounded {
				r = search.Between(b.Min, max)
			}
			budgets = append(budgets, search.Budget{Label: b.Label, Range: r})
		}
	}
	return bot.Options{
		Locations: listing.Locations(listings, cfg.Listings.DefaultLocations, action.Separator),
		Bedrooms:  bedrooms,
		Budgets:   budgets,
	}, nil
}

// TelegramRunOptions implements cmd.App.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.registry)...)

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Bot:         a.bot,
		Middlewares: tg.DefaultMiddlewares(a.cfg, onRateLimited),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ tg.Runtime) error {
			jctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
			a.stopJanitor = cancel
			go a.sessions.RunJanitor(jctx, a.cfg.Session.SweepInterval)
			return nil
		},
		OnStop: func(context.Context, tg.Runtime) error {
			if a.stopJanitor != nil {
				a.stopJanitor()
			}
			return nil
		},
	}, nil
}

// Close releases the database connection, if any.
func (a *App) Close() error {
	if a.stopJanitor != nil {
		a.stopJanitor()
	}
	return a.infra.Close()
}

func onRateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: rateLimitedNotice})
	}
	return nil
}
