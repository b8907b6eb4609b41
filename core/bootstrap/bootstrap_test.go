package bootstrap

import (
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/listingbot/core/config"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunSkipsDatabaseForFileBackends(t *testing.T) {
	cfg := &coreconfig.Config{
		Listings:  coreconfig.ListingsConfig{Source: coreconfig.BackendCSV},
		Favorites: coreconfig.FavoritesConfig{Backend: coreconfig.BackendCSV},
	}
	res, err := Run(Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			t.Fatal("connect must not be called")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.Nil(t, res.DB)
	require.NoError(t, res.Close())
}

func TestRunPropagatesConnectError(t *testing.T) {
	cfg := &coreconfig.Config{Favorites: coreconfig.FavoritesConfig{Backend: coreconfig.BackendPostgres}}
	boom := errors.New("refused")
	_, err := Run(Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect:    func(coreconfig.DatabaseConfig) (*sqlx.DB, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "database initialization failed")
}

func TestRunPropagatesLoggerError(t *testing.T) {
	boom := errors.New("no sink")
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return boom },
	})
	require.ErrorIs(t, err, boom)
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(Options{})
	require.EqualError(t, err, "bootstrap: nil config provided")
}
