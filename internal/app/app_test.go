package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/listingbot/core/config"
	"github.com/m3rciful/listingbot/internal/favorites"
	"github.com/m3rciful/listingbot/internal/listing"
	"github.com/m3rciful/listingbot/internal/search"
)

func normalized(t *testing.T, mutate func(*coreconfig.Config)) *coreconfig.Config {
	t.Helper()
	cfg := &coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t"}}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, coreconfig.Normalize(cfg))
	return cfg
}

func TestEngineOptionsFromDefaults(t *testing.T) {
	cfg := normalized(t, nil)

	opts, err := EngineOptions(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, coreconfig.DefaultLocations, opts.Locations)
	require.Equal(t, search.DefaultBedrooms(), opts.Bedrooms)
	require.Equal(t, search.DefaultBudgets(), opts.Budgets)
}

func TestEngineOptionsUseCatalogueLocations(t *testing.T) {
	cfg := normalized(t, nil)
	listings := []listing.Listing{{Location: "Thika"}, {Location: "Juja"}, {Location: "Thika"}}

	opts, err := EngineOptions(cfg, listings)
	require.NoError(t, err)
	require.Equal(t, []string{"Juja", "Thika"}, opts.Locations)
}

func TestListingSourceSelection(t *testing.T) {
	cfg := normalized(t, func(c *coreconfig.Config) { c.Listings.Path = "data/l.csv" })
	require.Equal(t, listing.CSVSource{Path: "data/l.csv"}, ListingSource(cfg, nil))

	cfg.Listings.Source = coreconfig.BackendPostgres
	src, ok := ListingSource(cfg, nil).(listing.PostgresSource)
	require.True(t, ok)
	_, err := src.Load(context.Background())
	require.ErrorContains(t, err, "nil database")
}

func TestFavoritesStoreSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "favorites.csv")
	cfg := normalized(t, func(c *coreconfig.Config) { c.Favorites.Path = path })

	store, err := FavoritesStore(cfg, nil)
	require.NoError(t, err)
	_, ok := store.(*favorites.CSVStore)
	require.True(t, ok)
	_, err = os.Stat(path)
	require.NoError(t, err)

	cfg.Favorites.Backend = coreconfig.BackendPostgres
	_, err = FavoritesStore(cfg, nil)
	require.Error(t, err)
}

func TestCSVCatalogueLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	csv := "title,location,image_url,url,bedrooms,price\n" +
		"Nice flat, thika ,,https://x/1,2,15000\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))
	cfg := normalized(t, func(c *coreconfig.Config) { c.Listings.Path = path })

	listings, err := ListingSource(cfg, nil).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, "Thika", listings[0].Location)
}
