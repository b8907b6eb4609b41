package listing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/m3rciful/listingbot/core/logger"
)

// Source supplies the listing dataset once at startup.
type Source interface {
	Load(ctx context.Context) ([]Listing, error)
}

// CSVSource reads listings from a header-addressed CSV file.
type CSVSource struct {
	Path string
}

// Load parses the file. A missing file yields an empty dataset and a warning.
func (s CSVSource) Load(ctx context.Context) ([]Listing, error) {
	start := time.Now()
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "listings", "listings.missing",
				slog.String("path", s.Path),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("open listings %s: %w", s.Path, err)
	}
	defer f.Close()

	out, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read listings %s: %w", s.Path, err)
	}
	logger.Info(ctx, "listings", "listings.loaded",
		slog.String("status", "ok"),
		slog.String("source", "csv"),
		slog.String("path", s.Path),
		slog.Int("count", len(out)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return out, nil
}

// ReadCSV decodes listings from r, normalizing every row.
func ReadCSV(r io.Reader) ([]Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []Listing
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Listing{
			Title:    strings.TrimSpace(field(row, "title")),
			Location: NormalizeLocation(field(row, "location")),
			Bedrooms: NormalizeBedrooms(field(row, "bedrooms")),
			Price:    ParsePrice(field(row, "price")),
			URL:      strings.TrimSpace(field(row, "url")),
			ImageURL: strings.TrimSpace(field(row, "image_url")),
		})
	}
	return out, nil
}

// Selector is the part of *sqlx.DB the Postgres source reads through.
type Selector interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// PostgresSource reads listings from the listings table in insertion order.
type PostgresSource struct {
	DB Selector
}

type listingRow struct {
	Title    string `db:"title"`
	Location string `db:"location"`
	Bedrooms string `db:"bedrooms"`
	Price    string `db:"price"`
	URL      string `db:"url"`
	ImageURL string `db:"image_url"`
}

// Load selects all rows and applies the same normalization as the CSV loader.
func (s PostgresSource) Load(ctx context.Context) ([]Listing, error) {
	if s.DB == nil {
		return nil, errors.New("listing: nil database")
	}
	start := time.Now()
	var rows []listingRow
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT title, location, bedrooms, price::text AS price, url, image_url
		FROM listings
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	out := make([]Listing, 0, len(rows))
	for _, r := range rows {
		out = append(out, Listing{
			Title:    strings.TrimSpace(r.Title),
			Location: NormalizeLocation(r.Location),
			Bedrooms: NormalizeBedrooms(r.Bedrooms),
			Price:    ParsePrice(r.Price),
			URL:      strings.TrimSpace(r.URL),
			ImageURL: strings.TrimSpace(r.ImageURL),
		})
	}
	logger.Info(ctx, "listings", "listings.loaded",
		slog.String("status", "ok"),
		slog.String("source", "postgres"),
		slog.Int("count", len(out)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return out, nil
}

// Locations returns the sorted distinct locations of the dataset, or
// fallback when the dataset has none. Values containing sep are skipped
// because they cannot travel inside an action payload.
func Locations(listings []Listing, fallback []string, sep string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range listings {
		loc := strings.TrimSpace(l.Location)
		if loc == "" {
			continue
		}
		if _, ok := seen[loc]; ok {
			continue
		}
		seen[loc] = struct{}{}
		if sep != "" && strings.Contains(loc, sep) {
			logger.Warn(context.Background(), "listings", "location.skipped",
				slog.String("location", loc),
				slog.String("reason", "contains_separator"),
			)
			continue
		}
		out = append(out, loc)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	sort.Strings(out)
	return out
}
