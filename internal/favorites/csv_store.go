package favorites

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/listingbot/core/logger"
	"github.com/m3rciful/listingbot/internal/listing"
)

// Columns is the persisted favorites layout.
var Columns = []string{"user_id", "title", "price", "bedrooms", "location", "url", "image_url"}

// CSVStore keeps all users' favorites in one CSV log. Every write goes
// through a single gate shared by all users because Remove rewrites the
// whole file. Rows are kept as read: columns outside Columns and rows that
// belong to no parseable user survive every rewrite.
type CSVStore struct {
	path string
	gate sync.RWMutex
}

// NewCSVStore opens path, creating it with a header row when missing.
func NewCSVStore(path string) (*CSVStore, error) {
	s := &CSVStore{path: path}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("favorites: create dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	switch {
	case errors.Is(err, os.ErrExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("favorites: create %s: %w", path, err)
	}
	defer f.Close()
	if err := writeRows(f, Columns, nil); err != nil {
		return nil, fmt.Errorf("favorites: write header: %w", err)
	}
	return s, nil
}

// Append adds one row for userID, laid out under the file's header.
func (s *CSVStore) Append(ctx context.Context, userID int64, l listing.Listing) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	header, err := s.readHeader()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("favorites: open: %w", err)
	}
	t := newTable(header)
	row := t.row(NewRecord(userID, l))
	if header == nil {
		err = writeRows(f, t.header, [][]string{row})
	} else {
		err = writeRows(f, nil, [][]string{row})
	}
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("favorites: append: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("favorites: close: %w", err)
	}
	logger.Debug(ctx, "favorites", "favorite.appended",
		slog.Int64("user_id", userID),
		slog.String("hash", l.Hash()),
	)
	return nil
}

// Remove rewrites the log without the user's rows matching hash. Nothing is
// written when no row matches. The new content goes to a temporary file
// that is renamed over the old one.
func (s *CSVStore) Remove(ctx context.Context, userID int64, hash string) (bool, error) {
	s.gate.Lock()
	defer s.gate.Unlock()

	start := time.Now()
	t, err := s.readTable()
	if err != nil {
		return false, err
	}
	kept := make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		if r, ok := t.record(row); ok && r.UserID == userID && r.Hash() == hash {
			continue
		}
		kept = append(kept, row)
	}
	removed := len(t.rows) - len(kept)
	if removed == 0 {
		return false, nil
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("favorites: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := writeRows(tmp, t.header, kept); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return false, fmt.Errorf("favorites: rewrite: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return false, fmt.Errorf("favorites: rewrite: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return false, fmt.Errorf("favorites: replace log: %w", err)
	}

	logger.Debug(ctx, "favorites", "favorite.removed",
		slog.Int64("user_id", userID),
		slog.String("hash", hash),
		slog.Int("count", removed),
		slog.Int("rows", len(kept)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return true, nil
}

// List returns userID's rows in file order.
func (s *CSVStore) List(_ context.Context, userID int64) ([]Record, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	t, err := s.readTable()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, row := range t.rows {
		if r, ok := t.record(row); ok && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// table is the raw content of the log.
type table struct {
	header []string
	cols   map[string]int
	rows   [][]string
}

func newTable(header []string) *table {
	if len(header) == 0 {
		header = Columns
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return &table{header: header, cols: cols}
}

func (t *table) field(row []string, name string) string {
	if i, ok := t.cols[name]; ok && i < len(row) {
		return row[i]
	}
	return ""
}

// record parses row; rows without a numeric user id belong to nobody.
func (t *table) record(row []string) (Record, bool) {
	uid, err := strconv.ParseInt(t.field(row, "user_id"), 10, 64)
	if err != nil {
		return Record{}, false
	}
	return Record{
		UserID:   uid,
		Title:    t.field(row, "title"),
		Price:    t.field(row, "price"),
		Bedrooms: t.field(row, "bedrooms"),
		Location: t.field(row, "location"),
		URL:      t.field(row, "url"),
		ImageURL: t.field(row, "image_url"),
	}, true
}

// row lays r out under the table's header; unknown columns stay empty.
func (t *table) row(r Record) []string {
	values := map[string]string{
		"user_id":   strconv.FormatInt(r.UserID, 10),
		"title":     r.Title,
		"price":     r.Price,
		"bedrooms":  r.Bedrooms,
		"location":  r.Location,
		"url":       r.URL,
		"image_url": r.ImageURL,
	}
	row := make([]string, len(t.header))
	for i, h := range t.header {
		row[i] = values[h]
	}
	return row
}

func (s *CSVStore) readHeader() ([]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("favorites: open: %w", err)
	}
	defer f.Close()
	header, err := csv.NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("favorites: read header %s: %w", s.path, err)
	}
	return header, nil
}

func (s *CSVStore) readTable() (*table, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return newTable(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("favorites: open: %w", err)
	}
	defer f.Close()
	t, err := readTable(f)
	if err != nil {
		return nil, fmt.Errorf("favorites: read %s: %w", s.path, err)
	}
	return t, nil
}

func readTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return newTable(nil), nil
	}
	if err != nil {
		return nil, err
	}
	t := newTable(header)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		t.rows = append(t.rows, row)
	}
}

// writeRows writes header, when non-nil, followed by rows.
func writeRows(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if header != nil {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
