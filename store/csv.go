package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// CSVStore keeps each table as <dir>/<table>.csv with a header row.
type CSVStore struct {
	dir string
	mu  sync.Mutex
}

func NewCSV(dir string) (*CSVStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("csv store: missing directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &CSVStore{dir: dir}, nil
}

func (s *CSVStore) path(t Table) string {
	return filepath.Join(s.dir, string(t)+".csv")
}

func (s *CSVStore) Read(ctx context.Context, t Table) ([]Row, error) {
	if err := checkTable(t); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path(t))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", t, err)
	}

	var out []Row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", t, err)
		}
		row := Row{}
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// Overwrite replaces the table by writing a temp file and renaming it over
// the old one, so a crash leaves either the old or the new table.
func (s *CSVStore) Overwrite(ctx context.Context, t Table, rows []Row) error {
	if err := checkTable(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path(t) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(Columns[t]); err != nil {
		f.Close()
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.Values(t)); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(t))
}

func (s *CSVStore) Append(ctx context.Context, t Table, rows ...Row) error {
	if err := checkTable(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path(t), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(Columns[t]); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if err := w.Write(r.Values(t)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *CSVStore) Ping(ctx context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

func (s *CSVStore) Close() error { return nil }
