// Package csvstore implements the MetricStore port as one CSV table per
// repository, matching the column layout produced by the collector.
package csvstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/ericfisherdev/reviewlens/internal/domain/model"
	"github.com/ericfisherdev/reviewlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MetricStore = (*Store)(nil)

// Store reads and writes per-repository metrics tables under a data directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the table location for a repository.
func (s *Store) Path(repo model.Repository) string {
	return filepath.Join(s.dir, fmt.Sprintf("metrics_%s.csv", repo.Slug()))
}

// Exists reports whether a metrics table has been written for the repository.
func (s *Store) Exists(repo model.Repository) bool {
	_, err := os.Stat(s.Path(repo))
	return err == nil
}

// Write replaces the repository's table with the given rows. The write goes
// through a temp file and rename so a crash mid-write never leaves a
// truncated table behind.
func (s *Store) Write(repo model.Repository, rows []model.PRMetrics) error {
	path := s.Path(repo)

	tmp, err := os.CreateTemp(s.dir, "metrics_*.csv.tmp")
	if err != nil {
		return fmt.Errorf("creating temp table for %s: %w", repo.FullName, err)
	}
	defer os.Remove(tmp.Name())

	if err := gocsv.MarshalFile(&rows, tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing metrics for %s: %w", repo.FullName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp table for %s: %w", repo.FullName, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing table for %s: %w", repo.FullName, err)
	}
	return nil
}

// Load reads the repository's table. Returns driven.ErrNoMetrics when no
// table has been collected yet.
func (s *Store) Load(repo model.Repository) ([]model.PRMetrics, error) {
	f, err := os.Open(s.Path(repo))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("load metrics for %s: %w", repo.FullName, driven.ErrNoMetrics)
		}
		return nil, fmt.Errorf("opening table for %s: %w", repo.FullName, err)
	}
	defer f.Close()

	var rows []model.PRMetrics
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("reading metrics for %s: %w", repo.FullName, err)
	}
	return rows, nil
}
