package model

import "time"

// CollectionRun records one completed collection pass over a repository:
// which window was covered, how many rows were produced, and where the
// table was written. Runs are the ledger consulted to see what data exists
// without re-listing the data directory.
type CollectionRun struct {
	ID           int64
	RepoFullName string
	WindowStart  time.Time
	WindowEnd    time.Time
	RowCount     int
	OutputPath   string
	StartedAt    time.Time
	FinishedAt   time.Time
}
