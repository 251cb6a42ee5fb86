package driven

import (
	"errors"

	"github.com/ericfisherdev/reviewlens/internal/domain/model"
)

// ErrNoMetrics indicates that no metrics table has been collected for the
// requested repository.
var ErrNoMetrics = errors.New("no metrics collected for repository")

// MetricStore defines the driven port for the per-repository metrics tables.
// Load returns ErrNoMetrics when the repository has no table yet.
type MetricStore interface {
	Write(repo model.Repository, rows []model.PRMetrics) error
	Load(repo model.Repository) ([]model.PRMetrics, error)
	Exists(repo model.Repository) bool
	// Path returns the location a repository's table is (or would be)
	// written to.
	Path(repo model.Repository) string
}
