package driven

import (
	"context"

	"github.com/ericfisherdev/reviewlens/internal/domain/model"
)

// RunStore defines the driven port for the collection run ledger.
type RunStore interface {
	Record(ctx context.Context, run model.CollectionRun) (model.CollectionRun, error)
	ListByRepo(ctx context.Context, repoFullName string) ([]model.CollectionRun, error)
	ListAll(ctx context.Context) ([]model.CollectionRun, error)
}
