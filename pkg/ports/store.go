package ports

import (
	"context"

	"github.com/aretw0/caseflow/pkg/domain"
)

// ExecutionWrite is one conditional mutation inside a unit of work.
// ExpectedVersion 0 with a fresh execution means "create"; Delete removes the
// row after the parent has processed the terminal transition.
type ExecutionWrite struct {
	Execution       *domain.Execution
	ExpectedVersion int64
	Delete          bool
}

// UnitOfWork is everything one command commits atomically: the conditional
// execution writes and the historic records projected from them. If any
// version check fails, nothing is applied and the store returns a
// domain.ConcurrencyError.
type UnitOfWork struct {
	CaseInstanceID string
	Writes         []ExecutionWrite
	Records        []domain.HistoricRecord
}

// ExecutionStore provides versioned read/write access to execution nodes.
// Implementations must hand out isolated copies: callers can never reach
// stored state through a returned pointer.
type ExecutionStore interface {
	// Get returns one execution by id, or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Execution, error)

	// LoadInstance returns a consistent snapshot of all executions belonging
	// to one case instance. An unknown instance id yields domain.ErrNotFound.
	LoadInstance(ctx context.Context, caseInstanceID string) ([]*domain.Execution, error)

	// List returns all live executions across instances, for the query layer.
	List(ctx context.Context) ([]*domain.Execution, error)

	// Commit applies a unit of work atomically under optimistic version
	// checks. Versions of written executions are incremented by the store.
	Commit(ctx context.Context, uow UnitOfWork) error
}

// HistoryStore is the read surface over committed historic records, plus the
// append path for decision instances evaluated outside the engine. Execution
// records enter through ExecutionStore.Commit, never directly.
type HistoryStore interface {
	Records(ctx context.Context) ([]domain.HistoricRecord, error)

	AppendDecision(ctx context.Context, d domain.HistoricDecisionInstance) error
	Decision(ctx context.Context, id string) (*domain.HistoricDecisionInstance, error)
	Decisions(ctx context.Context) ([]domain.HistoricDecisionInstance, error)
}
