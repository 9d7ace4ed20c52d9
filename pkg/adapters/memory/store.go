package memory

import (
	"context"
	"sync"

	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/ports"
)

// Store implements ports.ExecutionStore and ports.HistoryStore in memory.
// Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	execs     map[string]*domain.Execution
	instances map[string]map[string]struct{}
	records   []domain.HistoricRecord
	decisions map[string]domain.HistoricDecisionInstance
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		execs:     make(map[string]*domain.Execution),
		instances: make(map[string]map[string]struct{}),
		decisions: make(map[string]domain.HistoricDecisionInstance),
	}
}

// Get retrieves one execution by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.execs[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "Execution", ID: id}
	}
	return exec.Clone(), nil
}

// LoadInstance returns a snapshot of all executions of one case instance.
func (s *Store) LoadInstance(ctx context.Context, caseInstanceID string) ([]*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.instances[caseInstanceID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "Case instance", ID: caseInstanceID}
	}
	out := make([]*domain.Execution, 0, len(ids))
	for id := range ids {
		out = append(out, s.execs[id].Clone())
	}
	return out, nil
}

// List returns copies of all live executions.
func (s *Store) List(ctx context.Context) ([]*domain.Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Execution, 0, len(s.execs))
	for _, e := range s.execs {
		out = append(out, e.Clone())
	}
	return out, nil
}

// Commit applies a unit of work under optimistic version checks.
// All writes are validated before any is applied.
func (s *Store) Commit(ctx context.Context, uow ports.UnitOfWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range uow.Writes {
		current, exists := s.execs[w.Execution.ID]
		if !exists {
			if w.ExpectedVersion != 0 {
				return &domain.ConcurrencyError{ExecutionID: w.Execution.ID, Expected: w.ExpectedVersion}
			}
			continue
		}
		if current.Version != w.ExpectedVersion {
			return &domain.ConcurrencyError{
				ExecutionID: w.Execution.ID,
				Expected:    w.ExpectedVersion,
				Actual:      current.Version,
			}
		}
	}

	for _, w := range uow.Writes {
		if w.Delete {
			delete(s.execs, w.Execution.ID)
			if ids, ok := s.instances[uow.CaseInstanceID]; ok {
				delete(ids, w.Execution.ID)
			}
			continue
		}
		stored := w.Execution.Clone()
		stored.Version = w.ExpectedVersion + 1
		s.execs[stored.ID] = stored
		ids, ok := s.instances[uow.CaseInstanceID]
		if !ok {
			ids = make(map[string]struct{})
			s.instances[uow.CaseInstanceID] = ids
		}
		ids[stored.ID] = struct{}{}
	}

	s.records = append(s.records, uow.Records...)
	return nil
}

// Records returns all committed historic records.
func (s *Store) Records(ctx context.Context) ([]domain.HistoricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HistoricRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// AppendDecision stores one evaluated decision instance.
func (s *Store) AppendDecision(ctx context.Context, d domain.HistoricDecisionInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions[d.ID] = d
	return nil
}

// Decision retrieves one historic decision instance by id.
func (s *Store) Decision(ctx context.Context, id string) (*domain.HistoricDecisionInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "Historic decision instance", ID: id}
	}
	return &d, nil
}

// Decisions returns all historic decision instances.
func (s *Store) Decisions(ctx context.Context) ([]domain.HistoricDecisionInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HistoricDecisionInstance, 0, len(s.decisions))
	for _, d := range s.decisions {
		out = append(out, d)
	}
	return out, nil
}
