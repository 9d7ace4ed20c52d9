package history

import (
	"context"

	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/ports"
)

// RecordQuery is a fluent, read-only query over committed historic records.
// It is always consistent with the last committed state.
type RecordQuery struct {
	store ports.HistoryStore

	caseInstanceID string
	executionID    string
	activityID     string
	event          domain.Trigger
	state          domain.State
}

// NewRecordQuery creates a query bound to a history store.
func NewRecordQuery(store ports.HistoryStore) *RecordQuery {
	return &RecordQuery{store: store}
}

// CaseInstanceID restricts to records of one case instance.
func (q *RecordQuery) CaseInstanceID(id string) *RecordQuery {
	q.caseInstanceID = id
	return q
}

// ExecutionID restricts to records of one execution.
func (q *RecordQuery) ExecutionID(id string) *RecordQuery {
	q.executionID = id
	return q
}

// ActivityID restricts to records of one plan node.
func (q *RecordQuery) ActivityID(id string) *RecordQuery {
	q.activityID = id
	return q
}

// Event restricts to records of one transition type.
func (q *RecordQuery) Event(t domain.Trigger) *RecordQuery {
	q.event = t
	return q
}

// State restricts to records with the given final state.
func (q *RecordQuery) State(s domain.State) *RecordQuery {
	q.state = s
	return q
}

// List returns all matching records.
func (q *RecordQuery) List(ctx context.Context) ([]domain.HistoricRecord, error) {
	records, err := q.store.Records(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.HistoricRecord, 0, len(records))
	for _, r := range records {
		if q.matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Count returns the number of matching records.
func (q *RecordQuery) Count(ctx context.Context) (int, error) {
	list, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

func (q *RecordQuery) matches(r domain.HistoricRecord) bool {
	if q.caseInstanceID != "" && r.CaseInstanceID != q.caseInstanceID {
		return false
	}
	if q.executionID != "" && r.ExecutionID != q.executionID {
		return false
	}
	if q.activityID != "" && r.ActivityID != q.activityID {
		return false
	}
	if q.event != "" && r.Event != q.event {
		return false
	}
	if q.state != "" && r.State != q.state {
		return false
	}
	return true
}

// GetDecisionInstance resolves one historic decision instance by id.
// A miss is a domain.NotFoundError carrying the reporting-layer entity name.
func GetDecisionInstance(ctx context.Context, store ports.HistoryStore, id string) (*domain.HistoricDecisionInstance, error) {
	return store.Decision(ctx, id)
}
