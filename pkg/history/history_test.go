package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/caseflow/pkg/adapters/memory"
	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/history"
	"github.com/aretw0/caseflow/pkg/ports"
)

func TestProjector(t *testing.T) {
	frozen := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	seq := 0
	p := history.NewProjector(
		history.WithClock(func() time.Time { return frozen }),
		history.WithIDSource(func() string {
			seq++
			return fmt.Sprintf("rec-%d", seq)
		}),
	)

	def := &domain.PlanModel{ID: "loan:1", Key: "loan", Name: "Loan Handling"}
	exec := &domain.Execution{
		ID:             "exec-1",
		CaseInstanceID: "exec-1",
		DefinitionID:   "loan:1",
		DefinitionKey:  "loan",
		BusinessKey:    "order-7",
		PlanNodeID:     "casePlanModel",
		State:          domain.StateActive,
		CreatedAt:      frozen.Add(-time.Minute),
	}

	t.Run("instance start", func(t *testing.T) {
		r := p.InstanceStarted(exec, def)
		assert.Equal(t, "rec-1", r.ID)
		assert.Equal(t, domain.TriggerCreate, r.Event)
		assert.Equal(t, domain.StateActive, r.State)
		assert.Equal(t, "Loan Handling", r.DefinitionName)
		assert.Equal(t, "order-7", r.BusinessKey)
		assert.Equal(t, exec.CreatedAt, r.CreateTime)
		assert.True(t, r.EndTime.IsZero(), "start records carry no end time")
	})

	t.Run("terminal transition stamps the end time", func(t *testing.T) {
		done := *exec
		done.State = domain.StateCompleted
		r := p.TerminalTransition(&done, def, domain.TriggerComplete)
		assert.Equal(t, "rec-2", r.ID)
		assert.Equal(t, domain.TriggerComplete, r.Event)
		assert.Equal(t, domain.StateCompleted, r.State)
		assert.Equal(t, frozen, r.EndTime)
	})

	t.Run("nil definition leaves the name empty", func(t *testing.T) {
		r := p.InstanceStarted(exec, nil)
		assert.Empty(t, r.DefinitionName)
	})
}

func seedRecords(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	records := []domain.HistoricRecord{
		{ID: "r-1", ExecutionID: "root-1", CaseInstanceID: "root-1", ActivityID: "casePlanModel", Event: domain.TriggerCreate, State: domain.StateActive, CreateTime: base},
		{ID: "r-2", ExecutionID: "task-1", CaseInstanceID: "root-1", ActivityID: "review", Event: domain.TriggerComplete, State: domain.StateCompleted, CreateTime: base, EndTime: base.Add(time.Hour)},
		{ID: "r-3", ExecutionID: "root-2", CaseInstanceID: "root-2", ActivityID: "casePlanModel", Event: domain.TriggerCreate, State: domain.StateActive, CreateTime: base},
		{ID: "r-4", ExecutionID: "root-2", CaseInstanceID: "root-2", ActivityID: "casePlanModel", Event: domain.TriggerTerminate, State: domain.StateTerminated, CreateTime: base, EndTime: base.Add(2 * time.Hour)},
	}
	err := store.Commit(context.Background(), ports.UnitOfWork{
		CaseInstanceID: "root-1",
		Records:        records,
	})
	require.NoError(t, err)
	return store
}

func TestRecordQuery(t *testing.T) {
	store := seedRecords(t)
	ctx := context.Background()

	t.Run("by case instance", func(t *testing.T) {
		records, err := history.NewRecordQuery(store).CaseInstanceID("root-1").List(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("by execution", func(t *testing.T) {
		records, err := history.NewRecordQuery(store).ExecutionID("task-1").List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "r-2", records[0].ID)
	})

	t.Run("by activity and state", func(t *testing.T) {
		n, err := history.NewRecordQuery(store).
			ActivityID("casePlanModel").
			State(domain.StateTerminated).
			Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("by event", func(t *testing.T) {
		n, err := history.NewRecordQuery(store).Event(domain.TriggerCreate).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("no filters lists everything in append order", func(t *testing.T) {
		records, err := history.NewRecordQuery(store).List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, "r-1", records[0].ID)
		assert.Equal(t, "r-4", records[3].ID)
	})

	t.Run("no match", func(t *testing.T) {
		n, err := history.NewRecordQuery(store).CaseInstanceID("ghost").Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestGetDecisionInstance(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	decision := domain.HistoricDecisionInstance{
		ID:                    "d-1",
		DecisionDefinitionID:  "score:1",
		DecisionDefinitionKey: "score",
		EvaluationTime:        time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC),
		ProcessInstanceID:     "root-1",
	}
	require.NoError(t, store.AppendDecision(ctx, decision))

	t.Run("found", func(t *testing.T) {
		got, err := history.GetDecisionInstance(ctx, store, "d-1")
		require.NoError(t, err)
		assert.Equal(t, decision, *got)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := history.GetDecisionInstance(ctx, store, "d-404")
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.EqualError(t, err, "Historic decision instance with id 'd-404' does not exist")
	})
}
