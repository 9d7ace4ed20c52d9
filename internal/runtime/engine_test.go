package runtime_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/caseflow/internal/runtime"
	"github.com/aretw0/caseflow/pkg/adapters/memory"
	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/dsl"
	"github.com/aretw0/caseflow/pkg/history"
	"github.com/aretw0/caseflow/pkg/ports"
)

func newEngine(t *testing.T, plan *domain.PlanModel, opts ...runtime.EngineOption) (*runtime.Engine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	resolver, err := memory.NewResolver(plan)
	require.NoError(t, err)
	return runtime.NewEngine(store, resolver, opts...), store
}

// findByPlanNode returns the live execution instantiated from one plan node.
func findByPlanNode(t *testing.T, store *memory.Store, instanceID, planNodeID string) *domain.Execution {
	t.Helper()
	execs, err := store.LoadInstance(context.Background(), instanceID)
	require.NoError(t, err)
	for _, e := range execs {
		if e.PlanNodeID == planNodeID {
			return e
		}
	}
	t.Fatalf("no live execution for plan node %s", planNodeID)
	return nil
}

func stagePlan(t *testing.T) *domain.PlanModel {
	t.Helper()
	plan, err := dsl.NewPlan("loan", "Loan Handling").
		Stage("intake", "Intake").
		Task("review", "Review Application").In("intake").Required().
		Build()
	require.NoError(t, err)
	return plan
}

func TestCreateInstance(t *testing.T) {
	eng, store := newEngine(t, stagePlan(t))
	ctx := context.Background()

	result, err := eng.CreateInstance(ctx, "loan", "order-77", map[string]any{"amount": 1200})
	require.NoError(t, err)

	t.Run("root is active and carries instance identity", func(t *testing.T) {
		root := result.Execution
		assert.Equal(t, domain.StateActive, root.State)
		assert.Equal(t, root.ID, root.CaseInstanceID)
		assert.Equal(t, "order-77", root.BusinessKey)
		assert.Equal(t, 1200, root.Variables["amount"])
	})

	t.Run("children without entry criteria auto-start", func(t *testing.T) {
		stage := findByPlanNode(t, store, result.CaseInstanceID, "intake")
		task := findByPlanNode(t, store, result.CaseInstanceID, "review")
		assert.Equal(t, domain.StateActive, stage.State)
		assert.Equal(t, domain.StateActive, task.State)
	})

	t.Run("exactly one instance-start record", func(t *testing.T) {
		n, err := history.NewRecordQuery(store).
			CaseInstanceID(result.CaseInstanceID).
			Event(domain.TriggerCreate).
			Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("unknown definition key", func(t *testing.T) {
		_, err := eng.CreateInstance(ctx, "ghost", "", nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestTaskCompletionCascade(t *testing.T) {
	eng, store := newEngine(t, stagePlan(t))
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)
	task := findByPlanNode(t, store, created.CaseInstanceID, "review")

	result, err := eng.Submit(ctx, runtime.Command{
		Trigger:   domain.TriggerComplete,
		TargetID:  task.ID,
		Variables: map[string]any{"outcome": "approved"},
	})
	require.NoError(t, err)

	t.Run("stage and root complete in the same command", func(t *testing.T) {
		root, err := eng.GetExecution(ctx, created.CaseInstanceID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, root.State)
	})

	t.Run("terminal composites drop their children from the live tree", func(t *testing.T) {
		execs, err := store.LoadInstance(ctx, created.CaseInstanceID)
		require.NoError(t, err)
		require.Len(t, execs, 1)
		assert.Equal(t, created.CaseInstanceID, execs[0].ID)
	})

	t.Run("one terminal record per node", func(t *testing.T) {
		for _, activity := range []string{"review", "intake", "casePlanModel"} {
			n, err := history.NewRecordQuery(store).
				ActivityID(activity).
				State(domain.StateCompleted).
				Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n, activity)
		}
	})

	t.Run("transitions report the full cascade", func(t *testing.T) {
		assert.Len(t, result.Transitions, 3)
	})
}

func TestTaskOutputVariablesLandInParentScope(t *testing.T) {
	plan, err := dsl.NewPlan("loan", "Loan Handling").
		Stage("intake", "Intake").
		Task("collect", "Collect").In("intake").Required().
		Task("review", "Review").In("intake").Required().
		Build()
	require.NoError(t, err)
	eng, store := newEngine(t, plan)
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)
	collect := findByPlanNode(t, store, created.CaseInstanceID, "collect")

	_, err = eng.Submit(ctx, runtime.Command{
		Trigger:   domain.TriggerComplete,
		TargetID:  collect.ID,
		Variables: map[string]any{"documents": 3},
	})
	require.NoError(t, err)

	stage := findByPlanNode(t, store, created.CaseInstanceID, "intake")
	assert.Equal(t, 3, stage.Variables["documents"], "output written to the enclosing scope")
}

func TestManualActivation(t *testing.T) {
	plan, err := dsl.NewPlan("loan", "Loan Handling").
		Task("review", "Review").Manual().Required().
		Build()
	require.NoError(t, err)
	eng, store := newEngine(t, plan)
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)
	task := findByPlanNode(t, store, created.CaseInstanceID, "review")
	require.Equal(t, domain.StateEnabled, task.State, "manual activation holds at enabled")

	step := func(trigger domain.Trigger) *domain.Execution {
		t.Helper()
		result, err := eng.Submit(ctx, runtime.Command{Trigger: trigger, TargetID: task.ID})
		require.NoError(t, err)
		return result.Execution
	}

	assert.Equal(t, domain.StateDisabled, step(domain.TriggerDisable).State)
	assert.Equal(t, domain.StateEnabled, step(domain.TriggerReenable).State)
	assert.Equal(t, domain.StateActive, step(domain.TriggerManualStart).State)

	t.Run("disable requires manual activation nodes", func(t *testing.T) {
		autoPlan, err := dsl.NewPlan("auto", "Auto").
			Task("work", "Work").Manual().
			Task("other", "Other").
			Build()
		require.NoError(t, err)
		eng2, store2 := newEngine(t, autoPlan)
		created2, err := eng2.CreateInstance(ctx, "auto", "", nil)
		require.NoError(t, err)

		other := findByPlanNode(t, store2, created2.CaseInstanceID, "other")
		_, err = eng2.Submit(ctx, runtime.Command{Trigger: domain.TriggerDisable, TargetID: other.ID})
		require.Error(t, err)
	})
}

func TestSuspendResume(t *testing.T) {
	eng, store := newEngine(t, stagePlan(t))
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)
	task := findByPlanNode(t, store, created.CaseInstanceID, "review")

	suspended, err := eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerSuspend, TargetID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StateSuspended, suspended.Execution.State)
	assert.Equal(t, domain.StateActive, suspended.Execution.PreviousState)

	t.Run("suspended required child still blocks parent completion", func(t *testing.T) {
		stage := findByPlanNode(t, store, created.CaseInstanceID, "intake")
		_, err := eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerComplete, TargetID: stage.ID})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	resumed, err := eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerResume, TargetID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StateActive, resumed.Execution.State)
	assert.Empty(t, resumed.Execution.PreviousState)
}

func TestMilestoneOccursOnGuard(t *testing.T) {
	plan, err := dsl.NewPlan("loan", "Loan Handling").
		Task("review", "Review").Required().
		Milestone("accepted", "Accepted").
		Entry(dsl.If("score", domain.OpGreaterThan, 700)).
		Build()
	require.NoError(t, err)
	eng, store := newEngine(t, plan)
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", map[string]any{"score": 500})
	require.NoError(t, err)

	milestone := findByPlanNode(t, store, created.CaseInstanceID, "accepted")
	require.Equal(t, domain.StateAvailable, milestone.State, "guard not yet satisfied")

	_, err = eng.Submit(ctx, runtime.Command{
		Trigger:   domain.TriggerSetVariables,
		TargetID:  created.CaseInstanceID,
		Variables: map[string]any{"score": 800},
	})
	require.NoError(t, err)

	milestone = findByPlanNode(t, store, created.CaseInstanceID, "accepted")
	assert.Equal(t, domain.StateCompleted, milestone.State, "milestone occurs the moment it enables")
}

func TestSentryFiresBeforeParentAutoCompletion(t *testing.T) {
	plan, err := dsl.NewPlan("loan", "Loan Handling").
		Stage("intake", "Intake").
		Task("review", "Review").In("intake").Required().
		Milestone("accepted", "Accepted").
		Entry(dsl.On("intake", domain.EventComplete)).
		Build()
	require.NoError(t, err)
	eng, store := newEngine(t, plan)
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)
	review := findByPlanNode(t, store, created.CaseInstanceID, "review")

	// Completing the task completes the stage, which satisfies the milestone's
	// entry criterion. The milestone must occur before the root consumes the
	// stage completion, not be swept away by the root auto-completing past it.
	_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerComplete, TargetID: review.ID})
	require.NoError(t, err)

	occurred, err := history.NewRecordQuery(store).
		ActivityID("accepted").
		State(domain.StateCompleted).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, occurred, "milestone chained to the stage completion")

	root, err := eng.GetExecution(ctx, created.CaseInstanceID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, root.State)
}

func TestUnmetChildrenTerminateOnCompletion(t *testing.T) {
	plan, err := dsl.NewPlan("loan", "Loan Handling").
		Task("review", "Review").Required().
		Milestone("escalated", "Escalated").
		Entry(dsl.If("complaints", domain.OpGreaterThan, 0)).
		Build()
	require.NoError(t, err)
	eng, store := newEngine(t, plan)
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)
	review := findByPlanNode(t, store, created.CaseInstanceID, "review")

	_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerComplete, TargetID: review.ID})
	require.NoError(t, err)

	t.Run("the never-satisfied milestone leaves a terminate record", func(t *testing.T) {
		terminated, err := history.NewRecordQuery(store).
			ActivityID("escalated").
			State(domain.StateTerminated).
			Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, terminated)
	})

	t.Run("root still completes", func(t *testing.T) {
		root, err := eng.GetExecution(ctx, created.CaseInstanceID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, root.State)
	})
}

func TestSentryOnPartChainsActivation(t *testing.T) {
	plan, err := dsl.NewPlan("claims", "Claims").
		Task("assess", "Assess").Required().
		Task("payout", "Payout").Required().
		Entry(dsl.On("assess", domain.EventComplete)).
		Build()
	require.NoError(t, err)
	eng, store := newEngine(t, plan)
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "claims", "", nil)
	require.NoError(t, err)

	payout := findByPlanNode(t, store, created.CaseInstanceID, "payout")
	require.Equal(t, domain.StateAvailable, payout.State)

	assess := findByPlanNode(t, store, created.CaseInstanceID, "assess")
	_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerComplete, TargetID: assess.ID})
	require.NoError(t, err)

	payout = findByPlanNode(t, store, created.CaseInstanceID, "payout")
	assert.Equal(t, domain.StateActive, payout.State, "entry sentry fires within the same command")
}

func TestExitCriterionCascadesTermination(t *testing.T) {
	plan, err := dsl.NewPlan("loan", "Loan Handling").
		Stage("intake", "Intake").
		Exit(dsl.If("cancelled", domain.OpEquals, true)).
		Task("review", "Review").In("intake").Required().
		Build()
	require.NoError(t, err)
	eng, store := newEngine(t, plan)
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)

	_, err = eng.Submit(ctx, runtime.Command{
		Trigger:   domain.TriggerSetVariables,
		TargetID:  created.CaseInstanceID,
		Variables: map[string]any{"cancelled": true},
	})
	require.NoError(t, err)

	t.Run("stage and child terminate, innermost first", func(t *testing.T) {
		records, err := history.NewRecordQuery(store).
			CaseInstanceID(created.CaseInstanceID).
			State(domain.StateTerminated).
			List(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "review", records[0].ActivityID)
		assert.Equal(t, "intake", records[1].ActivityID)
	})

	t.Run("root completes once the terminated stage no longer blocks", func(t *testing.T) {
		root, err := eng.GetExecution(ctx, created.CaseInstanceID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, root.State)
	})
}

func TestFailurePolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("required child failure terminates the stage by default", func(t *testing.T) {
		eng, store := newEngine(t, stagePlan(t))
		created, err := eng.CreateInstance(ctx, "loan", "", nil)
		require.NoError(t, err)
		task := findByPlanNode(t, store, created.CaseInstanceID, "review")

		_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerFail, TargetID: task.ID})
		require.NoError(t, err)

		n, err := history.NewRecordQuery(store).
			ActivityID("intake").
			State(domain.StateTerminated).
			Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("failStage policy fails the stage and terminates siblings", func(t *testing.T) {
		plan, err := dsl.NewPlan("loan", "Loan Handling").
			Stage("intake", "Intake").OnChildFailure(domain.FailureFailStage).
			Task("collect", "Collect").In("intake").
			Task("review", "Review").In("intake").
			Build()
		require.NoError(t, err)
		eng, store := newEngine(t, plan)
		created, err := eng.CreateInstance(ctx, "loan", "", nil)
		require.NoError(t, err)
		review := findByPlanNode(t, store, created.CaseInstanceID, "review")

		_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerFail, TargetID: review.ID})
		require.NoError(t, err)

		failed, err := history.NewRecordQuery(store).
			ActivityID("intake").
			State(domain.StateFailed).
			Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, failed)

		terminated, err := history.NewRecordQuery(store).
			ActivityID("collect").
			State(domain.StateTerminated).
			Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, terminated, "active sibling terminated alongside")
	})

	t.Run("optional child failure is ignored", func(t *testing.T) {
		plan, err := dsl.NewPlan("loan", "Loan Handling").
			Stage("intake", "Intake").
			Task("optional", "Optional Check").In("intake").
			Task("review", "Review").In("intake").Required().
			Build()
		require.NoError(t, err)
		eng, store := newEngine(t, plan)
		created, err := eng.CreateInstance(ctx, "loan", "", nil)
		require.NoError(t, err)

		optional := findByPlanNode(t, store, created.CaseInstanceID, "optional")
		_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerFail, TargetID: optional.ID})
		require.NoError(t, err)

		stage := findByPlanNode(t, store, created.CaseInstanceID, "intake")
		assert.Equal(t, domain.StateActive, stage.State, "stage keeps running")
	})

	t.Run("composites cannot be failed directly", func(t *testing.T) {
		eng, store := newEngine(t, stagePlan(t))
		created, err := eng.CreateInstance(ctx, "loan", "", nil)
		require.NoError(t, err)
		stage := findByPlanNode(t, store, created.CaseInstanceID, "intake")

		_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerFail, TargetID: stage.ID})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestIllegalTransitions(t *testing.T) {
	eng, store := newEngine(t, stagePlan(t))
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)
	task := findByPlanNode(t, store, created.CaseInstanceID, "review")

	t.Run("occur on a task", func(t *testing.T) {
		_, err := eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerOccur, TargetID: task.ID})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("resume an active node", func(t *testing.T) {
		_, err := eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerResume, TargetID: task.ID})
		var illegal *domain.IllegalTransitionError
		require.ErrorAs(t, err, &illegal)
		assert.Equal(t, domain.StateActive, illegal.From)
	})

	t.Run("terminate an already terminal node", func(t *testing.T) {
		_, err := eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerTerminate, TargetID: created.CaseInstanceID})
		require.NoError(t, err)
		_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerTerminate, TargetID: created.CaseInstanceID})
		var illegal *domain.IllegalTransitionError
		require.ErrorAs(t, err, &illegal)
	})

	t.Run("create trigger is rejected on submit", func(t *testing.T) {
		_, err := eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerCreate, TargetID: "x"})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("empty command fields", func(t *testing.T) {
		_, err := eng.Submit(ctx, runtime.Command{TargetID: "x"})
		assert.True(t, domain.IsValidation(err))
		_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerComplete})
		assert.True(t, domain.IsValidation(err))
	})
}

// conflictStore rejects the first n commits with a concurrency error,
// simulating lost optimistic races.
type conflictStore struct {
	*memory.Store
	mu        sync.Mutex
	conflicts int
}

func (s *conflictStore) Commit(ctx context.Context, uow ports.UnitOfWork) error {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return &domain.ConcurrencyError{ExecutionID: uow.CaseInstanceID, Expected: 1, Actual: 2}
	}
	s.mu.Unlock()
	return s.Store.Commit(ctx, uow)
}

type recordingMetrics struct {
	mu        sync.Mutex
	committed int
	failed    int
	conflicts int
}

func (m *recordingMetrics) CommandCommitted(string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed++
}

func (m *recordingMetrics) CommandFailed(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func (m *recordingMetrics) CommandConflict(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

func TestOptimisticRetry(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, conflicts, attempts int) (*runtime.Engine, *conflictStore, *recordingMetrics) {
		t.Helper()
		store := &conflictStore{Store: memory.NewStore()}
		resolver, err := memory.NewResolver(stagePlan(t))
		require.NoError(t, err)
		metrics := &recordingMetrics{}
		eng := runtime.NewEngine(store, resolver,
			runtime.WithRetryAttempts(attempts),
			runtime.WithMetrics(metrics))

		_, err = eng.CreateInstance(ctx, "loan", "", nil)
		require.NoError(t, err)
		store.mu.Lock()
		store.conflicts = conflicts
		store.mu.Unlock()
		return eng, store, metrics
	}

	t.Run("conflicts within the attempt limit are retried to success", func(t *testing.T) {
		eng, store, metrics := setup(t, 2, 3)
		root, err := store.List(ctx)
		require.NoError(t, err)
		var task *domain.Execution
		for _, e := range root {
			if e.PlanNodeID == "review" {
				task = e
			}
		}
		require.NotNil(t, task)

		_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerComplete, TargetID: task.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, metrics.conflicts)
		assert.Equal(t, 2, metrics.committed, "create and complete")
	})

	t.Run("exhausted attempts surface the concurrency error", func(t *testing.T) {
		eng, store, metrics := setup(t, 5, 3)
		execs, err := store.List(ctx)
		require.NoError(t, err)
		var task *domain.Execution
		for _, e := range execs {
			if e.PlanNodeID == "review" {
				task = e
			}
		}
		require.NotNil(t, task)

		_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerComplete, TargetID: task.ID})
		require.ErrorIs(t, err, domain.ErrConcurrentModification)
		assert.Equal(t, 3, metrics.conflicts, "one per attempt")
		assert.Equal(t, 1, metrics.failed)
	})
}

func TestLifecycleHooks(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions int
		starts      int
		ends        int
	)
	hooks := domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionEvent) {
			mu.Lock()
			transitions++
			mu.Unlock()
		},
		OnInstanceStart: func(context.Context, *domain.TransitionEvent) {
			mu.Lock()
			starts++
			mu.Unlock()
		},
		OnInstanceEnd: func(context.Context, *domain.TransitionEvent) {
			mu.Lock()
			ends++
			mu.Unlock()
		},
	}

	eng, store := newEngine(t, stagePlan(t), runtime.WithLifecycleHooks(hooks))
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, starts)
	assert.Zero(t, ends)
	assert.Positive(t, transitions)

	task := findByPlanNode(t, store, created.CaseInstanceID, "review")
	_, err = eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerComplete, TargetID: task.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, ends, "root completion ends the instance")
}

func TestEventListener(t *testing.T) {
	plan, err := dsl.NewPlan("loan", "Loan Handling").
		Task("review", "Review").Required().
		EventListener("docsReceived", "Documents Received").
		Build()
	require.NoError(t, err)
	eng, store := newEngine(t, plan)
	ctx := context.Background()

	created, err := eng.CreateInstance(ctx, "loan", "", nil)
	require.NoError(t, err)

	listener := findByPlanNode(t, store, created.CaseInstanceID, "docsReceived")
	require.Equal(t, domain.StateEnabled, listener.State, "armed, not started")

	occurred, err := eng.Submit(ctx, runtime.Command{Trigger: domain.TriggerOccur, TargetID: listener.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, occurred.Execution.State)
}
