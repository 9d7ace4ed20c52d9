package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/caseflow/internal/logging"
	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/history"
	"github.com/aretw0/caseflow/pkg/ports"
	"github.com/google/uuid"
)

// Command is one external trigger against the execution tree.
type Command struct {
	Trigger   domain.Trigger
	TargetID  string
	Variables map[string]any
}

// CommitResult reports what a committed command did.
type CommitResult struct {
	CaseInstanceID string
	Execution      *domain.Execution
	Transitions    []*domain.TransitionEvent
}

// Metrics receives engine-level counters. Implemented by observability.
type Metrics interface {
	CommandCommitted(trigger string, transitions int)
	CommandFailed(trigger string)
	CommandConflict(trigger string)
}

// Engine drives case instances through their lifecycle. Every external
// trigger executes as one logical unit of work: resolve, mutate a consistent
// in-memory snapshot, commit atomically under optimistic version checks.
type Engine struct {
	store     ports.ExecutionStore
	resolver  ports.PlanResolver
	projector *history.Projector
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	metrics   Metrics
	locks     *lockManager

	// retryAttempts bounds optimistic-lock retries per command. The policy is
	// configuration, never a hard-coded loop.
	retryAttempts int

	now   func() time.Time
	newID func() string
}

// EngineOption configures the runtime engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRetryAttempts bounds the optimistic-lock retry loop.
func WithRetryAttempts(attempts int) EngineOption {
	return func(e *Engine) {
		if attempts > 0 {
			e.retryAttempts = attempts
		}
	}
}

// WithMetrics wires engine counters.
func WithMetrics(m Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithDistributedLocker serializes commands per instance across replicas.
func WithDistributedLocker(locker ports.DistributedLocker) EngineOption {
	return func(e *Engine) {
		e.locks.locker = locker
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates the runtime engine.
func NewEngine(store ports.ExecutionStore, resolver ports.PlanResolver, opts ...EngineOption) *Engine {
	e := &Engine{
		store:         store,
		resolver:      resolver,
		logger:        logging.NewNop(),
		locks:         newLockManager(),
		retryAttempts: 3,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.projector = history.NewProjector(history.WithClock(e.now), history.WithIDSource(e.newID))
	return e
}

// GetExecution resolves one live execution by id.
func (e *Engine) GetExecution(ctx context.Context, id string) (*domain.Execution, error) {
	return e.store.Get(ctx, id)
}

// CreateInstance instantiates a plan model, activating the root and its
// initial children, and commits the new tree with its instance-start record.
func (e *Engine) CreateInstance(ctx context.Context, definitionKey, businessKey string, vars map[string]any) (*CommitResult, error) {
	plan, err := e.resolver.ResolveByKey(ctx, definitionKey)
	if err != nil {
		return nil, err
	}

	v := newView(plan, nil, e)
	rootNode := plan.Root()
	root := &domain.Execution{
		ID:            e.newID(),
		PlanNodeID:    rootNode.ID,
		DefinitionID:  plan.ID,
		DefinitionKey: plan.Key,
		BusinessKey:   businessKey,
		State:         domain.StateAvailable,
		CreatedAt:     e.now(),
	}
	root.CaseInstanceID = root.ID
	v.nodes[root.ID] = root
	v.markDirty(root.ID)
	v.setVariables(root, vars)

	v.transition(root, domain.StateActive, domain.TriggerCreate)
	v.records = append(v.records, e.projector.InstanceStarted(root, plan))
	v.instantiateChildren(root, rootNode)
	if err := v.settle(); err != nil {
		return nil, err
	}

	if err := e.store.Commit(ctx, v.unitOfWork(root.CaseInstanceID)); err != nil {
		e.observeFailure(domain.TriggerCreate, err)
		return nil, err
	}
	result := e.commitResult(root.CaseInstanceID, root.ID, v)
	e.fireHooks(ctx, v, true)
	if e.metrics != nil {
		e.metrics.CommandCommitted(string(domain.TriggerCreate), len(v.events))
	}
	return result, nil
}

// Submit executes one command against a live execution, retrying bounded
// times on optimistic-lock conflicts before surfacing the ConcurrencyError.
func (e *Engine) Submit(ctx context.Context, cmd Command) (*CommitResult, error) {
	if cmd.TargetID == "" {
		return nil, &domain.ValidationError{Field: "targetId", Reason: "must not be empty"}
	}
	if cmd.Trigger == "" {
		return nil, &domain.ValidationError{Field: "trigger", Reason: "must not be empty"}
	}
	if cmd.Trigger == domain.TriggerCreate {
		return nil, &domain.ValidationError{Field: "trigger", Reason: "create takes a definition key, use CreateInstance"}
	}

	var lastErr error
	for attempt := 0; attempt < e.retryAttempts; attempt++ {
		result, err := e.attempt(ctx, cmd)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, domain.ErrConcurrentModification) {
			e.observeFailure(cmd.Trigger, err)
			return nil, err
		}
		lastErr = err
		if e.metrics != nil {
			e.metrics.CommandConflict(string(cmd.Trigger))
		}
		e.logger.Debug("optimistic lock conflict, retrying",
			"target", cmd.TargetID, "attempt", attempt+1, "err", err)
	}
	e.observeFailure(cmd.Trigger, lastErr)
	return nil, lastErr
}

// attempt runs one optimistic try of a command.
func (e *Engine) attempt(ctx context.Context, cmd Command) (*CommitResult, error) {
	target, err := e.store.Get(ctx, cmd.TargetID)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locks.acquire(ctx, target.CaseInstanceID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	snapshot, err := e.store.LoadInstance(ctx, target.CaseInstanceID)
	if err != nil {
		return nil, err
	}
	plan, err := e.resolver.ResolveByID(ctx, target.DefinitionID)
	if err != nil {
		return nil, err
	}

	v := newView(plan, snapshot, e)
	exec, ok := v.get(cmd.TargetID)
	if !ok {
		return nil, &domain.NotFoundError{Kind: "Execution", ID: cmd.TargetID}
	}
	if err := v.apply(exec, cmd.Trigger, cmd.Variables); err != nil {
		return nil, err
	}

	if err := e.store.Commit(ctx, v.unitOfWork(target.CaseInstanceID)); err != nil {
		return nil, err
	}
	result := e.commitResult(target.CaseInstanceID, cmd.TargetID, v)
	e.fireHooks(ctx, v, false)
	if e.metrics != nil {
		e.metrics.CommandCommitted(string(cmd.Trigger), len(v.events))
	}
	return result, nil
}

func (e *Engine) commitResult(instanceID, targetID string, v *view) *CommitResult {
	result := &CommitResult{
		CaseInstanceID: instanceID,
		Transitions:    v.events,
	}
	if exec, ok := v.get(targetID); ok {
		result.Execution = exec.Clone()
	}
	return result
}

func (e *Engine) fireHooks(ctx context.Context, v *view, created bool) {
	for i, ev := range v.events {
		if e.hooks.OnTransition != nil {
			e.hooks.OnTransition(ctx, ev)
		}
		if created && i == 0 && e.hooks.OnInstanceStart != nil {
			e.hooks.OnInstanceStart(ctx, ev)
		}
		if ev.To.Terminal() && ev.ExecutionID == ev.CaseInstanceID && e.hooks.OnInstanceEnd != nil {
			e.hooks.OnInstanceEnd(ctx, ev)
		}
	}
}

func (e *Engine) observeFailure(trigger domain.Trigger, err error) {
	if e.metrics != nil {
		e.metrics.CommandFailed(string(trigger))
	}
	e.logger.Debug("command rejected", "trigger", string(trigger), "err", err)
}
