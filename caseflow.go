package caseflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/caseflow/internal/runtime"
	"github.com/aretw0/caseflow/pkg/adapters/memory"
	"github.com/aretw0/caseflow/pkg/authorization"
	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/history"
	"github.com/aretw0/caseflow/pkg/ports"
	"github.com/aretw0/caseflow/pkg/query"
)

// Command is one external trigger against a live execution.
type Command = runtime.Command

// CommitResult reports what a committed command did.
type CommitResult = runtime.CommitResult

// Metrics receives engine-level counters.
type Metrics = runtime.Metrics

// Engine is the high-level entry point for the caseflow library.
// It wraps the internal runtime and provides a simplified API for consumers:
// instance creation, command submission and the query surfaces over live and
// historic state.
type Engine struct {
	runtime     *runtime.Engine
	store       ports.ExecutionStore
	historyRead ports.HistoryStore
	resolver    ports.PlanResolver
	authz       *authorization.Service
	plans       []*domain.PlanModel
	runtimeOpts []runtime.EngineOption
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore injects a custom execution store, bypassing the default
// in-memory one. If the store also implements ports.HistoryStore it serves
// the history surface too, unless WithHistoryStore overrides it.
func WithStore(store ports.ExecutionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithHistoryStore injects the read surface over committed history.
func WithHistoryStore(store ports.HistoryStore) Option {
	return func(e *Engine) {
		e.historyRead = store
	}
}

// WithResolver injects a custom plan resolver, bypassing WithPlans.
func WithResolver(r ports.PlanResolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithPlans registers plan models with the default in-memory resolver.
func WithPlans(plans ...*domain.PlanModel) Option {
	return func(e *Engine) {
		e.plans = append(e.plans, plans...)
	}
}

// WithAuthorization scopes the query surface by the given grant store.
// Without it, queries are unscoped.
func WithAuthorization(svc *authorization.Service) Option {
	return func(e *Engine) {
		e.authz = svc
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithLogger(logger))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithRetryAttempts bounds the optimistic-lock retry loop (default 3).
func WithRetryAttempts(attempts int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRetryAttempts(attempts))
	}
}

// WithDistributedLocker serializes commands per instance across replicas.
func WithDistributedLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithDistributedLocker(locker))
	}
}

// WithMetrics wires engine counters.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMetrics(m))
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(now))
	}
}

// New initializes a caseflow Engine.
// By default it runs on the in-memory store; inject adapters via options.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.historyRead == nil {
		hs, ok := eng.store.(ports.HistoryStore)
		if !ok {
			return nil, fmt.Errorf("store %T does not serve history, use WithHistoryStore", eng.store)
		}
		eng.historyRead = hs
	}
	if eng.resolver == nil {
		if len(eng.plans) == 0 {
			return nil, fmt.Errorf("no plan models registered, use WithPlans or WithResolver")
		}
		resolver, err := memory.NewResolver(eng.plans...)
		if err != nil {
			return nil, fmt.Errorf("invalid plan model: %w", err)
		}
		eng.resolver = resolver
	} else if len(eng.plans) > 0 {
		return nil, fmt.Errorf("WithPlans and WithResolver are mutually exclusive")
	}

	eng.runtime = runtime.NewEngine(eng.store, eng.resolver, eng.runtimeOpts...)
	return eng, nil
}

// CreateInstance starts a new case instance of the plan model registered
// under definitionKey and returns the committed result.
func (e *Engine) CreateInstance(ctx context.Context, definitionKey, businessKey string, vars map[string]any) (*CommitResult, error) {
	return e.runtime.CreateInstance(ctx, definitionKey, businessKey, vars)
}

// SubmitCommand executes one lifecycle trigger against a live execution.
func (e *Engine) SubmitCommand(ctx context.Context, cmd Command) (*CommitResult, error) {
	return e.runtime.Submit(ctx, cmd)
}

// GetExecution resolves one live execution by id.
func (e *Engine) GetExecution(ctx context.Context, id string) (*domain.Execution, error) {
	return e.runtime.GetExecution(ctx, id)
}

// Query starts a permission-scoped query over live executions.
func (e *Engine) Query() *query.ExecutionQuery {
	if e.authz == nil {
		return query.NewExecutionQuery(e.store, nil)
	}
	return query.NewExecutionQuery(e.store, e.authz)
}

// HistoryQuery starts a query over committed historic records.
func (e *Engine) HistoryQuery() *history.RecordQuery {
	return history.NewRecordQuery(e.historyRead)
}

// DecisionInstance resolves one historic decision instance by id.
func (e *Engine) DecisionInstance(ctx context.Context, id string) (*domain.HistoricDecisionInstance, error) {
	return history.GetDecisionInstance(ctx, e.historyRead, id)
}

// RecordDecision appends an evaluated decision instance to history.
func (e *Engine) RecordDecision(ctx context.Context, d domain.HistoricDecisionInstance) error {
	return e.historyRead.AppendDecision(ctx, d)
}
