package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/history"
	"github.com/aretw0/caseflow/pkg/ports"
)

// view is the in-memory working copy of one case instance for the duration of
// a single command. All executions live in one arena keyed by id; parent and
// child links are id references into that arena. The view observes a
// consistent snapshot: nothing is re-read from the store while a command runs.
type view struct {
	plan *domain.PlanModel

	nodes   map[string]*domain.Execution
	base    map[string]int64 // id -> version at load time; absent means created here
	dirty   map[string]bool
	removed map[string]bool
	touched []string // deterministic write order

	records []domain.HistoricRecord
	events  []*domain.TransitionEvent
	queue   []childEvent

	projector *history.Projector
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// childEvent is a typed notification from a committed child transition,
// consumed synchronously by the parent within the same command.
type childEvent struct {
	kind     childEventKind
	parentID string
	childID  string
	abnormal bool
}

type childEventKind int

const (
	childCompleted childEventKind = iota
	childTerminated
	childSuspended
	childDisabled
)

func newView(plan *domain.PlanModel, snapshot []*domain.Execution, e *Engine) *view {
	v := &view{
		plan:      plan,
		nodes:     make(map[string]*domain.Execution, len(snapshot)),
		base:      make(map[string]int64, len(snapshot)),
		dirty:     make(map[string]bool),
		removed:   make(map[string]bool),
		projector: e.projector,
		logger:    e.logger,
		now:       e.now,
		newID:     e.newID,
	}
	for _, exec := range snapshot {
		v.nodes[exec.ID] = exec
		v.base[exec.ID] = exec.Version
	}
	return v
}

func (v *view) get(id string) (*domain.Execution, bool) {
	exec, ok := v.nodes[id]
	return exec, ok
}

func (v *view) planNode(exec *domain.Execution) *domain.PlanNode {
	return v.plan.Nodes[exec.PlanNodeID]
}

// childrenOf returns the live child executions of a composite, in the plan's
// child order.
func (v *view) childrenOf(parent *domain.Execution) []*domain.Execution {
	node := v.planNode(parent)
	byPlan := make(map[string][]*domain.Execution)
	for _, exec := range v.nodes {
		if exec.ParentID == parent.ID {
			byPlan[exec.PlanNodeID] = append(byPlan[exec.PlanNodeID], exec)
		}
	}
	var out []*domain.Execution
	for _, childID := range node.Children {
		out = append(out, byPlan[childID]...)
	}
	return out
}

// lookupVariable resolves a name through the scope chain, innermost first.
func (v *view) lookupVariable(exec *domain.Execution, name string) (any, bool) {
	for cur := exec; cur != nil; {
		if val, ok := cur.Variables[name]; ok {
			return val, true
		}
		if cur.ParentID == "" {
			break
		}
		cur = v.nodes[cur.ParentID]
	}
	return nil, false
}

// setVariables writes into the execution's local scope.
func (v *view) setVariables(exec *domain.Execution, vars map[string]any) {
	if len(vars) == 0 {
		return
	}
	if exec.Variables == nil {
		exec.Variables = make(map[string]any, len(vars))
	}
	for k, val := range vars {
		exec.Variables[k] = val
	}
	v.markDirty(exec.ID)
}

func (v *view) markDirty(id string) {
	if !v.dirty[id] {
		v.dirty[id] = true
		v.touched = append(v.touched, id)
	}
}

// create instantiates a new execution for a plan node under a parent.
func (v *view) create(planNode *domain.PlanNode, parent *domain.Execution) *domain.Execution {
	exec := &domain.Execution{
		ID:             v.newID(),
		CaseInstanceID: parent.CaseInstanceID,
		PlanNodeID:     planNode.ID,
		DefinitionID:   parent.DefinitionID,
		DefinitionKey:  parent.DefinitionKey,
		ParentID:       parent.ID,
		State:          domain.StateAvailable,
		CreatedAt:      v.now(),
	}
	v.nodes[exec.ID] = exec
	v.markDirty(exec.ID)
	return exec
}

// remove drops an execution from the live tree. Its historic record has
// already been emitted by the terminal transition.
func (v *view) remove(exec *domain.Execution) {
	delete(v.nodes, exec.ID)
	v.removed[exec.ID] = true
	v.markDirty(exec.ID)
}

// transition moves an execution to a new state, recording the event and, for
// terminal states, the historic record. Side effects on relatives are the
// caller's business.
func (v *view) transition(exec *domain.Execution, to domain.State, trigger domain.Trigger) {
	from := exec.State
	exec.State = to
	v.markDirty(exec.ID)
	v.events = append(v.events, &domain.TransitionEvent{
		Timestamp:      v.now(),
		CaseInstanceID: exec.CaseInstanceID,
		ExecutionID:    exec.ID,
		PlanNodeID:     exec.PlanNodeID,
		From:           from,
		To:             to,
		Trigger:        trigger,
	})
	if to.Terminal() {
		v.records = append(v.records, v.projector.TerminalTransition(exec, v.plan, trigger))
	}
	v.logger.Debug("transition",
		"execution", exec.ID,
		"plan_node", exec.PlanNodeID,
		"from", string(from),
		"to", string(to),
		"trigger", string(trigger))
}

// unitOfWork assembles the conditional writes for everything this command
// touched, in touch order.
func (v *view) unitOfWork(caseInstanceID string) ports.UnitOfWork {
	uow := ports.UnitOfWork{CaseInstanceID: caseInstanceID, Records: v.records}
	for _, id := range v.touched {
		baseVersion, existed := v.base[id]
		if v.removed[id] {
			if !existed {
				// Created and removed within the same command: nothing to persist.
				continue
			}
			uow.Writes = append(uow.Writes, ports.ExecutionWrite{
				Execution:       &domain.Execution{ID: id},
				ExpectedVersion: baseVersion,
				Delete:          true,
			})
			continue
		}
		uow.Writes = append(uow.Writes, ports.ExecutionWrite{
			Execution:       v.nodes[id],
			ExpectedVersion: baseVersion,
		})
	}
	return uow
}
