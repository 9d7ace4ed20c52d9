package runtime

import (
	"github.com/aretw0/caseflow/pkg/domain"
)

// evaluateSentries runs one pass over all live executions carrying criteria.
// A newly satisfied entry criterion enables an available node; a satisfied
// exit criterion on a non-terminal node forces a cascading termination,
// innermost first. Returns whether anything fired. Evaluation order across
// sentries on the same event is unspecified; guards are side-effect-free and
// activation is idempotent per node, so order cannot matter.
func (v *view) evaluateSentries() (bool, error) {
	fired := false
	for _, exec := range v.snapshotIDs() {
		node, ok := v.get(exec)
		if !ok {
			continue // removed by an earlier firing in this pass
		}
		plan := v.planNode(node)

		if node.State == domain.StateAvailable && v.anySatisfied(node, plan.EntryCriteria) {
			v.enable(node)
			fired = true
			continue
		}
		if !node.State.Terminal() && node.State != domain.StateAvailable &&
			len(plan.ExitCriteria) > 0 && v.anySatisfied(node, plan.ExitCriteria) {
			v.terminateSubtree(node, domain.TriggerTerminate)
			v.notifyParent(node, childTerminated, false)
			fired = true
		}
	}
	return fired, nil
}

func (v *view) snapshotIDs() []string {
	ids := make([]string, 0, len(v.nodes))
	for id := range v.nodes {
		ids = append(ids, id)
	}
	return ids
}

// anySatisfied implements the criterion disjunction: sentries on one node are
// OR-ed, the parts within one sentry are AND-ed.
func (v *view) anySatisfied(exec *domain.Execution, sentries []domain.Sentry) bool {
	for _, s := range sentries {
		if v.satisfied(exec, s) {
			return true
		}
	}
	return false
}

func (v *view) satisfied(exec *domain.Execution, s domain.Sentry) bool {
	if s.OnPart != nil && !v.onPartSatisfied(s.OnPart) {
		return false
	}
	if s.IfPart != nil && !v.guardSatisfied(exec, s.IfPart) {
		return false
	}
	return s.OnPart != nil || s.IfPart != nil
}

// onPartSatisfied checks whether any execution of the source plan node is in
// the state the referenced lifecycle event leads to.
func (v *view) onPartSatisfied(p *domain.OnPart) bool {
	var want domain.State
	switch p.Event {
	case domain.EventComplete, domain.EventOccur:
		want = domain.StateCompleted
	case domain.EventTerminate:
		want = domain.StateTerminated
	case domain.EventStart:
		want = domain.StateActive
	default:
		return false
	}
	for _, exec := range v.nodes {
		if exec.PlanNodeID == p.SourceID && exec.State == want {
			return true
		}
	}
	return false
}

// guardSatisfied evaluates a variable guard over the node's scope chain.
// A missing variable or an incomparable pair leaves the guard unsatisfied;
// guards never abort the command.
func (v *view) guardSatisfied(exec *domain.Execution, g *domain.Guard) bool {
	val, ok := v.lookupVariable(exec, g.Variable)
	if !ok {
		return false
	}
	switch g.Op {
	case domain.OpEquals:
		return domain.EqualValues(val, g.Value)
	case domain.OpNotEquals:
		return !domain.EqualValues(val, g.Value)
	case domain.OpLike:
		s, sok := val.(string)
		p, pok := g.Value.(string)
		return sok && pok && domain.MatchLike(s, p)
	}
	cmp, err := domain.CompareValues(val, g.Value)
	if err != nil {
		v.logger.Debug("sentry guard skipped", "variable", g.Variable, "err", err)
		return false
	}
	switch g.Op {
	case domain.OpGreaterThan:
		return cmp > 0
	case domain.OpGreaterOrEqual:
		return cmp >= 0
	case domain.OpLessThan:
		return cmp < 0
	case domain.OpLessOrEqual:
		return cmp <= 0
	}
	return false
}
