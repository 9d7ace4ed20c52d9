package runtime

import (
	"github.com/aretw0/caseflow/pkg/domain"
)

// apply dispatches one top-level trigger against an execution. The behavior
// set is closed: dispatch is an exhaustive switch over the plan node's tag,
// not open-ended subclassing, so legality stays checkable in one place.
func (v *view) apply(exec *domain.Execution, trigger domain.Trigger, vars map[string]any) error {
	node := v.planNode(exec)

	switch trigger {
	case domain.TriggerSetVariables:
		v.setVariables(exec, vars)
		return v.settle()

	case domain.TriggerComplete:
		return v.applyComplete(exec, node, vars)

	case domain.TriggerOccur:
		return v.applyOccur(exec, node)

	case domain.TriggerManualStart:
		if exec.State != domain.StateEnabled {
			return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: trigger}
		}
		v.start(exec, node)
		return v.settle()

	case domain.TriggerDisable:
		if exec.State != domain.StateEnabled {
			return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: trigger}
		}
		if !node.ManualActivation {
			return &domain.ValidationError{Field: "execution", Reason: "only manual-activation nodes can be disabled", Value: exec.ID}
		}
		v.transition(exec, domain.StateDisabled, trigger)
		v.notifyParent(exec, childDisabled, false)
		return v.settle()

	case domain.TriggerReenable:
		if exec.State != domain.StateDisabled {
			return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: trigger}
		}
		v.transition(exec, domain.StateEnabled, trigger)
		return v.settle()

	case domain.TriggerSuspend:
		if exec.State != domain.StateActive && exec.State != domain.StateEnabled {
			return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: trigger}
		}
		exec.PreviousState = exec.State
		v.transition(exec, domain.StateSuspended, trigger)
		v.notifyParent(exec, childSuspended, false)
		return v.settle()

	case domain.TriggerResume:
		if exec.State != domain.StateSuspended {
			return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: trigger}
		}
		prior := exec.PreviousState
		exec.PreviousState = ""
		v.transition(exec, prior, trigger)
		return v.settle()

	case domain.TriggerTerminate:
		if exec.State.Terminal() {
			return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: trigger}
		}
		v.terminateSubtree(exec, trigger)
		v.notifyParent(exec, childTerminated, false)
		return v.settle()

	case domain.TriggerFail:
		if exec.State != domain.StateActive {
			return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: trigger}
		}
		if node.Type.Composite() {
			// A composite fails through its children, not by external command.
			return &domain.ValidationError{Field: "execution", Reason: "composite nodes cannot be failed directly", Value: exec.ID}
		}
		v.transition(exec, domain.StateFailed, trigger)
		v.notifyParent(exec, childTerminated, true)
		return v.settle()
	}

	return &domain.ValidationError{Field: "trigger", Reason: "unknown trigger", Value: string(trigger)}
}

func (v *view) applyComplete(exec *domain.Execution, node *domain.PlanNode, vars map[string]any) error {
	if exec.State != domain.StateActive {
		return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: domain.TriggerComplete}
	}
	switch node.Type {
	case domain.BehaviorTask:
		// Output variables land in the enclosing scope so they outlive the task
		// and remain visible to sibling sentries.
		if parent, ok := v.get(exec.ParentID); ok {
			v.setVariables(parent, vars)
		}
		v.transition(exec, domain.StateCompleted, domain.TriggerComplete)
		v.notifyParent(exec, childCompleted, false)
		return v.settle()

	case domain.BehaviorStage, domain.BehaviorCaseRoot:
		if blocker := v.completionBlocker(exec); blocker != nil {
			return &domain.ValidationError{
				Field:  "execution",
				Reason: "composite has a child blocking completion",
				Value:  blocker.ID,
			}
		}
		v.completeComposite(exec)
		return v.settle()
	}
	return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: domain.TriggerComplete}
}

func (v *view) applyOccur(exec *domain.Execution, node *domain.PlanNode) error {
	if node.Type != domain.BehaviorMilestone && node.Type != domain.BehaviorEventListener {
		return &domain.ValidationError{Field: "trigger", Reason: "only milestones and event listeners occur", Value: exec.ID}
	}
	if exec.State != domain.StateAvailable && exec.State != domain.StateEnabled {
		return &domain.IllegalTransitionError{ExecutionID: exec.ID, From: exec.State, Trigger: domain.TriggerOccur}
	}
	v.occur(exec)
	return v.settle()
}

// enable moves an available node to enabled and runs the per-behavior
// follow-up: auto-start unless manual activation, milestone occurrence,
// event listener arming.
func (v *view) enable(exec *domain.Execution) {
	node := v.planNode(exec)
	v.transition(exec, domain.StateEnabled, domain.TriggerEnable)

	switch node.Type {
	case domain.BehaviorMilestone:
		// A milestone occurs the moment its criterion is satisfied.
		v.occur(exec)
	case domain.BehaviorEventListener:
		// Armed; waits for an external occurrence.
	default:
		if !node.ManualActivation {
			v.start(exec, node)
		}
	}
}

// start activates an enabled node. Composites instantiate their children.
func (v *view) start(exec *domain.Execution, node *domain.PlanNode) {
	trigger := domain.TriggerStart
	if node.ManualActivation {
		trigger = domain.TriggerManualStart
	}
	v.transition(exec, domain.StateActive, trigger)
	if node.Type.Composite() {
		v.instantiateChildren(exec, node)
	}
}

// occur completes a milestone or event listener.
func (v *view) occur(exec *domain.Execution) {
	v.transition(exec, domain.StateCompleted, domain.TriggerOccur)
	v.notifyParent(exec, childCompleted, false)
}

// instantiateChildren creates child executions for an activated composite.
// Children without entry criteria are enabled immediately; the rest stay
// available until a sentry fires.
func (v *view) instantiateChildren(parent *domain.Execution, node *domain.PlanNode) {
	for _, childID := range node.Children {
		childNode := v.plan.Nodes[childID]
		child := v.create(childNode, parent)
		if len(childNode.EntryCriteria) == 0 {
			v.enable(child)
		}
	}
}

// terminateSubtree terminates an execution and all of its non-terminal
// descendants, innermost first, each emitting its own historic record.
func (v *view) terminateSubtree(exec *domain.Execution, trigger domain.Trigger) {
	for _, child := range v.childrenOf(exec) {
		if !child.State.Terminal() {
			v.terminateSubtree(child, trigger)
		}
	}
	v.transition(exec, domain.StateTerminated, trigger)
	if v.planNode(exec).Type.Composite() {
		v.dropChildren(exec)
	}
}

// completeComposite finishes a stage or the instance root. Children that
// never ran (available or disabled, never required at this point) are
// terminated first so they leave an audit record; only then do the terminal
// children move out of the live tree.
func (v *view) completeComposite(exec *domain.Execution) {
	for _, child := range v.childrenOf(exec) {
		if !child.State.Terminal() {
			v.terminateSubtree(child, domain.TriggerTerminate)
		}
	}
	v.transition(exec, domain.StateCompleted, domain.TriggerComplete)
	v.dropChildren(exec)
	v.notifyParent(exec, childCompleted, false)
}

// dropChildren removes the children of a terminal composite from the arena;
// their audit trail lives on in history.
func (v *view) dropChildren(exec *domain.Execution) {
	for _, child := range v.childrenOf(exec) {
		v.remove(child)
	}
}
