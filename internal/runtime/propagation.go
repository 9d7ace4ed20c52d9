package runtime

import (
	"github.com/aretw0/caseflow/pkg/domain"
)

// notifyParent enqueues a typed child event for the enclosing composite.
// Events are consumed synchronously by settle within the same command.
func (v *view) notifyParent(child *domain.Execution, kind childEventKind, abnormal bool) {
	if child.ParentID == "" {
		return
	}
	v.queue = append(v.queue, childEvent{
		kind:     kind,
		parentID: child.ParentID,
		childID:  child.ID,
		abnormal: abnormal,
	})
}

// settle drains child events and re-evaluates sentries until the tree reaches
// a fixpoint. Sentries run to fixpoint before each queued event: a node whose
// entry criterion was satisfied by a child transition must be enabled before
// the parent's completion check consumes that same transition, so it blocks
// the parent from auto-completing past it. Propagation bubbles: a parent
// transition enqueues events for its own parent, until a transition changes
// nothing or the root is reached.
func (v *view) settle() error {
	for {
		fired, err := v.evaluateSentries()
		if err != nil {
			return err
		}
		if fired {
			continue
		}
		if len(v.queue) == 0 {
			return nil
		}
		ev := v.queue[0]
		v.queue = v.queue[1:]
		v.handleChildEvent(ev)
	}
}

// handleChildEvent runs one composite handler. Handlers are idempotent: a
// child already accounted for finds the parent no longer active and the
// event degrades to a no-op instead of a duplicate transition.
func (v *view) handleChildEvent(ev childEvent) {
	parent, ok := v.get(ev.parentID)
	if !ok || parent.State != domain.StateActive {
		return
	}

	switch ev.kind {
	case childCompleted, childDisabled, childSuspended:
		v.checkCompletion(parent)

	case childTerminated:
		v.handleChildTermination(parent, ev)
	}
}

// handleChildTermination applies the composite's failure policy for abnormal
// terminations, then falls back to the completion check.
func (v *view) handleChildTermination(parent *domain.Execution, ev childEvent) {
	if ev.abnormal {
		child, ok := v.get(ev.childID)
		if !ok {
			return
		}
		parentNode := v.planNode(parent)
		switch parentNode.FailureReaction(v.planNode(child)) {
		case domain.FailureTerminateStage:
			v.terminateSubtree(parent, domain.TriggerTerminate)
			v.notifyParent(parent, childTerminated, true)
			return
		case domain.FailureFailStage:
			for _, sibling := range v.childrenOf(parent) {
				if !sibling.State.Terminal() {
					v.terminateSubtree(sibling, domain.TriggerTerminate)
				}
			}
			v.transition(parent, domain.StateFailed, domain.TriggerFail)
			v.dropChildren(parent)
			v.notifyParent(parent, childTerminated, true)
			return
		}
	}
	v.checkCompletion(parent)
}

// checkCompletion auto-completes an active composite once every required
// child is terminal and no enabled or active child remains pending.
func (v *view) checkCompletion(parent *domain.Execution) {
	if parent.State != domain.StateActive {
		return
	}
	if v.completionBlocker(parent) != nil {
		return
	}
	v.completeComposite(parent)
}

// completionBlocker returns the first child preventing composite completion:
// a required child not yet terminal, or any child still pending.
func (v *view) completionBlocker(parent *domain.Execution) *domain.Execution {
	for _, child := range v.childrenOf(parent) {
		node := v.planNode(child)
		if node.Required && !child.State.Terminal() {
			return child
		}
		if child.State.Pending() {
			return child
		}
	}
	return nil
}
