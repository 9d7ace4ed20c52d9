package domain

import (
	"context"
	"time"
)

// TransitionEvent describes one committed lifecycle transition.
type TransitionEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	CaseInstanceID string    `json:"case_instance_id"`
	ExecutionID    string    `json:"execution_id"`
	PlanNodeID     string    `json:"plan_node_id"`
	From           State     `json:"from"`
	To             State     `json:"to"`
	Trigger        Trigger   `json:"trigger"`
}

// LifecycleHooks defines observability callbacks fired after a command
// commits. Hooks run outside the unit of work; they must not mutate state.
type LifecycleHooks struct {
	OnTransition    func(context.Context, *TransitionEvent)
	OnInstanceStart func(context.Context, *TransitionEvent)
	OnInstanceEnd   func(context.Context, *TransitionEvent)
}
