package domain

// State is the lifecycle state of an execution node.
type State string

const (
	// StateAvailable means the node exists but its entry criteria are unsatisfied.
	StateAvailable State = "available"
	// StateEnabled means entry criteria are satisfied; the node awaits activation.
	StateEnabled State = "enabled"
	// StateDisabled is reachable from enabled for manual-activation nodes only.
	StateDisabled State = "disabled"
	// StateActive means the node is being worked on.
	StateActive State = "active"
	// StateSuspended pauses an active or enabled node; resume restores the prior state.
	StateSuspended State = "suspended"
	// StateCompleted is terminal.
	StateCompleted State = "completed"
	// StateTerminated is terminal.
	StateTerminated State = "terminated"
	// StateFailed is terminal.
	StateFailed State = "failed"
)

// Terminal reports whether no further transition can leave this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTerminated || s == StateFailed
}

// Pending reports whether the node still demands attention from its parent's
// completion check: enabled, active and suspended children block a stage from
// completing.
func (s State) Pending() bool {
	return s == StateEnabled || s == StateActive || s == StateSuspended
}

// Trigger names the external or internal stimulus applied to an execution node.
type Trigger string

const (
	// TriggerCreate instantiates a new case instance from a plan model.
	TriggerCreate Trigger = "create"
	// TriggerEnable moves an available node to enabled (entry criterion satisfied).
	TriggerEnable Trigger = "enable"
	// TriggerDisable parks an enabled manual-activation node.
	TriggerDisable Trigger = "disable"
	// TriggerReenable brings a disabled node back to enabled.
	TriggerReenable Trigger = "reenable"
	// TriggerStart activates an enabled node automatically.
	TriggerStart Trigger = "start"
	// TriggerManualStart activates an enabled node on explicit request.
	TriggerManualStart Trigger = "manualStart"
	// TriggerComplete finishes an active node.
	TriggerComplete Trigger = "complete"
	// TriggerTerminate aborts a non-terminal node.
	TriggerTerminate Trigger = "terminate"
	// TriggerSuspend pauses an active or enabled node.
	TriggerSuspend Trigger = "suspend"
	// TriggerResume restores a suspended node to its prior state.
	TriggerResume Trigger = "resume"
	// TriggerFail marks an active node as failed.
	TriggerFail Trigger = "fail"
	// TriggerOccur fires a milestone or event listener.
	TriggerOccur Trigger = "occur"
	// TriggerSetVariables writes variables into a node's scope.
	TriggerSetVariables Trigger = "setVariables"
)
