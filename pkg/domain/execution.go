package domain

import "time"

// Execution is the mutable runtime instantiation of one plan node within a
// running case instance. All executions of one instance live in a single
// arena keyed by id; parent/child links are id references, never pointers.
type Execution struct {
	ID             string `json:"id"`
	CaseInstanceID string `json:"case_instance_id"`
	PlanNodeID     string `json:"plan_node_id"`

	DefinitionID  string `json:"definition_id"`
	DefinitionKey string `json:"definition_key"`

	// ParentID is empty only for the instance root. Once set it never changes.
	ParentID string `json:"parent_id,omitempty"`

	State State `json:"state"`

	// PreviousState is recorded while suspended so resume can restore it.
	PreviousState State `json:"previous_state,omitempty"`

	// BusinessKey is carried by the instance root only.
	BusinessKey string `json:"business_key,omitempty"`

	// Variables is the node-local scope. Reads fall back to ancestor scopes.
	Variables map[string]any `json:"variables,omitempty"`

	// Version is the optimistic locking counter, incremented on every commit.
	Version int64 `json:"version"`

	CreatedAt time.Time `json:"created_at"`
}

// Root reports whether this execution is the case instance root.
func (e *Execution) Root() bool {
	return e.ParentID == ""
}

// Clone returns a copy with an isolated variable map, so a caller can never
// mutate stored state through a shared pointer.
func (e *Execution) Clone() *Execution {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Variables = make(map[string]any, len(e.Variables))
	for k, v := range e.Variables {
		cp.Variables[k] = v
	}
	return &cp
}
