package domain

import "fmt"

// Behavior identifies the kind of a plan node and selects its transition table.
type Behavior string

const (
	// BehaviorTask is a leaf unit of work completed by an external actor.
	BehaviorTask Behavior = "task"
	// BehaviorStage is a composite node aggregating the lifecycle of its children.
	BehaviorStage Behavior = "stage"
	// BehaviorMilestone marks a point of progress; it occurs, it is never worked on.
	BehaviorMilestone Behavior = "milestone"
	// BehaviorEventListener waits for an external occurrence.
	BehaviorEventListener Behavior = "eventListener"
	// BehaviorCaseRoot is the root composite of a case instance.
	BehaviorCaseRoot Behavior = "caseRoot"
)

// Composite reports whether nodes of this behavior own children.
func (b Behavior) Composite() bool {
	return b == BehaviorStage || b == BehaviorCaseRoot
}

// FailurePolicy controls how a composite reacts when a child terminates abnormally.
type FailurePolicy string

const (
	// FailureIgnore leaves the parent untouched; the completion check still runs.
	FailureIgnore FailurePolicy = "ignore"
	// FailureTerminateStage terminates the parent and its remaining active children.
	FailureTerminateStage FailurePolicy = "terminateStage"
	// FailureFailStage moves the parent to the failed state.
	FailureFailStage FailurePolicy = "failStage"
)

// StandardEvent is a lifecycle occurrence a sentry on-part can reference.
type StandardEvent string

const (
	EventComplete  StandardEvent = "complete"
	EventTerminate StandardEvent = "terminate"
	EventOccur     StandardEvent = "occur"
	EventStart     StandardEvent = "start"
)

// OnPart ties a sentry to a lifecycle event of a sibling plan node.
type OnPart struct {
	SourceID string        `json:"source_id" yaml:"source"`
	Event    StandardEvent `json:"event" yaml:"event"`
}

// Guard is a structural predicate over the variable scope.
// Expression-language parsing is deliberately out of scope; guards compare
// one named variable against a constant.
type Guard struct {
	Variable string   `json:"variable" yaml:"variable"`
	Op       Operator `json:"op" yaml:"op"`
	Value    any      `json:"value" yaml:"value"`
}

// Sentry is an entry or exit criterion. It is stateless: re-evaluated on every
// relevant child or variable change, never persisted. A sentry is satisfied
// when all of its configured parts are (parts are AND-ed, sentries OR-ed).
type Sentry struct {
	OnPart *OnPart `json:"on_part,omitempty" yaml:"on,omitempty"`
	IfPart *Guard  `json:"if_part,omitempty" yaml:"if,omitempty"`
}

// PlanNode is one immutable node of a deployed plan model.
type PlanNode struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`
	Type Behavior `json:"type" yaml:"type"`

	// Children holds ordered child plan node ids (composite behaviors only).
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`

	EntryCriteria []Sentry `json:"entry_criteria,omitempty" yaml:"entry,omitempty"`
	ExitCriteria  []Sentry `json:"exit_criteria,omitempty" yaml:"exit,omitempty"`

	// Required children block their parent's completion until terminal.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// ManualActivation keeps the node in the enabled state until an explicit start.
	ManualActivation bool `json:"manual_activation,omitempty" yaml:"manual_activation,omitempty"`

	// OnChildFailure is the composite's reaction to an abnormal child
	// termination. Empty means ignore for non-required children and
	// terminateStage for required ones.
	OnChildFailure FailurePolicy `json:"on_child_failure,omitempty" yaml:"on_child_failure,omitempty"`
}

// FailureReaction resolves the effective policy for a failing child.
func (n *PlanNode) FailureReaction(child *PlanNode) FailurePolicy {
	if n.OnChildFailure != "" {
		return n.OnChildFailure
	}
	if child.Required {
		return FailureTerminateStage
	}
	return FailureIgnore
}

// PlanModel is the immutable, parsed definition of a case. It is produced by
// a deployment step and never mutated afterwards.
type PlanModel struct {
	ID      string `json:"id" yaml:"id"`
	Key     string `json:"key" yaml:"key"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Version int    `json:"version,omitempty" yaml:"version,omitempty"`

	// RootID references the caseRoot node inside Nodes.
	RootID string `json:"root_id" yaml:"root"`

	Nodes map[string]*PlanNode `json:"nodes" yaml:"nodes"`
}

// Node looks up a plan node by id.
func (m *PlanModel) Node(id string) (*PlanNode, bool) {
	n, ok := m.Nodes[id]
	return n, ok
}

// Root returns the caseRoot node.
func (m *PlanModel) Root() *PlanNode {
	return m.Nodes[m.RootID]
}

// Validate checks structural integrity: ids consistent, children and sentry
// sources resolvable, exactly one root with the caseRoot behavior.
func (m *PlanModel) Validate() error {
	if m.ID == "" && m.Key == "" {
		return &ValidationError{Field: "id", Reason: "plan model needs an id or a key"}
	}
	root, ok := m.Nodes[m.RootID]
	if !ok {
		return &ValidationError{Field: "root", Reason: "root node not found", Value: m.RootID}
	}
	if root.Type != BehaviorCaseRoot {
		return &ValidationError{Field: "root", Reason: fmt.Sprintf("root must be %s", BehaviorCaseRoot), Value: string(root.Type)}
	}
	for id, n := range m.Nodes {
		if n.ID != id {
			return &ValidationError{Field: "nodes", Reason: fmt.Sprintf("node keyed %q carries id %q", id, n.ID)}
		}
		if n.Type != BehaviorCaseRoot && id == m.RootID {
			return &ValidationError{Field: "root", Reason: "root id reused by a non-root node", Value: id}
		}
		if len(n.Children) > 0 && !n.Type.Composite() {
			return &ValidationError{Field: "children", Reason: fmt.Sprintf("%s nodes cannot have children", n.Type), Value: id}
		}
		for _, c := range n.Children {
			if _, ok := m.Nodes[c]; !ok {
				return &ValidationError{Field: "children", Reason: fmt.Sprintf("node %s references unknown child", id), Value: c}
			}
		}
		for _, s := range append(append([]Sentry{}, n.EntryCriteria...), n.ExitCriteria...) {
			if s.OnPart == nil && s.IfPart == nil {
				return &ValidationError{Field: "criteria", Reason: fmt.Sprintf("empty sentry on node %s", id)}
			}
			if s.OnPart != nil {
				if _, ok := m.Nodes[s.OnPart.SourceID]; !ok {
					return &ValidationError{Field: "criteria", Reason: fmt.Sprintf("sentry on node %s references unknown source", id), Value: s.OnPart.SourceID}
				}
			}
			if s.IfPart != nil && s.IfPart.Variable == "" {
				return &ValidationError{Field: "criteria", Reason: fmt.Sprintf("guard on node %s misses a variable name", id)}
			}
		}
	}
	return nil
}
