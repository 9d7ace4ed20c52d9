package dsl

import (
	"fmt"

	"github.com/aretw0/caseflow/pkg/domain"
)

// PlanBuilder manages the plan model construction. Nodes attach to the
// implicit case root unless In() points them elsewhere.
type PlanBuilder struct {
	key     string
	name    string
	version int
	order   []string
	nodes   map[string]*NodeBuilder
}

// NewPlan creates a new plan model builder. The case root node is created
// implicitly under the id "casePlanModel".
func NewPlan(key, name string) *PlanBuilder {
	b := &PlanBuilder{
		key:     key,
		name:    name,
		version: 1,
		nodes:   make(map[string]*NodeBuilder),
	}
	b.add("casePlanModel", name, domain.BehaviorCaseRoot)
	return b
}

// Version sets the plan model version (default 1).
func (b *PlanBuilder) Version(v int) *PlanBuilder {
	b.version = v
	return b
}

// Stage adds a composite stage node.
func (b *PlanBuilder) Stage(id, name string) *NodeBuilder {
	return b.add(id, name, domain.BehaviorStage)
}

// Task adds a leaf task node.
func (b *PlanBuilder) Task(id, name string) *NodeBuilder {
	return b.add(id, name, domain.BehaviorTask)
}

// Milestone adds a milestone node.
func (b *PlanBuilder) Milestone(id, name string) *NodeBuilder {
	return b.add(id, name, domain.BehaviorMilestone)
}

// EventListener adds an event listener node.
func (b *PlanBuilder) EventListener(id, name string) *NodeBuilder {
	return b.add(id, name, domain.BehaviorEventListener)
}

func (b *PlanBuilder) add(id, name string, t domain.Behavior) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.PlanNode{
			ID:   id,
			Name: name,
			Type: t,
		},
		plan: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build compiles the builder into a validated plan model. Children keep the
// order in which they were added.
func (b *PlanBuilder) Build() (*domain.PlanModel, error) {
	const rootID = "casePlanModel"

	model := &domain.PlanModel{
		ID:      fmt.Sprintf("%s:%d", b.key, b.version),
		Key:     b.key,
		Name:    b.name,
		Version: b.version,
		RootID:  rootID,
		Nodes:   make(map[string]*domain.PlanNode, len(b.nodes)),
	}

	for _, id := range b.order {
		nb := b.nodes[id]
		node := nb.node
		model.Nodes[id] = &node
	}
	for _, id := range b.order {
		if id == rootID {
			continue
		}
		nb := b.nodes[id]
		parent := nb.parent
		if parent == "" {
			parent = rootID
		}
		p, ok := model.Nodes[parent]
		if !ok {
			return nil, &domain.ValidationError{Field: "parent", Reason: fmt.Sprintf("node %s references unknown parent", id), Value: parent}
		}
		p.Children = append(p.Children, id)
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}
