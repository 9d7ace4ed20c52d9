package dsl

import "github.com/aretw0/caseflow/pkg/domain"

// NodeBuilder provides a fluent API for configuring one plan node.
type NodeBuilder struct {
	node   domain.PlanNode
	parent string
	plan   *PlanBuilder
}

// In attaches the node to the given composite instead of the case root.
func (n *NodeBuilder) In(parentID string) *NodeBuilder {
	n.parent = parentID
	return n
}

// Required marks the node as blocking its parent's completion.
func (n *NodeBuilder) Required() *NodeBuilder {
	n.node.Required = true
	return n
}

// Manual keeps the node enabled until an explicit manual start.
func (n *NodeBuilder) Manual() *NodeBuilder {
	n.node.ManualActivation = true
	return n
}

// OnChildFailure sets the composite's reaction to an abnormal child end.
func (n *NodeBuilder) OnChildFailure(policy domain.FailurePolicy) *NodeBuilder {
	n.node.OnChildFailure = policy
	return n
}

// Entry adds entry criteria. Each sentry is satisfied when all its parts are;
// any satisfied sentry enables the node.
func (n *NodeBuilder) Entry(sentries ...*SentryBuilder) *NodeBuilder {
	for _, s := range sentries {
		n.node.EntryCriteria = append(n.node.EntryCriteria, s.sentry)
	}
	return n
}

// Exit adds exit criteria. Any satisfied sentry terminates the node and its
// subtree.
func (n *NodeBuilder) Exit(sentries ...*SentryBuilder) *NodeBuilder {
	for _, s := range sentries {
		n.node.ExitCriteria = append(n.node.ExitCriteria, s.sentry)
	}
	return n
}

// Stage continues the chain with a new stage node on the plan.
func (n *NodeBuilder) Stage(id, name string) *NodeBuilder {
	return n.plan.Stage(id, name)
}

// Task continues the chain with a new task node on the plan.
func (n *NodeBuilder) Task(id, name string) *NodeBuilder {
	return n.plan.Task(id, name)
}

// Milestone continues the chain with a new milestone node on the plan.
func (n *NodeBuilder) Milestone(id, name string) *NodeBuilder {
	return n.plan.Milestone(id, name)
}

// EventListener continues the chain with a new event listener node.
func (n *NodeBuilder) EventListener(id, name string) *NodeBuilder {
	return n.plan.EventListener(id, name)
}

// Build finishes the chain and compiles the plan model.
func (n *NodeBuilder) Build() (*domain.PlanModel, error) {
	return n.plan.Build()
}

// Node exposes the underlying plan node, for advanced usage.
func (n *NodeBuilder) Node() domain.PlanNode {
	return n.node
}

// SentryBuilder assembles one sentry out of an on-part and an if-part.
type SentryBuilder struct {
	sentry domain.Sentry
}

// On starts a sentry reacting to a lifecycle event of another plan node.
func On(sourceID string, event domain.StandardEvent) *SentryBuilder {
	return &SentryBuilder{sentry: domain.Sentry{
		OnPart: &domain.OnPart{SourceID: sourceID, Event: event},
	}}
}

// If starts a sentry guarding on a variable of the surrounding scope.
func If(variable string, op domain.Operator, value any) *SentryBuilder {
	return &SentryBuilder{sentry: domain.Sentry{
		IfPart: &domain.Guard{Variable: variable, Op: op, Value: value},
	}}
}

// If adds a variable guard to an event-driven sentry. Both parts must hold
// for the sentry to fire.
func (s *SentryBuilder) If(variable string, op domain.Operator, value any) *SentryBuilder {
	s.sentry.IfPart = &domain.Guard{Variable: variable, Op: op, Value: value}
	return s
}
