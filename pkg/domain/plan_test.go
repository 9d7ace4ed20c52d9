package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/caseflow/pkg/domain"
)

func validModel() *domain.PlanModel {
	return &domain.PlanModel{
		ID:     "loan:1",
		Key:    "loan",
		RootID: "root",
		Nodes: map[string]*domain.PlanNode{
			"root": {
				ID:       "root",
				Type:     domain.BehaviorCaseRoot,
				Children: []string{"review"},
			},
			"review": {
				ID:   "review",
				Type: domain.BehaviorTask,
			},
		},
	}
}

func TestPlanModelValidate(t *testing.T) {
	t.Run("valid model passes", func(t *testing.T) {
		require.NoError(t, validModel().Validate())
	})

	t.Run("missing root", func(t *testing.T) {
		m := validModel()
		m.RootID = "ghost"
		assert.True(t, domain.IsValidation(m.Validate()))
	})

	t.Run("root must be a case root", func(t *testing.T) {
		m := validModel()
		m.Nodes["root"].Type = domain.BehaviorStage
		assert.True(t, domain.IsValidation(m.Validate()))
	})

	t.Run("map key and node id must agree", func(t *testing.T) {
		m := validModel()
		m.Nodes["review"].ID = "other"
		assert.True(t, domain.IsValidation(m.Validate()))
	})

	t.Run("leaf nodes cannot have children", func(t *testing.T) {
		m := validModel()
		m.Nodes["review"].Children = []string{"root"}
		assert.True(t, domain.IsValidation(m.Validate()))
	})

	t.Run("unknown child reference", func(t *testing.T) {
		m := validModel()
		m.Nodes["root"].Children = append(m.Nodes["root"].Children, "ghost")
		assert.True(t, domain.IsValidation(m.Validate()))
	})

	t.Run("sentry must have at least one part", func(t *testing.T) {
		m := validModel()
		m.Nodes["review"].EntryCriteria = []domain.Sentry{{}}
		assert.True(t, domain.IsValidation(m.Validate()))
	})

	t.Run("sentry source must resolve", func(t *testing.T) {
		m := validModel()
		m.Nodes["review"].EntryCriteria = []domain.Sentry{{
			OnPart: &domain.OnPart{SourceID: "ghost", Event: domain.EventComplete},
		}}
		assert.True(t, domain.IsValidation(m.Validate()))
	})

	t.Run("guard needs a variable name", func(t *testing.T) {
		m := validModel()
		m.Nodes["review"].ExitCriteria = []domain.Sentry{{
			IfPart: &domain.Guard{Op: domain.OpEquals, Value: 1},
		}}
		assert.True(t, domain.IsValidation(m.Validate()))
	})
}

func TestFailureReaction(t *testing.T) {
	parent := &domain.PlanNode{ID: "stage", Type: domain.BehaviorStage}
	required := &domain.PlanNode{ID: "a", Type: domain.BehaviorTask, Required: true}
	optional := &domain.PlanNode{ID: "b", Type: domain.BehaviorTask}

	t.Run("defaults by child requirement", func(t *testing.T) {
		assert.Equal(t, domain.FailureTerminateStage, parent.FailureReaction(required))
		assert.Equal(t, domain.FailureIgnore, parent.FailureReaction(optional))
	})

	t.Run("explicit policy wins", func(t *testing.T) {
		parent.OnChildFailure = domain.FailureFailStage
		assert.Equal(t, domain.FailureFailStage, parent.FailureReaction(optional))
		assert.Equal(t, domain.FailureFailStage, parent.FailureReaction(required))
	})
}

func TestStatePredicates(t *testing.T) {
	assert.True(t, domain.StateCompleted.Terminal())
	assert.True(t, domain.StateTerminated.Terminal())
	assert.True(t, domain.StateFailed.Terminal())
	assert.False(t, domain.StateActive.Terminal())
	assert.False(t, domain.StateAvailable.Terminal())

	assert.True(t, domain.StateEnabled.Pending())
	assert.True(t, domain.StateActive.Pending())
	assert.True(t, domain.StateSuspended.Pending())
	assert.False(t, domain.StateAvailable.Pending())
	assert.False(t, domain.StateCompleted.Pending())
}
