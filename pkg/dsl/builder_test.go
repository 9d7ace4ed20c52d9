package dsl_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/dsl"
)

func TestPlanBuilder(t *testing.T) {
	t.Run("builds a validated model with ordered children", func(t *testing.T) {
		plan, err := dsl.NewPlan("loan", "Loan Handling").
			Stage("intake", "Intake").
			Task("collect", "Collect Documents").In("intake").Required().
			Task("review", "Review Application").In("intake").
			Entry(dsl.On("collect", domain.EventComplete)).
			Milestone("accepted", "Application Accepted").
			Entry(dsl.If("score", domain.OpGreaterThan, 700)).
			Build()
		require.NoError(t, err)

		assert.Equal(t, "loan", plan.Key)
		assert.Equal(t, "loan:1", plan.ID)
		assert.Equal(t, 1, plan.Version)

		root := plan.Root()
		require.NotNil(t, root)
		assert.Equal(t, domain.BehaviorCaseRoot, root.Type)
		assert.Equal(t, []string{"intake", "accepted"}, root.Children)

		intake, ok := plan.Node("intake")
		require.True(t, ok)
		assert.Equal(t, []string{"collect", "review"}, intake.Children)

		collect, _ := plan.Node("collect")
		assert.True(t, collect.Required)

		review, _ := plan.Node("review")
		require.Len(t, review.EntryCriteria, 1)
		assert.Equal(t, "collect", review.EntryCriteria[0].OnPart.SourceID)
		assert.Equal(t, domain.EventComplete, review.EntryCriteria[0].OnPart.Event)

		accepted, _ := plan.Node("accepted")
		require.Len(t, accepted.EntryCriteria, 1)
		assert.Equal(t, "score", accepted.EntryCriteria[0].IfPart.Variable)
	})

	t.Run("combined on and if part", func(t *testing.T) {
		plan, err := dsl.NewPlan("claims", "Claims").
			Task("assess", "Assess").
			Task("escalate", "Escalate").
			Entry(dsl.On("assess", domain.EventComplete).If("severity", domain.OpGreaterOrEqual, 3)).
			Build()
		require.NoError(t, err)

		escalate, _ := plan.Node("escalate")
		require.Len(t, escalate.EntryCriteria, 1)
		s := escalate.EntryCriteria[0]
		require.NotNil(t, s.OnPart)
		require.NotNil(t, s.IfPart)
		assert.Equal(t, "assess", s.OnPart.SourceID)
		assert.Equal(t, "severity", s.IfPart.Variable)
	})

	t.Run("version flows into the definition id", func(t *testing.T) {
		plan, err := dsl.NewPlan("loan", "Loan Handling").
			Version(7).
			Task("review", "Review").
			Build()
		require.NoError(t, err)
		assert.Equal(t, "loan:7", plan.ID)
		assert.Equal(t, 7, plan.Version)
	})

	t.Run("unknown parent is rejected", func(t *testing.T) {
		_, err := dsl.NewPlan("loan", "Loan Handling").
			Task("review", "Review").In("nowhere").
			Build()
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("children under a leaf are rejected", func(t *testing.T) {
		_, err := dsl.NewPlan("loan", "Loan Handling").
			Task("review", "Review").
			Task("sub", "Sub Work").In("review").
			Build()
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestParseYAML(t *testing.T) {
	t.Run("parses and validates a plan document", func(t *testing.T) {
		doc := []byte(`
key: loan
name: Loan Handling
root: casePlanModel
nodes:
  casePlanModel:
    type: caseRoot
    children: [intake, accepted]
  intake:
    type: stage
    children: [review]
  review:
    type: task
    required: true
    entry:
      - if:
          variable: amount
          op: gt
          value: 100
  accepted:
    type: milestone
`)
		plan, err := dsl.ParseYAML(doc)
		require.NoError(t, err)

		assert.Equal(t, "loan", plan.Key)
		assert.Equal(t, "loan:1", plan.ID)
		assert.Equal(t, 1, plan.Version)

		review, ok := plan.Node("review")
		require.True(t, ok)
		assert.Equal(t, "review", review.ID, "id filled from map key")
		assert.True(t, review.Required)
		require.Len(t, review.EntryCriteria, 1)
		assert.Equal(t, domain.OpGreaterThan, review.EntryCriteria[0].IfPart.Op)
	})

	t.Run("malformed YAML fails", func(t *testing.T) {
		_, err := dsl.ParseYAML([]byte("nodes: ["))
		assert.Error(t, err)
	})

	t.Run("structural problems fail validation", func(t *testing.T) {
		doc := []byte(`
key: broken
root: casePlanModel
nodes:
  casePlanModel:
    type: caseRoot
    children: [ghost]
`)
		_, err := dsl.ParseYAML(doc)
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})
}
