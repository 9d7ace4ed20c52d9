package domain

import "time"

// HistoricRecord is the immutable audit projection of one execution lifecycle
// transition. Identity fields are denormalized so reporting never joins back
// into live execution state. Written exactly once per instance start and per
// terminal transition, inside the same unit of work as the mutation.
type HistoricRecord struct {
	ID             string `json:"id"`
	ExecutionID    string `json:"execution_id"`
	CaseInstanceID string `json:"case_instance_id"`

	DefinitionID   string `json:"definition_id"`
	DefinitionKey  string `json:"definition_key"`
	DefinitionName string `json:"definition_name,omitempty"`

	BusinessKey string `json:"business_key,omitempty"`

	// ActivityID is the plan node id the execution instantiated.
	ActivityID string `json:"activity_id"`

	// Event is the transition type that produced the record.
	Event Trigger `json:"event"`

	State State `json:"state"`

	CreateTime time.Time `json:"create_time"`
	EndTime    time.Time `json:"end_time,omitempty"`
}

// HistoricDecisionInstance is the read-only reporting projection of one
// decision evaluation. Decision-table evaluation itself happens outside the
// engine; evaluated instances are appended through the history store.
type HistoricDecisionInstance struct {
	ID                     string    `json:"id"`
	DecisionDefinitionID   string    `json:"decisionDefinitionId"`
	DecisionDefinitionKey  string    `json:"decisionDefinitionKey"`
	DecisionDefinitionName string    `json:"decisionDefinitionName"`
	EvaluationTime         time.Time `json:"evaluationTime"`
	ProcessDefinitionID    string    `json:"processDefinitionId"`
	ProcessDefinitionKey   string    `json:"processDefinitionKey"`
	ProcessInstanceID      string    `json:"processInstanceId"`
	ActivityID             string    `json:"activityId"`
	ActivityInstanceID     string    `json:"activityInstanceId"`
}
