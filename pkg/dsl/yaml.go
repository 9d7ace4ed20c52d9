package dsl

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/caseflow/pkg/domain"
)

// ParseYAML parses a plan model from its YAML form and validates it.
// Node ids may be given by map key alone; the parser fills them in.
//
// Minimal document:
//
//	key: loan
//	name: Loan Handling
//	root: casePlanModel
//	nodes:
//	  casePlanModel:
//	    type: caseRoot
//	    children: [review]
//	  review:
//	    type: task
//	    required: true
func ParseYAML(data []byte) (*domain.PlanModel, error) {
	var model domain.PlanModel
	if err := yaml.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse plan model: %w", err)
	}

	for id, n := range model.Nodes {
		if n == nil {
			return nil, &domain.ValidationError{Field: "nodes", Reason: "empty node definition", Value: id}
		}
		if n.ID == "" {
			n.ID = id
		}
	}
	if model.Version == 0 {
		model.Version = 1
	}
	if model.ID == "" && model.Key != "" {
		model.ID = fmt.Sprintf("%s:%d", model.Key, model.Version)
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &model, nil
}
