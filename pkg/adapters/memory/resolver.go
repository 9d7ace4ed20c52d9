package memory

import (
	"context"

	"github.com/aretw0/caseflow/pkg/domain"
)

// Resolver implements ports.PlanResolver over an in-memory map.
type Resolver struct {
	byID  map[string]*domain.PlanModel
	byKey map[string]*domain.PlanModel
}

// NewResolver creates a resolver from validated plan models.
// The latest model per key wins; models are validated on the way in.
func NewResolver(plans ...*domain.PlanModel) (*Resolver, error) {
	r := &Resolver{
		byID:  make(map[string]*domain.PlanModel),
		byKey: make(map[string]*domain.PlanModel),
	}
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		r.byID[p.ID] = p
		if prev, ok := r.byKey[p.Key]; !ok || p.Version >= prev.Version {
			r.byKey[p.Key] = p
		}
	}
	return r, nil
}

// ResolveByID returns the plan model with the given definition id.
func (r *Resolver) ResolveByID(ctx context.Context, definitionID string) (*domain.PlanModel, error) {
	p, ok := r.byID[definitionID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "Case definition", ID: definitionID}
	}
	return p, nil
}

// ResolveByKey returns the latest plan model deployed under the key.
func (r *Resolver) ResolveByKey(ctx context.Context, key string) (*domain.PlanModel, error) {
	p, ok := r.byKey[key]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "Case definition", ID: key}
	}
	return p, nil
}
