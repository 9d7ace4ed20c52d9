package ports

import (
	"context"

	"github.com/aretw0/caseflow/pkg/domain"
)

// PlanResolver resolves deployed plan models. Deployment and versioning live
// outside the engine; the resolver is expected to return validated models.
type PlanResolver interface {
	// ResolveByID returns the plan model with the given definition id,
	// or domain.ErrNotFound.
	ResolveByID(ctx context.Context, definitionID string) (*domain.PlanModel, error)

	// ResolveByKey returns the latest plan model deployed under the key,
	// or domain.ErrNotFound.
	ResolveByKey(ctx context.Context, key string) (*domain.PlanModel, error)
}
