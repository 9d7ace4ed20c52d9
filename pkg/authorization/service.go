package authorization

import (
	"context"
	"sync"

	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/google/uuid"
)

// Permission is one grantable action on a resource.
type Permission string

const (
	PermissionRead   Permission = "READ"
	PermissionCreate Permission = "CREATE"
	PermissionUpdate Permission = "UPDATE"
	PermissionDelete Permission = "DELETE"
)

// Resource is a protected resource type.
type Resource string

const (
	ResourceCaseInstance   Resource = "caseInstance"
	ResourceCaseDefinition Resource = "caseDefinition"
	ResourceTenant         Resource = "tenant"
	ResourceFilter         Resource = "filter"
	ResourceHistory        Resource = "history"
)

// AnyResourceID grants a permission on every id of the resource type.
const AnyResourceID = "*"

// Context identifies the calling subject. It is passed explicitly into every
// query and command; there is no ambient authenticated user.
type Context struct {
	UserID   string
	GroupIDs []string
}

// Grant assigns permissions on one resource to a user or a group.
// Exactly one of UserID and GroupID is set.
type Grant struct {
	ID          string
	UserID      string
	GroupID     string
	Resource    Resource
	ResourceID  string
	Permissions []Permission
}

func (g *Grant) hasPermission(p Permission) bool {
	for _, perm := range g.Permissions {
		if perm == p {
			return true
		}
	}
	return false
}

// Service stores grants and answers permission checks.
// Safe for concurrent use.
type Service struct {
	mu     sync.RWMutex
	grants map[string]*Grant
}

// NewService creates an empty authorization service.
func NewService() *Service {
	return &Service{grants: make(map[string]*Grant)}
}

// CreateGrant validates and stores a grant, assigning its id.
func (s *Service) CreateGrant(ctx context.Context, g Grant) (*Grant, error) {
	if (g.UserID == "") == (g.GroupID == "") {
		return nil, &domain.ValidationError{Field: "grant", Reason: "exactly one of userId and groupId must be set"}
	}
	if g.Resource == "" {
		return nil, &domain.ValidationError{Field: "resource", Reason: "must not be empty"}
	}
	if g.ResourceID == "" {
		return nil, &domain.ValidationError{Field: "resourceId", Reason: "must not be empty"}
	}
	if len(g.Permissions) == 0 {
		return nil, &domain.ValidationError{Field: "permissions", Reason: "must not be empty"}
	}
	g.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := g
	s.grants[g.ID] = &stored
	return &g, nil
}

// DeleteGrant removes a grant by id.
func (s *Service) DeleteGrant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[id]; !ok {
		return &domain.NotFoundError{Kind: "Authorization", ID: id}
	}
	delete(s.grants, id)
	return nil
}

// IsAuthorized reports whether the subject holds the permission on the
// resource, directly or through one of its groups.
func (s *Service) IsAuthorized(ctx context.Context, sub Context, p Permission, r Resource, resourceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.grants {
		if g.Resource != r {
			continue
		}
		if g.ResourceID != AnyResourceID && g.ResourceID != resourceID {
			continue
		}
		if !g.hasPermission(p) {
			continue
		}
		if g.UserID != "" && g.UserID == sub.UserID {
			return true
		}
		if g.GroupID != "" {
			for _, gid := range sub.GroupIDs {
				if g.GroupID == gid {
					return true
				}
			}
		}
	}
	return false
}

// CanRead is the query-layer check: row exclusion, never an error.
func (s *Service) CanRead(ctx context.Context, sub Context, r Resource, resourceID string) bool {
	return s.IsAuthorized(ctx, sub, PermissionRead, r, resourceID)
}

// RequireAuthorized enforces a command-level permission. Unlike queries, a
// command denial surfaces as an error, never as a silent no-op.
func (s *Service) RequireAuthorized(ctx context.Context, sub Context, p Permission, r Resource, resourceID string) error {
	if !s.IsAuthorized(ctx, sub, p, r, resourceID) {
		return domain.ErrPermissionDenied
	}
	return nil
}

func (s *Service) list() []*Grant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Grant, 0, len(s.grants))
	for _, g := range s.grants {
		cp := *g
		out = append(out, &cp)
	}
	return out
}
