package identity

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/caseflow/pkg/authorization"
	"github.com/aretw0/caseflow/pkg/domain"
)

// User is a known subject.
type User struct {
	ID   string
	Name string
}

// Group bundles users for shared permissions.
type Group struct {
	ID   string
	Name string
}

// Tenant is an isolation scope; membership controls visibility.
type Tenant struct {
	ID   string
	Name string
}

// Service manages users, groups, tenants and their memberships. Creating a
// tenant membership grants the member default READ permission on the tenant;
// deleting the membership revokes it again. Visibility therefore follows
// membership with no extra bookkeeping in the query layer.
type Service struct {
	mu sync.RWMutex

	users   map[string]User
	groups  map[string]Group
	tenants map[string]Tenant

	userGroups map[string]map[string]bool

	// membershipGrants maps tenant membership -> authorization grant id,
	// so revoking a membership can remove exactly the grant it created.
	membershipGrants map[membershipKey]string

	authz *authorization.Service
}

type membershipKey struct {
	tenantID string
	subject  string
	group    bool
}

// NewService creates an identity service backed by the authorization service.
func NewService(authz *authorization.Service) *Service {
	return &Service{
		users:            make(map[string]User),
		groups:           make(map[string]Group),
		tenants:          make(map[string]Tenant),
		userGroups:       make(map[string]map[string]bool),
		membershipGrants: make(map[membershipKey]string),
		authz:            authz,
	}
}

// SaveUser stores a user.
func (s *Service) SaveUser(u User) error {
	if u.ID == "" {
		return &domain.ValidationError{Field: "userId", Reason: "must not be empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

// SaveGroup stores a group.
func (s *Service) SaveGroup(g Group) error {
	if g.ID == "" {
		return &domain.ValidationError{Field: "groupId", Reason: "must not be empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	return nil
}

// SaveTenant stores a tenant.
func (s *Service) SaveTenant(t Tenant) error {
	if t.ID == "" {
		return &domain.ValidationError{Field: "tenantId", Reason: "must not be empty"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
	return nil
}

// DeleteUser removes a user and its group memberships.
func (s *Service) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	delete(s.userGroups, id)
}

// DeleteGroup removes a group.
func (s *Service) DeleteGroup(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, id)
	for _, groups := range s.userGroups {
		delete(groups, id)
	}
}

// DeleteTenant removes a tenant.
func (s *Service) DeleteTenant(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, id)
}

// CreateGroupMembership adds a user to a group.
func (s *Service) CreateGroupMembership(userID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return &domain.NotFoundError{Kind: "User", ID: userID}
	}
	if _, ok := s.groups[groupID]; !ok {
		return &domain.NotFoundError{Kind: "Group", ID: groupID}
	}
	if s.userGroups[userID] == nil {
		s.userGroups[userID] = make(map[string]bool)
	}
	s.userGroups[userID][groupID] = true
	return nil
}

// DeleteGroupMembership removes a user from a group.
func (s *Service) DeleteGroupMembership(userID, groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userGroups[userID], groupID)
}

// CreateTenantUserMembership adds a user to a tenant and grants the default
// READ permission on it.
func (s *Service) CreateTenantUserMembership(ctx context.Context, tenantID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; !ok {
		return &domain.NotFoundError{Kind: "Tenant", ID: tenantID}
	}
	if _, ok := s.users[userID]; !ok {
		return &domain.NotFoundError{Kind: "User", ID: userID}
	}
	grant, err := s.authz.CreateGrant(ctx, authorization.Grant{
		UserID:      userID,
		Resource:    authorization.ResourceTenant,
		ResourceID:  tenantID,
		Permissions: []authorization.Permission{authorization.PermissionRead},
	})
	if err != nil {
		return err
	}
	s.membershipGrants[membershipKey{tenantID: tenantID, subject: userID}] = grant.ID
	return nil
}

// DeleteTenantUserMembership removes the membership and its default grant.
func (s *Service) DeleteTenantUserMembership(ctx context.Context, tenantID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := membershipKey{tenantID: tenantID, subject: userID}
	grantID, ok := s.membershipGrants[key]
	if !ok {
		return &domain.NotFoundError{Kind: "Tenant membership", ID: tenantID + "/" + userID}
	}
	delete(s.membershipGrants, key)
	return s.authz.DeleteGrant(ctx, grantID)
}

// CreateTenantGroupMembership adds a group to a tenant with a default READ grant.
func (s *Service) CreateTenantGroupMembership(ctx context.Context, tenantID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[tenantID]; !ok {
		return &domain.NotFoundError{Kind: "Tenant", ID: tenantID}
	}
	if _, ok := s.groups[groupID]; !ok {
		return &domain.NotFoundError{Kind: "Group", ID: groupID}
	}
	grant, err := s.authz.CreateGrant(ctx, authorization.Grant{
		GroupID:     groupID,
		Resource:    authorization.ResourceTenant,
		ResourceID:  tenantID,
		Permissions: []authorization.Permission{authorization.PermissionRead},
	})
	if err != nil {
		return err
	}
	s.membershipGrants[membershipKey{tenantID: tenantID, subject: groupID, group: true}] = grant.ID
	return nil
}

// DeleteTenantGroupMembership removes the group membership and its grant.
func (s *Service) DeleteTenantGroupMembership(ctx context.Context, tenantID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := membershipKey{tenantID: tenantID, subject: groupID, group: true}
	grantID, ok := s.membershipGrants[key]
	if !ok {
		return &domain.NotFoundError{Kind: "Tenant membership", ID: tenantID + "/" + groupID}
	}
	delete(s.membershipGrants, key)
	return s.authz.DeleteGrant(ctx, grantID)
}

// SubjectFor builds the authorization context for a user, including its
// group memberships.
func (s *Service) SubjectFor(userID string) authorization.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub := authorization.Context{UserID: userID}
	for gid := range s.userGroups[userID] {
		sub.GroupIDs = append(sub.GroupIDs, gid)
	}
	sort.Strings(sub.GroupIDs)
	return sub
}

// TenantQuery lists tenants visible to a subject: exactly those the subject
// can READ. Exclusion happens here, not post-hoc, so counts are accurate.
type TenantQuery struct {
	service *Service
	sub     authorization.Context
}

// TenantQuery starts a visibility-scoped tenant query.
func (s *Service) TenantQuery(sub authorization.Context) *TenantQuery {
	return &TenantQuery{service: s, sub: sub}
}

// List returns the visible tenants, ordered by id.
func (q *TenantQuery) List(ctx context.Context) []Tenant {
	q.service.mu.RLock()
	defer q.service.mu.RUnlock()
	var out []Tenant
	for id, t := range q.service.tenants {
		if q.service.authz.CanRead(ctx, q.sub, authorization.ResourceTenant, id) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of visible tenants.
func (q *TenantQuery) Count(ctx context.Context) int {
	return len(q.List(ctx))
}
