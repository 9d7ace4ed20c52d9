package authorization

import "context"

// Query is a fluent filter over stored grants, mirroring the builders of the
// execution query layer.
type Query struct {
	service *Service

	userIDs    []string
	groupIDs   []string
	resource   Resource
	resourceID string
	permission Permission
}

// Query starts a grant query.
func (s *Service) Query() *Query {
	return &Query{service: s}
}

// UserIDIn restricts to grants held directly by one of the users.
func (q *Query) UserIDIn(ids ...string) *Query {
	q.userIDs = append(q.userIDs, ids...)
	return q
}

// GroupIDIn restricts to grants held by one of the groups.
func (q *Query) GroupIDIn(ids ...string) *Query {
	q.groupIDs = append(q.groupIDs, ids...)
	return q
}

// ResourceType restricts to grants on one resource type.
func (q *Query) ResourceType(r Resource) *Query {
	q.resource = r
	return q
}

// ResourceID restricts to grants on one resource id.
func (q *Query) ResourceID(id string) *Query {
	q.resourceID = id
	return q
}

// HasPermission restricts to grants carrying the permission.
func (q *Query) HasPermission(p Permission) *Query {
	q.permission = p
	return q
}

// List returns all matching grants.
func (q *Query) List(ctx context.Context) []*Grant {
	var out []*Grant
	for _, g := range q.service.list() {
		if q.matches(g) {
			out = append(out, g)
		}
	}
	return out
}

// Count returns the number of matching grants.
func (q *Query) Count(ctx context.Context) int {
	return len(q.List(ctx))
}

func (q *Query) matches(g *Grant) bool {
	if len(q.userIDs) > 0 && !contains(q.userIDs, g.UserID) {
		return false
	}
	if len(q.groupIDs) > 0 && !contains(q.groupIDs, g.GroupID) {
		return false
	}
	if q.resource != "" && g.Resource != q.resource {
		return false
	}
	if q.resourceID != "" && g.ResourceID != q.resourceID {
		return false
	}
	if q.permission != "" && !g.hasPermission(q.permission) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
