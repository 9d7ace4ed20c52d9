// Package filter manages named, persisted query definitions. A filter captures
// a query payload plus display properties under an owner, so clients can save
// a search once and replay it later.
package filter

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/caseflow/pkg/domain"
)

// Filter is one saved query definition. ResourceType is fixed at creation;
// every other field may change over the filter's lifetime.
type Filter struct {
	ID           string         `json:"id"`
	ResourceType string         `json:"resourceType"`
	Name         string         `json:"name"`
	Owner        string         `json:"owner"`
	Query        string         `json:"query"`
	Properties   map[string]any `json:"properties"`
}

func (f *Filter) clone() *Filter {
	out := *f
	if f.Properties != nil {
		out.Properties = make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			out.Properties[k] = v
		}
	}
	return &out
}

// DecodeProperties maps a filter's loose property bag onto a typed struct.
func DecodeProperties(f *Filter, target any) error {
	return mapstructure.Decode(f.Properties, target)
}

// Service stores filters in memory. Safe for concurrent use.
type Service struct {
	mu      sync.RWMutex
	filters map[string]*Filter
}

// NewService creates an empty filter service.
func NewService() *Service {
	return &Service{filters: make(map[string]*Filter)}
}

// Create validates and stores a new filter, assigning its id.
func (s *Service) Create(ctx context.Context, f Filter) (*Filter, error) {
	if err := validate(&f); err != nil {
		return nil, err
	}
	f.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[f.ID] = f.clone()
	return &f, nil
}

// Get retrieves one filter by id.
func (s *Service) Get(ctx context.Context, id string) (*Filter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.filters[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "Filter", ID: id}
	}
	return stored.clone(), nil
}

// Save replaces a stored filter. The resource type cannot change after
// creation; an attempt leaves the stored filter untouched.
func (s *Service) Save(ctx context.Context, f Filter) (*Filter, error) {
	if err := validate(&f); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.filters[f.ID]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "Filter", ID: f.ID}
	}
	if stored.ResourceType != f.ResourceType {
		return nil, &domain.ValidationError{
			Field:  "resourceType",
			Reason: "cannot be changed after creation",
			Value:  f.ResourceType,
		}
	}
	s.filters[f.ID] = f.clone()
	return &f, nil
}

// Delete removes a filter by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.filters[id]; !ok {
		return &domain.NotFoundError{Kind: "Filter", ID: id}
	}
	delete(s.filters, id)
	return nil
}

func validate(f *Filter) error {
	if f.ResourceType == "" {
		return &domain.ValidationError{Field: "resourceType", Reason: "must not be empty"}
	}
	if f.Name == "" {
		return &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if f.Query == "" {
		return &domain.ValidationError{Field: "query", Reason: "must not be empty"}
	}
	if !json.Valid([]byte(f.Query)) {
		return &domain.ValidationError{Field: "query", Reason: "must be valid JSON", Value: f.Query}
	}
	return nil
}

// Query is the fluent filter lookup builder.
type Query struct {
	service *Service

	filterID     string
	resourceType string
	name         string
	nameLike     string
	owner        string
}

// NewQuery starts a lookup over the service's filters.
func (s *Service) NewQuery() *Query {
	return &Query{service: s}
}

// FilterID selects the filter with the given id.
func (q *Query) FilterID(id string) *Query {
	q.filterID = id
	return q
}

// ResourceType selects filters over one resource type.
func (q *Query) ResourceType(rt string) *Query {
	q.resourceType = rt
	return q
}

// Name selects filters with exactly the given name.
func (q *Query) Name(name string) *Query {
	q.name = name
	return q
}

// NameLike selects filters whose name matches a '%' wildcard pattern.
func (q *Query) NameLike(pattern string) *Query {
	q.nameLike = pattern
	return q
}

// Owner selects filters owned by the given subject.
func (q *Query) Owner(owner string) *Query {
	q.owner = owner
	return q
}

// List returns all matching filters.
func (q *Query) List(ctx context.Context) ([]*Filter, error) {
	q.service.mu.RLock()
	defer q.service.mu.RUnlock()

	var out []*Filter
	for _, f := range q.service.filters {
		if q.matches(f) {
			out = append(out, f.clone())
		}
	}
	return out, nil
}

// Count returns the number of matching filters.
func (q *Query) Count(ctx context.Context) (int, error) {
	list, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// SingleResult returns the sole match, nil when there is none, and a
// validation error when the query is ambiguous.
func (q *Query) SingleResult(ctx context.Context) (*Filter, error) {
	list, err := q.List(ctx)
	if err != nil {
		return nil, err
	}
	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return list[0], nil
	}
	return nil, &domain.ValidationError{Field: "query", Reason: "matches more than one filter"}
}

func (q *Query) matches(f *Filter) bool {
	if q.filterID != "" && f.ID != q.filterID {
		return false
	}
	if q.resourceType != "" && f.ResourceType != q.resourceType {
		return false
	}
	if q.name != "" && f.Name != q.name {
		return false
	}
	if q.nameLike != "" && !domain.MatchLike(f.Name, q.nameLike) {
		return false
	}
	if q.owner != "" && f.Owner != q.owner {
		return false
	}
	return true
}
