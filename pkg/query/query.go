// Package query builds and executes filtered, permission-scoped reads over
// committed execution state. Builders are fluent and validate their input at
// build time: an invalid operator for a variable type or a dangling order
// field is reported before anything touches the store.
package query

import (
	"context"
	"sort"

	"github.com/aretw0/caseflow/pkg/authorization"
	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/ports"
)

// Authorizer decides row visibility. Queries intersect their results with it
// before ordering and pagination, so counts are authorization-accurate.
// A nil Authorizer disables scoping (authorization turned off).
type Authorizer interface {
	CanRead(ctx context.Context, sub authorization.Context, r authorization.Resource, resourceID string) bool
}

// OrderField names a sortable execution field.
type OrderField string

const (
	OrderByExecutionID    OrderField = "executionId"
	OrderByCaseInstanceID OrderField = "caseInstanceId"
	OrderByDefinitionID   OrderField = "definitionId"
	OrderByDefinitionKey  OrderField = "definitionKey"
	OrderByBusinessKey    OrderField = "businessKey"
	OrderByCreateTime     OrderField = "createTime"
)

type ordering struct {
	field      OrderField
	descending bool
}

type variableFilter struct {
	name  string
	op    domain.Operator
	value any
}

// ExecutionQuery is the fluent predicate builder over live executions.
type ExecutionQuery struct {
	store      ports.ExecutionStore
	authz      Authorizer
	classifier domain.TypeClassifier

	err error

	executionID    string
	caseInstanceID string
	businessKey    string
	definitionID   string
	definitionKey  string
	states         []domain.State
	rootsOnly      bool
	variables      []variableFilter

	orderings    []ordering
	pendingOrder OrderField

	firstResult int
	maxResults  int
}

// NewExecutionQuery builds a query against a store, scoped by an authorizer.
func NewExecutionQuery(store ports.ExecutionStore, authz Authorizer) *ExecutionQuery {
	return &ExecutionQuery{
		store:      store,
		authz:      authz,
		classifier: domain.StandardTypes{},
		maxResults: -1,
	}
}

// WithClassifier overrides the variable type classification service.
func (q *ExecutionQuery) WithClassifier(c domain.TypeClassifier) *ExecutionQuery {
	q.classifier = c
	return q
}

// ExecutionID selects the execution with the given id.
func (q *ExecutionQuery) ExecutionID(id string) *ExecutionQuery {
	return q.setString(&q.executionID, "executionId", id)
}

// CaseInstanceID selects executions of one case instance.
func (q *ExecutionQuery) CaseInstanceID(id string) *ExecutionQuery {
	return q.setString(&q.caseInstanceID, "caseInstanceId", id)
}

// BusinessKey selects instance roots with the given business key.
func (q *ExecutionQuery) BusinessKey(key string) *ExecutionQuery {
	return q.setString(&q.businessKey, "businessKey", key)
}

// DefinitionID selects executions of one case definition id.
func (q *ExecutionQuery) DefinitionID(id string) *ExecutionQuery {
	return q.setString(&q.definitionID, "definitionId", id)
}

// DefinitionKey selects executions of one case definition key.
func (q *ExecutionQuery) DefinitionKey(key string) *ExecutionQuery {
	return q.setString(&q.definitionKey, "definitionKey", key)
}

// CaseInstancesOnly restricts to instance roots.
func (q *ExecutionQuery) CaseInstancesOnly() *ExecutionQuery {
	q.rootsOnly = true
	return q
}

// Active selects active executions.
func (q *ExecutionQuery) Active() *ExecutionQuery {
	q.states = append(q.states, domain.StateActive)
	return q
}

// Completed selects completed executions.
func (q *ExecutionQuery) Completed() *ExecutionQuery {
	q.states = append(q.states, domain.StateCompleted)
	return q
}

// Terminated selects terminated executions.
func (q *ExecutionQuery) Terminated() *ExecutionQuery {
	q.states = append(q.states, domain.StateTerminated)
	return q
}

// VariableValueEquals selects executions carrying the variable with the value.
func (q *ExecutionQuery) VariableValueEquals(name string, value any) *ExecutionQuery {
	return q.addVariable(name, domain.OpEquals, value)
}

// VariableValueNotEquals selects executions whose variable differs from the value.
func (q *ExecutionQuery) VariableValueNotEquals(name string, value any) *ExecutionQuery {
	return q.addVariable(name, domain.OpNotEquals, value)
}

// VariableValueGreaterThan selects by ordering comparison.
// Booleans, byte arrays and serialized objects are not supported.
func (q *ExecutionQuery) VariableValueGreaterThan(name string, value any) *ExecutionQuery {
	return q.addVariable(name, domain.OpGreaterThan, value)
}

// VariableValueGreaterThanOrEqual selects by ordering comparison.
func (q *ExecutionQuery) VariableValueGreaterThanOrEqual(name string, value any) *ExecutionQuery {
	return q.addVariable(name, domain.OpGreaterOrEqual, value)
}

// VariableValueLessThan selects by ordering comparison.
func (q *ExecutionQuery) VariableValueLessThan(name string, value any) *ExecutionQuery {
	return q.addVariable(name, domain.OpLessThan, value)
}

// VariableValueLessThanOrEqual selects by ordering comparison.
func (q *ExecutionQuery) VariableValueLessThanOrEqual(name string, value any) *ExecutionQuery {
	return q.addVariable(name, domain.OpLessOrEqual, value)
}

// VariableValueLike selects string variables matching a '%' wildcard pattern:
// starts with (string%), ends with (%string) or contains (%string%).
func (q *ExecutionQuery) VariableValueLike(name string, pattern string) *ExecutionQuery {
	if q.err != nil {
		return q
	}
	if name == "" {
		q.err = &domain.ValidationError{Field: "variableName", Reason: "must not be empty"}
		return q
	}
	q.variables = append(q.variables, variableFilter{name: name, op: domain.OpLike, value: pattern})
	return q
}

// OrderBy requests ordering by a field. It must be followed by Asc or Desc;
// omitting the direction is a programming error reported at build time.
func (q *ExecutionQuery) OrderBy(field OrderField) *ExecutionQuery {
	if q.err != nil {
		return q
	}
	if q.pendingOrder != "" {
		q.err = &domain.ValidationError{Field: "orderBy", Reason: "previous order field misses a direction", Value: string(q.pendingOrder)}
		return q
	}
	q.pendingOrder = field
	return q
}

// Asc closes the pending order field with ascending direction.
func (q *ExecutionQuery) Asc() *ExecutionQuery {
	return q.direction(false)
}

// Desc closes the pending order field with descending direction.
func (q *ExecutionQuery) Desc() *ExecutionQuery {
	return q.direction(true)
}

// Page sets the result window, applied after ordering and authorization.
func (q *ExecutionQuery) Page(firstResult, maxResults int) *ExecutionQuery {
	if q.err != nil {
		return q
	}
	if firstResult < 0 || maxResults < 0 {
		q.err = &domain.ValidationError{Field: "page", Reason: "window must not be negative"}
		return q
	}
	q.firstResult = firstResult
	q.maxResults = maxResults
	return q
}

// Execute runs the query and returns a lazy, one-pass cursor. The sequence is
// finite and not restartable; call Execute again for a fresh pass.
func (q *ExecutionQuery) Execute(ctx context.Context, sub authorization.Context) (*Cursor, error) {
	rows, err := q.resolve(ctx, sub)
	if err != nil {
		return nil, err
	}
	if q.firstResult > 0 {
		if q.firstResult >= len(rows) {
			rows = nil
		} else {
			rows = rows[q.firstResult:]
		}
	}
	if q.maxResults >= 0 && q.maxResults < len(rows) {
		rows = rows[:q.maxResults]
	}
	return &Cursor{rows: rows}, nil
}

// List is a convenience draining Execute into a slice.
func (q *ExecutionQuery) List(ctx context.Context, sub authorization.Context) ([]*domain.Execution, error) {
	cur, err := q.Execute(ctx, sub)
	if err != nil {
		return nil, err
	}
	var out []*domain.Execution
	for {
		exec, ok := cur.Next()
		if !ok {
			return out, nil
		}
		out = append(out, exec)
	}
}

// Count returns the number of visible matches, ignoring pagination.
// Because authorization filters rows before this point, the count is exact
// for the subject.
func (q *ExecutionQuery) Count(ctx context.Context, sub authorization.Context) (int, error) {
	rows, err := q.resolve(ctx, sub)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (q *ExecutionQuery) resolve(ctx context.Context, sub authorization.Context) ([]*domain.Execution, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.pendingOrder != "" {
		return nil, &domain.ValidationError{Field: "orderBy", Reason: "order field misses a direction", Value: string(q.pendingOrder)}
	}

	all, err := q.store.List(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]*domain.Execution, 0, len(all))
	for _, exec := range all {
		if !q.matches(exec) {
			continue
		}
		if q.authz != nil && !q.authz.CanRead(ctx, sub, authorization.ResourceCaseInstance, exec.CaseInstanceID) {
			continue
		}
		rows = append(rows, exec)
	}

	q.order(rows)
	return rows, nil
}

func (q *ExecutionQuery) matches(exec *domain.Execution) bool {
	if q.executionID != "" && exec.ID != q.executionID {
		return false
	}
	if q.caseInstanceID != "" && exec.CaseInstanceID != q.caseInstanceID {
		return false
	}
	if q.businessKey != "" && exec.BusinessKey != q.businessKey {
		return false
	}
	if q.definitionID != "" && exec.DefinitionID != q.definitionID {
		return false
	}
	if q.definitionKey != "" && exec.DefinitionKey != q.definitionKey {
		return false
	}
	if q.rootsOnly && !exec.Root() {
		return false
	}
	if len(q.states) > 0 {
		found := false
		for _, s := range q.states {
			if exec.State == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, f := range q.variables {
		if !q.variableMatches(exec, f) {
			return false
		}
	}
	return true
}

func (q *ExecutionQuery) variableMatches(exec *domain.Execution, f variableFilter) bool {
	val, ok := exec.Variables[f.name]
	if !ok {
		return false
	}
	switch f.op {
	case domain.OpEquals:
		return domain.EqualValues(val, f.value)
	case domain.OpNotEquals:
		return !domain.EqualValues(val, f.value)
	case domain.OpLike:
		s, sok := val.(string)
		return sok && domain.MatchLike(s, f.value.(string))
	}
	cmp, err := domain.CompareValues(val, f.value)
	if err != nil {
		return false
	}
	switch f.op {
	case domain.OpGreaterThan:
		return cmp > 0
	case domain.OpGreaterOrEqual:
		return cmp >= 0
	case domain.OpLessThan:
		return cmp < 0
	case domain.OpLessOrEqual:
		return cmp <= 0
	}
	return false
}

func (q *ExecutionQuery) order(rows []*domain.Execution) {
	if len(q.orderings) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range q.orderings {
			a, b := orderKey(rows[i], o.field), orderKey(rows[j], o.field)
			if a == b {
				continue
			}
			if o.descending {
				return a > b
			}
			return a < b
		}
		return false
	})
}

func orderKey(exec *domain.Execution, field OrderField) string {
	switch field {
	case OrderByExecutionID:
		return exec.ID
	case OrderByCaseInstanceID:
		return exec.CaseInstanceID
	case OrderByDefinitionID:
		return exec.DefinitionID
	case OrderByDefinitionKey:
		return exec.DefinitionKey
	case OrderByBusinessKey:
		return exec.BusinessKey
	case OrderByCreateTime:
		return exec.CreatedAt.Format("2006-01-02T15:04:05.000000000")
	}
	return ""
}

func (q *ExecutionQuery) setString(target *string, field, value string) *ExecutionQuery {
	if q.err != nil {
		return q
	}
	if value == "" {
		q.err = &domain.ValidationError{Field: field, Reason: "must not be empty"}
		return q
	}
	*target = value
	return q
}

func (q *ExecutionQuery) addVariable(name string, op domain.Operator, value any) *ExecutionQuery {
	if q.err != nil {
		return q
	}
	if name == "" {
		q.err = &domain.ValidationError{Field: "variableName", Reason: "must not be empty"}
		return q
	}
	t := q.classifier.Classify(value)
	if op.Orders() && !t.Orderable() {
		q.err = &domain.ValidationError{
			Field:  "variableValue",
			Reason: string(t) + " values do not support ordering comparisons",
			Value:  name,
		}
		return q
	}
	q.variables = append(q.variables, variableFilter{name: name, op: op, value: value})
	return q
}

func (q *ExecutionQuery) direction(desc bool) *ExecutionQuery {
	if q.err != nil {
		return q
	}
	if q.pendingOrder == "" {
		q.err = &domain.ValidationError{Field: "orderBy", Reason: "direction without a preceding order field"}
		return q
	}
	q.orderings = append(q.orderings, ordering{field: q.pendingOrder, descending: desc})
	q.pendingOrder = ""
	return q
}

// Cursor is a lazy, one-pass iteration over query results.
type Cursor struct {
	rows []*domain.Execution
	pos  int
}

// Next returns the next row, or false when the pass is exhausted.
func (c *Cursor) Next() (*domain.Execution, bool) {
	if c.pos >= len(c.rows) {
		return nil, false
	}
	row := c.rows[c.pos]
	c.pos++
	return row, true
}
