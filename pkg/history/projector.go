package history

import (
	"time"

	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/google/uuid"
)

// Projector converts committed lifecycle transitions into immutable historic
// records. It runs inside the command's unit of work: the records it produces
// are committed together with the execution writes, so a rolled-back command
// leaves no history behind.
type Projector struct {
	newID func() string
	now   func() time.Time
}

// Option configures a Projector.
type Option func(*Projector)

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Projector) {
		p.now = now
	}
}

// WithIDSource overrides record id generation.
func WithIDSource(newID func() string) Option {
	return func(p *Projector) {
		p.newID = newID
	}
}

// NewProjector creates a projector with uuid ids and UTC wall-clock time.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// InstanceStarted projects the creation of a case instance root.
func (p *Projector) InstanceStarted(exec *domain.Execution, def *domain.PlanModel) domain.HistoricRecord {
	r := p.base(exec, def)
	r.Event = domain.TriggerCreate
	r.State = exec.State
	return r
}

// TerminalTransition projects one execution reaching a terminal state.
func (p *Projector) TerminalTransition(exec *domain.Execution, def *domain.PlanModel, trigger domain.Trigger) domain.HistoricRecord {
	r := p.base(exec, def)
	r.Event = trigger
	r.State = exec.State
	r.EndTime = p.now()
	return r
}

func (p *Projector) base(exec *domain.Execution, def *domain.PlanModel) domain.HistoricRecord {
	name := ""
	if def != nil {
		name = def.Name
	}
	return domain.HistoricRecord{
		ID:             p.newID(),
		ExecutionID:    exec.ID,
		CaseInstanceID: exec.CaseInstanceID,
		DefinitionID:   exec.DefinitionID,
		DefinitionKey:  exec.DefinitionKey,
		DefinitionName: name,
		BusinessKey:    exec.BusinessKey,
		ActivityID:     exec.PlanNodeID,
		CreateTime:     exec.CreatedAt,
	}
}
