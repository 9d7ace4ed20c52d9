// Package postgres persists execution state and history in PostgreSQL via
// the pgx stdlib driver. Optimistic version checks run as conditional UPDATEs
// inside one transaction, so a unit of work either applies completely or not
// at all.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/ports"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// schema is idempotent; Migrate may run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS caseflow_executions (
	id               TEXT PRIMARY KEY,
	case_instance_id TEXT NOT NULL,
	version          BIGINT NOT NULL,
	data             JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS caseflow_executions_instance_idx
	ON caseflow_executions (case_instance_id);

CREATE TABLE IF NOT EXISTS caseflow_history_records (
	seq  BIGSERIAL PRIMARY KEY,
	data JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS caseflow_decision_instances (
	id   TEXT PRIMARY KEY,
	data JSONB NOT NULL
);
`

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Store implements ports.ExecutionStore and ports.HistoryStore on PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle. Run Migrate first.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get retrieves one execution by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Execution, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM caseflow_executions WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "Execution", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get execution: %w", err)
	}
	return decodeExecution(data)
}

// LoadInstance returns all executions of one case instance.
func (s *Store) LoadInstance(ctx context.Context, caseInstanceID string) ([]*domain.Execution, error) {
	out, err := s.selectExecutions(ctx,
		`SELECT data FROM caseflow_executions WHERE case_instance_id = $1`, caseInstanceID)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &domain.NotFoundError{Kind: "Case instance", ID: caseInstanceID}
	}
	return out, nil
}

// List returns all live executions across instances.
func (s *Store) List(ctx context.Context) ([]*domain.Execution, error) {
	return s.selectExecutions(ctx, `SELECT data FROM caseflow_executions`)
}

func (s *Store) selectExecutions(ctx context.Context, query string, args ...any) ([]*domain.Execution, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select executions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Execution
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		exec, err := decodeExecution(data)
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

// Commit applies a unit of work in one transaction. Every write is a
// conditional statement on the stored version; the first mismatch rolls the
// whole transaction back with a domain.ConcurrencyError.
func (s *Store) Commit(ctx context.Context, uow ports.UnitOfWork) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range uow.Writes {
		if err := s.applyWrite(ctx, tx, w); err != nil {
			return err
		}
	}
	for _, r := range uow.Records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal historic record: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO caseflow_history_records (data) VALUES ($1)`, data); err != nil {
			return fmt.Errorf("insert historic record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) applyWrite(ctx context.Context, tx *sql.Tx, w ports.ExecutionWrite) error {
	if w.Delete {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM caseflow_executions WHERE id = $1 AND version = $2`,
			w.Execution.ID, w.ExpectedVersion)
		if err != nil {
			return fmt.Errorf("delete execution: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return s.conflict(ctx, tx, w)
		}
		return nil
	}

	stored := w.Execution.Clone()
	stored.Version = w.ExpectedVersion + 1
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}

	if w.ExpectedVersion == 0 {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO caseflow_executions (id, case_instance_id, version, data)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			stored.ID, stored.CaseInstanceID, stored.Version, data)
		if err != nil {
			return fmt.Errorf("insert execution: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return s.conflict(ctx, tx, w)
		}
		return nil
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE caseflow_executions SET version = $1, data = $2
		 WHERE id = $3 AND version = $4`,
		stored.Version, data, stored.ID, w.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.conflict(ctx, tx, w)
	}
	return nil
}

// conflict reads the actual version for the error report; the row may also be
// gone entirely.
func (s *Store) conflict(ctx context.Context, tx *sql.Tx, w ports.ExecutionWrite) error {
	cerr := &domain.ConcurrencyError{
		ExecutionID: w.Execution.ID,
		Expected:    w.ExpectedVersion,
	}
	var actual int64
	err := tx.QueryRowContext(ctx,
		`SELECT version FROM caseflow_executions WHERE id = $1`, w.Execution.ID).Scan(&actual)
	if err == nil {
		cerr.Actual = actual
	}
	return cerr
}

// Records returns all committed historic records in commit order.
func (s *Store) Records(ctx context.Context) ([]domain.HistoricRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM caseflow_history_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoricRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan historic record: %w", err)
		}
		var r domain.HistoricRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal historic record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendDecision stores one evaluated decision instance.
func (s *Store) AppendDecision(ctx context.Context, d domain.HistoricDecisionInstance) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal decision instance: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO caseflow_decision_instances (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		d.ID, data)
	if err != nil {
		return fmt.Errorf("insert decision instance: %w", err)
	}
	return nil
}

// Decision retrieves one historic decision instance by id.
func (s *Store) Decision(ctx context.Context, id string) (*domain.HistoricDecisionInstance, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM caseflow_decision_instances WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Kind: "Historic decision instance", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get decision instance: %w", err)
	}
	var d domain.HistoricDecisionInstance
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal decision instance: %w", err)
	}
	return &d, nil
}

// Decisions returns all historic decision instances.
func (s *Store) Decisions(ctx context.Context) ([]domain.HistoricDecisionInstance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM caseflow_decision_instances`)
	if err != nil {
		return nil, fmt.Errorf("select decision instances: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoricDecisionInstance
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan decision instance: %w", err)
		}
		var d domain.HistoricDecisionInstance
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("unmarshal decision instance: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func decodeExecution(data []byte) (*domain.Execution, error) {
	var exec domain.Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, fmt.Errorf("unmarshal execution: %w", err)
	}
	return &exec, nil
}
