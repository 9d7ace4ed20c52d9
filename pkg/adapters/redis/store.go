// Package redis persists execution state and history in Redis. Optimistic
// version checks run inside WATCH/MULTI transactions, so concurrent commits
// against the same executions fail cleanly instead of interleaving.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/ports"
)

// Store implements ports.ExecutionStore and ports.HistoryStore on Redis.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix (default "caseflow:").
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "caseflow:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) execKey(id string) string {
	return s.prefix + "exec:" + id
}

func (s *Store) instanceKey(id string) string {
	return s.prefix + "instance:" + id
}

func (s *Store) execIndexKey() string {
	return s.prefix + "execs"
}

func (s *Store) historyKey() string {
	return s.prefix + "history"
}

func (s *Store) decisionKey(id string) string {
	return s.prefix + "decision:" + id
}

func (s *Store) decisionIndexKey() string {
	return s.prefix + "decisions"
}

// Get retrieves one execution by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Execution, error) {
	val, err := s.client.Get(ctx, s.execKey(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, &domain.NotFoundError{Kind: "Execution", ID: id}
		}
		return nil, fmt.Errorf("failed to get execution from redis: %w", err)
	}
	return decodeExecution([]byte(val))
}

// LoadInstance returns all executions of one case instance.
func (s *Store) LoadInstance(ctx context.Context, caseInstanceID string) ([]*domain.Execution, error) {
	ids, err := s.client.SMembers(ctx, s.instanceKey(caseInstanceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read instance index: %w", err)
	}
	if len(ids) == 0 {
		return nil, &domain.NotFoundError{Kind: "Case instance", ID: caseInstanceID}
	}
	return s.fetch(ctx, ids)
}

// List returns all live executions across instances.
func (s *Store) List(ctx context.Context) ([]*domain.Execution, error) {
	ids, err := s.client.SMembers(ctx, s.execIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read execution index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.fetch(ctx, ids)
}

func (s *Store) fetch(ctx context.Context, ids []string) ([]*domain.Execution, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.execKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch executions: %w", err)
	}
	out := make([]*domain.Execution, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Index member without a backing key: concurrently deleted.
			continue
		}
		exec, err := decodeExecution([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, nil
}

// Commit applies a unit of work under optimistic version checks. All execution
// keys are WATCHed; a concurrent writer aborts the transaction and the commit
// surfaces a domain.ConcurrencyError.
func (s *Store) Commit(ctx context.Context, uow ports.UnitOfWork) error {
	keys := make([]string, len(uow.Writes))
	for i, w := range uow.Writes {
		keys[i] = s.execKey(w.Execution.ID)
	}

	txn := func(tx *backend.Tx) error {
		for _, w := range uow.Writes {
			val, err := tx.Get(ctx, s.execKey(w.Execution.ID)).Result()
			if errors.Is(err, backend.Nil) {
				if w.ExpectedVersion != 0 {
					return &domain.ConcurrencyError{ExecutionID: w.Execution.ID, Expected: w.ExpectedVersion}
				}
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to read execution for version check: %w", err)
			}
			current, err := decodeExecution([]byte(val))
			if err != nil {
				return err
			}
			if current.Version != w.ExpectedVersion {
				return &domain.ConcurrencyError{
					ExecutionID: w.Execution.ID,
					Expected:    w.ExpectedVersion,
					Actual:      current.Version,
				}
			}
		}

		_, err := tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			for _, w := range uow.Writes {
				if w.Delete {
					pipe.Del(ctx, s.execKey(w.Execution.ID))
					pipe.SRem(ctx, s.instanceKey(uow.CaseInstanceID), w.Execution.ID)
					pipe.SRem(ctx, s.execIndexKey(), w.Execution.ID)
					continue
				}
				stored := w.Execution.Clone()
				stored.Version = w.ExpectedVersion + 1
				data, err := json.Marshal(stored)
				if err != nil {
					return fmt.Errorf("failed to marshal execution: %w", err)
				}
				pipe.Set(ctx, s.execKey(stored.ID), data, 0)
				pipe.SAdd(ctx, s.instanceKey(uow.CaseInstanceID), stored.ID)
				pipe.SAdd(ctx, s.execIndexKey(), stored.ID)
			}
			for _, r := range uow.Records {
				data, err := json.Marshal(r)
				if err != nil {
					return fmt.Errorf("failed to marshal historic record: %w", err)
				}
				pipe.RPush(ctx, s.historyKey(), data)
			}
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txn, keys...)
	if errors.Is(err, backend.TxFailedErr) {
		return &domain.ConcurrencyError{ExecutionID: uow.CaseInstanceID}
	}
	return err
}

// Records returns all committed historic records in commit order.
func (s *Store) Records(ctx context.Context) ([]domain.HistoricRecord, error) {
	vals, err := s.client.LRange(ctx, s.historyKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	out := make([]domain.HistoricRecord, 0, len(vals))
	for _, v := range vals {
		var r domain.HistoricRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal historic record: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// AppendDecision stores one evaluated decision instance.
func (s *Store) AppendDecision(ctx context.Context, d domain.HistoricDecisionInstance) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal decision instance: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.decisionKey(d.ID), data, 0)
	pipe.SAdd(ctx, s.decisionIndexKey(), d.ID)
	_, err = pipe.Exec(ctx)
	return err
}

// Decision retrieves one historic decision instance by id.
func (s *Store) Decision(ctx context.Context, id string) (*domain.HistoricDecisionInstance, error) {
	val, err := s.client.Get(ctx, s.decisionKey(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, &domain.NotFoundError{Kind: "Historic decision instance", ID: id}
		}
		return nil, fmt.Errorf("failed to get decision instance: %w", err)
	}
	var d domain.HistoricDecisionInstance
	if err := json.Unmarshal([]byte(val), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decision instance: %w", err)
	}
	return &d, nil
}

// Decisions returns all historic decision instances.
func (s *Store) Decisions(ctx context.Context) ([]domain.HistoricDecisionInstance, error) {
	ids, err := s.client.SMembers(ctx, s.decisionIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read decision index: %w", err)
	}
	out := make([]domain.HistoricDecisionInstance, 0, len(ids))
	for _, id := range ids {
		d, err := s.Decision(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func decodeExecution(data []byte) (*domain.Execution, error) {
	var exec domain.Execution
	if err := json.Unmarshal(data, &exec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution: %w", err)
	}
	return &exec, nil
}
