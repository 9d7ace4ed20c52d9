package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/caseflow/pkg/domain"
	"github.com/aretw0/caseflow/pkg/ports"
)

// RunExecutionStoreContract verifies that an adapter complies with
// ports.ExecutionStore: isolation of returned copies, version increments on
// commit, atomic rejection of stale writes, and history record visibility.
func RunExecutionStoreContract(t *testing.T, store interface {
	ports.ExecutionStore
	ports.HistoryStore
}) {
	t.Helper()
	ctx := context.Background()

	seed := func(t *testing.T, instanceID, execID string) *domain.Execution {
		t.Helper()
		exec := &domain.Execution{
			ID:             execID,
			CaseInstanceID: instanceID,
			PlanNodeID:     "root",
			DefinitionID:   "def-1",
			DefinitionKey:  "def",
			State:          domain.StateActive,
			Variables:      map[string]any{"color": "green"},
			CreatedAt:      time.Now().UTC(),
		}
		err := store.Commit(ctx, ports.UnitOfWork{
			CaseInstanceID: instanceID,
			Writes:         []ports.ExecutionWrite{{Execution: exec}},
		})
		if err != nil {
			t.Fatalf("seed commit failed: %v", err)
		}
		return exec
	}

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Commit_And_Get", func(t *testing.T) {
		seed(t, "inst-1", "exec-1")

		got, err := store.Get(ctx, "exec-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Version != 1 {
			t.Errorf("expected version 1 after first commit, got %d", got.Version)
		}
		if got.Variables["color"] != "green" {
			t.Errorf("variables not persisted: %v", got.Variables)
		}

		// Mutating the returned copy must not leak into the store.
		got.Variables["color"] = "red"
		again, _ := store.Get(ctx, "exec-1")
		if again.Variables["color"] != "green" {
			t.Error("store handed out a shared pointer")
		}
	})

	t.Run("Commit_StaleVersion", func(t *testing.T) {
		exec := seed(t, "inst-2", "exec-2")

		fresh, _ := store.Get(ctx, "exec-2")
		fresh.State = domain.StateCompleted
		err := store.Commit(ctx, ports.UnitOfWork{
			CaseInstanceID: "inst-2",
			Writes:         []ports.ExecutionWrite{{Execution: fresh, ExpectedVersion: fresh.Version}},
		})
		if err != nil {
			t.Fatalf("first update failed: %v", err)
		}

		// Replaying the write with the original version must lose.
		exec.State = domain.StateTerminated
		err = store.Commit(ctx, ports.UnitOfWork{
			CaseInstanceID: "inst-2",
			Writes:         []ports.ExecutionWrite{{Execution: exec, ExpectedVersion: 1}},
		})
		if !errors.Is(err, domain.ErrConcurrentModification) {
			t.Errorf("expected ErrConcurrentModification, got %v", err)
		}

		// The losing command must not have applied.
		got, _ := store.Get(ctx, "exec-2")
		if got.State != domain.StateCompleted {
			t.Errorf("stale write leaked: state %s", got.State)
		}
	})

	t.Run("Commit_Atomicity", func(t *testing.T) {
		seed(t, "inst-3", "exec-3a")
		seed(t, "inst-3", "exec-3b")

		a, _ := store.Get(ctx, "exec-3a")
		b, _ := store.Get(ctx, "exec-3b")
		a.State = domain.StateCompleted
		b.State = domain.StateCompleted

		// One valid write plus one stale write: neither may apply.
		err := store.Commit(ctx, ports.UnitOfWork{
			CaseInstanceID: "inst-3",
			Writes: []ports.ExecutionWrite{
				{Execution: a, ExpectedVersion: a.Version},
				{Execution: b, ExpectedVersion: b.Version + 7},
			},
		})
		if !errors.Is(err, domain.ErrConcurrentModification) {
			t.Fatalf("expected ErrConcurrentModification, got %v", err)
		}
		got, _ := store.Get(ctx, "exec-3a")
		if got.State != domain.StateActive {
			t.Errorf("partial commit leaked: state %s", got.State)
		}
	})

	t.Run("LoadInstance_Snapshot", func(t *testing.T) {
		seed(t, "inst-4", "exec-4a")
		seed(t, "inst-4", "exec-4b")

		execs, err := store.LoadInstance(ctx, "inst-4")
		if err != nil {
			t.Fatalf("LoadInstance failed: %v", err)
		}
		if len(execs) != 2 {
			t.Errorf("expected 2 executions, got %d", len(execs))
		}

		_, err = store.LoadInstance(ctx, "inst-unknown")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for unknown instance, got %v", err)
		}
	})

	t.Run("Commit_WithHistory", func(t *testing.T) {
		exec := seed(t, "inst-5", "exec-5")

		fresh, _ := store.Get(ctx, "exec-5")
		fresh.State = domain.StateCompleted
		err := store.Commit(ctx, ports.UnitOfWork{
			CaseInstanceID: "inst-5",
			Writes:         []ports.ExecutionWrite{{Execution: fresh, ExpectedVersion: fresh.Version}},
			Records: []domain.HistoricRecord{{
				ID:             "rec-5",
				ExecutionID:    exec.ID,
				CaseInstanceID: "inst-5",
				ActivityID:     exec.PlanNodeID,
				Event:          domain.TriggerComplete,
				State:          domain.StateCompleted,
			}},
		})
		if err != nil {
			t.Fatalf("commit with history failed: %v", err)
		}

		records, err := store.Records(ctx)
		if err != nil {
			t.Fatalf("Records failed: %v", err)
		}
		found := false
		for _, r := range records {
			if r.ID == "rec-5" {
				found = true
			}
		}
		if !found {
			t.Error("historic record not visible after commit")
		}
	})

	t.Run("Delete_Write", func(t *testing.T) {
		seed(t, "inst-6", "exec-6")

		fresh, _ := store.Get(ctx, "exec-6")
		err := store.Commit(ctx, ports.UnitOfWork{
			CaseInstanceID: "inst-6",
			Writes:         []ports.ExecutionWrite{{Execution: fresh, ExpectedVersion: fresh.Version, Delete: true}},
		})
		if err != nil {
			t.Fatalf("delete commit failed: %v", err)
		}
		_, err = store.Get(ctx, "exec-6")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})
}
