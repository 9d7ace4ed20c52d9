/*
Package caseflow is a case orchestration engine: it instantiates declarative
plan models into live execution trees and drives every node through a strict
lifecycle state machine.

It separates the plan model (what a case can do) from the execution state
(what a running instance is doing) and from the adapters that persist and
expose it. This Hexagonal Architecture lets the engine run embedded in a
process, behind an HTTP server, or on top of Redis or Postgres storage
without touching the core semantics.

# Concept

A plan model is a validated tree of typed nodes: stages group work, tasks do
it, milestones and event listeners react to it. Creating an instance
materializes that tree into executions, each holding its own state,
variables and version. Commands (complete, terminate, suspend, manual
start...) apply to one execution; the engine settles all knock-on effects —
parent completion, failure policies, sentry-driven activation and
termination — inside the same unit of work and commits atomically under
optimistic version checks. History is projected in that same commit, so the
audit trail can never drift from the live state.

# Key Features

  - Strict lifecycle: every transition is checked; illegal ones are rejected
    with typed errors, never silently ignored.
  - Deterministic propagation: child events and sentry evaluation run to a
    fixpoint before anything is committed.
  - Optimistic concurrency: conflicting commands fail cleanly and retry a
    bounded, configurable number of times.
  - Permission-scoped queries: results are filtered by grants before
    ordering and pagination, so counts never leak invisible rows.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/caseflow"
		"github.com/aretw0/caseflow/pkg/authorization"
		"github.com/aretw0/caseflow/pkg/domain"
		"github.com/aretw0/caseflow/pkg/dsl"
	)

	func main() {
		plan, err := dsl.NewPlan("loan", "Loan Handling").
			Stage("intake", "Intake").
			Task("review", "Review Application").In("intake").Required().
			Build()
		if err != nil {
			log.Fatal(err)
		}

		eng, err := caseflow.New(caseflow.WithPlans(plan))
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		created, err := eng.CreateInstance(ctx, "loan", "order-4711", map[string]any{
			"amount": 1200,
		})
		if err != nil {
			log.Fatal(err)
		}

		// Creation already activated the stage and the task.
		for _, ev := range created.Transitions {
			fmt.Println(ev.ExecutionID, ev.From, "->", ev.To)
		}

		// Find the live task and complete it; stage and root follow.
		tasks, err := eng.Query().
			CaseInstanceID(created.CaseInstanceID).
			Active().
			List(ctx, authorization.Context{UserID: "ana"})
		if err != nil {
			log.Fatal(err)
		}

		_, err = eng.SubmitCommand(ctx, caseflow.Command{
			Trigger:  domain.TriggerComplete,
			TargetID: tasks[len(tasks)-1].ID,
		})
		if err != nil {
			log.Fatal(err)
		}
	}
*/
package caseflow
