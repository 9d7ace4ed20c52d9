/*
Package dsl provides a Go DSL (Domain Specific Language) for programmatically constructing caseflow plan models.

It allows developers to define case structures using a type-safe, fluent builder pattern
instead of relying on external YAML files. This is particularly useful for dynamic plan
generation, unit testing, and leveraging IDE autocompletion/type-checking.

Example usage:

	package main

	import (
		"log"

		"github.com/aretw0/caseflow/pkg/dsl"
		"github.com/aretw0/caseflow/pkg/domain"
	)

	func main() {
		plan, err := dsl.NewPlan("loan", "Loan Handling").
			Stage("intake", "Intake").
			Task("collect", "Collect Documents").In("intake").Required().
			Task("review", "Review Application").In("intake").
			Entry(dsl.On("collect", domain.EventComplete)).
			Milestone("accepted", "Application Accepted").
			Entry(dsl.If("score", domain.OpGreaterThan, 700)).
			Build()
		if err != nil {
			log.Fatal(err)
		}

		// The resulting model can be registered with caseflow.WithPlans(plan).
		_ = plan
	}

YAML plan models use the same shape and are parsed with ParseYAML.
*/
package dsl
