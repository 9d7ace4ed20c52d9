// Package ports declares the interfaces between the engine core and its
// adapters: versioned execution persistence, append-only history, plan model
// resolution and distributed locking. Reusable contract test suites for
// adapter implementations live in the tests subpackage.
package ports
