// Package services implements the driving port interfaces.
// Services contain the core business logic: status reconciliation,
// conversation sequencing, answer formatting and the upload flow.
// They orchestrate calls to driven ports (adapters).
//
// Services are pure Go with no transport or storage dependencies.
package services
