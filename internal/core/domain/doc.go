// Package domain defines the core business entities for DeepRead.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentMetadata: identity and display facts for one uploaded document
//   - ProcessingStatus: the reconciled state of the backend processing job
//   - Message: one conversation turn (user or assistant)
//   - Source: a citation attached to an assistant answer
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
