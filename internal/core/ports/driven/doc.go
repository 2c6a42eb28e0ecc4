// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for a session to function:
//
//   - ChatStore: durable conversation and document metadata persistence
//   - AnswerService: the AI backend (questions, status fetch, processing trigger)
//   - StatusPoller: point-in-time processing status fetch
//   - IdentityProvider: the external identity provider (stable user id)
//
// # Optional Interfaces
//
// These can be nil - the core degrades gracefully:
//
//   - StatusChannel: push delivery of status events. Without it the
//     synchronizer reaches the terminal state through polling alone.
//   - BlobStore: upload-time blob storage. Only needed by the upload flow.
//   - ConfigStore: application configuration.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
