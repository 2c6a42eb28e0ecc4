// Package driving defines the interfaces presentation code calls INTO the core.
//
// These are the "driving" or "primary" ports in hexagonal architecture.
// Core services implement them; pages and views consume them. The core
// owns no wire format or CLI surface of its own.
package driving
