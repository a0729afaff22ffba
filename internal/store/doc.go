// Package store defines the persistence interfaces the orchestration core
// consumes. Implementations live in internal/platform/postgres; the core
// depends only on these interfaces.
package store
