// Package service contains the task lifecycle use cases exposed by the API:
// creating, reading, listing and cancelling tasks for an owner.
//
// Services receive the task store, the strategy registry (for payload
// validation) and the outcome event emitter through constructor injection.
// They never run tasks; execution belongs to the scheduler in internal/task.
//
// Errors are translated to service sentinels (ErrTaskNotFound,
// ErrTaskNotCancellable, ErrInvalidTask) that the API layer maps to HTTP
// status codes. Store failures are wrapped in TaskServiceError and keep
// store.ErrUnavailable reachable through errors.Is.
package service
