// Package api exposes the task lifecycle, the scheduler trigger and the
// owner statistics over JSON HTTP. Handlers translate service and store
// errors with MapErrorToStatusCode and never return raw error text.
package api
