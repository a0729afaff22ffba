// Package events carries task outcome notifications from the dispatch
// executor to interested handlers.
//
// The executor emits a TaskOutcomeEvent after each terminal write through an
// EventEmitter. The in-memory emitter fans events out to registered handlers
// synchronously; NSQPublisher is the handler that forwards them to an NSQ topic.
// Handler failures are logged by the emitter and never change task state.
package events
