// Package logger configures the process-wide slog logger and carries
// request- and run-scoped loggers through context.Context.
package logger
