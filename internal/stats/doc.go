// Package stats produces per-owner frequency tables over tasks and analysis
// records. It only reads from the stores; stale running tasks are reported,
// never repaired.
package stats
