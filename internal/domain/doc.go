// Package domain contains the core entities of the orchestration engine:
// tasks and their state machine, notification targets and delivery receipts,
// and the analysis records written by content and media tasks.
package domain
