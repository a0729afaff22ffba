// Package task runs due tasks: the Scheduler finds and claims them with a
// compare-and-set on their status, and the Executor dispatches each claimed
// task to the Strategy registered for its kind and writes its terminal status.
//
// Claims and terminal writes are conditional updates, so any number of
// schedulers may run against the same store and each task is executed at
// most once.
package task
