// Package observability provides event logging, metrics and alerting for
// ReminderWave. Task and reminder lifecycle events are appended to a JSON
// Lines file; metrics are derived from it on demand and mirrored into
// Prometheus counters, while alerts are evaluated against the current task
// list.
package observability
