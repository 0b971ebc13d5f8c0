// Package queue implements the shared durable queue of publishable news
// items and its merge/consume protocol.
//
// Multiple independent callers (HTTP handlers, the cron scheduler, one-off
// CLI invocations, possibly separate processes) read and mutate the same
// durable document. Every read-modify-write cycle runs under an exclusive
// path-scoped advisory lock (Guard), so no batch is lost under concurrent
// ingestion and at most one consumption cycle is in flight at a time.
package queue
