// Package engine implements the offline-first sync engines for transactions,
// the primary bank account and the category catalog.
//
// ARCHITECTURE:
//
// Single-Writer Session:
// Every engine operation is a job submitted to a Session. The Session runs
// jobs one at a time in FIFO order from a single goroutine, so a replay pass
// can never interleave with a mutation on the same id, and the in-memory view
// only changes inside a job.
//
// Operation Flow:
//  1. Caller invokes an engine method (FetchTransactions, Create, ...)
//  2. The method submits a job and blocks on its reply or ctx.Done()
//  3. Session.Run() dequeues the job and runs it alone
//  4. The job talks to the remote, then the local store, then falls back to
//     the backup queue when the local store fails
//
// Failure Policy:
//   - Remote failure on a mutation is surfaced; nothing is queued
//   - Local failure on a mutation is absorbed into the backup queue
//   - Remote failure on a read degrades to a local + queue merge, and is
//     surfaced only when no local data exists at all
//
// Replay:
// Each transaction fetch first replays the backup queue against the remote.
// An entry leaves the queue once its remote call succeeds. The local mirror
// is best effort; a missed row is restored by the reconcile of a later
// online fetch. Creates carry a content-addressed idempotency key and are
// preceded by an existence check, so replaying the same entry twice never
// creates a duplicate.
//
// Fetch Ordering:
// Every fetch takes a sequence number from the Clock when called. A fetch
// that is no longer the latest when it starts or when it finishes returns
// ErrSuperseded and never overwrites the view.
package engine
