// Package worker runs deferred step submissions.
//
// A renderer that cannot wait for an update's platform side effects enqueues
// the submission on a taskqueue.Queue instead of calling the Updater inline.
// A Worker dequeues it, builds a fresh instance for the task's actor and runs
// the update.
//
// # Retries
//
// Failures are split in two:
//
//   - Permanent: validation errors, access errors (requires login, not
//     permitted, already completed), unknown or inactive steps, missing
//     definitions, and updates that already applied part of their effects.
//     These are returned by ProcessOne at once.
//   - Retryable: persistence conflicts and store errors. The task is put back
//     with Attempts+1 and NotBefore pushed out by Backoff*attempt, until
//     Config.MaxAttempts is reached.
//
// Several workers in one process may share a queue; the engine serializes
// updates of the same (wizard, user) pair.
package worker
