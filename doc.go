// Package wizflow is an embeddable engine for multi-step wizards: forms split
// into steps whose visibility depends on earlier answers, and whose
// submission triggers side effects on a community platform.
//
// # Core Concepts
//
//  1. Engine
//  2. WizardBuilder
//  3. Platform
//  4. Worker and LocalRunner
//
// # Engine
//
// The Engine stores wizard definitions, per-user submissions and an
// append-only log, and exposes two operations to renderers:
//
//   - Build resolves a definition for an actor: which steps and fields are
//     active, which step comes next, and whether the actor may run it.
//     Build never writes.
//   - CreateUpdater(...).Update validates a step's values, merges them into
//     the actor's submission, runs the step's actions and decides where the
//     actor goes next.
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//   - Redis
//   - MongoDB
//
// # Templates and conditions
//
// Action parameters and condition subjects are templates. w{token} reads a
// submitted value (a field id, or action_<id> for an action's output, with
// dotted paths into objects such as w{action_1.url}); u{attr} reads an actor
// attribute. Unresolved tokens render as the empty string.
//
// Conditions compare a template with a value (eq, neq, in, not_in, contains,
// present, blank), combine other conditions (all, any, not), or evaluate an
// expr-lang expression. A condition that references a value not submitted
// yet is false; a malformed one is false and reported to the Observer.
//
// # Actions
//
// Actions are a closed set: create_topic, send_message, update_profile,
// create_category, create_group, add_to_group, watch_category and route_to.
// A failing action never aborts the step; its *ActionError is returned on
// the UpdateResult and written to the log.
//
// # Platform
//
// Actions reach the host community through the Platform interface.
// NewMemoryPlatform provides an in-memory implementation for tests and demos.
//
// # Concurrency
//
// Updates of the same (wizard, user) pair are serialized inside an engine and
// guarded across processes by versioned saves. A lost race surfaces as
// ErrPersistenceConflict; UpdateWithRetry rebuilds and retries it.
//
// # Deferred submissions
//
// A Worker applies step submissions queued in process, retrying conflicts
// with backoff. Queued submissions do not survive a restart. LocalRunner
// wires an in-memory engine, queue and workers together; NewBundle pairs
// any engine with a queue and worker, and NewSQLiteBundle,
// NewPostgresBundle, NewRedisBundle and NewMongoBundle do so for an engine
// on that store.
//
// # Observability
//
// The Observer interface receives build, step, action, completion and
// condition-failure events. LoggingObserver writes them through log/slog,
// BasicMetrics counts them and CompositeObserver fans out to several.
package wizflow
