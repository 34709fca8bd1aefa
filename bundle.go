package wizflow

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/wizflow/internal/taskqueue"
	workerpkg "github.com/petrijr/wizflow/pkg/worker"
)

// WorkerBundle pairs an Engine on a durable store with a Worker that applies
// deferred submissions for it.
//
// Definitions, submissions and the log live in the store. Queued
// submissions are held in process and are lost if it exits before a worker
// applies them.
type WorkerBundle struct {
	Engine Engine
	Worker *workerpkg.Worker

	queue taskqueue.Queue
}

// NewBundle wraps an existing engine.
func NewBundle(eng Engine, cfg workerpkg.Config) *WorkerBundle {
	q := taskqueue.NewInMemoryQueue(1024)
	return &WorkerBundle{
		Engine: eng,
		Worker: workerpkg.NewWithConfig(eng, q, cfg),
		queue:  q,
	}
}

// NewSQLiteBundle keeps definitions, submissions and the log in db.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:wizflow.db?_pragma=journal_mode(WAL)")
//	bundle, err := wizflow.NewSQLiteBundle(db, platform, worker.Config{MaxAttempts: 3})
//	// save definitions on bundle.Engine
//	// enqueue submissions via bundle.Worker, run bundle.Worker.Run(ctx)
func NewSQLiteBundle(db *sql.DB, p Platform, cfg workerpkg.Config) (*WorkerBundle, error) {
	eng, err := NewSQLiteEngine(db, p)
	if err != nil {
		return nil, err
	}
	return NewBundle(eng, cfg), nil
}

// NewPostgresBundle is NewSQLiteBundle for PostgreSQL. db must use a
// PostgreSQL driver such as "github.com/jackc/pgx/v5/stdlib".
func NewPostgresBundle(db *sql.DB, p Platform, cfg workerpkg.Config) (*WorkerBundle, error) {
	eng, err := NewPostgresEngine(db, p)
	if err != nil {
		return nil, err
	}
	return NewBundle(eng, cfg), nil
}

// NewRedisBundle keeps the stores under the "wizflow:" key prefix of client.
func NewRedisBundle(client *redis.Client, p Platform, cfg workerpkg.Config) *WorkerBundle {
	return NewBundle(NewRedisEngine(client, p), cfg)
}

// NewMongoBundle keeps the stores in dbName (default "wizflow").
func NewMongoBundle(client *mongo.Client, dbName string, p Platform, cfg workerpkg.Config) *WorkerBundle {
	return NewBundle(NewMongoEngine(client, dbName, p), cfg)
}

// Pending returns the number of queued submissions.
func (b *WorkerBundle) Pending() int {
	return b.queue.Len()
}
