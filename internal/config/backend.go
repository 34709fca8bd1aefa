package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"

	"github.com/petrijr/wizflow/internal/engine"
	"github.com/petrijr/wizflow/internal/persistence"
	"github.com/petrijr/wizflow/internal/taskqueue"
	"github.com/petrijr/wizflow/pkg/api"
	"github.com/petrijr/wizflow/pkg/worker"
)

// Backend is an engine on the configured store with an in-process task queue
// and the worker draining it.
type Backend struct {
	Engine api.Engine
	Queue  taskqueue.Queue
	Worker *worker.Worker

	closers []func() error
}

// Close releases the store connections.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// Open connects to the configured store.
func (c *Config) Open(ctx context.Context, platform api.Platform, obs api.Observer, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}
	var p persistence.Persistence

	switch c.Store.Driver {
	case DriverMemory, "":
		p = persistence.NewInMemoryPersistence()

	case DriverSQLite:
		db, err := sql.Open("sqlite", c.Store.DSN)
		if err != nil {
			return nil, err
		}
		// One writer at a time; concurrent writers only get SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		b.closers = append(b.closers, db.Close)
		if p, err = persistence.NewSQLitePersistence(db); err != nil {
			return nil, b.fail(err)
		}

	case DriverPostgres:
		db, err := sql.Open("pgx", c.Store.DSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return nil, b.fail(fmt.Errorf("postgres ping: %w", err))
		}
		if p, err = persistence.NewPostgresPersistence(db); err != nil {
			return nil, b.fail(err)
		}

	case DriverRedis:
		opts, err := redis.ParseURL(c.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(opts)
		b.closers = append(b.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, b.fail(fmt.Errorf("redis ping: %w", err))
		}
		p = persistence.NewRedisPersistence(client, "wizflow:")

	case DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.Store.DSN))
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() error { return client.Disconnect(context.Background()) })
		if err := client.Ping(ctx, nil); err != nil {
			return nil, b.fail(fmt.Errorf("mongo ping: %w", err))
		}
		p = persistence.NewMongoPersistence(client, c.Store.Database)

	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	b.Queue = taskqueue.NewInMemoryQueue(1024)
	b.Engine = engine.NewEngineWithConfig(engine.Config{
		Persistence: p,
		Platform:    platform,
		Observer:    obs,
	})
	b.Worker = worker.NewWithConfig(b.Engine, b.Queue, worker.Config{
		MaxAttempts: c.Worker.MaxAttempts,
		Backoff:     c.Worker.Backoff,
		Logger:      logger,
	})
	return b, nil
}

func (b *Backend) fail(err error) error {
	if cerr := b.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}
