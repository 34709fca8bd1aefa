package wizflow

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/wizflow/internal/platform"
	"github.com/petrijr/wizflow/internal/testutil"
	"github.com/petrijr/wizflow/pkg/worker"
)

// exerciseBundle queues one submission and checks the worker applies it.
func exerciseBundle(t *testing.T, bundle *WorkerBundle, p *platform.Memory) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	New("queued").
		Step("step_1", "").
		Field("title", FieldText, Required()).
		Action("1", ActionCreateTopic, map[string]any{"title": "w{title}", "body": "from the queue"}).
		MustSave(ctx, bundle.Engine)

	_, err := bundle.Worker.EnqueueSubmission(ctx, "queued", angus, "step_1", map[string]any{"title": "Queued"})
	require.NoError(t, err)
	assert.Equal(t, 1, bundle.Pending())

	processed, err := bundle.Worker.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Zero(t, bundle.Pending())

	require.Len(t, p.Posts(), 1)
	assert.Equal(t, "Queued", p.Posts()[0].Title)
}

func TestPostgresBundle(t *testing.T) {
	db, err := sql.Open("pgx", testutil.GetPostgresDSN(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, table := range []string{"wizard_definitions", "wizard_submissions", "wizard_logs"} {
		_, err := db.Exec(`DROP TABLE IF EXISTS ` + table)
		require.NoError(t, err)
	}

	p := NewMemoryPlatform(angus)
	bundle, err := NewPostgresBundle(db, p, worker.Config{})
	require.NoError(t, err)
	exerciseBundle(t, bundle, p)
}

func TestRedisBundle(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testutil.GetRedisAddress(t)})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.FlushDB(context.Background()).Err())

	p := NewMemoryPlatform(angus)
	exerciseBundle(t, NewRedisBundle(client, p, worker.Config{}), p)
}

func TestMongoBundle(t *testing.T) {
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(testutil.GetMongoURI(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, client.Database("wizflow_bundle_test").Drop(ctx))

	p := NewMemoryPlatform(angus)
	exerciseBundle(t, NewMongoBundle(client, "wizflow_bundle_test", p, worker.Config{}), p)
}
