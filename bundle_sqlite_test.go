package wizflow

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/petrijr/wizflow/pkg/worker"
)

func TestSQLiteBundle_AppliedSubmissionSurvivesReopen(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path := "file:" + t.TempDir() + "/wizflow.db"
	open := func() *sql.DB {
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		db.SetMaxOpenConns(1)
		return db
	}
	p := NewMemoryPlatform(angus)

	db := open()
	bundle, err := NewSQLiteBundle(db, p, worker.Config{MaxAttempts: 2, Backoff: time.Millisecond})
	require.NoError(t, err)

	New("durable").
		Step("step_1", "").
		Field("title", FieldText, Required()).
		Action("1", ActionCreateTopic, map[string]any{"title": "w{title}", "body": "queued"}).
		MustSave(ctx, bundle.Engine)

	_, err = bundle.Worker.EnqueueSubmission(ctx, "durable", angus, "step_1", map[string]any{"title": "Later"})
	require.NoError(t, err)
	assert.Equal(t, 1, bundle.Pending())

	processed, err := bundle.Worker.ProcessOne(ctx)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Zero(t, bundle.Pending())
	require.NoError(t, db.Close())

	db = open()
	t.Cleanup(func() { _ = db.Close() })
	bundle, err = NewSQLiteBundle(db, p, worker.Config{})
	require.NoError(t, err)
	assert.Zero(t, bundle.Pending())

	require.Len(t, p.Posts(), 1)
	assert.Equal(t, "Later", p.Posts()[0].Title)

	views, err := bundle.Engine.GetSubmissions(ctx, "durable")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].Record.Completed)
	assert.Equal(t, "Later", views[0].Record.Values["title"])

	inst, err := bundle.Engine.Build(ctx, "durable", angus)
	require.NoError(t, err)
	assert.Equal(t, AccessCompleted, inst.Access)
}
