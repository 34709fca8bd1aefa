package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/petrijr/wizflow/internal/testutil"
	"github.com/petrijr/wizflow/pkg/api"
)

const redisTestPrefix = "wizflow:test:"

type RedisStoreTestSuite struct {
	suite.Suite
	client *redis.Client
	runs   int
}

func TestRedisTestSuite(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testutil.GetRedisAddress(t)})
	t.Cleanup(func() {
		_ = client.Close()
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping failed: %v", err)
	}

	suite.Run(t, &RedisStoreTestSuite{client: client})
}

func (r *RedisStoreTestSuite) SetupTest() {
	ctx := context.Background()

	// Clean up all keys with the test prefix.
	iter := r.client.Scan(ctx, 0, redisTestPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		r.Require().NoError(r.client.Del(ctx, iter.Val()).Err())
	}
	r.Require().NoError(iter.Err(), "redis SCAN failed")
}

// fresh hands every subtest its own key prefix.
func (r *RedisStoreTestSuite) fresh(_ *testing.T) Persistence {
	r.runs++
	return NewRedisPersistence(r.client, fmt.Sprintf("%s%d:", redisTestPrefix, r.runs))
}

func (r *RedisStoreTestSuite) TestContract() {
	runStoreContract(r.T(), r.fresh)
}

func (r *RedisStoreTestSuite) TestSaveSubmission_WatchDetectsConcurrentWrite() {
	ctx := context.Background()
	store := NewRedisStore(r.client, redisTestPrefix)

	rec := api.NewSubmissionRecord("w1", "u1")
	r.Require().NoError(store.SaveSubmission(ctx, rec, 0))

	// Another writer bumps the record behind our back.
	other, err := store.GetSubmission(ctx, "w1", "u1")
	r.Require().NoError(err)
	r.Require().NoError(store.SaveSubmission(ctx, other, 1))

	err = store.SaveSubmission(ctx, rec, 1)
	r.ErrorIs(err, api.ErrPersistenceConflict)
}
