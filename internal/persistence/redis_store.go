package persistence

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/wizflow/pkg/api"
)

// RedisStore implements every store interface on Redis.
// It uses a simple key structure:
//
//	<prefix>def:<id>                 => JSON definition
//	<prefix>idx:defs                 => SET of definition ids
//	<prefix>sub:<wizard>:<user>      => JSON submission record
//	<prefix>idx:subs                 => SET of wizard ids with submissions
//	<prefix>idx:subs:<wizard>        => SET of user ids for a given wizard
//	<prefix>log:entries              => ZSET of JSON log entries scored by seq
//	<prefix>logs:seq                 => log sequence counter
//
// Submission saves are optimistic: the record key is WATCHed and the write
// happens in MULTI only if the stored version matches.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var (
	_ DefinitionStore = (*RedisStore)(nil)
	_ SubmissionStore = (*RedisStore)(nil)
	_ LogStore        = (*RedisStore)(nil)
)

// NewRedisStore creates a RedisStore.
// prefix is optional but recommended (e.g. "wizflow:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "wizflow:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// NewRedisPersistence bundles a single RedisStore.
func NewRedisPersistence(client *redis.Client, prefix string) Persistence {
	s := NewRedisStore(client, prefix)
	return Persistence{Definitions: s, Submissions: s, Logs: s}
}

func (s *RedisStore) keyDefinition(id string) string {
	return s.prefix + "def:" + id
}

func (s *RedisStore) keyDefinitions() string {
	return s.prefix + "idx:defs"
}

func (s *RedisStore) keySubmission(wizardID, userID string) string {
	return s.prefix + "sub:" + wizardID + ":" + userID
}

func (s *RedisStore) keySubmissionWizards() string {
	return s.prefix + "idx:subs"
}

func (s *RedisStore) keySubmissionUsers(wizardID string) string {
	return s.prefix + "idx:subs:" + wizardID
}

func (s *RedisStore) keyLogs() string {
	return s.prefix + "log:entries"
}

func (s *RedisStore) keyLogSeq() string {
	return s.prefix + "logs:seq"
}

func (s *RedisStore) SaveDefinition(ctx context.Context, def api.WizardDefinition) error {
	data, err := EncodeValue(def)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.keyDefinition(def.ID), data, 0)
		p.SAdd(ctx, s.keyDefinitions(), def.ID)
		return nil
	})
	return err
}

func (s *RedisStore) GetDefinition(ctx context.Context, id string) (api.WizardDefinition, error) {
	data, err := s.client.Get(ctx, s.keyDefinition(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return api.WizardDefinition{}, api.ErrDefinitionNotFound
		}
		return api.WizardDefinition{}, err
	}
	return DecodeValue[api.WizardDefinition](data)
}

func (s *RedisStore) DeleteDefinition(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, s.keyDefinition(id))
		p.SRem(ctx, s.keyDefinitions(), id)
		return nil
	})
	return err
}

func (s *RedisStore) ListDefinitions(ctx context.Context) ([]api.WizardDefinition, error) {
	ids, err := s.client.SMembers(ctx, s.keyDefinitions()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	result := make([]api.WizardDefinition, 0, len(ids))
	for _, id := range ids {
		def, err := s.GetDefinition(ctx, id)
		if errors.Is(err, api.ErrDefinitionNotFound) {
			// Index entry without a value; deleted concurrently.
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, def)
	}
	return result, nil
}

func (s *RedisStore) GetSubmission(ctx context.Context, wizardID, userID string) (*api.SubmissionRecord, error) {
	data, err := s.client.Get(ctx, s.keySubmission(wizardID, userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	rec, err := DecodeValue[api.SubmissionRecord](data)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *RedisStore) SaveSubmission(ctx context.Context, rec *api.SubmissionRecord, expectedVersion int64) error {
	next := nextRecord(rec, expectedVersion)
	data, err := EncodeValue(next)
	if err != nil {
		return err
	}
	key := s.keySubmission(rec.WizardID, rec.UserID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		var stored int64
		current, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			cur, err := DecodeValue[api.SubmissionRecord](current)
			if err != nil {
				return err
			}
			stored = cur.Version
		}
		if stored != expectedVersion {
			return api.ErrPersistenceConflict
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			p.SAdd(ctx, s.keySubmissionWizards(), rec.WizardID)
			p.SAdd(ctx, s.keySubmissionUsers(rec.WizardID), rec.UserID)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return api.ErrPersistenceConflict
	}
	if err != nil {
		return err
	}

	rec.Version = next.Version
	rec.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *RedisStore) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*api.SubmissionRecord, error) {
	wizardIDs := []string{filter.WizardID}
	if filter.WizardID == "" {
		var err error
		wizardIDs, err = s.client.SMembers(ctx, s.keySubmissionWizards()).Result()
		if err != nil {
			return nil, err
		}
	}

	var result []*api.SubmissionRecord
	for _, wizardID := range wizardIDs {
		userIDs, err := s.client.SMembers(ctx, s.keySubmissionUsers(wizardID)).Result()
		if err != nil {
			return nil, err
		}
		for _, userID := range userIDs {
			rec, err := s.GetSubmission(ctx, wizardID, userID)
			if errors.Is(err, ErrSubmissionNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			result = append(result, rec)
		}
	}
	sortRecords(result)
	return result, nil
}

func (s *RedisStore) AppendLog(ctx context.Context, entry *api.LogEntry) error {
	seq, err := s.client.Incr(ctx, s.keyLogSeq()).Result()
	if err != nil {
		return err
	}
	entry.Seq = seq
	data, err := EncodeValue(entry)
	if err != nil {
		return err
	}
	// Scored by seq, so concurrent appenders cannot interleave the order.
	return s.client.ZAdd(ctx, s.keyLogs(), redis.Z{Score: float64(seq), Member: data}).Err()
}

func (s *RedisStore) ListLogs(ctx context.Context, offset, limit int) ([]api.LogEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	items, err := s.client.ZRevRange(ctx, s.keyLogs(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}
	result := make([]api.LogEntry, 0, len(items))
	for _, item := range items {
		e, err := DecodeValue[api.LogEntry]([]byte(item))
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}
