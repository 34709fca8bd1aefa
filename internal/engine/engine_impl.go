package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/wizflow/internal/persistence"
	"github.com/petrijr/wizflow/pkg/api"
)

// engineImpl is a synchronous, in-process engine implementation.
type engineImpl struct {
	definitions persistence.DefinitionStore
	submissions persistence.SubmissionStore
	logs        persistence.LogStore

	platform api.Platform
	observer api.Observer

	// locks serializes updates per (wizard, user).
	locks *keyedMutex
}

// Config describes how to construct an engineImpl.
type Config struct {
	Persistence persistence.Persistence
	Platform    api.Platform
	Observer    api.Observer
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	return &engineImpl{
		definitions: cfg.Persistence.Definitions,
		submissions: cfg.Persistence.Submissions,
		logs:        cfg.Persistence.Logs,
		platform:    cfg.Platform,
		observer:    obs,
		locks:       newKeyedMutex(),
	}
}

// NewEngine returns an Engine over the given stores and platform.
func NewEngine(p persistence.Persistence, platform api.Platform) api.Engine {
	return NewEngineWithConfig(Config{Persistence: p, Platform: platform})
}

func NewInMemoryEngine(platform api.Platform) api.Engine {
	return NewEngine(persistence.NewInMemoryPersistence(), platform)
}

func NewSQLiteEngine(db *sql.DB, platform api.Platform) (api.Engine, error) {
	p, err := persistence.NewSQLitePersistence(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(p, platform), nil
}

func NewPostgresEngine(db *sql.DB, platform api.Platform) (api.Engine, error) {
	p, err := persistence.NewPostgresPersistence(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(p, platform), nil
}

func NewRedisEngine(client *redis.Client, platform api.Platform) api.Engine {
	return NewEngine(persistence.NewRedisPersistence(client, "wizflow:"), platform)
}

func NewMongoEngine(client *mongo.Client, dbName string, platform api.Platform) api.Engine {
	return NewEngine(persistence.NewMongoPersistence(client, dbName), platform)
}

func (e *engineImpl) FieldTypes() []api.FieldType {
	return api.FieldTypes()
}

func (e *engineImpl) SaveDefinition(ctx context.Context, def api.WizardDefinition) error {
	if err := validateDefinition(def); err != nil {
		return fmt.Errorf("%w: %v", api.ErrInvalidDefinition, err)
	}

	previous := def.ExistingID
	def.ExistingID = ""
	if err := e.definitions.SaveDefinition(ctx, def); err != nil {
		return err
	}

	// Saving under a new id replaces the old definition rather than
	// keeping both.
	if previous != "" && previous != def.ID {
		return e.definitions.DeleteDefinition(ctx, previous)
	}
	return nil
}

func (e *engineImpl) RemoveDefinition(ctx context.Context, id string) error {
	return e.definitions.DeleteDefinition(ctx, id)
}

func (e *engineImpl) GetDefinition(ctx context.Context, id string) (api.WizardDefinition, error) {
	def, err := e.definitions.GetDefinition(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrDefinitionNotFound) {
			return api.WizardDefinition{}, fmt.Errorf("%w: %s", api.ErrDefinitionNotFound, id)
		}
		return api.WizardDefinition{}, err
	}
	return def, nil
}

func (e *engineImpl) ListDefinitions(ctx context.Context) ([]api.WizardDefinition, error) {
	return e.definitions.ListDefinitions(ctx)
}

// wizardName returns the display name of a wizard, or its id once the
// definition is gone.
func (e *engineImpl) wizardName(ctx context.Context, id string) (string, error) {
	def, err := e.definitions.GetDefinition(ctx, id)
	if errors.Is(err, api.ErrDefinitionNotFound) {
		return id, nil
	}
	if err != nil {
		return "", err
	}
	return def.DisplayName(), nil
}

func (e *engineImpl) GetSubmissions(ctx context.Context, wizardID string) ([]api.SubmissionView, error) {
	name, err := e.wizardName(ctx, wizardID)
	if err != nil {
		return nil, err
	}
	recs, err := e.submissions.ListSubmissions(ctx, persistence.SubmissionFilter{WizardID: wizardID})
	if err != nil {
		return nil, err
	}

	views := make([]api.SubmissionView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, api.SubmissionView{WizardID: wizardID, WizardName: name, Record: rec})
	}
	return views, nil
}

func (e *engineImpl) ListAllSubmissions(ctx context.Context) ([]api.SubmissionGroup, error) {
	recs, err := e.submissions.ListSubmissions(ctx, persistence.SubmissionFilter{})
	if err != nil {
		return nil, err
	}

	var groups []api.SubmissionGroup
	for _, rec := range recs {
		if n := len(groups); n > 0 && groups[n-1].WizardID == rec.WizardID {
			groups[n-1].Submissions = append(groups[n-1].Submissions, rec)
			continue
		}
		name, err := e.wizardName(ctx, rec.WizardID)
		if err != nil {
			return nil, err
		}
		groups = append(groups, api.SubmissionGroup{
			WizardID:    rec.WizardID,
			WizardName:  name,
			Submissions: []*api.SubmissionRecord{rec},
		})
	}
	return groups, nil
}

func (e *engineImpl) GetLog(ctx context.Context, offset int) ([]api.LogEntry, error) {
	if offset < 0 {
		offset = 0
	}
	return e.logs.ListLogs(ctx, offset, api.LogPageSize)
}

// userKey is the submission key of an actor. Anonymous actors are keyed by
// their (session) username when the renderer supplies one; otherwise their
// runs are not persisted.
func userKey(actor api.Actor) string {
	if !actor.Anonymous() {
		return actor.ID
	}
	if actor.Username != "" {
		return "anonymous:" + actor.Username
	}
	return ""
}

// loadRecord returns the stored record, or a fresh one when none exists.
func (e *engineImpl) loadRecord(ctx context.Context, wizardID, key string) (*api.SubmissionRecord, error) {
	if key == "" {
		return api.NewSubmissionRecord(wizardID, key), nil
	}
	rec, err := e.submissions.GetSubmission(ctx, wizardID, key)
	if errors.Is(err, persistence.ErrSubmissionNotFound) {
		return api.NewSubmissionRecord(wizardID, key), nil
	}
	if err != nil {
		return nil, err
	}
	if rec.Values == nil {
		rec.Values = make(map[string]any)
	}
	return rec, nil
}

func (e *engineImpl) reporter(ctx context.Context, wizardID string) func(*api.ConditionError) {
	return func(ce *api.ConditionError) {
		e.observer.OnConditionFailure(ctx, wizardID, ce)
	}
}
