package wizflow

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/wizflow/internal/engine"
	"github.com/petrijr/wizflow/internal/persistence"
	"github.com/petrijr/wizflow/internal/platform"
	"github.com/petrijr/wizflow/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	Updater              = api.Updater
	Platform             = api.Platform
	WizardDefinition     = api.WizardDefinition
	StepDefinition       = api.StepDefinition
	FieldDefinition      = api.FieldDefinition
	ActionDefinition     = api.ActionDefinition
	Condition            = api.Condition
	FieldType            = api.FieldType
	ActionKind           = api.ActionKind
	Operator             = api.Operator
	Actor                = api.Actor
	Access               = api.Access
	WizardInstance       = api.WizardInstance
	SubmissionRecord     = api.SubmissionRecord
	SubmissionView       = api.SubmissionView
	SubmissionGroup      = api.SubmissionGroup
	UpdateResult         = api.UpdateResult
	Navigation           = api.Navigation
	LogEntry             = api.LogEntry
	ValidationError      = api.ValidationError
	FieldError           = api.FieldError
	ActionError          = api.ActionError
	ConditionError       = api.ConditionError
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	IsValidationError    = api.IsValidationError
)

// Re-export sentinel errors.

var (
	ErrDefinitionNotFound  = api.ErrDefinitionNotFound
	ErrInvalidDefinition   = api.ErrInvalidDefinition
	ErrUnknownStep         = api.ErrUnknownStep
	ErrPersistenceConflict = api.ErrPersistenceConflict
	ErrRequiresLogin       = api.ErrRequiresLogin
	ErrNotPermitted        = api.ErrNotPermitted
	ErrAlreadyCompleted    = api.ErrAlreadyCompleted
)

// Re-export access states.

const (
	AccessGranted       = api.AccessGranted
	AccessRequiresLogin = api.AccessRequiresLogin
	AccessNotPermitted  = api.AccessNotPermitted
	AccessCompleted     = api.AccessCompleted
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewMemoryPlatform returns an in-memory Platform seeded with users. It is
// meant for tests, demos and local development.
func NewMemoryPlatform(users ...Actor) *platform.Memory {
	return platform.NewMemory(users...)
}

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine(p Platform) Engine {
	return engine.NewInMemoryEngine(p)
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(p Platform, obs Observer) Engine {
	return engine.NewEngineWithConfig(engine.Config{
		Persistence: persistence.NewInMemoryPersistence(),
		Platform:    p,
		Observer:    obs,
	})
}

// NewSQLiteEngine returns an Engine that keeps definitions, submissions and
// the log in a SQLite database.
func NewSQLiteEngine(db *sql.DB, p Platform) (Engine, error) {
	return engine.NewSQLiteEngine(db, p)
}

// NewPostgresEngine returns an Engine that persists to PostgreSQL.
func NewPostgresEngine(db *sql.DB, p Platform) (Engine, error) {
	return engine.NewPostgresEngine(db, p)
}

// NewRedisEngine returns an Engine that persists to Redis.
func NewRedisEngine(client *redis.Client, p Platform) Engine {
	return engine.NewRedisEngine(client, p)
}

// NewMongoEngine returns an Engine that persists to MongoDB. dbName
// defaults to "wizflow".
func NewMongoEngine(client *mongo.Client, dbName string, p Platform) Engine {
	return engine.NewMongoEngine(client, dbName, p)
}

// Convenience helpers that just forward to the underlying Engine.

// Build resolves a wizard for an actor.
func Build(ctx context.Context, eng Engine, wizardID string, actor Actor) (*WizardInstance, error) {
	return eng.Build(ctx, wizardID, actor)
}

// Submit builds the wizard for actor and submits values for stepID.
func Submit(ctx context.Context, eng Engine, wizardID string, actor Actor, stepID string, values map[string]any) (*UpdateResult, error) {
	inst, err := eng.Build(ctx, wizardID, actor)
	if err != nil {
		return nil, err
	}
	return eng.CreateUpdater(inst, stepID, values).Update(ctx)
}
