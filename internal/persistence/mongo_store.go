package persistence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/wizflow/pkg/api"
)

// MongoStore implements every store interface on MongoDB, using three
// collections (definitions, submissions, logs) plus a counters collection
// for log sequence numbers.
type MongoStore struct {
	definitions *mongo.Collection
	submissions *mongo.Collection
	logs        *mongo.Collection
	counters    *mongo.Collection
}

var (
	_ DefinitionStore = (*MongoStore)(nil)
	_ SubmissionStore = (*MongoStore)(nil)
	_ LogStore        = (*MongoStore)(nil)
)

// NewMongoStore creates a Mongo-backed store. dbName defaults to "wizflow".
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	if dbName == "" {
		dbName = "wizflow"
	}
	db := client.Database(dbName)
	return &MongoStore{
		definitions: db.Collection("definitions"),
		submissions: db.Collection("submissions"),
		logs:        db.Collection("logs"),
		counters:    db.Collection("counters"),
	}
}

// NewMongoPersistence bundles a single MongoStore.
func NewMongoPersistence(client *mongo.Client, dbName string) Persistence {
	s := NewMongoStore(client, dbName)
	return Persistence{Definitions: s, Submissions: s, Logs: s}
}

type mongoDefinitionDoc struct {
	ID         string `bson:"_id"`
	Name       string `bson:"name"`
	Definition []byte `bson:"definition"`
}

type mongoSubmissionDoc struct {
	ID        string `bson:"_id"`
	WizardID  string `bson:"wizard_id"`
	UserID    string `bson:"user_id"`
	Version   int64  `bson:"version"`
	Completed bool   `bson:"completed"`
	Record    []byte `bson:"record"`
}

type mongoLogDoc struct {
	Seq   int64  `bson:"_id"`
	Entry []byte `bson:"entry"`
}

func submissionDocID(wizardID, userID string) string {
	return wizardID + "\x1f" + userID
}

func (s *MongoStore) SaveDefinition(ctx context.Context, def api.WizardDefinition) error {
	data, err := EncodeValue(def)
	if err != nil {
		return err
	}
	doc := mongoDefinitionDoc{ID: def.ID, Name: def.Name, Definition: data}
	_, err = s.definitions.ReplaceOne(ctx, bson.M{"_id": def.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) GetDefinition(ctx context.Context, id string) (api.WizardDefinition, error) {
	var doc mongoDefinitionDoc
	if err := s.definitions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return api.WizardDefinition{}, api.ErrDefinitionNotFound
		}
		return api.WizardDefinition{}, err
	}
	return DecodeValue[api.WizardDefinition](doc.Definition)
}

func (s *MongoStore) DeleteDefinition(ctx context.Context, id string) error {
	_, err := s.definitions.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) ListDefinitions(ctx context.Context) ([]api.WizardDefinition, error) {
	cur, err := s.definitions.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	var result []api.WizardDefinition
	for cur.Next(ctx) {
		var doc mongoDefinitionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		def, err := DecodeValue[api.WizardDefinition](doc.Definition)
		if err != nil {
			return nil, err
		}
		result = append(result, def)
	}
	return result, cur.Err()
}

func (s *MongoStore) GetSubmission(ctx context.Context, wizardID, userID string) (*api.SubmissionRecord, error) {
	var doc mongoSubmissionDoc
	err := s.submissions.FindOne(ctx, bson.M{"_id": submissionDocID(wizardID, userID)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	rec, err := DecodeValue[api.SubmissionRecord](doc.Record)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MongoStore) SaveSubmission(ctx context.Context, rec *api.SubmissionRecord, expectedVersion int64) error {
	next := nextRecord(rec, expectedVersion)
	data, err := EncodeValue(next)
	if err != nil {
		return err
	}
	id := submissionDocID(rec.WizardID, rec.UserID)

	if expectedVersion == 0 {
		_, err = s.submissions.InsertOne(ctx, mongoSubmissionDoc{
			ID:        id,
			WizardID:  next.WizardID,
			UserID:    next.UserID,
			Version:   next.Version,
			Completed: next.Completed,
			Record:    data,
		})
		if mongo.IsDuplicateKeyError(err) {
			return api.ErrPersistenceConflict
		}
		if err != nil {
			return err
		}
	} else {
		res, err := s.submissions.UpdateOne(ctx,
			bson.M{"_id": id, "version": expectedVersion},
			bson.M{"$set": bson.M{
				"version":   next.Version,
				"completed": next.Completed,
				"record":    data,
			}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return api.ErrPersistenceConflict
		}
	}

	rec.Version = next.Version
	rec.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *MongoStore) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*api.SubmissionRecord, error) {
	query := bson.M{}
	if filter.WizardID != "" {
		query["wizard_id"] = filter.WizardID
	}
	opts := options.Find().SetSort(bson.D{{Key: "wizard_id", Value: 1}, {Key: "user_id", Value: 1}})

	cur, err := s.submissions.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	var result []*api.SubmissionRecord
	for cur.Next(ctx) {
		var doc mongoSubmissionDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		rec, err := DecodeValue[api.SubmissionRecord](doc.Record)
		if err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	return result, cur.Err()
}

func (s *MongoStore) AppendLog(ctx context.Context, entry *api.LogEntry) error {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "logs"},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return err
	}

	entry.Seq = counter.Seq
	data, err := EncodeValue(entry)
	if err != nil {
		return err
	}
	_, err = s.logs.InsertOne(ctx, mongoLogDoc{Seq: entry.Seq, Entry: data})
	return err
}

func (s *MongoStore) ListLogs(ctx context.Context, offset, limit int) ([]api.LogEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := s.logs.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	var result []api.LogEntry
	for cur.Next(ctx) {
		var doc mongoLogDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		e, err := DecodeValue[api.LogEntry](doc.Entry)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, cur.Err()
}
