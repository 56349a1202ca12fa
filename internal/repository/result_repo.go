package repository

import (
	"context"
	"log"

	"examsim/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ResultRepo archives finalized simulation sessions in MongoDB
type ResultRepo interface {
	Save(ctx context.Context, result *model.SessionResult) error
	GetBySession(ctx context.Context, sessionID int) (*model.SessionResult, error)
	ListByStudent(ctx context.Context, studentID string, limit int64) ([]*model.SessionResult, error)
}

type resultRepo struct {
	results *mongo.Collection
}

// NewResultRepo creates a new result repository
func NewResultRepo(db *mongo.Database) ResultRepo {
	repo := &resultRepo{
		results: db.Collection("simulation_results"),
	}
	repo.ensureIndexes(context.Background())
	return repo
}

func (r *resultRepo) ensureIndexes(ctx context.Context) {
	r.createIndex(ctx, bson.D{{Key: "sessionId", Value: 1}}, true)
	r.createIndex(ctx, bson.D{
		{Key: "studentId", Value: 1},
		{Key: "finalizedAt", Value: -1},
	}, false)
}

func (r *resultRepo) createIndex(ctx context.Context, keys bson.D, unique bool) {
	opts := options.Index().SetUnique(unique)
	_, err := r.results.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
	if err != nil {
		log.Printf("[Result Repo] WARN: failed to create index on %s: %v", r.results.Name(), err)
	}
}

// Save upserts by session id; a session finalized twice keeps one record
func (r *resultRepo) Save(ctx context.Context, result *model.SessionResult) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.results.ReplaceOne(ctx, bson.M{"sessionId": result.SessionID}, result, opts)
	return err
}

func (r *resultRepo) GetBySession(ctx context.Context, sessionID int) (*model.SessionResult, error) {
	var result model.SessionResult
	err := r.results.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepo) ListByStudent(ctx context.Context, studentID string, limit int64) ([]*model.SessionResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "finalizedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.results.Find(ctx, bson.M{"studentId": studentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []*model.SessionResult
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}
