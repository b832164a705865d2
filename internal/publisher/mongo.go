package publisher

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ntphong404/rasa-control/internal/config"
)

// modelRecordStore wraps the MongoDB client with the single update the
// control plane performs: set the URL on an existing model record by name.
type modelRecordStore struct {
	client     *mongo.Client
	database   string
	collection string
}

func newModelRecordStore(cfg config.MongoConfig) (*modelRecordStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	return &modelRecordStore{
		client:     client,
		database:   cfg.Database,
		collection: cfg.Collection,
	}, nil
}

func (m *modelRecordStore) ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *modelRecordStore) setURL(ctx context.Context, modelName, modelURL string) MetadataUpdateResult {
	coll := m.client.Database(m.database).Collection(m.collection)
	res, err := coll.UpdateOne(ctx,
		bson.M{"name": modelName},
		bson.M{"$set": bson.M{
			"url":       modelURL,
			"updatedAt": time.Now().UTC(),
		}},
		options.Update().SetUpsert(false),
	)
	if err != nil {
		return MetadataUpdateResult{Success: false, ModelName: modelName, Error: err.Error()}
	}
	if res.MatchedCount == 0 {
		return MetadataUpdateResult{
			Success:   false,
			ModelName: modelName,
			Error:     "no document found with name '" + modelName + "'",
		}
	}
	return MetadataUpdateResult{
		Success:       true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		ModelName:     modelName,
		ModelURL:      modelURL,
	}
}

func (m *modelRecordStore) close(ctx context.Context) {
	_ = m.client.Disconnect(ctx)
}
