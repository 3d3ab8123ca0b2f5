package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	progressCollection = "users"
	speciesCollection  = "species"
)

// MongoProgressStore implements ProgressStore and CatalogStore against the
// game's document store.
type MongoProgressStore struct {
	db  *mongo.Database
	cfg MongoProgressStoreConfig
}

type MongoProgressStoreConfig struct{}

func NewMongoProgressStore(db *mongo.Database, cfg MongoProgressStoreConfig) *MongoProgressStore {
	return &MongoProgressStore{db: db, cfg: cfg}
}

// IncrementProgress merges delta into the user's progress record. The upsert
// creates the record when absent, so first-time winners need no setup.
func (s *MongoProgressStore) IncrementProgress(ctx context.Context, userID, key string, delta int) error {
	filter := bson.M{"user": userID}
	update := bson.M{"$inc": bson.M{"progress." + key: delta}}

	_, err := s.db.Collection(progressCollection).UpdateOne(
		ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to increment progress %s for user %s: %w", key, userID, err)
	}

	logrus.Debugf("merged progress %s+%d for user %s", key, delta, userID)
	return nil
}

// SpeciesInfo looks up catalog metadata for a species. Returns nil when the
// species is unknown rather than an error; callers treat missing catalog
// data as cosmetic.
func (s *MongoProgressStore) SpeciesInfo(ctx context.Context, name string) (*SpeciesInfo, error) {
	filter := bson.M{"identifier": strings.ToLower(name)}

	var info SpeciesInfo
	err := s.db.Collection(speciesCollection).FindOne(ctx, filter).Decode(&info)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up species %s: %w", name, err)
	}

	return &info, nil
}
