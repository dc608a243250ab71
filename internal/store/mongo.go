package store

import (
	"context"
	"fmt"
	"time"

	config "example.com/tweetfeed/internal/init"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection  = "users"
	tweetsCollection = "tweets"
)

// MongoStore keeps users and tweets as documents with embedded id arrays.
type MongoStore struct {
	client  *mongo.Client
	users   *mongo.Collection
	tweets  *mongo.Collection
	timeout time.Duration
}

// NewMongo connects to MongoDB, pings the primary and ensures indexes.
func NewMongo(ctx context.Context, cfg *config.Config) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.MongoURL).
		SetConnectTimeout(cfg.MongoTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	s := &MongoStore{
		client:  client,
		users:   db.Collection(usersCollection),
		tweets:  db.Collection(tweetsCollection),
		timeout: cfg.MongoTimeout,
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	logg.Info("store", "Connected to MongoDB database (host anonymized)")
	return s, nil
}

// ensureIndexes makes email and username unique at the storage level and
// indexes the fields used by author listing and reply cleanup.
func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName(usernameIndex)},
	})
	if err != nil {
		return err
	}

	_, err = s.tweets.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "tweetedBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "replies", Value: 1}}},
	})
	return err
}

// Close disconnects the client.
func (s *MongoStore) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		logg.Error("store", "Error disconnecting MongoDB client", err)
		return
	}
	logg.Info("store", "MongoDB client disconnected")
}
