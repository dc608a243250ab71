package store

import (
	"context"
	"errors"
	"time"

	"example.com/tweetfeed/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

func (s *MongoStore) CreateTweet(ctx context.Context, t *models.Tweet) error {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID().Hex()
	t.CreatedAt, t.UpdatedAt = now, now
	// arrays must exist for $addToSet and $push to apply
	t.Normalize()

	if _, err := s.tweets.InsertOne(ctx, t); err != nil {
		t.ID = ""
		logg.Error("store", "Failed to insert tweet", err)
		return err
	}

	logg.Info("store", "Tweet added to tweets collection (content anonymized)")
	return nil
}

func (s *MongoStore) GetTweet(ctx context.Context, id string) (*models.Tweet, error) {
	var t models.Tweet
	if err := s.tweets.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		logg.Error("store", "Failed to query tweet", err)
		return nil, err
	}
	t.Normalize()
	return &t, nil
}

func (s *MongoStore) findTweets(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Tweet, error) {
	cur, err := s.tweets.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	tweets := []models.Tweet{}
	if err := cur.All(ctx, &tweets); err != nil {
		return nil, err
	}
	for i := range tweets {
		tweets[i].Normalize()
	}
	return tweets, nil
}

func (s *MongoStore) GetTweets(ctx context.Context, ids []string) ([]models.Tweet, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return []models.Tweet{}, nil
	}
	tweets, err := s.findTweets(ctx, bson.M{"_id": bson.M{"$in": unique}})
	if err != nil {
		logg.Error("store", "Failed to get tweets", err)
		return nil, err
	}
	return orderByIDs(ids, tweets), nil
}

func (s *MongoStore) ListTweets(ctx context.Context) ([]models.Tweet, error) {
	tweets, err := s.findTweets(ctx, bson.M{}, newestFirst)
	if err != nil {
		logg.Error("store", "Failed to list tweets", err)
		return nil, err
	}
	return tweets, nil
}

func (s *MongoStore) ListTweetsByAuthor(ctx context.Context, userID string) ([]models.Tweet, error) {
	tweets, err := s.findTweets(ctx, bson.M{"tweetedBy": userID}, newestFirst)
	if err != nil {
		logg.Error("store", "Failed to list tweets by author", err)
		return nil, err
	}
	return tweets, nil
}

func (s *MongoStore) updateTweet(ctx context.Context, filter, update bson.M) (*mongo.UpdateResult, error) {
	update["$set"] = bson.M{"updatedAt": time.Now().UTC()}
	res, err := s.tweets.UpdateOne(ctx, filter, update)
	if err != nil {
		logg.Error("store", "Failed to update tweet", err)
		return nil, err
	}
	return res, nil
}

// notFoundUnlessExists distinguishes a missing tweet from a filter that did
// not match because of its relationship condition.
func (s *MongoStore) notFoundUnlessExists(ctx context.Context, id string) error {
	n, err := s.tweets.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		logg.Error("store", "Failed to count tweet", err)
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) AddLike(ctx context.Context, tweetID, userID string) error {
	res, err := s.updateTweet(ctx, bson.M{"_id": tweetID}, bson.M{"$addToSet": bson.M{"likes": userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) RemoveLike(ctx context.Context, tweetID, userID string) (bool, error) {
	res, err := s.updateTweet(ctx,
		bson.M{"_id": tweetID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, s.notFoundUnlessExists(ctx, tweetID)
	}
	return true, nil
}

// AddRetweet checks and appends in one filtered update.
func (s *MongoStore) AddRetweet(ctx context.Context, tweetID, userID string) (bool, error) {
	res, err := s.updateTweet(ctx,
		bson.M{"_id": tweetID, "reTweetedBy": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"reTweetedBy": userID}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount == 0 {
		return false, s.notFoundUnlessExists(ctx, tweetID)
	}
	return true, nil
}

func (s *MongoStore) AppendReply(ctx context.Context, parentID, replyID string) error {
	res, err := s.updateTweet(ctx, bson.M{"_id": parentID}, bson.M{"$push": bson.M{"replies": replyID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteTweet(ctx context.Context, id string) error {
	res, err := s.tweets.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logg.Error("store", "Failed to delete tweet", err)
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) PullReplyReferences(ctx context.Context, id string) (int, error) {
	res, err := s.tweets.UpdateMany(ctx,
		bson.M{"replies": id},
		bson.M{"$pull": bson.M{"replies": id}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		logg.Error("store", "Failed to pull reply references", err)
		return 0, err
	}
	return int(res.ModifiedCount), nil
}
