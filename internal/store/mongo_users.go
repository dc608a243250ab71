package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"example.com/tweetfeed/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID().Hex()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Followers, u.Following = []string{}, []string{}

	if _, err := s.users.InsertOne(ctx, u); err != nil {
		u.ID = ""
		if mongo.IsDuplicateKeyError(err) {
			return duplicateUserError(err)
		}
		logg.Error("store", "Failed to insert user", err)
		return err
	}

	logg.Info("store", "User created successfully (username anonymized)")
	return nil
}

const (
	emailIndex    = "email_1"
	usernameIndex = "username_1"
)

var dupIndexRegex = regexp.MustCompile(`index: (\S+) dup key`)

// duplicateUserError names the unique index that rejected the insert.
func duplicateUserError(err error) error {
	if duplicateIndex(err) == emailIndex {
		return models.Conflict("User with this email already registered")
	}
	return models.Conflict("User with this username already registered")
}

// duplicateIndex returns the index name reported by a duplicate key error.
func duplicateIndex(err error) string {
	msgs := []string{err.Error()}
	var we mongo.WriteException
	if errors.As(err, &we) && len(we.WriteErrors) > 0 {
		msgs = msgs[:0]
		for _, e := range we.WriteErrors {
			msgs = append(msgs, e.Message)
		}
	}
	for _, m := range msgs {
		if sub := dupIndexRegex.FindStringSubmatch(m); sub != nil {
			return sub[1]
		}
	}
	return ""
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		logg.Error("store", "Failed to query user", err)
		return nil, err
	}
	return &u, nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *MongoStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"username": username})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []string) (map[string]models.User, error) {
	ids = uniqueIDs(ids)
	res := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		logg.Error("store", "Failed to get users", err)
		return nil, err
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		logg.Error("store", "Failed to decode users", err)
		return nil, err
	}
	for _, u := range users {
		res[u.ID] = u
	}
	return res, nil
}

func (s *MongoStore) UpdateProfile(ctx context.Context, id, name, dob, location string) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":      name,
		"dob":       dob,
		"location":  location,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		logg.Error("store", "Failed to update user profile", err)
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetProfilePicture(ctx context.Context, id, url string) (*models.User, error) {
	var u models.User
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"profilePicture": url, "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		logg.Error("store", "Failed to set profile picture", err)
		return nil, err
	}
	return &u, nil
}

// --- Follow operations ---

func (s *MongoStore) AddFollow(ctx context.Context, actingID, targetID string) error {
	return s.followWrite(ctx, "$addToSet", actingID, targetID)
}

func (s *MongoStore) RemoveFollow(ctx context.Context, actingID, targetID string) error {
	return s.followWrite(ctx, "$pull", actingID, targetID)
}

// followWrite updates both sides of the edge in one round trip. The two
// updates are not atomic with respect to each other.
func (s *MongoStore) followWrite(ctx context.Context, op, actingID, targetID string) error {
	now := time.Now().UTC()
	writes := []mongo.WriteModel{
		mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": actingID}).
			SetUpdate(bson.M{op: bson.M{"following": targetID}, "$set": bson.M{"updatedAt": now}}),
		mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": targetID}).
			SetUpdate(bson.M{op: bson.M{"followers": actingID}, "$set": bson.M{"updatedAt": now}}),
	}
	if _, err := s.users.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
		logg.Error("store", "Failed to update follow relationship", err)
		return err
	}

	logg.Info("store", "Follow relationship updated (user IDs anonymized)")
	return nil
}
