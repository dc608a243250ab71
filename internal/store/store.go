package store

import (
	"context"
	"fmt"
	"slices"

	config "example.com/tweetfeed/internal/init"
	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/models"
)

var logg = logger.New()

// --- Interfaces ---

// UserStore persists user documents and the follow graph.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]models.User, error)
	UpdateProfile(ctx context.Context, id, name, dob, location string) error
	SetProfilePicture(ctx context.Context, id, url string) (*models.User, error)
	AddFollow(ctx context.Context, actingID, targetID string) error
	RemoveFollow(ctx context.Context, actingID, targetID string) error
}

// TweetStore persists tweet documents and their relationship arrays.
type TweetStore interface {
	CreateTweet(ctx context.Context, t *models.Tweet) error
	GetTweet(ctx context.Context, id string) (*models.Tweet, error)
	GetTweets(ctx context.Context, ids []string) ([]models.Tweet, error)
	ListTweets(ctx context.Context) ([]models.Tweet, error)
	ListTweetsByAuthor(ctx context.Context, userID string) ([]models.Tweet, error)
	AddLike(ctx context.Context, tweetID, userID string) error
	RemoveLike(ctx context.Context, tweetID, userID string) (bool, error)
	AddRetweet(ctx context.Context, tweetID, userID string) (bool, error)
	AppendReply(ctx context.Context, parentID, replyID string) error
	DeleteTweet(ctx context.Context, id string) error
	PullReplyReferences(ctx context.Context, id string) (int, error)
}

// StoreInterface is the document store client used by the services.
// Missing documents are reported as models.ErrNotFound and uniqueness
// violations as models.ErrConflict.
type StoreInterface interface {
	UserStore
	TweetStore
	Close()
}

// New connects the backend selected by cfg.StoreDriver.
func New(ctx context.Context, cfg *config.Config) (StoreInterface, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return NewMongo(ctx, cfg)
	case config.DriverCassandra:
		return NewCassandra(cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// --- helpers shared by the backends ---

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// orderByIDs returns the tweets in the order of ids, skipping ids without a tweet.
func orderByIDs(ids []string, tweets []models.Tweet) []models.Tweet {
	byID := make(map[string]models.Tweet, len(tweets))
	for _, t := range tweets {
		byID[t.ID] = t
	}
	out := make([]models.Tweet, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func sortNewestFirst(tweets []models.Tweet) {
	slices.SortStableFunc(tweets, func(a, b models.Tweet) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
