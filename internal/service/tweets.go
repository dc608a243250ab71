package service

import (
	"context"
	"errors"
	"fmt"

	"example.com/tweetfeed/internal/models"
	"example.com/tweetfeed/internal/store"
)

const msgTweetNotFound = "Tweet not found"

// TweetService is the tweet store: lifecycle, likes, retweets and replies.
type TweetService struct {
	store  store.StoreInterface
	events Publisher
}

func NewTweetService(st store.StoreInterface, events Publisher) *TweetService {
	if events == nil {
		events = NopPublisher{}
	}
	return &TweetService{store: st, events: events}
}

// Create stores a new tweet by authorID. image may be empty.
func (s *TweetService) Create(ctx context.Context, content, authorID, image string) (*models.Tweet, error) {
	if blank(content) {
		return nil, models.Validation("Content is required for a tweet")
	}
	t := &models.Tweet{Content: content, TweetedBy: authorID, Image: image}
	if err := s.store.CreateTweet(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tweet: %w", err)
	}
	publish(ctx, s.events, models.Event{Type: models.EventTweetCreated, TweetID: t.ID, UserID: authorID, Image: image})
	return t, nil
}

// Like adds userID to the likes of a tweet. Liking twice is a no-op.
func (s *TweetService) Like(ctx context.Context, tweetID, userID string) error {
	if err := s.store.AddLike(ctx, tweetID, userID); err != nil {
		return tweetErr(err, msgTweetNotFound)
	}
	publish(ctx, s.events, models.Event{Type: models.EventTweetLiked, TweetID: tweetID, UserID: userID})
	return nil
}

func (s *TweetService) Unlike(ctx context.Context, tweetID, userID string) error {
	removed, err := s.store.RemoveLike(ctx, tweetID, userID)
	if err != nil {
		return tweetErr(err, msgTweetNotFound)
	}
	if !removed {
		return models.Conflict("You have not liked this tweet")
	}
	publish(ctx, s.events, models.Event{Type: models.EventTweetUnliked, TweetID: tweetID, UserID: userID})
	return nil
}

func (s *TweetService) Retweet(ctx context.Context, tweetID, userID string) error {
	added, err := s.store.AddRetweet(ctx, tweetID, userID)
	if err != nil {
		return tweetErr(err, msgTweetNotFound)
	}
	if !added {
		return models.Conflict("You have already retweeted this tweet")
	}
	publish(ctx, s.events, models.Event{Type: models.EventTweetRetweeted, TweetID: tweetID, UserID: userID})
	return nil
}

// Reply creates a reply tweet and appends it to the parent. If the parent
// cannot be updated the reply is deleted again.
func (s *TweetService) Reply(ctx context.Context, parentID, content, authorID string) (*models.Tweet, error) {
	if blank(content) {
		return nil, models.Validation("Content is required for a reply")
	}
	if _, err := s.store.GetTweet(ctx, parentID); err != nil {
		return nil, tweetErr(err, "Original tweet not found")
	}

	reply := &models.Tweet{Content: content, TweetedBy: authorID, ParentID: parentID}
	if err := s.store.CreateTweet(ctx, reply); err != nil {
		return nil, fmt.Errorf("failed to create reply: %w", err)
	}

	if err := s.store.AppendReply(ctx, parentID, reply.ID); err != nil {
		if derr := s.store.DeleteTweet(ctx, reply.ID); derr != nil {
			logg.Error("tweets", "Failed to remove orphaned reply "+reply.ID, derr)
		}
		return nil, tweetErr(err, "Original tweet not found")
	}

	publish(ctx, s.events, models.Event{Type: models.EventTweetReplied, TweetID: reply.ID, UserID: authorID, TargetID: parentID})
	return reply, nil
}

// Get returns a tweet with its author, likers, retweeters and replies resolved.
func (s *TweetService) Get(ctx context.Context, id string) (*models.TweetView, error) {
	t, err := s.store.GetTweet(ctx, id)
	if err != nil {
		return nil, tweetErr(err, msgTweetNotFound)
	}
	views, err := s.populate(ctx, []models.Tweet{*t})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// List returns every tweet, newest first, resolved like Get.
func (s *TweetService) List(ctx context.Context) ([]models.TweetView, error) {
	tweets, err := s.store.ListTweets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tweets: %w", err)
	}
	return s.populate(ctx, tweets)
}

// ListByUser returns the unresolved tweets of one author, newest first.
func (s *TweetService) ListByUser(ctx context.Context, userID string) ([]models.Tweet, error) {
	tweets, err := s.store.ListTweetsByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user tweets: %w", err)
	}
	for i := range tweets {
		tweets[i].Normalize()
	}
	return tweets, nil
}

// Delete removes a tweet owned by requesterID and strips it from every
// parent's replies. The deleted tweet is returned.
func (s *TweetService) Delete(ctx context.Context, tweetID, requesterID string) (*models.Tweet, error) {
	t, err := s.store.GetTweet(ctx, tweetID)
	if err != nil {
		return nil, tweetErr(err, msgTweetNotFound)
	}
	if t.TweetedBy != requesterID {
		return nil, models.Forbidden("You can only delete your tweets")
	}
	if err := s.store.DeleteTweet(ctx, tweetID); err != nil {
		return nil, tweetErr(err, msgTweetNotFound)
	}
	// The worker sweeps again on tweet.deleted, so a failure here is not fatal.
	if _, err := s.store.PullReplyReferences(ctx, tweetID); err != nil {
		logg.Error("tweets", "Failed to pull reply references for "+tweetID, err)
	}
	publish(ctx, s.events, models.Event{
		Type:     models.EventTweetDeleted,
		TweetID:  tweetID,
		UserID:   requesterID,
		TargetID: t.ParentID,
		Image:    t.Image,
	})
	return t, nil
}

// populate resolves references with one batched read per collection.
// Ids that no longer resolve are dropped.
func (s *TweetService) populate(ctx context.Context, tweets []models.Tweet) ([]models.TweetView, error) {
	var replyIDs []string
	for _, t := range tweets {
		replyIDs = append(replyIDs, t.Replies...)
	}
	replies := map[string]models.Tweet{}
	if len(replyIDs) > 0 {
		found, err := s.store.GetTweets(ctx, replyIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load replies: %w", err)
		}
		for _, r := range found {
			replies[r.ID] = r
		}
	}

	var userIDs []string
	for _, t := range tweets {
		userIDs = append(userIDs, t.TweetedBy)
		userIDs = append(userIDs, t.Likes...)
		userIDs = append(userIDs, t.ReTweetedBy...)
	}
	for _, r := range replies {
		userIDs = append(userIDs, r.TweetedBy)
	}
	users, err := s.store.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	views := make([]models.TweetView, 0, len(tweets))
	for _, t := range tweets {
		v := models.TweetView{
			ID:          t.ID,
			Content:     t.Content,
			TweetedBy:   publicUser(users, t.TweetedBy),
			Likes:       publicUsers(users, t.Likes),
			ReTweetedBy: publicUsers(users, t.ReTweetedBy),
			Image:       t.Image,
			Replies:     make([]models.ReplyView, 0, len(t.Replies)),
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
		for _, id := range t.Replies {
			r, ok := replies[id]
			if !ok {
				continue
			}
			r.Normalize()
			v.Replies = append(v.Replies, models.ReplyView{
				ID:          r.ID,
				Content:     r.Content,
				TweetedBy:   publicUser(users, r.TweetedBy),
				Likes:       r.Likes,
				ReTweetedBy: r.ReTweetedBy,
				Image:       r.Image,
				Replies:     r.Replies,
				CreatedAt:   r.CreatedAt,
				UpdatedAt:   r.UpdatedAt,
			})
		}
		views = append(views, v)
	}
	return views, nil
}

func publicUser(users map[string]models.User, id string) *models.PublicUser {
	u, ok := users[id]
	if !ok {
		return nil
	}
	pub := u.Public()
	return &pub
}

func publicUsers(users map[string]models.User, ids []string) []models.PublicUser {
	out := make([]models.PublicUser, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, u.Public())
		}
	}
	return out
}

func tweetErr(err error, msg string) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFound(msg)
	}
	if models.IsUserFacing(err) {
		return err
	}
	return fmt.Errorf("tweet store: %w", err)
}
