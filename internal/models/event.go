package models

import "time"

type EventType string

const (
	EventTweetCreated   EventType = "tweet.created"
	EventTweetReplied   EventType = "tweet.replied"
	EventTweetLiked     EventType = "tweet.liked"
	EventTweetUnliked   EventType = "tweet.unliked"
	EventTweetRetweeted EventType = "tweet.retweeted"
	EventTweetDeleted   EventType = "tweet.deleted"
	EventUserFollowed   EventType = "user.followed"
	EventUserUnfollowed EventType = "user.unfollowed"
)

// Event is a domain change published to the event log.
// TargetID is the parent tweet for replies and the followed user for follows.
type Event struct {
	ID       string    `json:"id"`
	Type     EventType `json:"type"`
	TweetID  string    `json:"tweet_id,omitempty"`
	UserID   string    `json:"user_id,omitempty"`
	TargetID string    `json:"target_id,omitempty"`
	Image    string    `json:"image,omitempty"`
	At       time.Time `json:"at"`
}

// Key returns the partitioning key: the tweet when there is one, else the user.
func (e Event) Key() string {
	if e.TweetID != "" {
		return e.TweetID
	}
	return e.UserID
}
