package models

import (
	"slices"
	"time"
)

// Tweet is the stored tweet document. Likes, ReTweetedBy and Replies hold
// foreign ids; replies are tweets themselves and keep ParentID set.
type Tweet struct {
	ID          string    `json:"_id" bson:"_id"`
	Content     string    `json:"content" bson:"content"`
	TweetedBy   string    `json:"tweetedBy" bson:"tweetedBy"`
	Likes       []string  `json:"likes" bson:"likes"`
	ReTweetedBy []string  `json:"reTweetedBy" bson:"reTweetedBy"`
	Image       string    `json:"image" bson:"image"`
	Replies     []string  `json:"replies" bson:"replies"`
	ParentID    string    `json:"parentId,omitempty" bson:"parentId,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Normalize replaces nil relationship slices with empty ones.
func (t *Tweet) Normalize() {
	t.Likes = nonNil(t.Likes)
	t.ReTweetedBy = nonNil(t.ReTweetedBy)
	t.Replies = nonNil(t.Replies)
}

func (t *Tweet) LikedBy(userID string) bool {
	return slices.Contains(t.Likes, userID)
}

func (t *Tweet) RetweetedBy(userID string) bool {
	return slices.Contains(t.ReTweetedBy, userID)
}

// TweetView is a tweet with every reference resolved for reading.
type TweetView struct {
	ID          string       `json:"_id"`
	Content     string       `json:"content"`
	TweetedBy   *PublicUser  `json:"tweetedBy"`
	Likes       []PublicUser `json:"likes"`
	ReTweetedBy []PublicUser `json:"reTweetedBy"`
	Image       string       `json:"image"`
	Replies     []ReplyView  `json:"replies"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// ReplyView is a reply resolved one level: only its author is populated.
type ReplyView struct {
	ID          string      `json:"_id"`
	Content     string      `json:"content"`
	TweetedBy   *PublicUser `json:"tweetedBy"`
	Likes       []string    `json:"likes"`
	ReTweetedBy []string    `json:"reTweetedBy"`
	Image       string      `json:"image"`
	Replies     []string    `json:"replies"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}
