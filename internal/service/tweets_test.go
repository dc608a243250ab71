package service

import (
	"context"
	"errors"
	"testing"

	"example.com/tweetfeed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTweet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")

	tw, err := f.tweets.Create(ctx, "hello", a.ID, "http://localhost:8080/files/a.png")
	require.NoError(t, err)
	assert.Equal(t, a.ID, tw.TweetedBy)
	assert.Equal(t, []string{}, tw.Likes)
	assert.Equal(t, []string{}, tw.Replies)

	_, err = f.tweets.Create(ctx, "   ", a.ID, "")
	assertKind(t, err, models.ErrValidation, "Content is required for a tweet")

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventTweetCreated, f.events.events[0].Type)
	assert.Equal(t, "http://localhost:8080/files/a.png", f.events.events[0].Image)
}

func TestLikeUnlike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	b := f.register(t, "bob")
	tw, _ := f.tweets.Create(ctx, "hello", a.ID, "")

	require.NoError(t, f.tweets.Like(ctx, tw.ID, b.ID))
	require.NoError(t, f.tweets.Like(ctx, tw.ID, b.ID))
	stored, _ := f.store.GetTweet(ctx, tw.ID)
	assert.Equal(t, []string{b.ID}, stored.Likes)

	require.NoError(t, f.tweets.Unlike(ctx, tw.ID, b.ID))
	assertKind(t, f.tweets.Unlike(ctx, tw.ID, b.ID), models.ErrConflict, "You have not liked this tweet")
	stored, _ = f.store.GetTweet(ctx, tw.ID)
	assert.Empty(t, stored.Likes)

	assertKind(t, f.tweets.Like(ctx, "tweet_404", b.ID), models.ErrNotFound, "Tweet not found")
	assertKind(t, f.tweets.Unlike(ctx, "tweet_404", b.ID), models.ErrNotFound, "Tweet not found")
}

func TestRetweet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	b := f.register(t, "bob")
	tw, _ := f.tweets.Create(ctx, "hello", a.ID, "")

	require.NoError(t, f.tweets.Retweet(ctx, tw.ID, b.ID))
	assertKind(t, f.tweets.Retweet(ctx, tw.ID, b.ID), models.ErrConflict, "You have already retweeted this tweet")
	assertKind(t, f.tweets.Retweet(ctx, "tweet_404", b.ID), models.ErrNotFound, "Tweet not found")

	stored, _ := f.store.GetTweet(ctx, tw.ID)
	assert.Equal(t, []string{b.ID}, stored.ReTweetedBy)
}

func TestReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	b := f.register(t, "bob")
	tw, _ := f.tweets.Create(ctx, "hello", a.ID, "")

	r, err := f.tweets.Reply(ctx, tw.ID, "hi back", b.ID)
	require.NoError(t, err)
	assert.Equal(t, tw.ID, r.ParentID)

	parent, _ := f.store.GetTweet(ctx, tw.ID)
	assert.Equal(t, []string{r.ID}, parent.Replies)

	_, err = f.tweets.Reply(ctx, tw.ID, "", b.ID)
	assertKind(t, err, models.ErrValidation, "Content is required for a reply")

	_, err = f.tweets.Reply(ctx, "tweet_404", "x", b.ID)
	assertKind(t, err, models.ErrNotFound, "Original tweet not found")
	assert.Len(t, f.store.Tweets, 2)
}

func TestReply_CompensatesOnAppendFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	tw, _ := f.tweets.Create(ctx, "hello", a.ID, "")
	f.store.FailOn["AppendReply"] = errors.New("write timeout")

	_, err := f.tweets.Reply(ctx, tw.ID, "orphan?", a.ID)
	require.Error(t, err)
	assert.False(t, models.IsUserFacing(err))
	assert.Len(t, f.store.Tweets, 1, "reply must be removed again")
}

func TestGetTweet_Populates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	b := f.register(t, "bob")
	tw, _ := f.tweets.Create(ctx, "hello", a.ID, "")
	require.NoError(t, f.tweets.Like(ctx, tw.ID, b.ID))
	require.NoError(t, f.tweets.Retweet(ctx, tw.ID, b.ID))
	r, err := f.tweets.Reply(ctx, tw.ID, "hi back", b.ID)
	require.NoError(t, err)

	v, err := f.tweets.Get(ctx, tw.ID)
	require.NoError(t, err)
	require.NotNil(t, v.TweetedBy)
	assert.Equal(t, "alice", v.TweetedBy.Username)
	require.Len(t, v.Likes, 1)
	assert.Equal(t, "bob", v.Likes[0].Username)
	require.Len(t, v.ReTweetedBy, 1)
	require.Len(t, v.Replies, 1)
	assert.Equal(t, r.ID, v.Replies[0].ID)
	require.NotNil(t, v.Replies[0].TweetedBy)
	assert.Equal(t, "bob", v.Replies[0].TweetedBy.Username)

	_, err = f.tweets.Get(ctx, "tweet_404")
	assertKind(t, err, models.ErrNotFound, "Tweet not found")
}

func TestGetTweet_DropsDanglingReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	tw, _ := f.tweets.Create(ctx, "hello", a.ID, "")

	stored := f.store.Tweets[tw.ID]
	stored.Likes = []string{"user_gone"}
	stored.Replies = []string{"tweet_gone"}
	f.store.Tweets[tw.ID] = stored

	v, err := f.tweets.Get(ctx, tw.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Likes)
	assert.Empty(t, v.Replies)
}

func TestListTweets_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	first, _ := f.tweets.Create(ctx, "first", a.ID, "")
	second, _ := f.tweets.Create(ctx, "second", a.ID, "")

	views, err := f.tweets.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].ID)
	assert.Equal(t, first.ID, views[1].ID)

	mine, err := f.tweets.ListByUser(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)

	none, err := f.tweets.ListByUser(ctx, "user_404")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteTweet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	b := f.register(t, "bob")
	tw, _ := f.tweets.Create(ctx, "hello", a.ID, "")
	r, _ := f.tweets.Reply(ctx, tw.ID, "hi back", b.ID)

	_, err := f.tweets.Delete(ctx, r.ID, a.ID)
	assertKind(t, err, models.ErrForbidden, "You can only delete your tweets")

	deleted, err := f.tweets.Delete(ctx, r.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, deleted.ID)

	parent, _ := f.store.GetTweet(ctx, tw.ID)
	assert.Empty(t, parent.Replies)

	_, err = f.tweets.Delete(ctx, r.ID, b.ID)
	assertKind(t, err, models.ErrNotFound, "Tweet not found")

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, models.EventTweetDeleted, last.Type)
	assert.Equal(t, r.ID, last.TweetID)
	assert.Equal(t, tw.ID, last.TargetID)
}

func TestDeleteTweet_SweepFailureStillSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	tw, _ := f.tweets.Create(ctx, "hello", a.ID, "")
	f.store.FailOn["PullReplyReferences"] = errors.New("timeout")

	_, err := f.tweets.Delete(ctx, tw.ID, a.ID)
	require.NoError(t, err)
	_, err = f.store.GetTweet(ctx, tw.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteTweet_SweepsEveryReplyList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	b := f.register(t, "bob")

	t1, _ := f.tweets.Create(ctx, "one", a.ID, "")
	t2, _ := f.tweets.Create(ctx, "two", a.ID, "")
	t3, _ := f.tweets.Create(ctx, "three", b.ID, "")
	r, err := f.tweets.Reply(ctx, t1.ID, "reply", b.ID)
	require.NoError(t, err)

	// a stale second reference, as left behind by an interrupted write
	stale := f.store.Tweets[t2.ID]
	stale.Replies = append(stale.Replies, r.ID)
	f.store.Tweets[t2.ID] = stale

	_, err = f.tweets.Delete(ctx, r.ID, b.ID)
	require.NoError(t, err)

	for _, id := range []string{t1.ID, t2.ID, t3.ID} {
		tw, err := f.store.GetTweet(ctx, id)
		require.NoError(t, err)
		assert.NotContains(t, tw.Replies, r.ID, id)
	}
}

func TestDeleteTweet_NonOwnerLeavesStateIntact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice")
	b := f.register(t, "bob")
	tw, _ := f.tweets.Create(ctx, "hello", a.ID, "")
	r, _ := f.tweets.Reply(ctx, tw.ID, "reply", b.ID)

	_, err := f.tweets.Delete(ctx, tw.ID, b.ID)
	assertKind(t, err, models.ErrForbidden, "You can only delete your tweets")

	parent, err := f.store.GetTweet(ctx, tw.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{r.ID}, parent.Replies)
}
