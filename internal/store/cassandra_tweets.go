package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"example.com/tweetfeed/internal/models"
	"github.com/gocql/gocql"
)

const tweetColumns = `tweet_id, content, tweeted_by, likes, retweeted_by, image,
	replies, parent_id, created_at, updated_at`

func tweetDest(t *models.Tweet) []interface{} {
	return []interface{}{
		&t.ID, &t.Content, &t.TweetedBy, &t.Likes, &t.ReTweetedBy, &t.Image,
		&t.Replies, &t.ParentID, &t.CreatedAt, &t.UpdatedAt,
	}
}

func (s *CassandraStore) scanTweets(iter Rows) ([]models.Tweet, error) {
	var res []models.Tweet
	var t models.Tweet
	for iter.Scan(tweetDest(&t)...) {
		t.Normalize()
		res = append(res, t)
		t = models.Tweet{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return res, nil
}

// --- Tweet operations ---

func (s *CassandraStore) CreateTweet(ctx context.Context, t *models.Tweet) error {
	t.ID = gocql.TimeUUID().String()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	t.Normalize()

	batch := s.Session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`
		INSERT INTO tweets (tweet_id, content, tweeted_by, image, parent_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Content, t.TweetedBy, t.Image, t.ParentID, now, now)
	batch.Query(`
		INSERT INTO tweets_by_author (author_id, created_at, tweet_id)
		VALUES (?, ?, ?)`,
		t.TweetedBy, now, t.ID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to add tweet", err)
		return err
	}

	logg.Info("store", "Tweet added to tweets table (content anonymized)")
	return nil
}

func (s *CassandraStore) GetTweet(ctx context.Context, id string) (*models.Tweet, error) {
	var t models.Tweet
	err := s.Session.Query(
		`SELECT `+tweetColumns+` FROM tweets WHERE tweet_id = ?`, id,
	).WithContext(ctx).Scan(tweetDest(&t)...)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		logg.Error("store", "Failed to query tweet", err)
		return nil, err
	}
	t.Normalize()
	return &t, nil
}

func (s *CassandraStore) GetTweets(ctx context.Context, ids []string) ([]models.Tweet, error) {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return []models.Tweet{}, nil
	}
	tweets, err := s.scanTweets(s.Session.Query(
		`SELECT `+tweetColumns+` FROM tweets WHERE tweet_id IN ?`, unique,
	).WithContext(ctx).Iter())
	if err != nil {
		logg.Error("store", "Failed to get tweets", err)
		return nil, err
	}
	return orderByIDs(ids, tweets), nil
}

// ListTweets scans the whole table; Cassandra has no global order, so the
// rows are sorted here.
func (s *CassandraStore) ListTweets(ctx context.Context) ([]models.Tweet, error) {
	tweets, err := s.scanTweets(s.Session.Query(
		`SELECT ` + tweetColumns + ` FROM tweets`,
	).WithContext(ctx).Iter())
	if err != nil {
		logg.Error("store", "Failed to list tweets", err)
		return nil, err
	}
	sortNewestFirst(tweets)
	return tweets, nil
}

func (s *CassandraStore) ListTweetsByAuthor(ctx context.Context, userID string) ([]models.Tweet, error) {
	iter := s.Session.Query(
		`SELECT tweet_id FROM tweets_by_author WHERE author_id = ?`, userID,
	).WithContext(ctx).Iter()

	var id string
	var ids []string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list tweets by author", err)
		return nil, err
	}
	return s.GetTweets(ctx, ids)
}

// updateExisting applies a collection update only when the row exists, so
// a concurrent delete cannot resurrect a partial row.
func (s *CassandraStore) updateExisting(ctx context.Context, stmt string, values ...interface{}) error {
	ok, err := s.runner().ExecCAS(ctx, stmt, values...)
	if err != nil {
		logg.Error("store", "Failed to update tweet", err)
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	return nil
}

func (s *CassandraStore) AddLike(ctx context.Context, tweetID, userID string) error {
	return s.updateExisting(ctx,
		`UPDATE tweets SET likes = likes + ?, updated_at = ? WHERE tweet_id = ? IF EXISTS`,
		[]string{userID}, time.Now().UTC(), tweetID)
}

func (s *CassandraStore) RemoveLike(ctx context.Context, tweetID, userID string) (bool, error) {
	t, err := s.GetTweet(ctx, tweetID)
	if err != nil {
		return false, err
	}
	if !t.LikedBy(userID) {
		return false, nil
	}
	err = s.updateExisting(ctx,
		`UPDATE tweets SET likes = likes - ?, updated_at = ? WHERE tweet_id = ? IF EXISTS`,
		[]string{userID}, time.Now().UTC(), tweetID)
	return err == nil, err
}

// AddRetweet is read-then-write; two concurrent retweets by the same user
// both succeed but the set column keeps one entry.
func (s *CassandraStore) AddRetweet(ctx context.Context, tweetID, userID string) (bool, error) {
	t, err := s.GetTweet(ctx, tweetID)
	if err != nil {
		return false, err
	}
	if t.RetweetedBy(userID) {
		return false, nil
	}
	err = s.updateExisting(ctx,
		`UPDATE tweets SET retweeted_by = retweeted_by + ?, updated_at = ? WHERE tweet_id = ? IF EXISTS`,
		[]string{userID}, time.Now().UTC(), tweetID)
	return err == nil, err
}

func (s *CassandraStore) AppendReply(ctx context.Context, parentID, replyID string) error {
	return s.updateExisting(ctx,
		`UPDATE tweets SET replies = replies + ?, updated_at = ? WHERE tweet_id = ? IF EXISTS`,
		[]string{replyID}, time.Now().UTC(), parentID)
}

func (s *CassandraStore) DeleteTweet(ctx context.Context, id string) error {
	t, err := s.GetTweet(ctx, id)
	if err != nil {
		return err
	}

	batch := s.Session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`DELETE FROM tweets WHERE tweet_id = ?`, id)
	batch.Query(`DELETE FROM tweets_by_author WHERE author_id = ? AND created_at = ? AND tweet_id = ?`,
		t.TweetedBy, t.CreatedAt, id)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to delete tweet", err)
		return err
	}
	return nil
}

// PullReplyReferences scans every tweet and removes id from the replies
// lists that contain it.
func (s *CassandraStore) PullReplyReferences(ctx context.Context, id string) (int, error) {
	iter := s.runner().Iter(ctx, `SELECT tweet_id, replies FROM tweets`)

	var tweetID string
	var replies []string
	var parents []string
	for iter.Scan(&tweetID, &replies) {
		if slices.Contains(replies, id) {
			parents = append(parents, tweetID)
		}
		replies = nil
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to scan reply references", err)
		return 0, err
	}

	changed := 0
	for _, parentID := range parents {
		err := s.updateExisting(ctx,
			`UPDATE tweets SET replies = replies - ?, updated_at = ? WHERE tweet_id = ? IF EXISTS`,
			[]string{id}, time.Now().UTC(), parentID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}
