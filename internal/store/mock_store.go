package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"example.com/tweetfeed/internal/models"
)

// MockStore simulates the document store in memory for testing.
type MockStore struct {
	mu      sync.Mutex
	counter int
	clock   time.Time

	Users  map[string]models.User
	Tweets map[string]models.Tweet

	ShouldFail bool             // flag to simulate failures of every call
	FailOn     map[string]error // per-method failures, keyed by method name
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Users:  make(map[string]models.User),
		Tweets: make(map[string]models.Tweet),
		FailOn: make(map[string]error),
	}
}

func (m *MockStore) Close() {}

func (m *MockStore) fail(method string) error {
	if m.ShouldFail {
		return fmt.Errorf("mock: %s failed", method)
	}
	return m.FailOn[method]
}

// next returns a fresh id and a strictly increasing timestamp.
func (m *MockStore) next(prefix string) (string, time.Time) {
	m.counter++
	m.clock = m.clock.Add(time.Second)
	return fmt.Sprintf("%s_%d", prefix, m.counter), m.clock
}

func copyUser(u models.User) models.User {
	u.Followers = slices.Clone(u.Followers)
	u.Following = slices.Clone(u.Following)
	return u
}

func copyTweet(t models.Tweet) models.Tweet {
	t.Likes = slices.Clone(t.Likes)
	t.ReTweetedBy = slices.Clone(t.ReTweetedBy)
	t.Replies = slices.Clone(t.Replies)
	t.Normalize()
	return t
}

func addToSet(ids []string, id string) []string {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func pull(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(v string) bool { return v == id })
}

// --- Users ---

func (m *MockStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateUser"); err != nil {
		return err
	}
	for _, existing := range m.Users {
		if existing.Email == u.Email {
			return models.Conflict("User with this email already registered")
		}
		if existing.Username == u.Username {
			return models.Conflict("User with this username already registered")
		}
	}
	u.ID, u.CreatedAt = m.next("user")
	u.UpdatedAt = u.CreatedAt
	u.Followers, u.Following = []string{}, []string{}
	m.Users[u.ID] = copyUser(*u)
	return nil
}

func (m *MockStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetUser"); err != nil {
		return nil, err
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	u = copyUser(u)
	return &u, nil
}

func (m *MockStore) findUser(match func(models.User) bool) (*models.User, error) {
	for _, u := range m.Users {
		if match(u) {
			u = copyUser(u)
			return &u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetUserByUsername"); err != nil {
		return nil, err
	}
	return m.findUser(func(u models.User) bool { return u.Username == username })
}

func (m *MockStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetUserByEmail"); err != nil {
		return nil, err
	}
	return m.findUser(func(u models.User) bool { return u.Email == email })
}

func (m *MockStore) GetUsers(_ context.Context, ids []string) (map[string]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetUsers"); err != nil {
		return nil, err
	}
	res := make(map[string]models.User)
	for _, id := range ids {
		if u, ok := m.Users[id]; ok {
			res[id] = copyUser(u)
		}
	}
	return res, nil
}

func (m *MockStore) UpdateProfile(_ context.Context, id, name, dob, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateProfile"); err != nil {
		return err
	}
	u, ok := m.Users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.Name, u.DOB, u.Location = name, dob, location
	m.Users[id] = u
	return nil
}

func (m *MockStore) SetProfilePicture(_ context.Context, id, url string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SetProfilePicture"); err != nil {
		return nil, err
	}
	u, ok := m.Users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	u.ProfilePicture = url
	m.Users[id] = u
	u = copyUser(u)
	return &u, nil
}

func (m *MockStore) AddFollow(_ context.Context, actingID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AddFollow"); err != nil {
		return err
	}
	acting := m.Users[actingID]
	acting.Following = addToSet(acting.Following, targetID)
	m.Users[actingID] = acting
	target := m.Users[targetID]
	target.Followers = addToSet(target.Followers, actingID)
	m.Users[targetID] = target
	return nil
}

func (m *MockStore) RemoveFollow(_ context.Context, actingID, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RemoveFollow"); err != nil {
		return err
	}
	acting := m.Users[actingID]
	acting.Following = pull(acting.Following, targetID)
	m.Users[actingID] = acting
	target := m.Users[targetID]
	target.Followers = pull(target.Followers, actingID)
	m.Users[targetID] = target
	return nil
}

// --- Tweets ---

func (m *MockStore) CreateTweet(_ context.Context, t *models.Tweet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateTweet"); err != nil {
		return err
	}
	t.ID, t.CreatedAt = m.next("tweet")
	t.UpdatedAt = t.CreatedAt
	t.Normalize()
	m.Tweets[t.ID] = copyTweet(*t)
	return nil
}

func (m *MockStore) GetTweet(_ context.Context, id string) (*models.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetTweet"); err != nil {
		return nil, err
	}
	t, ok := m.Tweets[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	t = copyTweet(t)
	return &t, nil
}

func (m *MockStore) GetTweets(_ context.Context, ids []string) ([]models.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetTweets"); err != nil {
		return nil, err
	}
	res := []models.Tweet{}
	for _, id := range ids {
		if t, ok := m.Tweets[id]; ok {
			res = append(res, copyTweet(t))
		}
	}
	return res, nil
}

func (m *MockStore) listWhere(match func(models.Tweet) bool) []models.Tweet {
	res := []models.Tweet{}
	for _, t := range m.Tweets {
		if match(t) {
			res = append(res, copyTweet(t))
		}
	}
	sortNewestFirst(res)
	return res
}

func (m *MockStore) ListTweets(_ context.Context) ([]models.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListTweets"); err != nil {
		return nil, err
	}
	return m.listWhere(func(models.Tweet) bool { return true }), nil
}

func (m *MockStore) ListTweetsByAuthor(_ context.Context, userID string) ([]models.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListTweetsByAuthor"); err != nil {
		return nil, err
	}
	return m.listWhere(func(t models.Tweet) bool { return t.TweetedBy == userID }), nil
}

// mutate applies fn to a stored tweet under the lock.
func (m *MockStore) mutate(method, id string, fn func(*models.Tweet) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail(method); err != nil {
		return false, err
	}
	t, ok := m.Tweets[id]
	if !ok {
		return false, models.ErrNotFound
	}
	changed := fn(&t)
	m.Tweets[id] = t
	return changed, nil
}

func (m *MockStore) AddLike(_ context.Context, tweetID, userID string) error {
	_, err := m.mutate("AddLike", tweetID, func(t *models.Tweet) bool {
		t.Likes = addToSet(t.Likes, userID)
		return true
	})
	return err
}

func (m *MockStore) RemoveLike(_ context.Context, tweetID, userID string) (bool, error) {
	return m.mutate("RemoveLike", tweetID, func(t *models.Tweet) bool {
		if !t.LikedBy(userID) {
			return false
		}
		t.Likes = pull(t.Likes, userID)
		return true
	})
}

func (m *MockStore) AddRetweet(_ context.Context, tweetID, userID string) (bool, error) {
	return m.mutate("AddRetweet", tweetID, func(t *models.Tweet) bool {
		if t.RetweetedBy(userID) {
			return false
		}
		t.ReTweetedBy = append(t.ReTweetedBy, userID)
		return true
	})
}

func (m *MockStore) AppendReply(_ context.Context, parentID, replyID string) error {
	_, err := m.mutate("AppendReply", parentID, func(t *models.Tweet) bool {
		t.Replies = append(t.Replies, replyID)
		return true
	})
	return err
}

func (m *MockStore) DeleteTweet(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteTweet"); err != nil {
		return err
	}
	if _, ok := m.Tweets[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.Tweets, id)
	return nil
}

func (m *MockStore) PullReplyReferences(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("PullReplyReferences"); err != nil {
		return 0, err
	}
	changed := 0
	for tid, t := range m.Tweets {
		if slices.Contains(t.Replies, id) {
			t.Replies = pull(t.Replies, id)
			m.Tweets[tid] = t
			changed++
		}
	}
	return changed, nil
}

// ---------------------------------------------
// MockStoreFail always returns errors for negative tests
type MockStoreFail struct{}

var errMockFail = errors.New("mock store failed")

func (m *MockStoreFail) Close() {}

func (m *MockStoreFail) CreateUser(context.Context, *models.User) error { return errMockFail }
func (m *MockStoreFail) GetUser(context.Context, string) (*models.User, error) {
	return nil, errMockFail
}
func (m *MockStoreFail) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, errMockFail
}
func (m *MockStoreFail) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, errMockFail
}
func (m *MockStoreFail) GetUsers(context.Context, []string) (map[string]models.User, error) {
	return nil, errMockFail
}
func (m *MockStoreFail) UpdateProfile(context.Context, string, string, string, string) error {
	return errMockFail
}
func (m *MockStoreFail) SetProfilePicture(context.Context, string, string) (*models.User, error) {
	return nil, errMockFail
}
func (m *MockStoreFail) AddFollow(context.Context, string, string) error    { return errMockFail }
func (m *MockStoreFail) RemoveFollow(context.Context, string, string) error { return errMockFail }
func (m *MockStoreFail) CreateTweet(context.Context, *models.Tweet) error   { return errMockFail }
func (m *MockStoreFail) GetTweet(context.Context, string) (*models.Tweet, error) {
	return nil, errMockFail
}
func (m *MockStoreFail) GetTweets(context.Context, []string) ([]models.Tweet, error) {
	return nil, errMockFail
}
func (m *MockStoreFail) ListTweets(context.Context) ([]models.Tweet, error) { return nil, errMockFail }
func (m *MockStoreFail) ListTweetsByAuthor(context.Context, string) ([]models.Tweet, error) {
	return nil, errMockFail
}
func (m *MockStoreFail) AddLike(context.Context, string, string) error { return errMockFail }
func (m *MockStoreFail) RemoveLike(context.Context, string, string) (bool, error) {
	return false, errMockFail
}
func (m *MockStoreFail) AddRetweet(context.Context, string, string) (bool, error) {
	return false, errMockFail
}
func (m *MockStoreFail) AppendReply(context.Context, string, string) error { return errMockFail }
func (m *MockStoreFail) DeleteTweet(context.Context, string) error         { return errMockFail }
func (m *MockStoreFail) PullReplyReferences(context.Context, string) (int, error) {
	return 0, errMockFail
}

var (
	_ StoreInterface = (*MockStore)(nil)
	_ StoreInterface = (*MockStoreFail)(nil)
	_ StoreInterface = (*MongoStore)(nil)
	_ StoreInterface = (*CassandraStore)(nil)
)
