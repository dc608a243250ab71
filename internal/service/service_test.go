package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"example.com/tweetfeed/internal/models"
	"example.com/tweetfeed/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// recorder captures published events.
type recorder struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store  *store.MockStore
	events *recorder
	auth   *AuthService
	users  *UserService
	tweets *TweetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMock()
	rec := &recorder{}
	return &fixture{
		store:  st,
		events: rec,
		auth:   NewAuthService(st, AuthOptions{Secret: "test-secret", BcryptCost: bcrypt.MinCost}),
		users:  NewUserService(st, rec),
		tweets: NewTweetService(st, rec),
	}
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     username + " name",
		Email:    username + "@example.com",
		Username: username,
		Password: "secret-" + username,
	})
	require.NoError(t, err)
	return u
}

func assertKind(t *testing.T, err error, kind error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
	if msg != "" {
		assert.Equal(t, msg, err.Error())
	}
}

func TestPublish_FailureIsSwallowed(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	u := f.register(t, "alice")

	tw, err := f.tweets.Create(context.Background(), "hello", u.ID, "")
	require.NoError(t, err)
	assert.NotEmpty(t, tw.ID)
	require.Len(t, f.events.events, 1)
	assert.NotEmpty(t, f.events.events[0].ID)
	assert.False(t, f.events.events[0].At.IsZero())
}

func TestNilPublisherDefaultsToNop(t *testing.T) {
	st := store.NewMock()
	svc := NewTweetService(st, nil)
	_, err := svc.Create(context.Background(), "hi", "user_1", "")
	assert.NoError(t, err)
}

func TestValidateDOB(t *testing.T) {
	in := EditInput{Name: "a", Location: "b"}
	for _, dob := range []string{"1990-05-01", "1990-05-01T00:00:00Z"} {
		in.DOB = dob
		assert.NoError(t, validate.Struct(in), dob)
	}
	in.DOB = "01/05/1990"
	err := validationError(validate.Struct(in), "required")
	assertKind(t, err, models.ErrValidation, "dob must be a date (YYYY-MM-DD)")
}
