package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"example.com/tweetfeed/internal/models"
	"example.com/tweetfeed/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegister_HashesPassword(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")

	stored, err := f.store.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret-alice", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret-alice")))
	assert.Empty(t, stored.Followers)
	assert.Empty(t, stored.Following)
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Name: "a", Email: "a@example.com", Username: "a"})
	assertKind(t, err, models.ErrValidation, "One or more mandatory fields are empty")

	_, err = f.auth.Register(ctx, RegisterInput{Name: "a", Email: "not-an-email", Username: "a", Password: "p"})
	assertKind(t, err, models.ErrValidation, "Invalid email format")

	_, err = f.auth.Register(ctx, RegisterInput{Name: "a", Email: "a@example.com", Username: "a/b", Password: "p"})
	assertKind(t, err, models.ErrValidation, "username contains invalid characters")
}

func TestRegister_PasswordLimitCountsBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 50 runes, 100 bytes
	_, err := f.auth.Register(ctx, RegisterInput{Name: "a", Email: "a@example.com", Username: "a", Password: strings.Repeat("é", 50)})
	assertKind(t, err, models.ErrValidation, "password must be at most 72 bytes")
	_, err = f.store.GetUserByUsername(ctx, "a")
	assert.ErrorIs(t, err, models.ErrNotFound)

	u, err := f.auth.Register(ctx, RegisterInput{Name: "a", Email: "a@example.com", Username: "a", Password: strings.Repeat("é", 36)})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
}

func TestRegister_Duplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	_, err := f.auth.Register(ctx, RegisterInput{Name: "x", Email: "alice@example.com", Username: "other", Password: "p"})
	assertKind(t, err, models.ErrConflict, "User with this email already registered")

	_, err = f.auth.Register(ctx, RegisterInput{Name: "x", Email: "other@example.com", Username: "alice", Password: "p"})
	assertKind(t, err, models.ErrConflict, "User with this username already registered")

	// both taken: email is reported first
	_, err = f.auth.Register(ctx, RegisterInput{Name: "x", Email: "alice@example.com", Username: "alice", Password: "p"})
	assertKind(t, err, models.ErrConflict, "User with this email already registered")
}

func TestRegister_StoreFailure(t *testing.T) {
	auth := NewAuthService(&store.MockStoreFail{}, AuthOptions{Secret: "s", BcryptCost: bcrypt.MinCost})
	_, err := auth.Register(context.Background(), RegisterInput{Name: "a", Email: "a@example.com", Username: "a", Password: "p"})
	require.Error(t, err)
	assert.False(t, models.IsUserFacing(err))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")

	res, err := f.auth.Login(ctx, "alice", "secret-alice")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, models.UserInfo{ID: u.ID, Email: u.Email, Name: u.Name, Username: u.Username}, res.User)

	got, err := f.auth.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "alice")

	_, err := f.auth.Login(ctx, "alice", "")
	assertKind(t, err, models.ErrValidation, "One or more mandatory fields are empty")

	_, err = f.auth.Login(ctx, "alice", "wrong")
	assertKind(t, err, models.ErrUnauthorized, "Invalid Credentials")

	_, err = f.auth.Login(ctx, "nobody", "secret-alice")
	assertKind(t, err, models.ErrUnauthorized, "Invalid Credentials")
}

func TestAuthenticate_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "alice")

	_, err := f.auth.Authenticate(ctx, "")
	assertKind(t, err, models.ErrUnauthorized, "User not logged in")

	_, err = f.auth.Authenticate(ctx, "garbage")
	assertKind(t, err, models.ErrUnauthorized, "Unauthorized: Invalid token")

	other := NewAuthService(f.store, AuthOptions{Secret: "other-secret"})
	forged, err := other.IssueToken(u.ID)
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, forged)
	assertKind(t, err, models.ErrUnauthorized, "Unauthorized: Invalid token")

	ghost, err := f.auth.IssueToken("user_999")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, ghost)
	assertKind(t, err, models.ErrUnauthorized, "Unauthorized: Invalid token")
}

func TestToken_Expiry(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "alice")

	noExp, err := f.auth.IssueToken(u.ID)
	require.NoError(t, err)
	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(noExp, claims)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)

	short := NewAuthService(f.store, AuthOptions{Secret: "test-secret", TokenTTL: time.Hour})
	tok, err := short.IssueToken(u.ID)
	require.NoError(t, err)
	claims = &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   u.ID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = f.auth.ParseToken(signed)
	assertKind(t, err, models.ErrUnauthorized, "Unauthorized: Invalid token")
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	f := newFixture(t)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "user_1"})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = f.auth.ParseToken(signed)
	assertKind(t, err, models.ErrUnauthorized, "")
}

func TestNewAuthService_InvalidCostFallsBack(t *testing.T) {
	auth := NewAuthService(store.NewMock(), AuthOptions{BcryptCost: 0})
	assert.Equal(t, bcrypt.DefaultCost, auth.cost)
}

func TestRegister_EmptyFieldsSkipStore(t *testing.T) {
	auth := NewAuthService(&store.MockStoreFail{}, AuthOptions{Secret: "s", BcryptCost: bcrypt.MinCost})
	_, err := auth.Register(context.Background(), RegisterInput{})
	assertKind(t, err, models.ErrValidation, "One or more mandatory fields are empty")
}

func TestLogin_WrongPasswordIssuesNoToken(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice")
	res, err := f.auth.Login(context.Background(), "alice", "nope")
	assertKind(t, err, models.ErrUnauthorized, "Invalid Credentials")
	assert.Nil(t, res)
}
