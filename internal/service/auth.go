package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"example.com/tweetfeed/internal/models"
	"example.com/tweetfeed/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgMandatoryFields    = "One or more mandatory fields are empty"
	msgInvalidCredentials = "Invalid Credentials"
	msgNotLoggedIn        = "User not logged in"
	msgInvalidToken       = "Unauthorized: Invalid token"
)

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=50,excludesall=/"`
	Password string `json:"password" validate:"required,bcrypt"`
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token string          `json:"token"`
	User  models.UserInfo `json:"user"`
}

type AuthOptions struct {
	Secret     string
	TokenTTL   time.Duration // zero issues tokens without expiry
	BcryptCost int
}

// AuthService issues and validates bearer credentials.
type AuthService struct {
	users  store.UserStore
	secret []byte
	ttl    time.Duration
	cost   int
}

func NewAuthService(users store.UserStore, opts AuthOptions) *AuthService {
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		users:  users,
		secret: []byte(opts.Secret),
		ttl:    opts.TokenTTL,
		cost:   cost,
	}
}

// Register creates a new user with a hashed password. Email and username
// are checked separately for the error message; the store enforces
// uniqueness for concurrent registrations.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, validationError(err, msgMandatoryFields)
	}

	if err := s.ensureFree(ctx, s.users.GetUserByEmail, in.Email, "User with this email already registered"); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, s.users.GetUserByUsername, in.Username, "User with this username already registered"); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, models.Validation(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Username: in.Username,
		Password: string(hashed),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logg.Info("auth", "User registered user_id="+user.ID)
	return user, nil
}

func (s *AuthService) ensureFree(ctx context.Context, lookup func(context.Context, string) (*models.User, error), value, msg string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return models.Conflict(msg)
	case errors.Is(err, models.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check registration: %w", err)
	}
}

// Login verifies the password and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, models.Validation(msgMandatoryFields)
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.Unauthorized(msgInvalidCredentials)
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, err
	}

	logg.Info("auth", "User logged in user_id="+user.ID)
	return &LoginResult{Token: token, User: user.Info()}, nil
}

// IssueToken signs an HS256 token whose subject is the user id.
func (s *AuthService) IssueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry and returns the user id.
func (s *AuthService) ParseToken(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", models.Unauthorized(msgInvalidToken)
	}
	return claims.Subject, nil
}

// Authenticate resolves a bearer token to the full user record, password
// hash included. Callers must not serialize it as is.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, models.Unauthorized(msgNotLoggedIn)
	}
	userID, err := s.ParseToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Unauthorized(msgInvalidToken)
		}
		return nil, fmt.Errorf("failed to resolve token user: %w", err)
	}
	return user, nil
}
