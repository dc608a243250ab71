package service

import (
	"context"
	"errors"
	"fmt"

	"example.com/tweetfeed/internal/models"
	"example.com/tweetfeed/internal/store"
)

// EditInput holds the editable profile fields. All three are required.
type EditInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	DOB      string `json:"dob" validate:"required,dob"`
	Location string `json:"location" validate:"required,max=100"`
}

// UserService is the user directory: profiles and the follow graph.
type UserService struct {
	users  store.UserStore
	events Publisher
}

func NewUserService(users store.UserStore, events Publisher) *UserService {
	if events == nil {
		events = NopPublisher{}
	}
	return &UserService{users: users, events: events}
}

// Get returns the public profile of a user.
func (s *UserService) Get(ctx context.Context, id string) (*models.PublicUser, error) {
	user, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, userErr(err, "User not found")
	}
	pub := user.Public()
	return &pub, nil
}

// Follow makes actingID follow targetID. Following twice is a no-op.
func (s *UserService) Follow(ctx context.Context, targetID, actingID string) error {
	if err := s.checkPair(ctx, targetID, actingID, "You cannot follow yourself", "User to follow not found"); err != nil {
		return err
	}
	if err := s.users.AddFollow(ctx, actingID, targetID); err != nil {
		return userErr(err, "User not found")
	}
	publish(ctx, s.events, models.Event{Type: models.EventUserFollowed, UserID: actingID, TargetID: targetID})
	return nil
}

// Unfollow removes the edge in both directions. Missing edges are ignored.
func (s *UserService) Unfollow(ctx context.Context, targetID, actingID string) error {
	if err := s.checkPair(ctx, targetID, actingID, "You cannot unfollow yourself", "User to unfollow not found"); err != nil {
		return err
	}
	if err := s.users.RemoveFollow(ctx, actingID, targetID); err != nil {
		return userErr(err, "User not found")
	}
	publish(ctx, s.events, models.Event{Type: models.EventUserUnfollowed, UserID: actingID, TargetID: targetID})
	return nil
}

func (s *UserService) checkPair(ctx context.Context, targetID, actingID, selfMsg, missingMsg string) error {
	if targetID == actingID {
		return models.Validation(selfMsg)
	}
	if _, err := s.users.GetUser(ctx, actingID); err != nil {
		return userErr(err, "Logged in user not found")
	}
	if _, err := s.users.GetUser(ctx, targetID); err != nil {
		return userErr(err, missingMsg)
	}
	return nil
}

// Edit updates name, date of birth and location. Only the owner may edit.
func (s *UserService) Edit(ctx context.Context, userID, actingID string, in EditInput) error {
	if userID != actingID {
		return models.Forbidden("You are not authorized to edit this user's details")
	}
	if err := validate.Struct(in); err != nil {
		return validationError(err, "Name, date of birth, and location are required fields")
	}
	if err := s.users.UpdateProfile(ctx, userID, in.Name, in.DOB, in.Location); err != nil {
		return userErr(err, "User not found")
	}
	return nil
}

// SetProfilePicture stores the URL of an already saved image.
func (s *UserService) SetProfilePicture(ctx context.Context, userID, actingID, url string) (*models.PublicUser, error) {
	if userID != actingID {
		return nil, models.Forbidden("You are not authorized to update this user's profile picture")
	}
	if url == "" {
		return nil, models.Validation("Error: No file selected!")
	}
	user, err := s.users.SetProfilePicture(ctx, userID, url)
	if err != nil {
		return nil, userErr(err, "User not found")
	}
	pub := user.Public()
	return &pub, nil
}

// userErr maps a store miss to a NotFound with msg and wraps anything else.
func userErr(err error, msg string) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFound(msg)
	}
	if models.IsUserFacing(err) {
		return err
	}
	return fmt.Errorf("user store: %w", err)
}
