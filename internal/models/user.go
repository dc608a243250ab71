package models

import "time"

// User is the stored user document. Password holds the bcrypt hash and is
// never serialized to JSON.
type User struct {
	ID             string    `json:"_id" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	Email          string    `json:"email" bson:"email"`
	Username       string    `json:"username" bson:"username"`
	Password       string    `json:"-" bson:"password"`
	DOB            string    `json:"dob,omitempty" bson:"dob,omitempty"`
	Location       string    `json:"location,omitempty" bson:"location,omitempty"`
	ProfilePicture string    `json:"profilePicture" bson:"profilePicture"`
	Followers      []string  `json:"followers" bson:"followers"`
	Following      []string  `json:"following" bson:"following"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser is a User without the password hash.
type PublicUser struct {
	ID             string    `json:"_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	DOB            string    `json:"dob,omitempty"`
	Location       string    `json:"location,omitempty"`
	ProfilePicture string    `json:"profilePicture"`
	Followers      []string  `json:"followers"`
	Following      []string  `json:"following"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UserInfo is the short profile returned on login.
type UserInfo struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Public strips the password hash.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Username:       u.Username,
		DOB:            u.DOB,
		Location:       u.Location,
		ProfilePicture: u.ProfilePicture,
		Followers:      nonNil(u.Followers),
		Following:      nonNil(u.Following),
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, Name: u.Name, Username: u.Username}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
