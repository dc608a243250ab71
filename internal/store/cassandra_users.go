package store

import (
	"context"
	"errors"
	"time"

	"example.com/tweetfeed/internal/models"
	"github.com/gocql/gocql"
)

const userColumns = `user_id, name, email, username, password, dob, location,
	profile_picture, followers, following, created_at, updated_at`

func userDest(u *models.User) []interface{} {
	return []interface{}{
		&u.ID, &u.Name, &u.Email, &u.Username, &u.Password, &u.DOB, &u.Location,
		&u.ProfilePicture, &u.Followers, &u.Following, &u.CreatedAt, &u.UpdatedAt,
	}
}

// --- User operations ---

// CreateUser claims the username and the email with lightweight
// transactions before writing the user row, so two concurrent
// registrations cannot both win. Claims taken by a failed registration
// are released.
func (s *CassandraStore) CreateUser(ctx context.Context, u *models.User) error {
	id := gocql.TimeUUID().String()
	cql := s.runner()

	ok, err := cql.ExecCAS(ctx, `
		INSERT INTO users_by_username (username, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		u.Username, id,
	)
	if err != nil {
		logg.Error("store", "Failed to claim username", err)
		return err
	}
	if !ok {
		return models.Conflict("User with this username already registered")
	}

	ok, err = cql.ExecCAS(ctx, `
		INSERT INTO users_by_email (email, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		u.Email, id,
	)
	if err != nil || !ok {
		s.releaseClaim(ctx, "users_by_username", "username", u.Username, id)
		if err != nil {
			logg.Error("store", "Failed to claim email", err)
			return err
		}
		return models.Conflict("User with this email already registered")
	}

	now := time.Now().UTC()
	if err := cql.Exec(ctx, `
		INSERT INTO users (user_id, name, email, username, password, profile_picture, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, u.Name, u.Email, u.Username, u.Password, u.ProfilePicture, now, now,
	); err != nil {
		logg.Error("store", "Failed to create user in main table", err)
		s.releaseClaim(ctx, "users_by_email", "email", u.Email, id)
		s.releaseClaim(ctx, "users_by_username", "username", u.Username, id)
		return err
	}

	u.ID = id
	u.CreatedAt, u.UpdatedAt = now, now
	u.Followers, u.Following = []string{}, []string{}
	logg.Info("store", "User created successfully (username anonymized)")
	return nil
}

// releaseClaim deletes a uniqueness claim only if it still belongs to id.
func (s *CassandraStore) releaseClaim(ctx context.Context, table, column, value, id string) {
	if _, err := s.runner().ExecCAS(ctx,
		`DELETE FROM `+table+` WHERE `+column+` = ? IF user_id = ?`,
		value, id,
	); err != nil {
		logg.Error("store", "Failed to release "+column+" claim", err)
	}
}

func (s *CassandraStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.Session.Query(
		`SELECT `+userColumns+` FROM users WHERE user_id = ?`, id,
	).WithContext(ctx).Scan(userDest(&u)...)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		logg.Error("store", "Failed to query user", err)
		return nil, err
	}
	return &u, nil
}

func (s *CassandraStore) lookupID(ctx context.Context, table, column, value string) (string, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM `+table+` WHERE `+column+` = ?`, value,
	).WithContext(ctx).Scan(&id)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return "", models.ErrNotFound
		}
		logg.Error("store", "Failed to query "+table, err)
		return "", err
	}
	return id, nil
}

func (s *CassandraStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	id, err := s.lookupID(ctx, "users_by_username", "username", username)
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *CassandraStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	id, err := s.lookupID(ctx, "users_by_email", "email", email)
	if err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *CassandraStore) GetUsers(ctx context.Context, ids []string) (map[string]models.User, error) {
	ids = uniqueIDs(ids)
	res := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return res, nil
	}

	iter := s.Session.Query(
		`SELECT `+userColumns+` FROM users WHERE user_id IN ?`, ids,
	).WithContext(ctx).Iter()

	var u models.User
	for iter.Scan(userDest(&u)...) {
		res[u.ID] = u
		u = models.User{}
	}
	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to get users", err)
		return nil, err
	}
	return res, nil
}

func (s *CassandraStore) UpdateProfile(ctx context.Context, id, name, dob, location string) error {
	ok, err := s.runner().ExecCAS(ctx, `
		UPDATE users SET name = ?, dob = ?, location = ?, updated_at = ?
		WHERE user_id = ? IF EXISTS`,
		name, dob, location, time.Now().UTC(), id,
	)
	if err != nil {
		logg.Error("store", "Failed to update user profile", err)
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	return nil
}

func (s *CassandraStore) SetProfilePicture(ctx context.Context, id, url string) (*models.User, error) {
	ok, err := s.runner().ExecCAS(ctx, `
		UPDATE users SET profile_picture = ?, updated_at = ?
		WHERE user_id = ? IF EXISTS`,
		url, time.Now().UTC(), id,
	)
	if err != nil {
		logg.Error("store", "Failed to set profile picture", err)
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	return s.GetUser(ctx, id)
}

// --- Follow operations ---

func (s *CassandraStore) AddFollow(ctx context.Context, actingID, targetID string) error {
	return s.followBatch(ctx, "+", actingID, targetID)
}

func (s *CassandraStore) RemoveFollow(ctx context.Context, actingID, targetID string) error {
	return s.followBatch(ctx, "-", actingID, targetID)
}

func (s *CassandraStore) followBatch(ctx context.Context, op, actingID, targetID string) error {
	now := time.Now().UTC()
	batch := s.Session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`UPDATE users SET following = following `+op+` ?, updated_at = ? WHERE user_id = ?`,
		[]string{targetID}, now, actingID)
	batch.Query(`UPDATE users SET followers = followers `+op+` ?, updated_at = ? WHERE user_id = ?`,
		[]string{actingID}, now, targetID)

	if err := s.Session.ExecuteBatch(batch); err != nil {
		logg.Error("store", "Failed to update follow relationship", err)
		return err
	}

	logg.Info("store", "Follow relationship updated (user IDs anonymized)")
	return nil
}
