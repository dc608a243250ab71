package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"example.com/tweetfeed/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cqlCall struct {
	stmt   string
	values []interface{}
}

// fakeCQL records statements. An error or a false CAS result is returned
// for the first statement containing the matching key.
type fakeCQL struct {
	mu       sync.Mutex
	calls    []cqlCall
	failOn   map[string]error
	rejectOn map[string]bool
	rows     [][]interface{}
}

func (f *fakeCQL) record(stmt string, values []interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stmt = strings.Join(strings.Fields(stmt), " ")
	f.calls = append(f.calls, cqlCall{stmt: stmt, values: values})
	for key, err := range f.failOn {
		if strings.Contains(stmt, key) {
			return err
		}
	}
	return nil
}

func (f *fakeCQL) Exec(_ context.Context, stmt string, values ...interface{}) error {
	return f.record(stmt, values)
}

func (f *fakeCQL) ExecCAS(_ context.Context, stmt string, values ...interface{}) (bool, error) {
	if err := f.record(stmt, values); err != nil {
		return false, err
	}
	stmt = strings.Join(strings.Fields(stmt), " ")
	for key, reject := range f.rejectOn {
		if reject && strings.Contains(stmt, key) {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeCQL) Iter(_ context.Context, stmt string, values ...interface{}) Rows {
	err := f.record(stmt, values)
	return &fakeRows{rows: f.rows, err: err}
}

// statements returns the recorded statements that start with prefix.
func (f *fakeCQL) statements(prefix string) []cqlCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cqlCall
	for _, c := range f.calls {
		if strings.HasPrefix(c.stmt, prefix) {
			out = append(out, c)
		}
	}
	return out
}

type fakeRows struct {
	rows [][]interface{}
	err  error
}

func (r *fakeRows) Scan(dest ...interface{}) bool {
	if r.err != nil || len(r.rows) == 0 {
		return false
	}
	row := r.rows[0]
	r.rows = r.rows[1:]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *[]string:
			*p = row[i].([]string)
		}
	}
	return true
}

func (r *fakeRows) Close() error { return r.err }

func newFakeCassandra(f *fakeCQL) *CassandraStore {
	return &CassandraStore{cql: f}
}

func TestCassandraCreateUser_ClaimsThenWritesRow(t *testing.T) {
	f := &fakeCQL{}
	s := newFakeCassandra(f)

	u := &models.User{Name: "Alice", Email: "alice@example.com", Username: "alice", Password: "hash"}
	require.NoError(t, s.CreateUser(context.Background(), u))

	require.Len(t, f.calls, 3)
	assert.True(t, strings.HasPrefix(f.calls[0].stmt, "INSERT INTO users_by_username"))
	assert.True(t, strings.HasSuffix(f.calls[0].stmt, "IF NOT EXISTS"))
	assert.True(t, strings.HasPrefix(f.calls[1].stmt, "INSERT INTO users_by_email"))
	assert.True(t, strings.HasPrefix(f.calls[2].stmt, "INSERT INTO users ("))

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, u.ID, f.calls[0].values[1])
	assert.Equal(t, u.ID, f.calls[1].values[1])
	assert.Empty(t, f.statements("DELETE"))
}

func TestCassandraCreateUser_RowFailureReleasesBothClaims(t *testing.T) {
	rowErr := errors.New("write timeout")
	f := &fakeCQL{failOn: map[string]error{"INSERT INTO users (": rowErr}}
	s := newFakeCassandra(f)

	u := &models.User{Name: "Alice", Email: "alice@example.com", Username: "alice"}
	err := s.CreateUser(context.Background(), u)
	require.ErrorIs(t, err, rowErr)
	assert.Empty(t, u.ID)

	claimID := f.calls[0].values[1]
	releases := f.statements("DELETE")
	require.Len(t, releases, 2)
	assert.Equal(t, "DELETE FROM users_by_email WHERE email = ? IF user_id = ?", releases[0].stmt)
	assert.Equal(t, []interface{}{"alice@example.com", claimID}, releases[0].values)
	assert.Equal(t, "DELETE FROM users_by_username WHERE username = ? IF user_id = ?", releases[1].stmt)
	assert.Equal(t, []interface{}{"alice", claimID}, releases[1].values)
}

func TestCassandraCreateUser_EmailTakenReleasesUsername(t *testing.T) {
	f := &fakeCQL{rejectOn: map[string]bool{"INSERT INTO users_by_email": true}}
	s := newFakeCassandra(f)

	err := s.CreateUser(context.Background(), &models.User{Email: "taken@example.com", Username: "bob"})
	require.ErrorIs(t, err, models.ErrConflict)
	assert.EqualError(t, err, "User with this email already registered")

	releases := f.statements("DELETE")
	require.Len(t, releases, 1)
	assert.Contains(t, releases[0].stmt, "users_by_username")
	assert.Empty(t, f.statements("INSERT INTO users ("))
}

func TestCassandraCreateUser_UsernameTakenWritesNothingElse(t *testing.T) {
	f := &fakeCQL{rejectOn: map[string]bool{"INSERT INTO users_by_username": true}}
	s := newFakeCassandra(f)

	err := s.CreateUser(context.Background(), &models.User{Email: "a@example.com", Username: "taken"})
	assert.EqualError(t, err, "User with this username already registered")
	assert.Len(t, f.calls, 1)
}

func TestCassandraPullReplyReferences(t *testing.T) {
	f := &fakeCQL{
		rows: [][]interface{}{
			{"p1", []string{"r1", "doomed"}},
			{"p2", []string{"r2"}},
			{"p3", []string{"doomed"}},
			{"p4", []string{}},
		},
	}
	s := newFakeCassandra(f)

	changed, err := s.PullReplyReferences(context.Background(), "doomed")
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	require.Len(t, f.statements("SELECT tweet_id, replies FROM tweets"), 1)
	updates := f.statements("UPDATE tweets SET replies = replies - ?")
	require.Len(t, updates, 2)
	assert.Equal(t, []string{"doomed"}, updates[0].values[0])
	assert.Equal(t, "p1", updates[0].values[2])
	assert.Equal(t, "p3", updates[1].values[2])
	for _, u := range updates {
		assert.True(t, strings.HasSuffix(u.stmt, "IF EXISTS"))
	}
}

func TestCassandraPullReplyReferences_SkipsVanishedParents(t *testing.T) {
	f := &fakeCQL{
		rows:     [][]interface{}{{"gone", []string{"doomed"}}},
		rejectOn: map[string]bool{"UPDATE tweets": true},
	}
	s := newFakeCassandra(f)

	changed, err := s.PullReplyReferences(context.Background(), "doomed")
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestCassandraPullReplyReferences_ScanError(t *testing.T) {
	scanErr := errors.New("unavailable")
	f := &fakeCQL{failOn: map[string]error{"SELECT tweet_id, replies": scanErr}}
	s := newFakeCassandra(f)

	_, err := s.PullReplyReferences(context.Background(), "doomed")
	assert.ErrorIs(t, err, scanErr)
	assert.Empty(t, f.statements("UPDATE"))
}
