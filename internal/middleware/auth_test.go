package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/tweetfeed/internal/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	users map[string]*models.User
	err   error
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[token]
	if !ok {
		return nil, models.Unauthorized("Unauthorized: Invalid token")
	}
	return u, nil
}

func protected(auth Authenticator) http.Handler {
	return JWTAuth(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(id))
	}))
}

func do(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestJWTAuth(t *testing.T) {
	h := protected(&fakeAuth{users: map[string]*models.User{"good": {ID: "user_1"}}})

	rr := do(h, "Bearer good")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user_1", rr.Body.String())

	rr = do(h, "bearer good")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(h, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "User not logged in", errorBody(t, rr))

	for _, header := range []string{"good", "Basic good", "Bearer ", "Bearer bad"} {
		rr = do(h, header)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, header)
		assert.Equal(t, "Unauthorized: Invalid token", errorBody(t, rr), header)
	}
}

func TestJWTAuth_InternalError(t *testing.T) {
	h := protected(&fakeAuth{err: errors.New("store down")})
	rr := do(h, "Bearer whatever")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal server error", errorBody(t, rr))
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)
	_, ok = UserIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestInstrument_UsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Instrument)
	var seen string
	r.HandleFunc("/api/tweet/{id}", func(w http.ResponseWriter, req *http.Request) {
		seen = routeTemplate(req)
		w.WriteHeader(http.StatusAccepted)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tweet/abc", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "/api/tweet/{id}", seen)

	assert.Equal(t, "unmatched", routeTemplate(httptest.NewRequest(http.MethodGet, "/x", nil)))
}
