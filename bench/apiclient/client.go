// Package apiclient is a minimal JSON client for the tweet API used by
// the benchmarks.
package apiclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	Base string
	HTTP *http.Client
}

// New returns a client for base. insecure skips TLS verification for
// self-signed development certificates.
func New(base string, insecure bool) *Client {
	return &Client{
		Base: base,
		HTTP: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecure}, //nolint:gosec // bench only
				MaxIdleConnsPerHost: 256,
			},
			Timeout: 10 * time.Second,
		},
	}
}

// Session is a logged in user.
type Session struct {
	UserID   string
	Username string
	Token    string
}

// Do sends a JSON request and decodes a JSON response into out when non-nil.
// It returns the status code.
func (c *Client) Do(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return resp.StatusCode, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Signup registers a user and logs in.
func (c *Client) Signup(ctx context.Context, username string) (Session, error) {
	password := "bench-" + username
	status, err := c.Do(ctx, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": username, "email": username + "@bench.local", "username": username, "password": password,
	}, nil)
	if err != nil {
		return Session{}, err
	}
	if status != http.StatusCreated {
		return Session{}, fmt.Errorf("register %s: status %d", username, status)
	}

	var login struct {
		Result struct {
			Token string `json:"token"`
			User  struct {
				ID string `json:"_id"`
			} `json:"user"`
		} `json:"result"`
	}
	status, err = c.Do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username, "password": password,
	}, &login)
	if err != nil {
		return Session{}, err
	}
	if status != http.StatusOK {
		return Session{}, fmt.Errorf("login %s: status %d", username, status)
	}
	return Session{UserID: login.Result.User.ID, Username: username, Token: login.Result.Token}, nil
}

// CreateTweet posts content and returns the new tweet id.
func (c *Client) CreateTweet(ctx context.Context, s Session, content string) (string, int, error) {
	var out struct {
		Tweet struct {
			ID string `json:"_id"`
		} `json:"tweet"`
	}
	status, err := c.Do(ctx, http.MethodPost, "/api/tweet", s.Token, map[string]string{"content": content}, &out)
	return out.Tweet.ID, status, err
}
