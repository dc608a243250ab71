package server

import (
	"mime"
	"net/http"
	"strings"

	"example.com/tweetfeed/internal/media"
	"github.com/gorilla/mux"
)

// createTweetHandler accepts {"content"} as JSON, or a multipart form with
// "content" and an optional "image" file.
func (s *Server) createTweetHandler(w http.ResponseWriter, r *http.Request) {
	var content string
	var stored media.Stored

	if isMultipart(r) {
		saved, ok, err := s.saveUpload(w, r, "image")
		if err != nil {
			writeError(w, "http/tweets", err)
			return
		}
		if ok {
			stored = saved
		}
		content = r.FormValue("content")
	} else {
		var in struct {
			Content string `json:"content"`
		}
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, "http/tweets", err)
			return
		}
		content = in.Content
	}

	tweet, err := s.tweets.Create(r.Context(), content, actingUserID(r), stored.URL)
	if err != nil {
		s.discard(stored.Filename)
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Tweet created successfully", "tweet": tweet})
}

func (s *Server) likeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.tweets.Like(r.Context(), mux.Vars(r)["id"], actingUserID(r)); err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Tweet liked successfully"})
}

func (s *Server) dislikeHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.tweets.Unlike(r.Context(), mux.Vars(r)["id"], actingUserID(r)); err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Tweet disliked successfully"})
}

func (s *Server) retweetHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.tweets.Retweet(r.Context(), mux.Vars(r)["id"], actingUserID(r)); err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Retweet successful"})
}

// replyHandler expects {"content"}.
func (s *Server) replyHandler(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	reply, err := s.tweets.Reply(r.Context(), mux.Vars(r)["id"], in.Content, actingUserID(r))
	if err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Reply added successfully", "replyId": reply.ID})
}

func (s *Server) getTweetHandler(w http.ResponseWriter, r *http.Request) {
	tweet, err := s.tweets.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusOK, tweet)
}

func (s *Server) listTweetsHandler(w http.ResponseWriter, r *http.Request) {
	tweets, err := s.tweets.List(r.Context())
	if err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusOK, tweets)
}

func (s *Server) deleteTweetHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tweets.Delete(r.Context(), mux.Vars(r)["id"], actingUserID(r)); err != nil {
		writeError(w, "http/tweets", err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Tweet deleted successfully"})
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}
