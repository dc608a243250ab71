package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/media"
	"example.com/tweetfeed/internal/middleware"
	"example.com/tweetfeed/internal/service"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var logg = logger.New()

// Server holds the handler dependencies.
type Server struct {
	auth   *service.AuthService
	users  *service.UserService
	tweets *service.TweetService
	media  *media.Store

	maxUpload int64
}

// Deps are the collaborators of the API layer.
type Deps struct {
	Auth   *service.AuthService
	Users  *service.UserService
	Tweets *service.TweetService
	Media  *media.Store

	MaxUploadBytes int64
}

func New(d Deps) *Server {
	return &Server{
		auth:      d.Auth,
		users:     d.Users,
		tweets:    d.Tweets,
		media:     d.Media,
		maxUpload: d.MaxUploadBytes,
	}
}

// Routes builds the router with JWT-protected and public endpoints.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
	})

	authed := middleware.JWTAuth(s.auth)
	protect := func(h http.HandlerFunc) http.Handler { return authed(h) }

	api := r.PathPrefix("/api").Subrouter()

	// Public endpoints
	api.HandleFunc("/auth/register", s.registerHandler).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.loginHandler).Methods(http.MethodPost)
	api.HandleFunc("/user/{id}", s.getUserHandler).Methods(http.MethodGet)
	api.HandleFunc("/user/{id}/tweets", s.userTweetsHandler).Methods(http.MethodGet)
	api.HandleFunc("/tweet", s.listTweetsHandler).Methods(http.MethodGet)
	api.HandleFunc("/tweet/{id}", s.getTweetHandler).Methods(http.MethodGet)

	// Protected endpoints
	api.Handle("/user/{id}", protect(s.editUserHandler)).Methods(http.MethodPut)
	api.Handle("/user/{id}/follow", protect(s.followHandler)).Methods(http.MethodPost)
	api.Handle("/user/{id}/unfollow", protect(s.unfollowHandler)).Methods(http.MethodPost)
	api.Handle("/user/{id}/uploadProfilePic", protect(s.uploadProfilePicHandler)).Methods(http.MethodPost)
	api.Handle("/tweet", protect(s.createTweetHandler)).Methods(http.MethodPost)
	api.Handle("/tweet/{id}", protect(s.deleteTweetHandler)).Methods(http.MethodDelete)
	api.Handle("/tweet/{id}/like", protect(s.likeHandler)).Methods(http.MethodPost)
	api.Handle("/tweet/{id}/dislike", protect(s.dislikeHandler)).Methods(http.MethodPost)
	api.Handle("/tweet/{id}/reply", protect(s.replyHandler)).Methods(http.MethodPost)
	api.Handle("/tweet/{id}/retweet", protect(s.retweetHandler)).Methods(http.MethodPost)

	r.HandleFunc("/files/{filename}", s.fileHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)

	return r
}

// Options configures the listener.
type Options struct {
	Addr     string
	CertFile string // TLS is enabled when both files are set
	KeyFile  string
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, s *Server, opts Options) error {
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second, // uploads need more than the headers
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)

	// --- Start server in a goroutine ---
	go func() {
		var err error
		if opts.CertFile != "" && opts.KeyFile != "" {
			logg.Info("server", "Starting HTTPS server on "+opts.Addr)
			err = srv.ListenAndServeTLS(opts.CertFile, opts.KeyFile)
		} else {
			logg.Info("server", "Starting HTTP server on "+opts.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// --- Graceful shutdown ---
	select {
	case err, ok := <-errCh:
		if ok {
			logg.Error("server", "Server stopped unexpectedly", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logg.Info("server", "Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server", "Error during server shutdown", err)
		return err
	}
	logg.Info("server", "Server stopped gracefully")
	return nil
}
