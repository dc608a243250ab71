package server

import (
	"net/http"

	"example.com/tweetfeed/internal/service"
	"github.com/gorilla/mux"
)

// --- Auth ---

// registerHandler expects {"name","email","username","password"}.
func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "http/auth", err)
		return
	}
	if _, err := s.auth.Register(r.Context(), in); err != nil {
		writeError(w, "http/auth", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"result": "User Signed up Successfully!"})
}

// loginHandler expects {"username","password"} and returns the token and
// a short profile.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "http/auth", err)
		return
	}
	res, err := s.auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, "http/auth", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": res})
}

// --- Users ---

func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "http/users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Follow(r.Context(), mux.Vars(r)["id"], actingUserID(r)); err != nil {
		writeError(w, "http/users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Unfollow(r.Context(), mux.Vars(r)["id"], actingUserID(r)); err != nil {
		writeError(w, "http/users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// editUserHandler expects {"name","dob","location"}.
func (s *Server) editUserHandler(w http.ResponseWriter, r *http.Request) {
	var in service.EditInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, "http/users", err)
		return
	}
	if err := s.users.Edit(r.Context(), mux.Vars(r)["id"], actingUserID(r), in); err != nil {
		writeError(w, "http/users", err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "User details updated successfully"})
}

func (s *Server) userTweetsHandler(w http.ResponseWriter, r *http.Request) {
	tweets, err := s.tweets.ListByUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, "http/users", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tweets": tweets})
}

// uploadProfilePicHandler expects a multipart form with a "profilePic" file.
func (s *Server) uploadProfilePicHandler(w http.ResponseWriter, r *http.Request) {
	acting := actingUser(r)
	stored, ok, err := s.saveUpload(w, r, "profilePic")
	if err != nil {
		writeError(w, "http/users", err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Error: No file selected!"})
		return
	}

	user, err := s.users.SetProfilePicture(r.Context(), mux.Vars(r)["id"], acting.ID, stored.URL)
	if err != nil {
		s.discard(stored.Filename)
		writeError(w, "http/users", err)
		return
	}

	if prev := acting.ProfilePicture; prev != "" && prev != stored.URL {
		if err := s.media.RemoveURL(prev); err != nil {
			logg.Error("http/users", "Failed to remove previous profile picture", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile picture uploaded successfully",
		"user":    user,
	})
}
