package server

import (
	"errors"
	"net/http"

	"example.com/tweetfeed/internal/media"
	"example.com/tweetfeed/internal/models"
	"github.com/gorilla/mux"
)

// multipart overhead allowed on top of the image limit
const formSlack = 1 << 20

// saveUpload stores the file in form field name. ok is false when the
// request carries no such file.
func (s *Server) saveUpload(w http.ResponseWriter, r *http.Request, field string) (media.Stored, bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+formSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return media.Stored{}, false, models.Validation("File too large")
		}
		return media.Stored{}, false, models.Validation("Invalid multipart form")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return media.Stored{}, false, nil
		}
		return media.Stored{}, false, models.Validation("Invalid upload")
	}
	defer file.Close()

	stored, err := s.media.Save(header.Filename, file)
	if err != nil {
		return media.Stored{}, false, err
	}
	return stored, true, nil
}

// discard removes a file whose owning document was not written.
func (s *Server) discard(filename string) {
	if filename == "" {
		return
	}
	if err := s.media.Remove(filename); err != nil {
		logg.Error("http/files", "Failed to remove orphaned upload", err)
	}
}

// fileHandler streams a stored image as an attachment.
func (s *Server) fileHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	f, info, err := s.media.Open(name)
	if err != nil {
		writeError(w, "http/files", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
