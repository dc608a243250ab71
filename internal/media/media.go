// Package media stores uploaded images under a directory and builds their
// public URLs.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/models"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var logg = logger.New()

const (
	RoutePrefix = "/files/"
	sniffLen    = 512
)

var (
	allowedExt  = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}
	allowedMIME = map[string]bool{"image/jpeg": true, "image/png": true}

	errImagesOnly = models.Validation("Error: Images only! (jpg, jpeg, png)")
	errNoFile     = models.NotFound("File not found")
)

// Stored describes a saved image.
type Stored struct {
	Filename string
	URL      string
}

// Store keeps images on an afero filesystem.
type Store struct {
	fs       afero.Fs
	dir      string
	baseURL  string
	maxBytes int64
}

// New prepares dir on fs. baseURL is the public origin of the server.
func New(fs afero.Fs, dir, baseURL string, maxBytes int64) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &Store{
		fs:       fs,
		dir:      dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
	}, nil
}

// NewOS stores images on the local disk.
func NewOS(dir, baseURL string, maxBytes int64) (*Store, error) {
	return New(afero.NewOsFs(), dir, baseURL, maxBytes)
}

// Save validates and writes the image read from r. originalName only
// contributes its extension.
func (s *Store) Save(originalName string, r io.Reader) (Stored, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !allowedExt[ext] {
		return Stored{}, errImagesOnly
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Stored{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return Stored{}, models.Validation(fmt.Sprintf("File too large (max %d bytes)", s.maxBytes))
	}
	if !allowedMIME[http.DetectContentType(data[:min(len(data), sniffLen)])] {
		return Stored{}, errImagesOnly
	}

	name := uuid.NewString() + ext
	if err := afero.WriteReader(s.fs, filepath.Join(s.dir, name), bytes.NewReader(data)); err != nil {
		return Stored{}, fmt.Errorf("failed to write upload: %w", err)
	}

	logg.Debug("media", "Stored image "+name)
	return Stored{Filename: name, URL: s.URL(name)}, nil
}

func (s *Store) URL(filename string) string {
	return s.baseURL + RoutePrefix + filename
}

// FilenameFromURL returns the stored filename for a URL built by this
// store, or "" for any other URL.
func (s *Store) FilenameFromURL(url string) string {
	prefix := s.baseURL + RoutePrefix
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	name := strings.TrimPrefix(url, prefix)
	if !validName(name) {
		return ""
	}
	return name
}

// Open returns the stored file and its info.
func (s *Store) Open(filename string) (afero.File, os.FileInfo, error) {
	if !validName(filename) {
		return nil, nil, errNoFile
	}
	f, err := s.fs.Open(filepath.Join(s.dir, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, errNoFile
		}
		return nil, nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		_ = f.Close()
		return nil, nil, errNoFile
	}
	return f, info, nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *Store) Remove(filename string) error {
	if !validName(filename) {
		return nil
	}
	err := s.fs.Remove(filepath.Join(s.dir, filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", filename, err)
	}
	return nil
}

// RemoveURL deletes the file behind url if this store owns it.
func (s *Store) RemoveURL(url string) error {
	name := s.FilenameFromURL(url)
	if name == "" {
		return nil
	}
	return s.Remove(name)
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		path.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
