// Package playback serves videos the agent has downloaded, with HTTP range
// support so browsers can seek.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNotFound  = errors.New("video not found")
	ErrInvalidID = errors.New("invalid job id")
)

const videoExt = ".mp4"

// FileName is the name a finished job's video is saved under.
func FileName(jobID string) string {
	return jobID + videoExt
}

type Library struct {
	dir    string
	logger *slog.Logger
}

func NewLibrary(dir string, logger *slog.Logger) *Library {
	return &Library{dir: dir, logger: logger}
}

func (l *Library) Dir() string {
	return l.dir
}

// Path returns where jobID's video lives. Ids that could escape the
// library directory are rejected.
func (l *Library) Path(jobID string) (string, error) {
	if jobID == "" || jobID == "." || jobID == ".." || strings.ContainsAny(jobID, `/\`) {
		return "", ErrInvalidID
	}
	return filepath.Join(l.dir, FileName(jobID)), nil
}

// ServeVideo writes the downloaded video for jobID. Range and conditional
// requests are handled by http.ServeContent.
func (l *Library) ServeVideo(w http.ResponseWriter, r *http.Request, jobID string) error {
	path, err := l.Path(jobID)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to open video: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat video: %w", err)
	}
	if stat.IsDir() {
		return ErrNotFound
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
	return nil
}
