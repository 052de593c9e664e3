package playback

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName("abc")), []byte("0123456789"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return NewLibrary(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLibrary_Path(t *testing.T) {
	lib := NewLibrary("/data/downloads", nil)

	got, err := lib.Path("abc123")
	if err != nil || got != filepath.Join("/data/downloads", "abc123.mp4") {
		t.Fatalf("Path() = %q, %v", got, err)
	}

	for _, id := range []string{"", ".", "..", "../etc/passwd", `a\b`, "a/b"} {
		if _, err := lib.Path(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("Path(%q) error = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestServeVideo_Full(t *testing.T) {
	lib := newTestLibrary(t)

	rr := httptest.NewRecorder()
	if err := lib.ServeVideo(rr, httptest.NewRequest(http.MethodGet, "/videos/abc", nil), "abc"); err != nil {
		t.Fatalf("ServeVideo() error = %v", err)
	}

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "video/mp4" {
		t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
	if rr.Body.String() != "0123456789" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestServeVideo_Range(t *testing.T) {
	lib := newTestLibrary(t)

	req := httptest.NewRequest(http.MethodGet, "/videos/abc", nil)
	req.Header.Set("Range", "bytes=2-5")
	rr := httptest.NewRecorder()
	if err := lib.ServeVideo(rr, req, "abc"); err != nil {
		t.Fatalf("ServeVideo() error = %v", err)
	}

	if rr.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rr.Code)
	}
	if rr.Body.String() != "2345" {
		t.Errorf("body = %q, want 2345", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeVideo_Unsatisfiable(t *testing.T) {
	lib := newTestLibrary(t)

	req := httptest.NewRequest(http.MethodGet, "/videos/abc", nil)
	req.Header.Set("Range", "bytes=50-60")
	rr := httptest.NewRecorder()
	lib.ServeVideo(rr, req, "abc")

	if rr.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rr.Code)
	}
}

func TestServeVideo_Missing(t *testing.T) {
	lib := newTestLibrary(t)

	rr := httptest.NewRecorder()
	err := lib.ServeVideo(rr, httptest.NewRequest(http.MethodGet, "/videos/nope", nil), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("ServeVideo() error = %v, want ErrNotFound", err)
	}
}
