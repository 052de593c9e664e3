// Package generation holds the data exchanged with the video job service:
// the request a user submits and the status snapshots returned while the
// job runs.
package generation

import (
	"sort"
	"strings"
)

const (
	MinScenes     = 1
	MaxScenes     = 10
	DefaultScenes = 5

	MoodAmbient   = "ambient"
	MoodUpbeat    = "upbeat"
	MoodCinematic = "cinematic"

	DefaultMood = MoodAmbient
)

// Status values reported by the job service. Anything that is not done or
// error is an in-progress stage and is treated as running.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// JobID is the opaque identifier the job service assigns on submission.
type JobID string

func (id JobID) String() string {
	return string(id)
}

// Request is the payload sent to POST /api/generate.
// It matches the service's GenerateRequest model.
type Request struct {
	Prompt          string `json:"prompt" validate:"required,notblank,max=2000" jsonschema:"minLength=1,maxLength=2000,description=Idea the video is generated from"`
	NumScenes       int    `json:"num_scenes" validate:"min=1,max=10" jsonschema:"minimum=1,maximum=10,default=5"`
	EnableNarration bool   `json:"enable_narration" jsonschema:"default=true"`
	EnableSubtitles bool   `json:"enable_subtitles" jsonschema:"default=true"`
	EnableMusic     bool   `json:"enable_music" jsonschema:"default=true"`
	MusicMood       string `json:"music_mood,omitempty" validate:"omitempty,oneof=ambient upbeat cinematic" jsonschema:"enum=ambient,enum=upbeat,enum=cinematic,default=ambient"`
}

// NewRequest returns a request with the same defaults as the web form.
func NewRequest(prompt string) Request {
	return Request{
		Prompt:          prompt,
		NumScenes:       DefaultScenes,
		EnableNarration: true,
		EnableSubtitles: true,
		EnableMusic:     true,
		MusicMood:       DefaultMood,
	}
}

// Normalize trims the prompt and drops the music mood when music is off.
// A missing mood with music enabled falls back to DefaultMood.
func (r Request) Normalize() Request {
	r.Prompt = strings.TrimSpace(r.Prompt)
	if !r.EnableMusic {
		r.MusicMood = ""
	} else if r.MusicMood == "" {
		r.MusicMood = DefaultMood
	}
	return r
}

// Status is one snapshot returned by GET /api/status/{job_id}.
type Status struct {
	Status   string  `json:"status"`
	Progress int     `json:"progress"`
	Message  string  `json:"message"`
	Script   *Script `json:"script,omitempty"`
	VideoURL string  `json:"video_url,omitempty"`
}

// IsTerminal reports whether no further polling should happen for the job.
func (s Status) IsTerminal() bool {
	return s.Status == StatusDone || s.Status == StatusError
}

// Phase folds the service's intermediate stage names into running.
func (s Status) Phase() string {
	switch s.Status {
	case StatusDone, StatusError:
		return s.Status
	default:
		return StatusRunning
	}
}

type Script struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Scenes      []Scene `json:"scenes"`
}

type Scene struct {
	SceneNumber     int    `json:"scene_number"`
	Narration       string `json:"narration"`
	VisualPrompt    string `json:"visual_prompt"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

// OrderedScenes returns a copy of the scenes sorted by scene number.
// Scenes sharing a number keep their original order.
func (s *Script) OrderedScenes() []Scene {
	if s == nil {
		return nil
	}
	out := make([]Scene, len(s.Scenes))
	copy(out, s.Scenes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SceneNumber < out[j].SceneNumber
	})
	return out
}

// Clone returns a deep copy so snapshots never share the scenes slice.
func (s *Script) Clone() *Script {
	if s == nil {
		return nil
	}
	c := *s
	c.Scenes = append([]Scene(nil), s.Scenes...)
	return &c
}
