// Package jobsim is an in-memory stand-in for the video job service. It
// serves the same generate/status/video endpoints and walks every job
// through the service's pipeline stages on a fixed step delay.
package jobsim

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/iavido/iavido-agent/internal/api"
	"github.com/iavido/iavido-agent/internal/generation"
)

// Service stage names, in pipeline order.
const (
	StagePending          = "pending"
	StageGeneratingScript = "generating_script"
	StageGeneratingImages = "generating_images"
	StageAssemblingVideo  = "assembling_video"
)

const (
	DefaultStepDelay = 500 * time.Millisecond

	sceneSeconds = 4
	maxBodyBytes = 64 << 10
)

// FailTrigger makes a job fail during image generation when it appears in
// the prompt.
const FailTrigger = "fail"

type Config struct {
	StepDelay time.Duration
	Logger    *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type Simulator struct {
	stepDelay time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.RWMutex
	jobs map[string]*job
}

type job struct {
	id      string
	req     generation.Request
	started time.Time
	stages  []generation.Status
}

type statusResponse struct {
	JobID string `json:"job_id"`
	generation.Status
}

func New(cfg Config) *Simulator {
	if cfg.StepDelay < 0 {
		cfg.StepDelay = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Simulator{
		stepDelay: cfg.StepDelay,
		logger:    cfg.Logger,
		now:       cfg.Now,
		jobs:      make(map[string]*job),
	}
}

func (s *Simulator) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(api.RequestIDMiddleware())
	r.Use(api.RecoveryMiddleware(s.logger))
	r.Use(api.LoggingMiddleware(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/status/{jobID}", s.handleStatus)
		r.Get("/video/{jobID}", s.handleVideo)
	})

	return r
}

// Status reports the stage job id is at right now.
func (s *Simulator) Status(id string) (generation.Status, bool) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return generation.Status{}, false
	}
	return j.at(s.now(), s.stepDelay), true
}

// Submit registers a job as if POST /api/generate had been called.
func (s *Simulator) Submit(req generation.Request) (string, error) {
	req = req.Normalize()
	if err := generation.Validate(req); err != nil {
		return "", err
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	j := &job{
		id:      id,
		req:     req,
		started: s.now(),
		stages:  pipeline(id, req),
	}

	s.mu.Lock()
	s.jobs[id] = j
	s.mu.Unlock()

	s.logger.Info("simulated job created", "job_id", id, "num_scenes", req.NumScenes, "stages", len(j.stages))
	return id, nil
}

func (s *Simulator) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req := generation.NewRequest("")
	if err := decodeJSON(w, r, &req); err != nil {
		api.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid JSON body"})
		return
	}

	id, err := s.Submit(req)
	if err != nil {
		api.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"job_id": id})
}

func (s *Simulator) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	st, ok := s.Status(id)
	if !ok {
		api.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Job not found"})
		return
	}
	api.WriteJSON(w, http.StatusOK, statusResponse{JobID: id, Status: st})
}

func (s *Simulator) handleVideo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	st, ok := s.Status(id)
	if !ok || st.Status != generation.StatusDone {
		api.WriteJSON(w, http.StatusNotFound, map[string]string{"detail": "Video not found"})
		return
	}

	body := placeholderVideo(id)
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".mp4"))
	w.Header().Set("Content-Length", fmt.Sprint(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// at returns the stage reached after the elapsed number of steps. The last
// stage is sticky.
func (j *job) at(now time.Time, step time.Duration) generation.Status {
	idx := len(j.stages) - 1
	if step > 0 {
		if n := int(now.Sub(j.started) / step); n < idx {
			idx = max(n, 0)
		}
	}
	st := j.stages[idx]
	st.Script = st.Script.Clone()
	return st
}

// pipeline lays out every status snapshot the job will report, mirroring
// the service: script, one image per scene, assembly, then done.
func pipeline(id string, req generation.Request) []generation.Status {
	script := buildScript(req)
	n := len(script.Scenes)

	stages := []generation.Status{
		{Status: StagePending, Progress: 0, Message: "Starting..."},
		{Status: StageGeneratingScript, Progress: 10, Message: "Writing the script..."},
		{Status: StageGeneratingScript, Progress: 20, Message: "Script ready!", Script: script},
	}

	for i := 0; i < n; i++ {
		stages = append(stages, generation.Status{
			Status:   StageGeneratingImages,
			Progress: 25 + i*50/n,
			Message:  fmt.Sprintf("Generating image %d/%d...", i+1, n),
			Script:   script,
		})

		if i == n/2 && strings.Contains(strings.ToLower(req.Prompt), FailTrigger) {
			stages = append(stages, generation.Status{
				Status:   generation.StatusError,
				Progress: 25 + i*50/n,
				Message:  fmt.Sprintf("Error: image generation failed for scene %d", i+1),
				Script:   script,
			})
			return stages
		}
	}

	return append(stages,
		generation.Status{Status: StageAssemblingVideo, Progress: 80, Message: "Assembling the video...", Script: script},
		generation.Status{
			Status:   generation.StatusDone,
			Progress: 100,
			Message:  "Video finished!",
			Script:   script,
			VideoURL: "/api/video/" + id,
		},
	)
}

func buildScript(req generation.Request) *generation.Script {
	script := &generation.Script{
		Title:       titleFor(req.Prompt),
		Description: fmt.Sprintf("A %d-scene short video about %s.", req.NumScenes, req.Prompt),
	}
	for i := 1; i <= req.NumScenes; i++ {
		script.Scenes = append(script.Scenes, generation.Scene{
			SceneNumber:     i,
			Narration:       fmt.Sprintf("Part %d of the story of %s.", i, req.Prompt),
			VisualPrompt:    fmt.Sprintf("%s, scene %d, cinematic lighting", req.Prompt, i),
			DurationSeconds: sceneSeconds,
		})
	}
	return script
}

func titleFor(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) > 6 {
		words = words[:6]
	}
	return cases.Title(language.Und).String(strings.Join(words, " "))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

// placeholderVideo is a tiny ISO-BMFF ftyp box followed by the job id. It is
// not playable; it only lets downloads be exercised end to end.
func placeholderVideo(id string) []byte {
	ftyp := []byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm', 0, 0, 2, 0, 'i', 's', 'o', 'm', 'm', 'p', '4', '1'}
	return append(ftyp, []byte(id)...)
}
