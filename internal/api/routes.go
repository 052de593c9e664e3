package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iavido/iavido-agent/internal/export"
	"github.com/iavido/iavido-agent/internal/generation"
	"github.com/iavido/iavido-agent/internal/lifecycle"
	"github.com/iavido/iavido-agent/internal/playback"
)

const (
	defaultJobsLimit = 50
	maxJobsLimit     = 200
	maxBodyBytes     = 64 << 10
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(LoopbackGuard(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.History, cfg.Logger))

		r.Get("/state", stateHandler(cfg))
		r.Post("/generate", generateHandler(cfg))
		r.Post("/reset", resetHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.Get("/videos/{id}", videoHandler(cfg))
		r.Get("/script", scriptExportHandler(cfg))
		r.Get("/schema/generation-request", schemaHandler())
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func stateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, StateToResponse(cfg.Controller.State(), cfg.Controller.View()))
	}
}

func generateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Absent fields keep the form defaults.
		req := generation.NewRequest("")
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		id, err := cfg.Controller.Submit(r.Context(), req)
		switch {
		case err == nil:
			WriteJSON(w, http.StatusAccepted, GenerateResponse{JobID: id.String()})
		case errors.Is(err, generation.ErrInvalidRequest), errors.Is(err, lifecycle.ErrPromptRequired):
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		case errors.Is(err, lifecycle.ErrBusy):
			WriteError(w, http.StatusConflict, "a generation job is already running", "BUSY")
		default:
			cfg.Logger.Error("generation submit failed", "error", err)
			WriteError(w, http.StatusBadGateway, err.Error(), "JOB_SERVICE_ERROR")
		}
	}
}

func resetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Controller.Reset(); err != nil {
			if errors.Is(err, lifecycle.ErrBusy) {
				WriteError(w, http.StatusConflict, "cannot reset while a job is running", "BUSY")
				return
			}
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultJobsLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = min(n, maxJobsLimit)
		}

		jobs, err := cfg.History.ListJobs(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.History.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func scriptExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := cfg.Controller.State()
		if st.Script == nil {
			WriteError(w, http.StatusNotFound, "no script has been generated yet", "NOT_FOUND")
			return
		}

		format := r.URL.Query().Get("format")
		if format == "" {
			format = export.FormatSRT
		}

		media := st.VideoURL
		if media == "" {
			media = playback.FileName(st.JobID.String())
		} else if cfg.ResolveURL != nil {
			media = cfg.ResolveURL(media)
		}

		f, err := export.Render(st.Script, format, media)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		w.Header().Set("Content-Type", f.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
		w.WriteHeader(http.StatusOK)
		w.Write(f.Body)
	}
}

func videoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Videos == nil {
			WriteError(w, http.StatusNotFound, "video downloads are disabled", "NOT_FOUND")
			return
		}

		id := chi.URLParam(r, "id")
		err := cfg.Videos.ServeVideo(w, r, id)
		switch {
		case err == nil:
		case errors.Is(err, playback.ErrInvalidID):
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		case errors.Is(err, playback.ErrNotFound):
			WriteError(w, http.StatusNotFound, "video not downloaded", "NOT_FOUND")
		default:
			cfg.Logger.Error("playback error", "error", err, "job_id", id)
			WriteError(w, http.StatusInternalServerError, "failed to serve video", "INTERNAL_ERROR")
		}
	}
}

func schemaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schema, err := generation.RequestSchema()
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to build schema", "INTERNAL_ERROR")
			return
		}
		w.Header().Set("Content-Type", "application/schema+json")
		w.WriteHeader(http.StatusOK)
		w.Write(schema)
	}
}
