package api

import (
	"time"

	"github.com/iavido/iavido-agent/internal/history"
	"github.com/iavido/iavido-agent/internal/lifecycle"
	"github.com/iavido/iavido-agent/internal/presenter"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StateResponse struct {
	Phase    string         `json:"phase"`
	JobID    string         `json:"job_id,omitempty"`
	Progress int            `json:"progress"`
	Message  string         `json:"message,omitempty"`
	View     presenter.View `json:"view"`
}

type GenerateResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	JobID           string `json:"job_id"`
	Prompt          string `json:"prompt"`
	NumScenes       int    `json:"num_scenes"`
	EnableNarration bool   `json:"enable_narration"`
	EnableSubtitles bool   `json:"enable_subtitles"`
	EnableMusic     bool   `json:"enable_music"`
	MusicMood       string `json:"music_mood,omitempty"`
	Status          string `json:"status"`
	Progress        int    `json:"progress"`
	Message         string `json:"message,omitempty"`
	ScriptTitle     string `json:"script_title,omitempty"`
	SceneCount      int    `json:"scene_count"`
	VideoURL        string `json:"video_url,omitempty"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func StateToResponse(s lifecycle.State, v presenter.View) StateResponse {
	return StateResponse{
		Phase:    string(s.Phase),
		JobID:    s.JobID.String(),
		Progress: s.Progress,
		Message:  s.Message,
		View:     v,
	}
}

func JobToResponse(j *history.Record) JobResponse {
	return JobResponse{
		JobID:           j.JobID,
		Prompt:          j.Request.Prompt,
		NumScenes:       j.Request.NumScenes,
		EnableNarration: j.Request.EnableNarration,
		EnableSubtitles: j.Request.EnableSubtitles,
		EnableMusic:     j.Request.EnableMusic,
		MusicMood:       j.Request.MusicMood,
		Status:          j.Status,
		Progress:        j.Progress,
		Message:         j.Message,
		ScriptTitle:     j.ScriptTitle,
		SceneCount:      j.SceneCount,
		VideoURL:        j.VideoURL,
		Error:           j.Error,
		CreatedAt:       j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       j.UpdatedAt.Format(time.RFC3339),
	}
}
