// Package history records every job this agent submitted and its outcome,
// plus a small key/value table for agent settings.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/iavido/iavido-agent/internal/generation"
)

const (
	StatusRunning   = "running"
	StatusDone      = "done"
	StatusError     = "error"
	StatusAbandoned = "abandoned"
)

type Record struct {
	JobID       string             `json:"job_id"`
	Request     generation.Request `json:"request"`
	Status      string             `json:"status"`
	Progress    int                `json:"progress"`
	Message     string             `json:"message,omitempty"`
	ScriptTitle string             `json:"script_title,omitempty"`
	SceneCount  int                `json:"scene_count"`
	VideoURL    string             `json:"video_url,omitempty"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Outcome is what gets written when a job ends.
type Outcome struct {
	Status      string
	Progress    int
	Message     string
	ScriptTitle string
	SceneCount  int
	VideoURL    string
	Error       string
}

type Repository interface {
	CreateJob(ctx context.Context, rec *Record) error
	GetJob(ctx context.Context, jobID string) (*Record, error)
	ListJobs(ctx context.Context, limit int) ([]*Record, error)
	FinishJob(ctx context.Context, jobID string, out Outcome) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const jobColumns = `job_id, prompt, num_scenes, enable_narration, enable_subtitles, enable_music, music_mood,
	status, progress, message, script_title, scene_count, video_url, error, created_at, updated_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.JobID, rec.Request.Prompt, rec.Request.NumScenes,
		boolToInt(rec.Request.EnableNarration), boolToInt(rec.Request.EnableSubtitles), boolToInt(rec.Request.EnableMusic),
		nullString(rec.Request.MusicMood), rec.Status, rec.Progress, nullString(rec.Message),
		nullString(rec.ScriptTitle), rec.SceneCount, nullString(rec.VideoURL), nullString(rec.Error),
		rec.CreatedAt.UTC().Format(time.RFC3339), rec.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, jobID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, jobID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *SQLiteRepository) FinishJob(ctx context.Context, jobID string, out Outcome) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, progress = ?, message = ?, script_title = ?, scene_count = ?,
			video_url = ?, error = ?, updated_at = ?
		WHERE job_id = ?
	`, out.Status, out.Progress, nullString(out.Message), nullString(out.ScriptTitle), out.SceneCount,
		nullString(out.VideoURL), nullString(out.Error), time.Now().UTC().Format(time.RFC3339), jobID)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	var rec Record
	var narration, subtitles, music int
	var mood, message, scriptTitle, videoURL, errMsg sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(&rec.JobID, &rec.Request.Prompt, &rec.Request.NumScenes,
		&narration, &subtitles, &music, &mood,
		&rec.Status, &rec.Progress, &message, &scriptTitle, &rec.SceneCount, &videoURL, &errMsg,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Request.EnableNarration = narration == 1
	rec.Request.EnableSubtitles = subtitles == 1
	rec.Request.EnableMusic = music == 1
	rec.Request.MusicMood = mood.String
	rec.Message = message.String
	rec.ScriptTitle = scriptTitle.String
	rec.VideoURL = videoURL.String
	rec.Error = errMsg.String
	rec.CreatedAt = parseTime(createdAt)
	rec.UpdatedAt = parseTime(updatedAt)
	return &rec, nil
}

// parseTime accepts RFC3339 and SQLite's datetime('now') format.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
