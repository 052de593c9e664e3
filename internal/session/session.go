// Package session owns the one active generation job. It ties the job
// client, the poller, the lifecycle machine, the presenter and the history
// store together.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iavido/iavido-agent/internal/generation"
	"github.com/iavido/iavido-agent/internal/history"
	"github.com/iavido/iavido-agent/internal/jobclient"
	"github.com/iavido/iavido-agent/internal/lifecycle"
	"github.com/iavido/iavido-agent/internal/logging"
	"github.com/iavido/iavido-agent/internal/playback"
	"github.com/iavido/iavido-agent/internal/poller"
	"github.com/iavido/iavido-agent/internal/presenter"
)

var (
	// ErrBusy is returned by Submit and Reset while a job is in flight.
	ErrBusy = lifecycle.ErrBusy

	ErrNoVideo = errors.New("no finished video to download")
)

const historyTimeout = 5 * time.Second

type Config struct {
	Client     jobclient.Client
	Downloader jobclient.Downloader
	Poller     *poller.Poller
	Presenter  *presenter.Presenter
	History    history.Repository
	Logger     *slog.Logger
}

type Session struct {
	client     jobclient.Client
	downloader jobclient.Downloader
	poller     *poller.Poller
	machine    *lifecycle.Machine
	history    history.Repository
	logger     *slog.Logger

	baseCtx context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	handle *poller.Handle
}

func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		client:     cfg.Client,
		downloader: cfg.Downloader,
		poller:     cfg.Poller,
		machine:    lifecycle.NewMachine(),
		history:    cfg.History,
		logger:     logging.WithComponent(logger, "session"),
		baseCtx:    ctx,
		stop:       cancel,
	}

	if cfg.Presenter != nil {
		s.machine.Subscribe(func(st lifecycle.State) {
			cfg.Presenter.Present(st)
		})
		cfg.Presenter.Present(s.machine.State())
	}
	return s
}

// State returns the current lifecycle snapshot.
func (s *Session) State() lifecycle.State {
	return s.machine.State()
}

// View renders the current state without touching any surface.
func (s *Session) View() presenter.View {
	return presenter.Render(s.machine.State())
}

// Submit sends req to the job service and starts polling the new job. A
// finished job is reset first; an active one makes Submit fail with ErrBusy.
func (s *Session) Submit(ctx context.Context, req generation.Request) (generation.JobID, error) {
	req = req.Normalize()
	if err := generation.Validate(req); err != nil {
		return "", err
	}

	s.mu.Lock()
	current := s.machine.State()
	if current.Phase.IsActive() {
		s.mu.Unlock()
		return "", ErrBusy
	}
	previous := s.handle
	s.handle = nil
	if current.Phase.IsTerminal() {
		s.machine.Reset()
	}
	if err := s.machine.Begin(req); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.mu.Unlock()

	if previous != nil {
		previous.Cancel()
	}

	id, err := s.client.Submit(ctx, req)
	if err != nil {
		s.logger.Error("generation submit failed", "error", err)
		s.machine.SubmitFailed(err)
		return "", fmt.Errorf("submit generation: %w", err)
	}

	s.machine.Submitted(id)
	s.recordSubmitted(id, req)

	logging.WithJobID(s.logger, id.String()).Info("generation job started", "num_scenes", req.NumScenes, "poll_interval", s.poller.Interval())

	s.mu.Lock()
	s.handle = s.poller.Start(s.baseCtx, id, s.handleUpdate(id), s.handleError(id))
	s.mu.Unlock()

	return id, nil
}

// Reset returns a finished job to Idle. It reports ErrBusy while a job is
// active and is a no-op when already idle.
func (s *Session) Reset() error {
	s.mu.Lock()
	if s.machine.State().Phase.IsActive() {
		s.mu.Unlock()
		return ErrBusy
	}
	s.machine.Reset()
	previous := s.handle
	s.handle = nil
	s.mu.Unlock()

	if previous != nil {
		previous.Cancel()
	}
	return nil
}

// Wait blocks until the current job stops polling or ctx ends, and returns
// the state at that point.
func (s *Session) Wait(ctx context.Context) (lifecycle.State, error) {
	s.mu.Lock()
	h := s.handle
	s.mu.Unlock()

	if h == nil {
		return s.machine.State(), nil
	}

	select {
	case <-h.Done():
		return s.machine.State(), nil
	case <-ctx.Done():
		return s.machine.State(), ctx.Err()
	}
}

// Download saves the finished video into dir under playback.FileName.
func (s *Session) Download(ctx context.Context, dir string) (string, error) {
	st := s.machine.State()
	if st.Phase != lifecycle.PhaseDone || st.VideoURL == "" {
		return "", ErrNoVideo
	}
	if s.downloader == nil {
		return "", fmt.Errorf("download not supported by job client")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(dir, playback.FileName(st.JobID.String()))
	tmp := path + ".part"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create video file: %w", err)
	}

	n, err := s.downloader.Download(ctx, st.VideoURL, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("finalize video file: %w", err)
	}

	logging.WithJobID(s.logger, st.JobID.String()).Info("video saved", "path", logging.SanitizePath(path), "bytes", n)
	return path, nil
}

// Close stops any polling. The session is unusable afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
	s.stop()
}

func (s *Session) handleUpdate(id generation.JobID) poller.UpdateFunc {
	logger := logging.WithJobID(s.logger, id.String())
	return func(status generation.Status) {
		st, ok := s.machine.Update(id, status)
		if !ok {
			logger.Debug("ignoring status for inactive job", "status", status.Status)
			return
		}
		logger.Info("job progress", "status", status.Status, "progress", status.Progress, "message", status.Message)
		if status.IsTerminal() {
			s.recordOutcome(st)
		}
	}
}

func (s *Session) handleError(id generation.JobID) poller.ErrorFunc {
	logger := logging.WithJobID(s.logger, id.String())
	return func(err error) {
		st, ok := s.machine.PollFailed(id, err)
		if !ok {
			logger.Debug("ignoring poll failure for inactive job", "error", err)
			return
		}
		logger.Error("job polling failed", "error", err)
		s.recordOutcome(st)
	}
}

func (s *Session) recordSubmitted(id generation.JobID, req generation.Request) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.baseCtx, historyTimeout)
	defer cancel()

	now := time.Now()
	err := s.history.CreateJob(ctx, &history.Record{
		JobID:     id.String(),
		Request:   req,
		Status:    history.StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		s.logger.Warn("failed to record job", "job_id", id, "error", err)
	}
}

func (s *Session) recordOutcome(st lifecycle.State) {
	if s.history == nil || st.JobID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(s.baseCtx, historyTimeout)
	defer cancel()

	out := history.Outcome{
		Progress: st.Progress,
		Message:  st.Message,
		VideoURL: st.VideoURL,
		Error:    st.Error,
	}
	if st.Phase == lifecycle.PhaseDone {
		out.Status = history.StatusDone
	} else {
		out.Status = history.StatusError
	}
	if st.HasScript() {
		out.ScriptTitle = st.Script.Title
		out.SceneCount = len(st.Script.Scenes)
	}

	if err := s.history.FinishJob(ctx, st.JobID.String(), out); err != nil {
		s.logger.Warn("failed to record job outcome", "job_id", st.JobID, "error", err)
	}
}
