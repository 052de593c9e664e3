// Package poller fetches a job's status at a fixed cadence until the job
// reaches a terminal status, a fetch fails, or the caller cancels.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/iavido/iavido-agent/internal/generation"
	"github.com/iavido/iavido-agent/internal/jobclient"
)

const DefaultInterval = 2 * time.Second

type UpdateFunc func(status generation.Status)

type ErrorFunc func(err error)

type Poller struct {
	fetcher  jobclient.StatusFetcher
	interval time.Duration
	logger   *slog.Logger
}

func New(fetcher jobclient.StatusFetcher, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
	}
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Handle controls one polling loop.
type Handle struct {
	jobID  generation.JobID
	cancel context.CancelFunc
	done   chan struct{}

	// mu is held while a callback runs so Cancel can promise silence.
	mu        sync.Mutex
	cancelled bool
}

func (h *Handle) JobID() generation.JobID {
	return h.jobID
}

// Done is closed once the loop has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Cancel stops the loop. No callback runs after Cancel returns. It must not
// be called from inside onUpdate or onError.
func (h *Handle) Cancel() {
	h.mu.Lock()
	h.cancelled = true
	h.mu.Unlock()
	h.cancel()
}

// deliver runs fn unless the handle was cancelled and reports whether it ran.
func (h *Handle) deliver(fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return false
	}
	fn()
	return true
}

// Start begins polling jobID. The first fetch happens one interval after
// Start; fetches never overlap.
func (p *Poller) Start(ctx context.Context, jobID generation.JobID, onUpdate UpdateFunc, onError ErrorFunc) *Handle {
	loopCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		jobID:  jobID,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go p.run(loopCtx, h, onUpdate, onError)
	return h
}

func (p *Poller) run(ctx context.Context, h *Handle, onUpdate UpdateFunc, onError ErrorFunc) {
	defer close(h.done)
	defer h.cancel()

	logger := p.logger.With("job_id", h.jobID)
	logger.Debug("poller started", "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("poller stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
		}

		status, err := p.fetcher.FetchStatus(ctx, h.jobID)
		if ctx.Err() != nil {
			// Cancelled while the request was in flight; drop the result.
			logger.Debug("poller stopped", "reason", ctx.Err())
			return
		}

		if err != nil {
			logger.Warn("status poll failed, stopping", "error", err)
			if onError != nil {
				h.deliver(func() { onError(err) })
			}
			return
		}

		if onUpdate != nil {
			if !h.deliver(func() { onUpdate(status) }) {
				return
			}
		}

		if status.IsTerminal() {
			logger.Info("job reached terminal status", "status", status.Status, "progress", status.Progress)
			return
		}
	}
}
