// Package lifecycle holds the state machine for the single active
// generation job: Idle, Submitting, Running, ScriptReady, Done, Error.
package lifecycle

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/iavido/iavido-agent/internal/generation"
)

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseSubmitting  Phase = "submitting"
	PhaseRunning     Phase = "running"
	PhaseScriptReady Phase = "script_ready"
	PhaseDone        Phase = "done"
	PhaseError       Phase = "error"
)

// IsTerminal reports whether only Reset can leave the phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseError
}

// IsActive reports whether a job is in flight.
func (p Phase) IsActive() bool {
	return p == PhaseSubmitting || p == PhaseRunning || p == PhaseScriptReady
}

var (
	ErrPromptRequired = errors.New("prompt is required")
	ErrBusy           = errors.New("a job is already in progress")

	errNoop = errors.New("no-op transition")
)

// State is an immutable snapshot of the machine.
type State struct {
	Phase    Phase
	JobID    generation.JobID
	Request  generation.Request
	Progress int
	Message  string
	// Script is the last revealed script. Once set it survives until Reset,
	// including into Done and Error.
	Script   *generation.Script
	VideoURL string
	Error    string
}

// HasScript reports whether a script has been revealed for this job.
func (s State) HasScript() bool {
	return s.Script != nil
}

type Machine struct {
	// notifyMu serialises transitions with their notifications so observers
	// see snapshots in the order they were applied.
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	state     State
	observers []func(State)
}

func NewMachine() *Machine {
	return &Machine{state: State{Phase: PhaseIdle}}
}

// Subscribe registers fn to receive every applied transition. fn runs
// synchronously and may read State but must not trigger transitions.
func (m *Machine) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Begin moves Idle to Submitting for req.
func (m *Machine) Begin(req generation.Request) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return ErrPromptRequired
	}
	_, err := m.apply(func(s State) (State, error) {
		if s.Phase != PhaseIdle {
			return s, ErrBusy
		}
		return State{Phase: PhaseSubmitting, Request: req}, nil
	})
	return err
}

// Submitted records the job id returned by the service.
func (m *Machine) Submitted(id generation.JobID) bool {
	_, ok := m.applied(func(s State) (State, bool) {
		if s.Phase != PhaseSubmitting || id == "" {
			return s, false
		}
		return State{Phase: PhaseRunning, JobID: id, Request: s.Request}, true
	})
	return ok
}

// SubmitFailed ends a submission that never produced a job id.
func (m *Machine) SubmitFailed(err error) bool {
	_, ok := m.applied(func(s State) (State, bool) {
		if s.Phase != PhaseSubmitting {
			return s, false
		}
		s.Phase = PhaseError
		s.Error = errorMessage(err)
		return s, true
	})
	return ok
}

// Update applies a polled status for job id and returns the resulting
// snapshot. Updates for any other job, or arriving while no job is running,
// are ignored and report false.
func (m *Machine) Update(id generation.JobID, status generation.Status) (State, bool) {
	return m.applied(func(s State) (State, bool) {
		if !s.acceptsUpdatesFor(id) {
			return s, false
		}

		// Decreasing progress is accepted as reported.
		s.Progress = status.Progress
		s.Message = status.Message
		if status.Script != nil {
			s.Script = status.Script.Clone()
		}

		switch status.Phase() {
		case generation.StatusDone:
			s.Phase = PhaseDone
			s.VideoURL = status.VideoURL
		case generation.StatusError:
			s.Phase = PhaseError
			s.Error = status.Message
			if s.Error == "" {
				s.Error = "generation failed"
			}
		default:
			if s.Script != nil {
				s.Phase = PhaseScriptReady
			} else {
				s.Phase = PhaseRunning
			}
		}
		return s, true
	})
}

// PollFailed ends job id after a failed status fetch.
func (m *Machine) PollFailed(id generation.JobID, err error) (State, bool) {
	return m.applied(func(s State) (State, bool) {
		if !s.acceptsUpdatesFor(id) {
			return s, false
		}
		s.Phase = PhaseError
		s.Error = errorMessage(err)
		return s, true
	})
}

// Reset returns a terminal machine to Idle and forgets the job id.
func (m *Machine) Reset() bool {
	_, ok := m.applied(func(s State) (State, bool) {
		if !s.Phase.IsTerminal() {
			return s, false
		}
		return State{Phase: PhaseIdle}, true
	})
	return ok
}

func (s State) acceptsUpdatesFor(id generation.JobID) bool {
	if s.JobID == "" || s.JobID != id {
		return false
	}
	return s.Phase == PhaseRunning || s.Phase == PhaseScriptReady
}

func (m *Machine) applied(fn func(State) (State, bool)) (State, bool) {
	next, err := m.apply(func(s State) (State, error) {
		next, ok := fn(s)
		if !ok {
			return s, errNoop
		}
		return next, nil
	})
	return next, err == nil
}

// apply returns the snapshot it installed, which later transitions cannot
// change.
func (m *Machine) apply(fn func(State) (State, error)) (State, error) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	next, err := fn(m.state)
	if err != nil {
		m.mu.Unlock()
		return State{}, err
	}
	m.state = next
	observers := slices.Clone(m.observers)
	m.mu.Unlock()

	for _, o := range observers {
		o(next)
	}
	return next, nil
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
