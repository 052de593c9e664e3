package lifecycle

import (
	"errors"
	"testing"

	"github.com/iavido/iavido-agent/internal/generation"
)

func catsScript() *generation.Script {
	return &generation.Script{
		Title: "Cats",
		Scenes: []generation.Scene{
			{SceneNumber: 1, Narration: "...", VisualPrompt: "..."},
		},
	}
}

func runningMachine(t *testing.T, id generation.JobID) *Machine {
	t.Helper()
	m := NewMachine()
	if err := m.Begin(generation.NewRequest("cat video")); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !m.Submitted(id) {
		t.Fatal("submitted was not applied")
	}
	return m
}

func TestMachine_Lifecycle(t *testing.T) {
	m := NewMachine()
	if m.State().Phase != PhaseIdle {
		t.Fatalf("initial phase = %s, want idle", m.State().Phase)
	}

	if err := m.Begin(generation.NewRequest("cat video")); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if m.State().Phase != PhaseSubmitting {
		t.Fatalf("phase = %s, want submitting", m.State().Phase)
	}

	m.Submitted("abc")
	s := m.State()
	if s.Phase != PhaseRunning || s.JobID != "abc" || s.Progress != 0 || s.Message != "" {
		t.Fatalf("after submitted: %+v", s)
	}

	m.Update("abc", generation.Status{Status: "running", Progress: 10, Message: "Writing script"})
	s = m.State()
	if s.Phase != PhaseRunning || s.Progress != 10 || s.Message != "Writing script" {
		t.Fatalf("after first update: %+v", s)
	}

	m.Update("abc", generation.Status{Status: "running", Progress: 40, Script: catsScript()})
	s = m.State()
	if s.Phase != PhaseScriptReady || s.Script == nil || len(s.Script.Scenes) != 1 {
		t.Fatalf("after script update: %+v", s)
	}

	m.Update("abc", generation.Status{Status: "done", Progress: 100, VideoURL: "/media/out.mp4"})
	s = m.State()
	if s.Phase != PhaseDone || s.VideoURL != "/media/out.mp4" {
		t.Fatalf("after done: %+v", s)
	}
	if !s.HasScript() {
		t.Fatal("script should survive into done")
	}

	if !m.Reset() {
		t.Fatal("reset from done was not applied")
	}
	s = m.State()
	if s.Phase != PhaseIdle || s.JobID != "" || s.Script != nil {
		t.Fatalf("after reset: %+v", s)
	}
}

func TestMachine_BeginGuards(t *testing.T) {
	m := NewMachine()
	if err := m.Begin(generation.NewRequest("  ")); !errors.Is(err, ErrPromptRequired) {
		t.Fatalf("blank prompt error = %v, want %v", err, ErrPromptRequired)
	}
	if m.State().Phase != PhaseIdle {
		t.Fatal("failed begin must leave machine idle")
	}

	if err := m.Begin(generation.NewRequest("a")); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := m.Begin(generation.NewRequest("b")); !errors.Is(err, ErrBusy) {
		t.Fatalf("second begin error = %v, want %v", err, ErrBusy)
	}
}

func TestMachine_SubmitFailed(t *testing.T) {
	m := NewMachine()
	m.Begin(generation.NewRequest("cat video"))

	if !m.SubmitFailed(errors.New("connection refused")) {
		t.Fatal("submit failure was not applied")
	}
	s := m.State()
	if s.Phase != PhaseError || s.Error != "connection refused" {
		t.Fatalf("state = %+v", s)
	}
}

func TestMachine_ScriptIsMonotonic(t *testing.T) {
	m := runningMachine(t, "abc")

	m.Update("abc", generation.Status{Status: "running", Progress: 40, Script: catsScript()})
	m.Update("abc", generation.Status{Status: "generating_images", Progress: 50, Message: "Image 1/3"})

	s := m.State()
	if s.Phase != PhaseScriptReady {
		t.Fatalf("phase = %s, want script_ready", s.Phase)
	}
	if s.Script == nil || s.Script.Title != "Cats" {
		t.Fatalf("script lost after update without script: %+v", s.Script)
	}
	if s.Progress != 50 || s.Message != "Image 1/3" {
		t.Fatalf("progress not updated: %+v", s)
	}

	m.Update("abc", generation.Status{Status: "error", Message: "Erreur : ffmpeg"})
	s = m.State()
	if s.Phase != PhaseError || s.Error != "Erreur : ffmpeg" {
		t.Fatalf("state = %+v", s)
	}
	if !s.HasScript() {
		t.Fatal("script must remain visible under the error")
	}
}

func TestMachine_ScriptOnFirstUpdateWinsRegardlessOfProgress(t *testing.T) {
	m := runningMachine(t, "abc")

	m.Update("abc", generation.Status{Status: "running", Progress: 0, Script: catsScript()})
	if m.State().Phase != PhaseScriptReady {
		t.Fatalf("phase = %s, want script_ready", m.State().Phase)
	}
}

func TestMachine_SnapshotDoesNotShareScript(t *testing.T) {
	m := runningMachine(t, "abc")

	sc := catsScript()
	m.Update("abc", generation.Status{Status: "running", Script: sc})
	sc.Scenes[0].Narration = "mutated"

	if got := m.State().Script.Scenes[0].Narration; got != "..." {
		t.Fatalf("snapshot narration = %q, want unaffected copy", got)
	}
}

func TestMachine_ProgressIsNotCorrected(t *testing.T) {
	m := runningMachine(t, "abc")

	m.Update("abc", generation.Status{Status: "running", Progress: 60})
	m.Update("abc", generation.Status{Status: "running", Progress: 30})

	if got := m.State().Progress; got != 30 {
		t.Fatalf("progress = %d, want 30 (reported value kept)", got)
	}
}

func TestMachine_InvalidTransitionsAreNoops(t *testing.T) {
	m := NewMachine()

	if _, ok := m.Update("abc", generation.Status{Status: "running", Progress: 10}); ok {
		t.Fatal("update while idle should be ignored")
	}
	if _, ok := m.PollFailed("abc", errors.New("x")); ok {
		t.Fatal("poll failure while idle should be ignored")
	}
	if m.Submitted("abc") {
		t.Fatal("submitted while idle should be ignored")
	}
	if m.SubmitFailed(errors.New("x")) {
		t.Fatal("submit failure while idle should be ignored")
	}
	if m.Reset() {
		t.Fatal("reset while idle should be ignored")
	}
	if m.State().Phase != PhaseIdle {
		t.Fatalf("phase = %s, want idle", m.State().Phase)
	}

	m.Begin(generation.NewRequest("cat"))
	if m.Reset() {
		t.Fatal("reset while submitting should be ignored")
	}
	if _, ok := m.Update("", generation.Status{Status: "done"}); ok {
		t.Fatal("update while submitting should be ignored")
	}
}

func TestMachine_IgnoresOtherJobs(t *testing.T) {
	m := runningMachine(t, "new")

	if _, ok := m.Update("old", generation.Status{Status: "done", VideoURL: "/stale.mp4"}); ok {
		t.Fatal("update for stale job should be ignored")
	}
	if _, ok := m.PollFailed("old", errors.New("late failure")); ok {
		t.Fatal("poll failure for stale job should be ignored")
	}
	if s := m.State(); s.Phase != PhaseRunning || s.JobID != "new" {
		t.Fatalf("state = %+v", s)
	}
}

func TestMachine_TerminalIgnoresUpdates(t *testing.T) {
	m := runningMachine(t, "abc")
	m.Update("abc", generation.Status{Status: "done", Progress: 100, VideoURL: "/media/out.mp4"})

	if _, ok := m.Update("abc", generation.Status{Status: "running", Progress: 10}); ok {
		t.Fatal("update after done should be ignored")
	}
	if _, ok := m.PollFailed("abc", errors.New("x")); ok {
		t.Fatal("poll failure after done should be ignored")
	}
	if m.State().Phase != PhaseDone {
		t.Fatalf("phase = %s, want done", m.State().Phase)
	}
}

func TestMachine_PollFailed(t *testing.T) {
	m := runningMachine(t, "abc")

	m.PollFailed("abc", errors.New("fetch status: dial tcp: connection refused"))
	s := m.State()
	if s.Phase != PhaseError || s.Error != "fetch status: dial tcp: connection refused" {
		t.Fatalf("state = %+v", s)
	}
}

func TestMachine_ErrorStatusWithoutMessage(t *testing.T) {
	m := runningMachine(t, "abc")

	m.Update("abc", generation.Status{Status: "error"})
	if got := m.State().Error; got == "" {
		t.Fatal("error state should carry a message")
	}
}

func TestMachine_SubscribeSeesEveryTransition(t *testing.T) {
	m := NewMachine()
	var phases []Phase
	m.Subscribe(func(s State) { phases = append(phases, s.Phase) })

	m.Begin(generation.NewRequest("cat"))
	m.Submitted("abc")
	m.Update("other", generation.Status{Status: "running"})
	m.Update("abc", generation.Status{Status: "running", Script: catsScript()})
	m.Update("abc", generation.Status{Status: "done"})
	m.Reset()

	want := []Phase{PhaseSubmitting, PhaseRunning, PhaseScriptReady, PhaseDone, PhaseIdle}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases = %v, want %v", phases, want)
		}
	}
}

func TestMachine_UpdateReturnsAppliedSnapshot(t *testing.T) {
	m := runningMachine(t, "abc")

	done, ok := m.Update("abc", generation.Status{Status: "done", Progress: 100, VideoURL: "/media/out.mp4", Script: catsScript()})
	if !ok {
		t.Fatal("done update was not applied")
	}

	// A new job replacing the finished one must not leak into the snapshot
	// already handed out.
	m.Reset()
	if err := m.Begin(generation.NewRequest("dog video")); err != nil {
		t.Fatalf("begin: %v", err)
	}
	m.Submitted("next")

	if done.JobID != "abc" || done.Phase != PhaseDone || done.VideoURL != "/media/out.mp4" || !done.HasScript() {
		t.Fatalf("done snapshot = %+v", done)
	}
	if s := m.State(); s.JobID != "next" || s.Phase != PhaseRunning {
		t.Fatalf("current state = %+v", s)
	}
}

func TestMachine_PollFailedReturnsAppliedSnapshot(t *testing.T) {
	m := runningMachine(t, "abc")

	failed, ok := m.PollFailed("abc", errors.New("connection refused"))
	if !ok {
		t.Fatal("poll failure was not applied")
	}
	m.Reset()

	if failed.JobID != "abc" || failed.Phase != PhaseError || failed.Error != "connection refused" {
		t.Fatalf("failed snapshot = %+v", failed)
	}
	if _, ok := m.PollFailed("abc", errors.New("again")); ok {
		t.Fatal("poll failure after reset should be ignored")
	}
}
