package presenter

import (
	"reflect"
	"testing"

	"github.com/iavido/iavido-agent/internal/generation"
	"github.com/iavido/iavido-agent/internal/lifecycle"
)

func script() *generation.Script {
	return &generation.Script{
		Title:       "Cats",
		Description: "A short film about cats",
		Scenes: []generation.Scene{
			{SceneNumber: 2, Narration: "second", VisualPrompt: "v2"},
			{SceneNumber: 1, Narration: "first", VisualPrompt: "v1"},
		},
	}
}

func TestRender_Visibility(t *testing.T) {
	tests := []struct {
		name     string
		state    lifecycle.State
		progress bool
		script   bool
		result   bool
		error    bool
		submit   bool
	}{
		{"idle", lifecycle.State{Phase: lifecycle.PhaseIdle}, false, false, false, false, true},
		{"submitting", lifecycle.State{Phase: lifecycle.PhaseSubmitting}, true, false, false, false, false},
		{"running", lifecycle.State{Phase: lifecycle.PhaseRunning, Progress: 10}, true, false, false, false, false},
		{"script ready", lifecycle.State{Phase: lifecycle.PhaseScriptReady, Script: script()}, true, true, false, false, false},
		{"done with script", lifecycle.State{Phase: lifecycle.PhaseDone, Script: script(), VideoURL: "/v.mp4"}, false, true, true, false, true},
		{"done without script", lifecycle.State{Phase: lifecycle.PhaseDone, VideoURL: "/v.mp4"}, false, false, true, false, true},
		{"error with script", lifecycle.State{Phase: lifecycle.PhaseError, Script: script(), Error: "boom"}, false, true, false, true, true},
		{"error without script", lifecycle.State{Phase: lifecycle.PhaseError, Error: "boom"}, false, false, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Render(tt.state)
			if v.Progress.Visible != tt.progress {
				t.Errorf("progress visible = %v, want %v", v.Progress.Visible, tt.progress)
			}
			if v.Script.Visible != tt.script {
				t.Errorf("script visible = %v, want %v", v.Script.Visible, tt.script)
			}
			if v.Result.Visible != tt.result {
				t.Errorf("result visible = %v, want %v", v.Result.Visible, tt.result)
			}
			if v.Error.Visible != tt.error {
				t.Errorf("error visible = %v, want %v", v.Error.Visible, tt.error)
			}
			if v.SubmitEnabled != tt.submit {
				t.Errorf("submit enabled = %v, want %v", v.SubmitEnabled, tt.submit)
			}
		})
	}
}

func TestRender_RunningProgress(t *testing.T) {
	v := Render(lifecycle.State{Phase: lifecycle.PhaseRunning, Progress: 10, Message: "Writing script"})
	if v.Progress.Percent != 10 || v.Progress.Message != "Writing script" {
		t.Fatalf("progress = %+v", v.Progress)
	}
}

func TestRender_ClampsBarOnly(t *testing.T) {
	if got := Render(lifecycle.State{Phase: lifecycle.PhaseRunning, Progress: 140}).Progress.Percent; got != 100 {
		t.Errorf("percent = %d, want 100", got)
	}
	if got := Render(lifecycle.State{Phase: lifecycle.PhaseRunning, Progress: -5}).Progress.Percent; got != 0 {
		t.Errorf("percent = %d, want 0", got)
	}
}

func TestRender_ScenesOrderedByNumber(t *testing.T) {
	v := Render(lifecycle.State{Phase: lifecycle.PhaseScriptReady, Script: script()})

	if len(v.Script.Scenes) != 2 {
		t.Fatalf("scenes = %d, want 2", len(v.Script.Scenes))
	}
	if v.Script.Scenes[0].SceneNumber != 1 || v.Script.Scenes[1].SceneNumber != 2 {
		t.Fatalf("scene order = %+v", v.Script.Scenes)
	}
	if v.Script.Title != "Cats" || v.Script.Description != "A short film about cats" {
		t.Fatalf("script header = %+v", v.Script)
	}
}

func TestRender_DefaultScriptTitle(t *testing.T) {
	v := Render(lifecycle.State{Phase: lifecycle.PhaseScriptReady, Script: &generation.Script{}})
	if v.Script.Title != "Script" {
		t.Fatalf("title = %q, want Script", v.Script.Title)
	}
}

func TestRender_DoneBindsVideoAndDownload(t *testing.T) {
	v := Render(lifecycle.State{Phase: lifecycle.PhaseDone, VideoURL: "/media/out.mp4"})
	if v.Result.VideoURL != "/media/out.mp4" || v.Result.DownloadURL != "/media/out.mp4" {
		t.Fatalf("result = %+v", v.Result)
	}
}

func TestPresent_Idempotent(t *testing.T) {
	surface := &MemorySurface{}
	p := New(surface, nil)
	state := lifecycle.State{Phase: lifecycle.PhaseScriptReady, Progress: 40, Script: script()}

	first := p.Present(state)
	afterFirst := surface.View()
	second := p.Present(state)
	afterSecond := surface.View()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("views differ:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(afterFirst, afterSecond) {
		t.Fatalf("surface output differs:\n%+v\n%+v", afterFirst, afterSecond)
	}
	if surface.Renders() != 2 {
		t.Fatalf("renders = %d, want 2", surface.Renders())
	}
}

func TestPresent_HidesPreviousSections(t *testing.T) {
	surface := &MemorySurface{}
	p := New(surface, nil)

	p.Present(lifecycle.State{Phase: lifecycle.PhaseError, Error: "boom", Script: script()})
	p.Present(lifecycle.State{Phase: lifecycle.PhaseIdle})

	v := surface.View()
	if v.Error.Visible || v.Script.Visible || v.Progress.Visible || v.Result.Visible {
		t.Fatalf("idle should hide everything: %+v", v)
	}
}

func TestPresent_ResolvesVideoURL(t *testing.T) {
	surface := &MemorySurface{}
	p := New(surface, func(u string) string { return "http://svc" + u })

	p.Present(lifecycle.State{Phase: lifecycle.PhaseDone, VideoURL: "/api/video/abc"})

	v := surface.View()
	if v.Result.VideoURL != "http://svc/api/video/abc" || v.Result.DownloadURL != v.Result.VideoURL {
		t.Fatalf("result = %+v", v.Result)
	}
}

func TestMulti_FansOut(t *testing.T) {
	a, b := &MemorySurface{}, &MemorySurface{}
	Apply(Multi(a, b), Render(lifecycle.State{Phase: lifecycle.PhaseRunning, Progress: 30}))

	if a.View().Progress.Percent != 30 || b.View().Progress.Percent != 30 {
		t.Fatalf("views = %+v / %+v", a.View(), b.View())
	}
}
