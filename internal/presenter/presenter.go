// Package presenter maps a lifecycle.State onto what the user sees. Render
// is pure; Presenter applies the rendered View to a Surface.
package presenter

import (
	"github.com/iavido/iavido-agent/internal/generation"
	"github.com/iavido/iavido-agent/internal/lifecycle"
)

const defaultScriptTitle = "Script"

type ProgressSection struct {
	Visible bool   `json:"visible"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

type SceneCard struct {
	SceneNumber  int    `json:"scene_number"`
	Narration    string `json:"narration"`
	VisualPrompt string `json:"visual_prompt"`
}

type ScriptSection struct {
	Visible     bool        `json:"visible"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Scenes      []SceneCard `json:"scenes,omitempty"`
}

type ResultSection struct {
	Visible     bool   `json:"visible"`
	VideoURL    string `json:"video_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

type ErrorSection struct {
	Visible bool   `json:"visible"`
	Message string `json:"message,omitempty"`
}

// View is everything a surface needs to draw one state.
type View struct {
	Progress      ProgressSection `json:"progress"`
	Script        ScriptSection   `json:"script"`
	Result        ResultSection   `json:"result"`
	Error         ErrorSection    `json:"error"`
	SubmitEnabled bool            `json:"submit_enabled"`
}

// Surface is the rendering target. Every setter is called on each Present,
// so implementations only need to overwrite what they show.
type Surface interface {
	SetProgress(p ProgressSection)
	SetScript(s ScriptSection)
	SetResult(r ResultSection)
	SetError(e ErrorSection)
	SetSubmitEnabled(enabled bool)
}

// URLResolver turns service-relative video URLs into absolute ones.
type URLResolver func(videoURL string) string

type Presenter struct {
	surface Surface
	resolve URLResolver
}

func New(surface Surface, resolve URLResolver) *Presenter {
	return &Presenter{surface: surface, resolve: resolve}
}

// Present renders state and applies it to the surface.
func (p *Presenter) Present(state lifecycle.State) View {
	v := Render(state)
	if p.resolve != nil && v.Result.Visible {
		v.Result.VideoURL = p.resolve(v.Result.VideoURL)
		v.Result.DownloadURL = v.Result.VideoURL
	}
	Apply(p.surface, v)
	return v
}

// Apply pushes every section of v to s.
func Apply(s Surface, v View) {
	s.SetProgress(v.Progress)
	s.SetScript(v.Script)
	s.SetResult(v.Result)
	s.SetError(v.Error)
	s.SetSubmitEnabled(v.SubmitEnabled)
}

// Render maps a state to its view. It has no side effects.
func Render(state lifecycle.State) View {
	var v View

	switch state.Phase {
	case lifecycle.PhaseSubmitting:
		v.Progress = ProgressSection{Visible: true}
	case lifecycle.PhaseRunning, lifecycle.PhaseScriptReady:
		v.Progress = ProgressSection{
			Visible: true,
			Percent: clampPercent(state.Progress),
			Message: state.Message,
		}
	case lifecycle.PhaseDone:
		v.Result = ResultSection{
			Visible:     true,
			VideoURL:    state.VideoURL,
			DownloadURL: state.VideoURL,
		}
	case lifecycle.PhaseError:
		v.Error = ErrorSection{Visible: true, Message: state.Error}
	}

	if state.Phase != lifecycle.PhaseIdle && state.Phase != lifecycle.PhaseSubmitting && state.HasScript() {
		v.Script = renderScript(state.Script)
	}

	v.SubmitEnabled = !state.Phase.IsActive()
	return v
}

func renderScript(script *generation.Script) ScriptSection {
	sec := ScriptSection{
		Visible:     true,
		Title:       script.Title,
		Description: script.Description,
	}
	if sec.Title == "" {
		sec.Title = defaultScriptTitle
	}
	for _, sc := range script.OrderedScenes() {
		sec.Scenes = append(sec.Scenes, SceneCard{
			SceneNumber:  sc.SceneNumber,
			Narration:    sc.Narration,
			VisualPrompt: sc.VisualPrompt,
		})
	}
	return sec
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
