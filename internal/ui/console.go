package ui

import (
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/iavido/iavido-agent/internal/presenter"
)

// Console is a presenter.Surface for headless runs. It prints a line for
// every section that changed since the previous render.
type Console struct {
	mu    sync.Mutex
	w     io.Writer
	next  presenter.View
	last  presenter.View
	drawn bool
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) SetProgress(p presenter.ProgressSection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next.Progress = p
}

func (c *Console) SetScript(s presenter.ScriptSection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next.Script = s
}

func (c *Console) SetResult(r presenter.ResultSection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next.Result = r
}

func (c *Console) SetError(e presenter.ErrorSection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next.Error = e
}

func (c *Console) SetSubmitEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next.SubmitEnabled = enabled
	c.flush()
}

func (c *Console) flush() {
	prev, v := c.last, c.next
	c.last = v
	first := !c.drawn
	c.drawn = true

	if v.Progress.Visible && (first || v.Progress != prev.Progress) {
		fmt.Fprintf(c.w, "[progress] %s\n", StatusLabel(presenter.View{Progress: v.Progress}))
	}

	if v.Script.Visible && (first || !sameScript(v.Script, prev.Script)) {
		fmt.Fprintf(c.w, "[script] %s\n", ScriptLabel(v.Script))
		if v.Script.Description != "" {
			fmt.Fprintf(c.w, "  %s\n", v.Script.Description)
		}
		for _, sc := range v.Script.Scenes {
			fmt.Fprintf(c.w, "  %s\n", SceneLabel(sc))
		}
	}

	if v.Result.Visible && (first || v.Result != prev.Result) {
		fmt.Fprintf(c.w, "[done] video: %s\n", v.Result.VideoURL)
	}

	if v.Error.Visible && (first || v.Error != prev.Error) {
		fmt.Fprintf(c.w, "[error] %s\n", v.Error.Message)
	}

	if !first && !v.Progress.Visible && !v.Script.Visible && !v.Result.Visible && !v.Error.Visible &&
		(prev.Progress.Visible || prev.Script.Visible || prev.Result.Visible || prev.Error.Visible) {
		fmt.Fprintln(c.w, "[idle] ready for a new prompt")
	}
}

func sameScript(a, b presenter.ScriptSection) bool {
	return a.Visible == b.Visible &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		slices.Equal(a.Scenes, b.Scenes)
}
