package ui

import (
	"fmt"
	"os/exec"
	goruntime "runtime"
	"strings"

	"github.com/iavido/iavido-agent/internal/presenter"
)

const maxLabelRunes = 60

// StatusLabel is the one-line summary both the tray and the console show.
func StatusLabel(v presenter.View) string {
	switch {
	case v.Error.Visible:
		return "Error: " + v.Error.Message
	case v.Result.Visible:
		return "Video ready"
	case v.Progress.Visible:
		if v.Progress.Message == "" {
			return fmt.Sprintf("Generating %d%%", v.Progress.Percent)
		}
		return fmt.Sprintf("Generating %d%% (%s)", v.Progress.Percent, v.Progress.Message)
	default:
		return "Idle"
	}
}

// ScriptLabel returns "" when the script section is hidden.
func ScriptLabel(s presenter.ScriptSection) string {
	if !s.Visible {
		return ""
	}
	n := len(s.Scenes)
	if n == 1 {
		return s.Title + " (1 scene)"
	}
	return fmt.Sprintf("%s (%d scenes)", s.Title, n)
}

func SceneLabel(c presenter.SceneCard) string {
	return fmt.Sprintf("Scene %d: %s", c.SceneNumber, c.Narration)
}

// SceneLabels returns one truncated label per scene, in display order.
func SceneLabels(s presenter.ScriptSection) []string {
	if !s.Visible {
		return nil
	}
	labels := make([]string, len(s.Scenes))
	for i, c := range s.Scenes {
		labels[i] = truncateLabel(SceneLabel(c))
	}
	return labels
}

func truncateLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLabelRunes {
		return s
	}
	return string(r[:maxLabelRunes-3]) + "..."
}

// OpenURL hands url to the platform's default handler.
func OpenURL(url string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open url: %w", err)
	}
	return nil
}
