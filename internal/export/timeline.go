// Package export turns a generated script into files editors understand:
// SRT subtitles from the narration and a CMX3600 EDL with one event per
// scene.
package export

import (
	"errors"
	"fmt"

	"github.com/iavido/iavido-agent/internal/generation"
)

const (
	FormatSRT = "srt"
	FormatEDL = "edl"

	// DefaultSceneSeconds is used for scenes without a duration, as the
	// video assembler does.
	DefaultSceneSeconds = 4

	DefaultFrameRate = 30.0
	maxNameRunes     = 80
)

var ErrUnknownFormat = errors.New("unknown export format")

// Cue is one scene placed on the video timeline.
type Cue struct {
	SceneNumber int
	Name        string
	Text        string
	StartMs     int
	EndMs       int
}

// Timeline lays the scenes end to end in scene_number order.
func Timeline(script *generation.Script) []Cue {
	scenes := script.OrderedScenes()
	cues := make([]Cue, 0, len(scenes))

	offset := 0
	for _, sc := range scenes {
		secs := sc.DurationSeconds
		if secs <= 0 {
			secs = DefaultSceneSeconds
		}
		cues = append(cues, Cue{
			SceneNumber: sc.SceneNumber,
			Name:        fmt.Sprintf("Scene %d", sc.SceneNumber),
			Text:        sc.Narration,
			StartMs:     offset,
			EndMs:       offset + secs*1000,
		})
		offset += secs * 1000
	}
	return cues
}

// File is a rendered export ready to be served or written.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

// Render builds the export for format. mediaPath is written into EDL events
// and ignored for SRT.
func Render(script *generation.Script, format, mediaPath string) (*File, error) {
	base := SanitizeName(script.Title, maxNameRunes)
	if base == "" {
		base = "script"
	}
	cues := Timeline(script)

	switch format {
	case FormatSRT:
		return &File{
			Name:        base + ".srt",
			ContentType: "application/x-subrip; charset=utf-8",
			Body:        []byte(GenerateSRT(cues)),
		}, nil
	case FormatEDL:
		return &File{
			Name:        base + ".edl",
			ContentType: "text/plain; charset=utf-8",
			Body:        []byte(GenerateEDL(cues, base, mediaPath, DefaultFrameRate)),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
