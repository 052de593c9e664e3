package export

import (
	"fmt"
	"strings"
)

// GenerateSRT writes one subtitle per cue. Cues without narration keep
// their slot on the timeline but produce no entry.
func GenerateSRT(cues []Cue) string {
	var b strings.Builder
	for i, c := range cues {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, msToSRT(c.StartMs), msToSRT(c.EndMs), text)
	}
	return b.String()
}

func msToSRT(ms int) string {
	h := ms / 3600000
	m := ms / 60000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
