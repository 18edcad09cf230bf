package aggregator

import (
	"fmt"
	"strings"

	"candidate-interview/internal/models"
)

const transcriptTimeLayout = "3:04:05 PM"

// FormatTranscript renders entries as "[time] Speaker: text" blocks
// separated by blank lines.
func FormatTranscript(entries []models.TranscriptEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", e.At.Format(transcriptTimeLayout), e.Speaker, e.Text))
	}
	return strings.Join(lines, "\n\n")
}
