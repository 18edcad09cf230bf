package report

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/models"
)

var ErrNoTranscript = errors.New("no transcript available to download")

var whitespace = regexp.MustCompile(`\s+`)

// Transcript renders the downloadable transcript followed by the feedback
// section. Without feedback only the conversation is written.
func Transcript(entries []models.TranscriptEntry, feedback *models.Feedback) (string, error) {
	if len(entries) == 0 {
		return "", ErrNoTranscript
	}

	var b strings.Builder
	b.WriteString(aggregator.FormatTranscript(entries))
	if feedback == nil {
		return b.String(), nil
	}

	b.WriteString("\n\n=== Interview Feedback ===\n\n")
	fmt.Fprintf(&b, "Overall Score: %s/10\n\n", formatScore(feedback.Score))
	fmt.Fprintf(&b, "Feedback:\n%s\n\n", feedback.Summary)
	b.WriteString("Suggestions for Improvement:\n")
	lines := make([]string, 0, len(feedback.Suggestions))
	for i, suggestion := range feedback.Suggestions {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, suggestion))
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String(), nil
}

// TranscriptFileName is the download name for company's transcript.
func TranscriptFileName(company string) string {
	company = strings.TrimSpace(company)
	if company == "" {
		company = "interview"
	}
	return strings.ToLower(whitespace.ReplaceAllString(company, "-")) + "-interview-transcript.txt"
}
