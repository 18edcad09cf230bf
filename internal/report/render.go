package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func Render(w io.Writer, format string, s *Summary) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return RenderText(w, s)
	case FormatJSON:
		return RenderJSON(w, s)
	case FormatYAML, "yml":
		return RenderYAML(w, s)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func RenderJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func RenderYAML(w io.Writer, s *Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// RenderText writes the human readable completion view. The feedback block
// is left out entirely when no feedback exists.
func RenderText(w io.Writer, s *Summary) error {
	var b strings.Builder

	switch {
	case s.Terminated != "":
		fmt.Fprintf(&b, "Interview ended (%s)\n", s.Terminated)
	case s.Completed:
		b.WriteString("Interview completed!\n")
		fmt.Fprintf(&b, "Thank you for completing the interview with %s for the %s position.\n",
			orDefault(s.CompanyName, "the company"), orDefault(s.JobTitle, "the position"))
	default:
		fmt.Fprintf(&b, "Interview in progress (%s)\n", s.Stage)
	}

	if s.Match != nil {
		fmt.Fprintf(&b, "\nResume match: %s/100", formatScore(s.Match.Score))
		if s.Match.GreatMatch {
			b.WriteString(" (Great match)")
		}
		b.WriteString("\n")
		if s.Match.Feedback != "" {
			fmt.Fprintf(&b, "%s\n", s.Match.Feedback)
		}
	}

	if f := s.Feedback; f != nil {
		fmt.Fprintf(&b, "\nInterview feedback: %s/10\n", formatScore(f.Score))
		if f.Summary != "" {
			fmt.Fprintf(&b, "%s\n", f.Summary)
		}
		fmt.Fprintf(&b, "Technical skills: %s, communication: %s, problem solving: %s, cultural fit: %s\n",
			formatScore(f.Breakdown.TechnicalSkills), formatScore(f.Breakdown.Communication),
			formatScore(f.Breakdown.ProblemSolving), formatScore(f.Breakdown.CulturalFit))
		if len(f.Suggestions) > 0 {
			b.WriteString("Suggestions for improvement:\n")
			for i, suggestion := range f.Suggestions {
				fmt.Fprintf(&b, "  %d. %s\n", i+1, suggestion)
			}
		}
		if len(f.Keywords) > 0 {
			fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(f.Keywords, ", "))
		}
	}

	fmt.Fprintf(&b, "\nResponses: quiz %d, coding %d, interview %d\n",
		s.Responses.Quiz, s.Responses.Coding, s.Responses.Interview)

	if s.Integrity.Events > 0 {
		parts := make([]string, 0, len(s.Integrity.ByKind))
		for _, kind := range s.Integrity.Kinds() {
			parts = append(parts, fmt.Sprintf("%s %d", kind, s.Integrity.ByKind[kind]))
		}
		fmt.Fprintf(&b, "Integrity events: %d (%s)\n", s.Integrity.Events, strings.Join(parts, ", "))
	}

	if len(s.Warnings) > 0 {
		b.WriteString("\nNotes:\n")
		for _, warning := range s.Warnings {
			fmt.Fprintf(&b, "  - %s\n", warning)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatScore(v float64) string {
	return fmt.Sprintf("%g", v)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
