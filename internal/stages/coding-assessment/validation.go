package codingassessment

import (
	"fmt"
	"strings"
)

// submissionProblem returns the candidate-facing problem with a solution,
// or "" when it may be submitted.
func submissionProblem(input *SubmitInput, cfg *Config) string {
	language := normalizeLanguage(input.Language)
	allowed := false
	for _, l := range cfg.AllowedLanguages {
		if normalizeLanguage(l) == language {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Sprintf("Please choose one of: %s.", strings.Join(cfg.AllowedLanguages, ", "))
	}
	if strings.TrimSpace(input.Code) == "" {
		return "Please write a solution before submitting."
	}
	if len(input.Code) > cfg.MaxSourceBytes {
		return fmt.Sprintf("The solution must be at most %d KB.", cfg.MaxSourceBytes>>10)
	}
	return ""
}

func normalizeLanguage(language string) string {
	switch l := strings.ToLower(strings.TrimSpace(language)); l {
	case "c++":
		return "cpp"
	case "js":
		return "javascript"
	case "py", "python3":
		return "python"
	default:
		return l
	}
}
