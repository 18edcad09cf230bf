package videointerview

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

func textProblem(answer string, cfg *Config) string {
	if strings.TrimSpace(answer) == "" {
		return "Please enter an answer before submitting."
	}
	if utf8.RuneCountInString(answer) > cfg.MaxAnswerLength {
		return fmt.Sprintf("The answer must be at most %d characters.", cfg.MaxAnswerLength)
	}
	return ""
}

func audioProblem(data []byte, cfg *Config) string {
	if len(data) == 0 {
		return "The recording is empty. Please record your answer again."
	}
	if len(data) > cfg.MaxAudioBytes {
		return fmt.Sprintf("The recording must be at most %d MB.", cfg.MaxAudioBytes>>20)
	}
	return ""
}
