package quiz

import (
	"fmt"

	"candidate-interview/internal/models"
)

// selectionProblem checks the selected options against the question and
// returns the candidate-facing problem, or "" when the selection is valid.
func selectionProblem(question models.QuizQuestion, optionIDs []int64) string {
	if len(optionIDs) == 0 {
		return "Please select an answer."
	}

	seen := make(map[int64]bool, len(optionIDs))
	for _, id := range optionIDs {
		if !question.HasOption(id) {
			return "That option does not belong to this question."
		}
		if seen[id] {
			return "Each option can be selected only once."
		}
		seen[id] = true
	}

	switch question.Type {
	case models.QuizSingleChoice, models.QuizTrueFalse:
		if len(optionIDs) != 1 {
			return "Please select exactly one answer."
		}
	case models.QuizMultipleChoice:
	default:
		return fmt.Sprintf("Unsupported question type %q.", question.Type)
	}
	return ""
}
