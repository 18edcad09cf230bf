package quiz

import (
	"context"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

type AnswerInput struct {
	QuestionID int64   `json:"questionId"`
	OptionIDs  []int64 `json:"optionIds"`
}

// Sheet is the loaded quiz as shown to the candidate.
type Sheet struct {
	Questions []models.QuizQuestion `json:"questions"`
	TimeLimit string                `json:"timeLimit"`
}

// QuizAPI loads questions and takes the final answer sheet.
type QuizAPI interface {
	FetchQuizQuestions(ctx context.Context, sessionID string) ([]models.QuizQuestion, error)
	SubmitQuizResponses(ctx context.Context, answers []api.QuizAnswer) error
}

type ServiceDependencies struct {
	API        QuizAPI
	Aggregator *aggregator.Aggregator
	Clock      clock.Clock
	Logger     logger.Logger
}
