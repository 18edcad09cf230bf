package videointerview

import (
	"context"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

type TextInput struct {
	Order  int    `json:"order"`
	Answer string `json:"answer"`
}

type AudioInput struct {
	Order int
	Clip  api.AudioClip
}

// InterviewAPI generates the questions and takes one answer per question.
type InterviewAPI interface {
	GenerateInterviewQuestions(ctx context.Context) ([]models.InterviewQuestion, error)
	SubmitTextResponse(ctx context.Context, order int, answer string) error
	SubmitAudioResponse(ctx context.Context, order int, clip api.AudioClip) (string, error)
}

type ServiceDependencies struct {
	API        InterviewAPI
	Aggregator *aggregator.Aggregator
	Logger     logger.Logger
}
