package codingassessment

import (
	"context"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

type SubmitInput struct {
	ProblemID int64  `json:"problemId"`
	Language  string `json:"language"`
	Code      string `json:"code"`
}

// CodingAPI loads problems and takes solutions.
type CodingAPI interface {
	FetchCodingProblems(ctx context.Context, sessionID string) ([]models.CodingProblem, error)
	SubmitCodingResponse(ctx context.Context, submission api.CodingSubmission) error
}

type ServiceDependencies struct {
	API        CodingAPI
	Aggregator *aggregator.Aggregator
	Logger     logger.Logger
}
