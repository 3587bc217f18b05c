package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	salesapp "github.com/javila-dev/rojoz/internal/application/sales"
	"go.uber.org/zap"
)

// MoraAssessor runs a mora assessment for a single sale. Satisfied by the
// schedule service.
type MoraAssessor interface {
	AssessMora(ctx context.Context, saleID uuid.UUID, asOf time.Time, actorID *uuid.UUID) (*salesapp.MoraAssessmentResult, error)
}

// MoraExecutor executes mora assessment jobs against the schedule service
type MoraExecutor struct {
	assessor MoraAssessor
	logger   *zap.Logger
}

// NewMoraExecutor creates a new MoraExecutor
func NewMoraExecutor(assessor MoraAssessor, logger *zap.Logger) *MoraExecutor {
	return &MoraExecutor{
		assessor: assessor,
		logger:   logger,
	}
}

// Execute runs the mora assessment for the job's sale. Assessment is
// idempotent per installment per day, so retries after partial failures are
// safe.
func (e *MoraExecutor) Execute(ctx context.Context, job *Job) error {
	result, err := e.assessor.AssessMora(ctx, job.SaleID, job.AsOf, nil)
	if err != nil {
		return err
	}

	if result.RaisedCount > 0 {
		e.logger.Info("Mora assessed",
			zap.String("sale_id", job.SaleID.String()),
			zap.Time("as_of", job.AsOf),
			zap.Int("raised_count", result.RaisedCount),
			zap.String("total_assessed", result.TotalAssessed.String()),
		)
	}
	return nil
}
