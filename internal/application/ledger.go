package application

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/infrastructure/repository"
	"github.com/ttahub/goalmerge/internal/usecase"
)

// LedgerApplication wires the attribution ledger usecase to its
// postgres repositories and the redis lock.
type LedgerApplication struct {
	uc         *usecase.LedgerUsecase
	vocabulary *repository.VocabularyRepository
	logger     *slog.Logger
}

func NewLedgerApplication(db *gorm.DB, locker usecase.Locker, logger *slog.Logger) *LedgerApplication {
	vocabulary := repository.NewVocabularyRepository(db)
	uc := usecase.NewLedgerUsecase(
		repository.NewGoalRepository(db),
		repository.NewAuditLogRepository(db),
		repository.NewReportRepository(db),
		repository.NewCollaboratorRepository(db),
		vocabulary,
		locker,
		logger,
	)
	return &LedgerApplication{
		uc:         uc,
		vocabulary: vocabulary,
		logger:     logger,
	}
}

// Derive recomputes the collaborator ledger for the given goals. A
// failing goal is logged and the rest still run.
func (a *LedgerApplication) Derive(ctx context.Context, goalIDs []int64) (usecase.DeriveOutcome, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Application.Derive")
	defer span.End()

	total := usecase.DeriveOutcome{}
	var failed int
	for _, goalID := range goalIDs {
		outcome, err := a.uc.Derive(ctx, goalID)
		if err != nil {
			span.RecordError(err)
			a.logger.Error("ledger derivation failed",
				slog.Int64("goalId", goalID),
				slog.String("error", err.Error()),
			)
			failed++
			continue
		}
		total.Created += outcome.Created
		total.Updated += outcome.Updated
	}

	a.logger.Info("ledger derivation finished",
		slog.Int("goals", len(goalIDs)),
		slog.Int("created", total.Created),
		slog.Int("updated", total.Updated),
		slog.Int("failed", failed),
	)
	if failed > 0 {
		return total, errors.Errorf("%d of %d goals failed", failed, len(goalIDs))
	}
	return total, nil
}

// Remove withdraws the given evidence from one goal's facts of one
// type, deleting facts left without any evidence at all.
func (a *LedgerApplication) Remove(ctx context.Context, goalID int64, typeName string, lb goalmerge.LinkBack) error {
	ctx, span := tracer.Start(ctx, "Ledger.Application.Remove")
	defer span.End()

	return a.uc.RemoveForType(ctx, goalID, typeName, lb)
}

// Propagate copies propagating collaborator facts from a merged-away
// goal onto its ultimate survivor.
func (a *LedgerApplication) Propagate(ctx context.Context, deprecatedID int64) (usecase.DeriveOutcome, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Application.Propagate")
	defer span.End()

	survivorID, err := a.uc.ResolveSurvivor(ctx, deprecatedID)
	if err != nil {
		span.RecordError(err)
		return usecase.DeriveOutcome{}, err
	}
	if survivorID == deprecatedID {
		return usecase.DeriveOutcome{}, nil
	}
	return a.uc.PropagateOnMerge(ctx, survivorID, deprecatedID)
}

// Seed installs the goal collaborator vocabulary.
func (a *LedgerApplication) Seed(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Ledger.Application.Seed")
	defer span.End()

	return a.vocabulary.Seed(ctx)
}
