package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/ttahub/goalmerge/internal/config"
	"github.com/ttahub/goalmerge/internal/infrastructure/repository"
	"github.com/ttahub/goalmerge/internal/usecase"
)

var tracer = otel.Tracer("application")

// MergeApplication drives full-table dedup runs in parent-keyed chunks
// so one pass never holds long transactions or unbounded row sets.
type MergeApplication struct {
	db       *gorm.DB
	conf     config.Batch
	resolver *usecase.Resolver
	logger   *slog.Logger
}

func NewMergeApplication(db *gorm.DB, conf config.Batch, logger *slog.Logger) *MergeApplication {
	return &MergeApplication{
		db:   db,
		conf: conf,
		resolver: &usecase.Resolver{
			ShortTextFloor: conf.ShortTextFloor,
			DemotionRatio:  conf.DemotionRatio,
		},
		logger: logger,
	}
}

// RunObjectives merges every duplicate objective set in the store.
func (a *MergeApplication) RunObjectives(ctx context.Context) (usecase.MergeOutcome, error) {
	ctx, span := tracer.Start(ctx, "Merge.Application.RunObjectives")
	defer span.End()

	runID := uuid.New().String()
	objectives := repository.NewObjectiveRepository(a.db, runID)
	audit := repository.NewAuditLogRepository(a.db)
	uc := usecase.NewMergeUsecase(objectives, nil, audit, a.resolver, a.logger)

	total := usecase.MergeOutcome{Counts: usecase.MergeCounts{}}
	after := usecase.ParentRef{}
	for {
		parents, err := objectives.ParentChunk(ctx, after, a.conf.ChunkSize)
		if err != nil {
			span.RecordError(err)
			return total, err
		}
		if len(parents) == 0 {
			break
		}
		after = parents[len(parents)-1]

		rows, err := objectives.ListByParents(ctx, parents...)
		if err != nil {
			span.RecordError(err)
			return total, err
		}

		outcome, err := uc.MergeDuplicateObjectives(ctx, rows)
		accumulate(&total, outcome)
		if err != nil {
			span.RecordError(err)
			return total, err
		}
	}

	a.logger.Info("objective dedup run finished",
		slog.String("runId", runID),
		slog.Int("mergedSets", total.MergedSets),
		slog.Int("skipped", len(total.Skipped)),
		slog.Int("failed", total.Failed),
	)
	return total, nil
}

// RunReportObjectives merges duplicate (report, objective) rows.
func (a *MergeApplication) RunReportObjectives(ctx context.Context) (usecase.MergeOutcome, error) {
	ctx, span := tracer.Start(ctx, "Merge.Application.RunReportObjectives")
	defer span.End()

	runID := uuid.New().String()
	reportObjs := repository.NewReportObjectiveRepository(a.db, runID)
	audit := repository.NewAuditLogRepository(a.db)
	uc := usecase.NewMergeUsecase(nil, reportObjs, audit, a.resolver, a.logger)

	total := usecase.MergeOutcome{Counts: usecase.MergeCounts{}}
	var after int64
	for {
		reportIDs, err := reportObjs.ReportChunk(ctx, after, a.conf.ChunkSize)
		if err != nil {
			span.RecordError(err)
			return total, err
		}
		if len(reportIDs) == 0 {
			break
		}
		after = reportIDs[len(reportIDs)-1]

		rows, err := reportObjs.ListByReports(ctx, reportIDs...)
		if err != nil {
			span.RecordError(err)
			return total, err
		}

		outcome, err := uc.MergeDuplicateReportObjectives(ctx, rows)
		accumulate(&total, outcome)
		if err != nil {
			span.RecordError(err)
			return total, err
		}
	}

	a.logger.Info("report objective dedup run finished",
		slog.String("runId", runID),
		slog.Int("mergedSets", total.MergedSets),
		slog.Int("failed", total.Failed),
	)
	return total, nil
}

func accumulate(total *usecase.MergeOutcome, outcome usecase.MergeOutcome) {
	total.MergedSets += outcome.MergedSets
	total.Failed += outcome.Failed
	total.Skipped = append(total.Skipped, outcome.Skipped...)
	total.Counts.Merge(outcome.Counts)
}
