package usecase

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/ttahub/goalmerge"
)

var tracer = otel.Tracer("usecase")

// Counts reports the writes one merge performed against one table.
type Counts struct {
	Updated   int64 `json:"updated"`
	Repointed int64 `json:"repointed"`
	Deleted   int64 `json:"deleted"`
}

// MergeCounts maps table name to write counts.
type MergeCounts map[string]Counts

// Merge accumulates other into mc.
func (mc MergeCounts) Merge(other MergeCounts) {
	for table, c := range other {
		cur := mc[table]
		cur.Updated += c.Updated
		cur.Repointed += c.Repointed
		cur.Deleted += c.Deleted
		mc[table] = cur
	}
}

// Empty reports whether no writes happened at all.
func (mc MergeCounts) Empty() bool {
	for _, c := range mc {
		if c.Updated != 0 || c.Repointed != 0 || c.Deleted != 0 {
			return false
		}
	}
	return true
}

// MergeOutcome summarizes one batch pass.
type MergeOutcome struct {
	MergedSets int
	Counts     MergeCounts
	Skipped    []DetectionError
	Failed     int
}

// MergeUsecase runs detection and resolution over fetched rows and
// hands each decided merge set to the store, one transaction per set.
// A failing set is logged and skipped; the pass continues.
type MergeUsecase struct {
	objectives ObjectiveRepository
	reportObjs ReportObjectiveRepository
	audit      AuditLogRepository
	resolver   *Resolver
	logger     *slog.Logger
}

func NewMergeUsecase(
	objectives ObjectiveRepository,
	reportObjs ReportObjectiveRepository,
	audit AuditLogRepository,
	resolver *Resolver,
	logger *slog.Logger,
) *MergeUsecase {
	return &MergeUsecase{
		objectives: objectives,
		reportObjs: reportObjs,
		audit:      audit,
		resolver:   resolver,
		logger:     logger,
	}
}

// MergeDuplicateObjectives collapses every duplicate objective set in
// rows. Returns the batch outcome; the returned error is reserved for
// batch-level failures (an unreadable audit log), not per-set ones.
func (uc *MergeUsecase) MergeDuplicateObjectives(ctx context.Context, rows []goalmerge.Objective) (MergeOutcome, error) {
	ctx, span := tracer.Start(ctx, "Merge.Usecase.MergeDuplicateObjectives")
	defer span.End()

	outcome := MergeOutcome{Counts: MergeCounts{}}

	sets, skipped := DetectObjectiveSets(rows)
	outcome.Skipped = skipped
	for _, det := range skipped {
		uc.logger.Warn("duplicate group skipped",
			slog.Int64("goalId", det.Key.GoalID),
			slog.String("reason", det.Reason),
		)
	}

	for _, set := range sets {
		events, err := uc.setEvents(ctx, set)
		if err != nil {
			span.RecordError(err)
			return outcome, errors.Wrap(err, "reading objective audit log")
		}

		res := uc.resolver.ResolveObjectiveSet(set, ttaUpdates(events), events)
		counts, err := uc.objectives.ApplyMerge(ctx, res)
		if err != nil {
			span.RecordError(err)
			uc.logger.Error("objective merge set failed",
				slog.Int64("survivorId", res.SurvivorID),
				slog.String("error", err.Error()),
			)
			outcome.Failed++
			continue
		}
		outcome.MergedSets++
		outcome.Counts.Merge(counts)
	}

	return outcome, nil
}

// MergeDuplicateReportObjectives collapses duplicate
// (activityReport, objective) rows.
func (uc *MergeUsecase) MergeDuplicateReportObjectives(ctx context.Context, rows []goalmerge.ReportObjective) (MergeOutcome, error) {
	ctx, span := tracer.Start(ctx, "Merge.Usecase.MergeDuplicateReportObjectives")
	defer span.End()

	outcome := MergeOutcome{Counts: MergeCounts{}}

	for _, set := range DetectReportObjectiveSets(rows) {
		ids := make([]int64, 0, len(set.Members))
		for _, m := range set.Members {
			ids = append(ids, m.ID)
		}
		events, err := uc.audit.ChangeEvents(ctx, goalmerge.KindReportObjective, ids...)
		if err != nil {
			span.RecordError(err)
			return outcome, errors.Wrap(err, "reading report objective audit log")
		}

		res := uc.resolver.ResolveReportObjectiveSet(set, ttaUpdates(events))
		counts, err := uc.reportObjs.ApplyMerge(ctx, res)
		if err != nil {
			span.RecordError(err)
			uc.logger.Error("report objective merge set failed",
				slog.Int64("activityReportId", set.Key.ActivityReportID),
				slog.Int64("objectiveId", set.Key.ObjectiveID),
				slog.String("error", err.Error()),
			)
			outcome.Failed++
			continue
		}
		outcome.MergedSets++
		outcome.Counts.Merge(counts)
	}

	return outcome, nil
}

func (uc *MergeUsecase) setEvents(ctx context.Context, set MergeSet) ([]goalmerge.ChangeEvent, error) {
	ids := make([]int64, 0, len(set.Members))
	for _, m := range set.Members {
		ids = append(ids, m.ID)
	}
	return uc.audit.ChangeEvents(ctx, goalmerge.KindObjective, ids...)
}

// ttaUpdates extracts the ttaProvided observations from audit events.
func ttaUpdates(events []goalmerge.ChangeEvent) []TextUpdate {
	var updates []TextUpdate
	for _, e := range events {
		if e.Op == goalmerge.OpDelete {
			continue
		}
		text, ok := e.SnapshotString("ttaProvided")
		if !ok {
			continue
		}
		updates = append(updates, TextUpdate{Text: text, At: e.At})
	}
	return updates
}
