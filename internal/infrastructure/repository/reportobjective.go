package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/infrastructure/database/models"
	"github.com/ttahub/goalmerge/internal/usecase"
)

const mergeKindReportObjective = "activityReportObjective"

type ReportObjectiveRepository struct {
	db    *gorm.DB
	runID string
}

func NewReportObjectiveRepository(db *gorm.DB, runID string) *ReportObjectiveRepository {
	return &ReportObjectiveRepository{db: db, runID: runID}
}

func (r *ReportObjectiveRepository) ReportChunk(ctx context.Context, afterReportID int64, limit int) ([]int64, error) {
	ctx, span := tracer.Start(ctx, "ReportObjective.Repository.ReportChunk")
	defer span.End()

	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.ActivityReportObjective{}).
		Distinct("activity_report_id").
		Where("activity_report_id > ?", afterReportID).
		Order("activity_report_id ASC").
		Limit(limit).
		Pluck("activity_report_id", &ids).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing report ids")
	}
	return ids, nil
}

func (r *ReportObjectiveRepository) ListByReports(ctx context.Context, reportIDs ...int64) ([]goalmerge.ReportObjective, error) {
	ctx, span := tracer.Start(ctx, "ReportObjective.Repository.ListByReports")
	defer span.End()

	if len(reportIDs) == 0 {
		return nil, nil
	}

	var rows []models.ActivityReportObjective
	err := r.db.WithContext(ctx).
		Where("activity_report_id IN ?", reportIDs).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing report objectives")
	}

	aros := make([]goalmerge.ReportObjective, 0, len(rows))
	for _, row := range rows {
		aros = append(aros, row.ConvertToDomain())
	}
	return aros, nil
}

func (r *ReportObjectiveRepository) ApplyMerge(ctx context.Context, res usecase.ReportObjectiveResolution) (usecase.MergeCounts, error) {
	ctx, span := tracer.Start(ctx, "ReportObjective.Repository.ApplyMerge")
	defer span.End()

	counts := usecase.MergeCounts{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ActivityReportObjective{}).
			Where("id = ?", res.SurvivorID).
			Updates(reportObjectiveAssignments(res.Resolved))
		if result.Error != nil {
			return errors.Wrap(result.Error, "updating survivor report objective")
		}
		c := counts["activity_report_objectives"]
		c.Updated += result.RowsAffected

		if err := mergeChildren(tx, reportObjectiveChildren, res.SurvivorID, res.DonorIDs, counts); err != nil {
			return err
		}

		records := make([]models.MergeRecord, 0, len(res.DonorIDs))
		for _, donorID := range res.DonorIDs {
			records = append(records, models.MergeRecord{
				RunID:      r.runID,
				Kind:       mergeKindReportObjective,
				DonorID:    donorID,
				SurvivorID: res.SurvivorID,
			})
		}
		if err := tx.Create(&records).Error; err != nil {
			return errors.Wrap(err, "writing merge records")
		}

		result = tx.Delete(&models.ActivityReportObjective{}, "id IN ?", res.DonorIDs)
		if result.Error != nil {
			return errors.Wrap(result.Error, "deleting donor report objectives")
		}
		c.Deleted += result.RowsAffected
		counts["activity_report_objectives"] = c

		return nil
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Wrap(usecase.ErrMergeConflict, err.Error())
		}
		return nil, err
	}
	return counts, nil
}

func reportObjectiveAssignments(a goalmerge.ReportObjective) map[string]any {
	return map[string]any{
		"title":                  a.Title,
		"status":                 string(a.Status),
		"tta_provided":           a.TTAProvided,
		"support_type":           string(a.SupportType),
		"close_suspend_reason":   a.CloseSuspendReason,
		"close_suspend_context":  a.CloseSuspendContext,
		"objective_created_here": a.ObjectiveCreatedHere,
		"created_at":             a.CreatedAt,
		"updated_at":             a.UpdatedAt,
	}
}
