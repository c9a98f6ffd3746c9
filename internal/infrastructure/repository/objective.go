package repository

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/infrastructure/database/models"
	"github.com/ttahub/goalmerge/internal/usecase"
)

var tracer = otel.Tracer("repository")

const mergeKindObjective = "objective"

type ObjectiveRepository struct {
	db    *gorm.DB
	runID string
}

// NewObjectiveRepository binds the repository to one batch run; merge
// records written through it carry runID.
func NewObjectiveRepository(db *gorm.DB, runID string) *ObjectiveRepository {
	return &ObjectiveRepository{db: db, runID: runID}
}

func (r *ObjectiveRepository) ParentChunk(ctx context.Context, after usecase.ParentRef, limit int) ([]usecase.ParentRef, error) {
	ctx, span := tracer.Start(ctx, "Objective.Repository.ParentChunk")
	defer span.End()

	var refs []usecase.ParentRef
	err := r.db.WithContext(ctx).Model(&models.Objective{}).
		Select("DISTINCT COALESCE(goal_id, 0) AS goal_id, COALESCE(other_entity_id, 0) AS other_entity_id").
		Where("(COALESCE(goal_id, 0), COALESCE(other_entity_id, 0)) > (?, ?)", after.GoalID, after.OtherEntityID).
		Order("goal_id ASC, other_entity_id ASC").
		Limit(limit).
		Scan(&refs).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing objective parents")
	}
	return refs, nil
}

func (r *ObjectiveRepository) ListByParents(ctx context.Context, parents ...usecase.ParentRef) ([]goalmerge.Objective, error) {
	ctx, span := tracer.Start(ctx, "Objective.Repository.ListByParents")
	defer span.End()

	if len(parents) == 0 {
		return nil, nil
	}

	scope := r.db.Where(
		"COALESCE(goal_id, 0) = ? AND COALESCE(other_entity_id, 0) = ?",
		parents[0].GoalID, parents[0].OtherEntityID,
	)
	for _, p := range parents[1:] {
		scope = scope.Or(
			"COALESCE(goal_id, 0) = ? AND COALESCE(other_entity_id, 0) = ?",
			p.GoalID, p.OtherEntityID,
		)
	}

	var rows []models.Objective
	err := r.db.WithContext(ctx).
		Where(scope).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing objectives")
	}

	objectives := make([]goalmerge.Objective, 0, len(rows))
	for _, row := range rows {
		objectives = append(objectives, row.ConvertToDomain())
	}
	return objectives, nil
}

// ApplyMerge folds a decided duplicate set into its survivor in one
// transaction: survivor fields, child links, donor deletion and the
// merge record all land or none do.
func (r *ObjectiveRepository) ApplyMerge(ctx context.Context, res usecase.ObjectiveResolution) (usecase.MergeCounts, error) {
	ctx, span := tracer.Start(ctx, "Objective.Repository.ApplyMerge")
	defer span.End()

	counts := usecase.MergeCounts{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Objective{}).
			Where("id = ?", res.SurvivorID).
			Updates(objectiveAssignments(res.Resolved))
		if result.Error != nil {
			return errors.Wrap(result.Error, "updating survivor objective")
		}
		c := counts["objectives"]
		c.Updated += result.RowsAffected

		if err := mergeChildren(tx, objectiveChildren, res.SurvivorID, res.DonorIDs, counts); err != nil {
			return err
		}

		result = tx.Exec(
			"UPDATE activity_report_objectives SET objective_id = ? WHERE objective_id IN ?",
			res.SurvivorID, res.DonorIDs,
		)
		if result.Error != nil {
			return errors.Wrap(result.Error, "repointing report objectives")
		}
		aro := counts["activity_report_objectives"]
		aro.Repointed += result.RowsAffected
		counts["activity_report_objectives"] = aro

		records := make([]models.MergeRecord, 0, len(res.DonorIDs))
		for _, donorID := range res.DonorIDs {
			records = append(records, models.MergeRecord{
				RunID:      r.runID,
				Kind:       mergeKindObjective,
				DonorID:    donorID,
				SurvivorID: res.SurvivorID,
			})
		}
		if err := tx.Create(&records).Error; err != nil {
			return errors.Wrap(err, "writing merge records")
		}

		result = tx.Delete(&models.Objective{}, "id IN ?", res.DonorIDs)
		if result.Error != nil {
			return errors.Wrap(result.Error, "deleting donor objectives")
		}
		c.Deleted += result.RowsAffected
		counts["objectives"] = c

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

// objectiveAssignments spells out every resolved column so zero values
// (cleared timestamps, false booleans) still overwrite the survivor.
func objectiveAssignments(o goalmerge.Objective) map[string]any {
	return map[string]any{
		"title":                 o.Title,
		"status":                string(o.Status),
		"tta_provided":          o.TTAProvided,
		"support_type":          string(o.SupportType),
		"created_here":          o.CreatedHere,
		"on_approved_ar":        o.OnApprovedAR,
		"original_objective_id": o.OriginalObjectiveID,
		"created_at":            o.CreatedAt,
		"updated_at":            o.UpdatedAt,
		"first_not_started_at":  o.FirstNotStartedAt,
		"last_not_started_at":   o.LastNotStartedAt,
		"first_in_progress_at":  o.FirstInProgressAt,
		"last_in_progress_at":   o.LastInProgressAt,
		"first_suspended_at":    o.FirstSuspendedAt,
		"last_suspended_at":     o.LastSuspendedAt,
		"first_complete_at":     o.FirstCompleteAt,
		"last_complete_at":      o.LastCompleteAt,
	}
}
