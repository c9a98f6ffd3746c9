package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/infrastructure/database/models"
)

type CollaboratorRepository struct {
	db *gorm.DB
}

func NewCollaboratorRepository(db *gorm.DB) *CollaboratorRepository {
	return &CollaboratorRepository{db: db}
}

// Upsert writes one attribution fact. The existing row is locked for
// the read-union-write so concurrent derivations cannot drop each
// other's evidence; linkBack is unioned, never overwritten.
func (r *CollaboratorRepository) Upsert(ctx context.Context, fact goalmerge.CollaboratorFact) (bool, error) {
	ctx, span := tracer.Start(ctx, "Collaborator.Repository.Upsert")
	defer span.End()

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.GoalCollaborator
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("goal_id = ? AND user_id = ? AND collaborator_type_id = ?",
				fact.GoalID, fact.UserID, fact.CollaboratorTypeID).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row := models.GoalCollaborator{
				GoalID:             fact.GoalID,
				UserID:             fact.UserID,
				CollaboratorTypeID: fact.CollaboratorTypeID,
				LinkBack:           datatypes.NewJSONType(fact.LinkBack),
				CreatedAt:          fact.CreatedAt,
				UpdatedAt:          fact.UpdatedAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return errors.Wrap(err, "creating collaborator")
			}
			created = true
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "locking collaborator")
		}

		merged := existing.LinkBack.Data().Union(fact.LinkBack)
		assignments := map[string]any{
			"link_back":  datatypes.NewJSONType(merged),
			"updated_at": maxTime(existing.UpdatedAt, fact.UpdatedAt),
		}
		if !fact.CreatedAt.IsZero() && fact.CreatedAt.Before(existing.CreatedAt) {
			assignments["created_at"] = fact.CreatedAt
		}
		return errors.Wrap(
			tx.Model(&existing).Updates(assignments).Error,
			"updating collaborator",
		)
	})
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return created, nil
}

func (r *CollaboratorRepository) FindByGoal(ctx context.Context, goalID int64) ([]goalmerge.CollaboratorFact, error) {
	ctx, span := tracer.Start(ctx, "Collaborator.Repository.FindByGoal")
	defer span.End()

	var rows []models.GoalCollaborator
	err := r.db.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing goal collaborators")
	}
	return convertFacts(rows), nil
}

func (r *CollaboratorRepository) FindForType(ctx context.Context, goalID int64, typeID int64) ([]goalmerge.CollaboratorFact, error) {
	ctx, span := tracer.Start(ctx, "Collaborator.Repository.FindForType")
	defer span.End()

	var rows []models.GoalCollaborator
	err := r.db.WithContext(ctx).
		Where("goal_id = ? AND collaborator_type_id = ?", goalID, typeID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing collaborators for type")
	}
	return convertFacts(rows), nil
}

func (r *CollaboratorRepository) UpdateLinkBack(ctx context.Context, id int64, lb goalmerge.LinkBack) error {
	ctx, span := tracer.Start(ctx, "Collaborator.Repository.UpdateLinkBack")
	defer span.End()

	err := r.db.WithContext(ctx).
		Model(&models.GoalCollaborator{}).
		Where("id = ?", id).
		Update("link_back", datatypes.NewJSONType(lb)).Error
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "updating collaborator %d linkBack", id)
	}
	return nil
}

func (r *CollaboratorRepository) Delete(ctx context.Context, ids ...int64) error {
	ctx, span := tracer.Start(ctx, "Collaborator.Repository.Delete")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Delete(&models.GoalCollaborator{}, "id IN ?", ids).Error
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "deleting collaborators")
	}
	return nil
}

func convertFacts(rows []models.GoalCollaborator) []goalmerge.CollaboratorFact {
	facts := make([]goalmerge.CollaboratorFact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, row.ConvertToDomain())
	}
	return facts
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
