package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/infrastructure/database/models"
)

type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) Get(ctx context.Context, id int64) (goalmerge.Goal, error) {
	ctx, span := tracer.Start(ctx, "Goal.Repository.Get")
	defer span.End()

	var goal models.Goal
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&goal).Error
	if err != nil {
		span.RecordError(err)
		return goalmerge.Goal{}, errors.Wrapf(err, "getting goal %d", id)
	}
	return goal.ConvertToDomain(), nil
}

func (r *GoalRepository) Parent(ctx context.Context, id int64) (*int64, error) {
	ctx, span := tracer.Start(ctx, "Goal.Repository.Parent")
	defer span.End()

	var goal models.Goal
	err := r.db.WithContext(ctx).
		Select("id, maps_to_parent_goal_id").
		Where("id = ?", id).
		Take(&goal).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrapf(err, "getting goal %d parent", id)
	}
	return goal.MapsToParentGoalID, nil
}
