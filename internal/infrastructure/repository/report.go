package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/infrastructure/database/models"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) GoalLinks(ctx context.Context, goalID int64) ([]goalmerge.ReportGoalLink, error) {
	ctx, span := tracer.Start(ctx, "Report.Repository.GoalLinks")
	defer span.End()

	var rows []models.ActivityReportGoal
	err := r.db.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing report goal links")
	}

	links := make([]goalmerge.ReportGoalLink, 0, len(rows))
	for _, row := range rows {
		links = append(links, row.ConvertToDomain())
	}
	return links, nil
}

func (r *ReportRepository) Reports(ctx context.Context, ids ...int64) ([]goalmerge.ActivityReport, error) {
	ctx, span := tracer.Start(ctx, "Report.Repository.Reports")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	var rows []models.ActivityReport
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing activity reports")
	}

	var collabs []models.ActivityReportCollaborator
	err = r.db.WithContext(ctx).
		Where("activity_report_id IN ?", ids).
		Order("id ASC").
		Find(&collabs).Error
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "listing report collaborators")
	}

	byReport := map[int64][]int64{}
	for _, c := range collabs {
		byReport[c.ActivityReportID] = append(byReport[c.ActivityReportID], c.UserID)
	}

	reports := make([]goalmerge.ActivityReport, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.ConvertToDomain(byReport[row.ID]))
	}
	return reports, nil
}
