package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/infrastructure/database/models"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// ChangeEvents returns the change history for the given rows in
// recording order. Rows written by system actors (id <= 0, triggers
// and maintenance scripts) are not attributable to a person and are
// filtered out here, once, for every consumer.
func (r *AuditLogRepository) ChangeEvents(ctx context.Context, kind goalmerge.EntityKind, ids ...int64) ([]goalmerge.ChangeEvent, error) {
	ctx, span := tracer.Start(ctx, "AuditLog.Repository.ChangeEvents")
	defer span.End()

	table, ok := models.AuditTableFor(kind)
	if !ok {
		return nil, errors.Errorf("no audit table for entity kind %q", kind)
	}

	query := r.db.WithContext(ctx).
		Table(table).
		Where("acting_user_id > 0").
		Order("recorded_at ASC, id ASC")
	if len(ids) > 0 {
		query = query.Where("data_id IN ?", ids)
	}

	var rows []models.AuditEvent
	if err := query.Find(&rows).Error; err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "reading audit log")
	}

	events := make([]goalmerge.ChangeEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.ConvertToDomain())
	}
	return events, nil
}
