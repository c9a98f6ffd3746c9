package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/infrastructure/database/models"
	"github.com/ttahub/goalmerge/internal/usecase"
)

// VocabularyRepository resolves collaborator types with an in-process
// cache in front of postgres. The vocabulary is tiny and effectively
// immutable between seedings, so a short TTL is plenty.
type VocabularyRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewVocabularyRepository(db *gorm.DB) *VocabularyRepository {
	return &VocabularyRepository{
		db:    db,
		cache: cache.New(10*time.Minute, 30*time.Minute),
	}
}

func (r *VocabularyRepository) TypeByName(ctx context.Context, validFor string, name string) (goalmerge.CollaboratorType, error) {
	ctx, span := tracer.Start(ctx, "Vocabulary.Repository.TypeByName")
	defer span.End()

	key := "vocab:" + validFor + ":" + name
	if cached, ok := r.cache.Get(key); ok {
		return cached.(goalmerge.CollaboratorType), nil
	}

	var row models.CollaboratorType
	err := r.db.WithContext(ctx).
		Where("valid_for = ? AND name = ?", validFor, name).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return goalmerge.CollaboratorType{}, errors.Wrapf(usecase.ErrVocabularyMissing, "%s/%s", validFor, name)
	}
	if err != nil {
		span.RecordError(err)
		return goalmerge.CollaboratorType{}, errors.Wrap(err, "resolving collaborator type")
	}

	typ := row.ConvertToDomain()
	r.cache.Set(key, typ, cache.DefaultExpiration)
	return typ, nil
}

func (r *VocabularyRepository) TypeByID(ctx context.Context, id int64) (goalmerge.CollaboratorType, error) {
	ctx, span := tracer.Start(ctx, "Vocabulary.Repository.TypeByID")
	defer span.End()

	key := fmt.Sprintf("vocab:id:%d", id)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(goalmerge.CollaboratorType), nil
	}

	var row models.CollaboratorType
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return goalmerge.CollaboratorType{}, errors.Wrapf(usecase.ErrVocabularyMissing, "id %d", id)
	}
	if err != nil {
		span.RecordError(err)
		return goalmerge.CollaboratorType{}, errors.Wrap(err, "resolving collaborator type")
	}

	typ := row.ConvertToDomain()
	r.cache.Set(key, typ, cache.DefaultExpiration)
	return typ, nil
}

// Seed installs the goal role vocabulary. Existing rows are left
// untouched so manual edits to propagation flags survive reseeding.
func (r *VocabularyRepository) Seed(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Vocabulary.Repository.Seed")
	defer span.End()

	rows := make([]models.CollaboratorType, 0, len(goalmerge.GoalRoles))
	for _, name := range goalmerge.GoalRoles {
		rows = append(rows, models.CollaboratorType{
			Name:             name,
			ValidFor:         goalmerge.VocabularyGoals,
			PropagateOnMerge: !strings.HasPrefix(name, "Merge"),
		})
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "valid_for"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "seeding collaborator types")
	}

	r.cache.Flush()
	return nil
}
