package database

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ttahub/goalmerge/internal/infrastructure/database/models"
)

func NewPostgres(dsn string) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             300 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger,
	})
	return db, err
}

func MigratePostgres(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Goal{},
		&models.Objective{},
		&models.ObjectiveTopic{},
		&models.ObjectiveCourse{},
		&models.ObjectiveFile{},
		&models.ObjectiveResource{},
		&models.ActivityReport{},
		&models.ActivityReportCollaborator{},
		&models.ActivityReportGoal{},
		&models.ActivityReportObjective{},
		&models.ReportObjectiveTopic{},
		&models.ReportObjectiveCourse{},
		&models.ReportObjectiveFile{},
		&models.ReportObjectiveResource{},
		&models.CollaboratorType{},
		&models.GoalCollaborator{},
		&models.GoalAudit{},
		&models.ObjectiveAudit{},
		&models.ReportObjectiveAudit{},
		&models.ReportGoalAudit{},
		&models.MergeRecord{},
	)
}
