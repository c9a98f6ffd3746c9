package models

import (
	"time"

	"github.com/ttahub/goalmerge"
)

type Objective struct {
	ID                  int64      `json:"id" gorm:"primaryKey"`
	GoalID              *int64     `json:"goalId" gorm:"index"`
	OtherEntityID       *int64     `json:"otherEntityId" gorm:"index"`
	Title               string     `json:"title" gorm:"type:text;not null"`
	Status              string     `json:"status" gorm:"type:text"`
	TTAProvided         string     `json:"ttaProvided" gorm:"type:text"`
	SupportType         string     `json:"supportType" gorm:"type:text"`
	CreatedHere         bool       `json:"createdHere" gorm:"not null;default:false"`
	OnApprovedAR        bool       `json:"onApprovedAR" gorm:"not null;default:false"`
	OriginalObjectiveID *int64     `json:"originalObjectiveId"`
	AROrder             int        `json:"arOrder" gorm:"not null;default:0"`
	CreatedAt           time.Time  `json:"createdAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt           time.Time  `json:"updatedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	FirstNotStartedAt   *time.Time `json:"firstNotStartedAt" gorm:"type:timestamp with time zone"`
	LastNotStartedAt    *time.Time `json:"lastNotStartedAt" gorm:"type:timestamp with time zone"`
	FirstInProgressAt   *time.Time `json:"firstInProgressAt" gorm:"type:timestamp with time zone"`
	LastInProgressAt    *time.Time `json:"lastInProgressAt" gorm:"type:timestamp with time zone"`
	FirstSuspendedAt    *time.Time `json:"firstSuspendedAt" gorm:"type:timestamp with time zone"`
	LastSuspendedAt     *time.Time `json:"lastSuspendedAt" gorm:"type:timestamp with time zone"`
	FirstCompleteAt     *time.Time `json:"firstCompleteAt" gorm:"type:timestamp with time zone"`
	LastCompleteAt      *time.Time `json:"lastCompleteAt" gorm:"type:timestamp with time zone"`
}

func (o Objective) ConvertToDomain() goalmerge.Objective {
	return goalmerge.Objective{
		ID:                  o.ID,
		GoalID:              o.GoalID,
		OtherEntityID:       o.OtherEntityID,
		Title:               o.Title,
		Status:              goalmerge.ObjectiveStatus(o.Status),
		TTAProvided:         o.TTAProvided,
		SupportType:         goalmerge.SupportType(o.SupportType),
		CreatedHere:         o.CreatedHere,
		OnApprovedAR:        o.OnApprovedAR,
		OriginalObjectiveID: o.OriginalObjectiveID,
		AROrder:             o.AROrder,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
		FirstNotStartedAt:   o.FirstNotStartedAt,
		LastNotStartedAt:    o.LastNotStartedAt,
		FirstInProgressAt:   o.FirstInProgressAt,
		LastInProgressAt:    o.LastInProgressAt,
		FirstSuspendedAt:    o.FirstSuspendedAt,
		LastSuspendedAt:     o.LastSuspendedAt,
		FirstCompleteAt:     o.FirstCompleteAt,
		LastCompleteAt:      o.LastCompleteAt,
	}
}

type ObjectiveTopic struct {
	ID          int64 `json:"id" gorm:"primaryKey"`
	ObjectiveID int64 `json:"objectiveId" gorm:"not null;uniqueIndex:idx_objective_topics_pair"`
	TopicID     int64 `json:"topicId" gorm:"not null;uniqueIndex:idx_objective_topics_pair"`
}

type ObjectiveCourse struct {
	ID          int64 `json:"id" gorm:"primaryKey"`
	ObjectiveID int64 `json:"objectiveId" gorm:"not null;uniqueIndex:idx_objective_courses_pair"`
	CourseID    int64 `json:"courseId" gorm:"not null;uniqueIndex:idx_objective_courses_pair"`
}

type ObjectiveFile struct {
	ID          int64 `json:"id" gorm:"primaryKey"`
	ObjectiveID int64 `json:"objectiveId" gorm:"not null;uniqueIndex:idx_objective_files_pair"`
	FileID      int64 `json:"fileId" gorm:"not null;uniqueIndex:idx_objective_files_pair"`
}

type ObjectiveResource struct {
	ID          int64 `json:"id" gorm:"primaryKey"`
	ObjectiveID int64 `json:"objectiveId" gorm:"not null;uniqueIndex:idx_objective_resources_pair"`
	ResourceID  int64 `json:"resourceId" gorm:"not null;uniqueIndex:idx_objective_resources_pair"`
}

type ActivityReportObjective struct {
	ID                   int64     `json:"id" gorm:"primaryKey"`
	ActivityReportID     int64     `json:"activityReportId" gorm:"not null;index"`
	ObjectiveID          int64     `json:"objectiveId" gorm:"not null;index"`
	Title                string    `json:"title" gorm:"type:text"`
	Status               string    `json:"status" gorm:"type:text"`
	TTAProvided          string    `json:"ttaProvided" gorm:"type:text"`
	SupportType          string    `json:"supportType" gorm:"type:text"`
	CloseSuspendReason   string    `json:"closeSuspendReason" gorm:"type:text"`
	CloseSuspendContext  string    `json:"closeSuspendContext" gorm:"type:text"`
	ObjectiveCreatedHere bool      `json:"objectiveCreatedHere" gorm:"not null;default:false"`
	AROrder              int       `json:"arOrder" gorm:"not null;default:0"`
	CreatedAt            time.Time `json:"createdAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt            time.Time `json:"updatedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

func (a ActivityReportObjective) ConvertToDomain() goalmerge.ReportObjective {
	return goalmerge.ReportObjective{
		ID:                   a.ID,
		ActivityReportID:     a.ActivityReportID,
		ObjectiveID:          a.ObjectiveID,
		Title:                a.Title,
		Status:               goalmerge.ObjectiveStatus(a.Status),
		TTAProvided:          a.TTAProvided,
		SupportType:          goalmerge.SupportType(a.SupportType),
		CloseSuspendReason:   a.CloseSuspendReason,
		CloseSuspendContext:  a.CloseSuspendContext,
		ObjectiveCreatedHere: a.ObjectiveCreatedHere,
		AROrder:              a.AROrder,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
	}
}

type ReportObjectiveTopic struct {
	ID                        int64 `json:"id" gorm:"primaryKey"`
	ActivityReportObjectiveID int64 `json:"activityReportObjectiveId" gorm:"not null;uniqueIndex:idx_aro_topics_pair"`
	TopicID                   int64 `json:"topicId" gorm:"not null;uniqueIndex:idx_aro_topics_pair"`
}

type ReportObjectiveCourse struct {
	ID                        int64 `json:"id" gorm:"primaryKey"`
	ActivityReportObjectiveID int64 `json:"activityReportObjectiveId" gorm:"not null;uniqueIndex:idx_aro_courses_pair"`
	CourseID                  int64 `json:"courseId" gorm:"not null;uniqueIndex:idx_aro_courses_pair"`
}

type ReportObjectiveFile struct {
	ID                        int64 `json:"id" gorm:"primaryKey"`
	ActivityReportObjectiveID int64 `json:"activityReportObjectiveId" gorm:"not null;uniqueIndex:idx_aro_files_pair"`
	FileID                    int64 `json:"fileId" gorm:"not null;uniqueIndex:idx_aro_files_pair"`
}

type ReportObjectiveResource struct {
	ID                        int64 `json:"id" gorm:"primaryKey"`
	ActivityReportObjectiveID int64 `json:"activityReportObjectiveId" gorm:"not null;uniqueIndex:idx_aro_resources_pair"`
	ResourceID                int64 `json:"resourceId" gorm:"not null;uniqueIndex:idx_aro_resources_pair"`
}
