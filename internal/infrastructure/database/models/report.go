package models

import (
	"time"

	"github.com/ttahub/goalmerge"
)

type ActivityReport struct {
	ID         int64      `json:"id" gorm:"primaryKey"`
	AuthorID   int64      `json:"authorId" gorm:"not null;index"`
	Status     string     `json:"status" gorm:"type:text"`
	ApprovedAt *time.Time `json:"approvedAt" gorm:"type:timestamp with time zone"`
	CreatedAt  time.Time  `json:"createdAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt  time.Time  `json:"updatedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

const ReportStatusApproved = "approved"

func (r ActivityReport) ConvertToDomain(collaboratorIDs []int64) goalmerge.ActivityReport {
	return goalmerge.ActivityReport{
		ID:              r.ID,
		AuthorID:        r.AuthorID,
		CollaboratorIDs: collaboratorIDs,
		Approved:        r.Status == ReportStatusApproved,
		ApprovedAt:      r.ApprovedAt,
		CreatedAt:       r.CreatedAt,
	}
}

type ActivityReportCollaborator struct {
	ID               int64 `json:"id" gorm:"primaryKey"`
	ActivityReportID int64 `json:"activityReportId" gorm:"not null;uniqueIndex:idx_ar_collaborators_pair"`
	UserID           int64 `json:"userId" gorm:"not null;uniqueIndex:idx_ar_collaborators_pair"`
}

type ActivityReportGoal struct {
	ID               int64     `json:"id" gorm:"primaryKey"`
	ActivityReportID int64     `json:"activityReportId" gorm:"not null;uniqueIndex:idx_ar_goals_pair"`
	GoalID           int64     `json:"goalId" gorm:"not null;uniqueIndex:idx_ar_goals_pair"`
	CreatedAt        time.Time `json:"createdAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

func (l ActivityReportGoal) ConvertToDomain() goalmerge.ReportGoalLink {
	return goalmerge.ReportGoalLink{
		ID:               l.ID,
		ActivityReportID: l.ActivityReportID,
		GoalID:           l.GoalID,
		CreatedAt:        l.CreatedAt,
	}
}
