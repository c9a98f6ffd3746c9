package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/ttahub/goalmerge"
)

type Goal struct {
	ID                 int64      `json:"id" gorm:"primaryKey"`
	GrantID            int64      `json:"grantId" gorm:"index;not null"`
	Name               string     `json:"name" gorm:"type:text;not null"`
	Status             string     `json:"status" gorm:"type:text"`
	Source             string     `json:"source" gorm:"type:text"`
	CreatedVia         string     `json:"createdVia" gorm:"type:text"`
	MapsToParentGoalID *int64     `json:"mapsToParentGoalId" gorm:"index"`
	OnApprovedAR       bool       `json:"onApprovedAR" gorm:"not null;default:false"`
	CreatedAt          time.Time  `json:"createdAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt          time.Time  `json:"updatedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	FirstNotStartedAt  *time.Time `json:"firstNotStartedAt" gorm:"type:timestamp with time zone"`
	LastNotStartedAt   *time.Time `json:"lastNotStartedAt" gorm:"type:timestamp with time zone"`
	FirstInProgressAt  *time.Time `json:"firstInProgressAt" gorm:"type:timestamp with time zone"`
	LastInProgressAt   *time.Time `json:"lastInProgressAt" gorm:"type:timestamp with time zone"`
	FirstSuspendedAt   *time.Time `json:"firstSuspendedAt" gorm:"type:timestamp with time zone"`
	LastSuspendedAt    *time.Time `json:"lastSuspendedAt" gorm:"type:timestamp with time zone"`
	FirstClosedAt      *time.Time `json:"firstClosedAt" gorm:"type:timestamp with time zone"`
	LastClosedAt       *time.Time `json:"lastClosedAt" gorm:"type:timestamp with time zone"`
}

func (g Goal) ConvertToDomain() goalmerge.Goal {
	return goalmerge.Goal{
		ID:                 g.ID,
		GrantID:            g.GrantID,
		Name:               g.Name,
		Status:             goalmerge.GoalStatus(g.Status),
		Source:             g.Source,
		CreatedVia:         g.CreatedVia,
		MapsToParentGoalID: g.MapsToParentGoalID,
		OnApprovedAR:       g.OnApprovedAR,
		CreatedAt:          g.CreatedAt,
		UpdatedAt:          g.UpdatedAt,
		FirstNotStartedAt:  g.FirstNotStartedAt,
		LastNotStartedAt:   g.LastNotStartedAt,
		FirstInProgressAt:  g.FirstInProgressAt,
		LastInProgressAt:   g.LastInProgressAt,
		FirstSuspendedAt:   g.FirstSuspendedAt,
		LastSuspendedAt:    g.LastSuspendedAt,
		FirstClosedAt:      g.FirstClosedAt,
		LastClosedAt:       g.LastClosedAt,
	}
}

type CollaboratorType struct {
	ID               int64  `json:"id" gorm:"primaryKey"`
	Name             string `json:"name" gorm:"type:text;not null;uniqueIndex:idx_collaborator_types_valid_for_name"`
	ValidFor         string `json:"validFor" gorm:"type:text;not null;uniqueIndex:idx_collaborator_types_valid_for_name"`
	PropagateOnMerge bool   `json:"propagateOnMerge" gorm:"not null;default:true"`
}

func (t CollaboratorType) ConvertToDomain() goalmerge.CollaboratorType {
	return goalmerge.CollaboratorType{
		ID:               t.ID,
		Name:             t.Name,
		ValidFor:         t.ValidFor,
		PropagateOnMerge: t.PropagateOnMerge,
	}
}

type GoalCollaborator struct {
	ID                 int64                                  `json:"id" gorm:"primaryKey"`
	GoalID             int64                                  `json:"goalId" gorm:"not null;uniqueIndex:idx_goal_collaborators_fact"`
	Goal               Goal                                   `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	UserID             int64                                  `json:"userId" gorm:"not null;uniqueIndex:idx_goal_collaborators_fact"`
	CollaboratorTypeID int64                                  `json:"collaboratorTypeId" gorm:"not null;uniqueIndex:idx_goal_collaborators_fact"`
	CollaboratorType   CollaboratorType                       `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	LinkBack           datatypes.JSONType[goalmerge.LinkBack] `json:"linkBack" gorm:"type:jsonb"`
	CreatedAt          time.Time                              `json:"createdAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	UpdatedAt          time.Time                              `json:"updatedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

func (c GoalCollaborator) ConvertToDomain() goalmerge.CollaboratorFact {
	return goalmerge.CollaboratorFact{
		ID:                 c.ID,
		GoalID:             c.GoalID,
		UserID:             c.UserID,
		CollaboratorTypeID: c.CollaboratorTypeID,
		LinkBack:           c.LinkBack.Data(),
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}
