package models

import (
	"time"
)

// MergeRecord remembers which row a deleted duplicate was folded into,
// per entity kind, so a merge can be explained after the fact.
type MergeRecord struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	RunID      string    `json:"runId" gorm:"type:text;not null;index"`
	Kind       string    `json:"kind" gorm:"type:text;not null"`
	DonorID    int64     `json:"donorId" gorm:"not null;index"`
	SurvivorID int64     `json:"survivorId" gorm:"not null;index"`
	CreatedAt  time.Time `json:"createdAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}
