package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/ttahub/goalmerge"
)

// AuditEvent is the shared shape of the per-entity audit tables. The
// trigger-maintained log is append only; this side only ever reads it.
type AuditEvent struct {
	ID           int64             `json:"id" gorm:"primaryKey"`
	DataID       int64             `json:"dataId" gorm:"not null;index"`
	Operation    string            `json:"operation" gorm:"type:text;not null"`
	ActingUserID int64             `json:"actingUserId" gorm:"not null"`
	RecordedAt   time.Time         `json:"recordedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
	NewRow       datatypes.JSONMap `json:"newRow" gorm:"type:jsonb"`
}

func (e AuditEvent) ConvertToDomain() goalmerge.ChangeEvent {
	return goalmerge.ChangeEvent{
		EntityID:     e.DataID,
		Op:           goalmerge.ChangeOp(e.Operation),
		ActingUserID: e.ActingUserID,
		At:           e.RecordedAt,
		Snapshot:     e.NewRow,
	}
}

type GoalAudit struct {
	AuditEvent
}

func (GoalAudit) TableName() string { return "goal_audit_log" }

type ObjectiveAudit struct {
	AuditEvent
}

func (ObjectiveAudit) TableName() string { return "objective_audit_log" }

type ReportObjectiveAudit struct {
	AuditEvent
}

func (ReportObjectiveAudit) TableName() string { return "activity_report_objective_audit_log" }

type ReportGoalAudit struct {
	AuditEvent
}

func (ReportGoalAudit) TableName() string { return "activity_report_goal_audit_log" }

// AuditTableFor maps an entity kind to its audit table.
func AuditTableFor(kind goalmerge.EntityKind) (string, bool) {
	switch kind {
	case goalmerge.KindGoal:
		return GoalAudit{}.TableName(), true
	case goalmerge.KindObjective:
		return ObjectiveAudit{}.TableName(), true
	case goalmerge.KindReportObjective:
		return ReportObjectiveAudit{}.TableName(), true
	case goalmerge.KindReportGoal:
		return ReportGoalAudit{}.TableName(), true
	}
	return "", false
}
