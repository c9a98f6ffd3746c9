package goalmerge

import (
	"time"
)

// ChangeOp is the DML operation recorded by the audit log.
type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
)

// EntityKind names an audited table family.
type EntityKind string

const (
	KindGoal            EntityKind = "goal"
	KindObjective       EntityKind = "objective"
	KindReportObjective EntityKind = "activityReportObjective"
	KindReportGoal      EntityKind = "activityReportGoal"
)

// ChangeEvent is one row of the append-only audit log: who did what to
// which entity, with a snapshot of the new row state. Snapshot is nil
// for deletes.
type ChangeEvent struct {
	EntityID     int64
	Op           ChangeOp
	ActingUserID int64
	At           time.Time
	Snapshot     map[string]any
}

// SnapshotString returns the named snapshot field as a string value,
// with ok reporting whether the field was present and non-null.
func (e ChangeEvent) SnapshotString(field string) (string, bool) {
	if e.Snapshot == nil {
		return "", false
	}
	v, found := e.Snapshot[field]
	if !found || v == nil {
		return "", false
	}
	s, isStr := v.(string)
	return s, isStr
}

// SnapshotInt64 returns the named snapshot field as an int64. Audit
// snapshots round-trip through JSONB, so numbers arrive as float64.
func (e ChangeEvent) SnapshotInt64(field string) (int64, bool) {
	if e.Snapshot == nil {
		return 0, false
	}
	switch v := e.Snapshot[field].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
