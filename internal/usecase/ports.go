package usecase

import (
	"context"

	"github.com/ttahub/goalmerge"
)

// AuditLogRepository reads the append-only change log for one entity
// kind, ordered by timestamp ascending. Implementations exclude
// system/migration actors (acting user id <= 0).
type AuditLogRepository interface {
	ChangeEvents(ctx context.Context, kind goalmerge.EntityKind, ids ...int64) ([]goalmerge.ChangeEvent, error)
}

// ParentRef is the chunking key for objectives: duplicate groups never
// span two parents, so paging on distinct parents keeps every group
// whole within one batch. Zero stands in for a null column.
type ParentRef struct {
	GoalID        int64
	OtherEntityID int64
}

// ObjectiveRepository fetches candidate rows and applies resolved
// merges. ApplyMerge runs in a single transaction: survivor update,
// child-link re-point-or-delete, donor deletion.
type ObjectiveRepository interface {
	ParentChunk(ctx context.Context, after ParentRef, limit int) ([]ParentRef, error)
	ListByParents(ctx context.Context, parents ...ParentRef) ([]goalmerge.Objective, error)
	ApplyMerge(ctx context.Context, res ObjectiveResolution) (MergeCounts, error)
}

// ReportObjectiveRepository is the ARO analog of ObjectiveRepository,
// chunked by activity report id.
type ReportObjectiveRepository interface {
	ReportChunk(ctx context.Context, afterReportID int64, limit int) ([]int64, error)
	ListByReports(ctx context.Context, reportIDs ...int64) ([]goalmerge.ReportObjective, error)
	ApplyMerge(ctx context.Context, res ReportObjectiveResolution) (MergeCounts, error)
}

// GoalRepository provides goal rows and merge-chain lookups.
type GoalRepository interface {
	Get(ctx context.Context, id int64) (goalmerge.Goal, error)
	// Parent returns the mapsToParentGoalId of the given goal, nil when
	// the goal is not deprecated.
	Parent(ctx context.Context, id int64) (*int64, error)
}

// CollaboratorRepository persists attribution facts. Upsert must be
// atomic over the find-then-update path (row lock or equivalent) and
// union linkBack rather than overwrite.
type CollaboratorRepository interface {
	Upsert(ctx context.Context, fact goalmerge.CollaboratorFact) (created bool, err error)
	FindByGoal(ctx context.Context, goalID int64) ([]goalmerge.CollaboratorFact, error)
	FindForType(ctx context.Context, goalID int64, typeID int64) ([]goalmerge.CollaboratorFact, error)
	UpdateLinkBack(ctx context.Context, id int64, lb goalmerge.LinkBack) error
	Delete(ctx context.Context, ids ...int64) error
}

// VocabularyRepository resolves collaborator type names for a domain.
type VocabularyRepository interface {
	TypeByName(ctx context.Context, validFor string, name string) (goalmerge.CollaboratorType, error)
	TypeByID(ctx context.Context, id int64) (goalmerge.CollaboratorType, error)
}

// ReportRepository supplies activity-report evidence used as fallback
// when the audit log lacks an explicit actor.
type ReportRepository interface {
	GoalLinks(ctx context.Context, goalID int64) ([]goalmerge.ReportGoalLink, error)
	Reports(ctx context.Context, ids ...int64) ([]goalmerge.ActivityReport, error)
}

// Locker serializes ledger derivation per goal. Release must always be
// called; Acquire fails with ErrLockHeld when another derivation owns
// the goal.
type Locker interface {
	Acquire(ctx context.Context, goalID int64) (release func(), err error)
}
