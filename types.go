package goalmerge

import (
	"time"
)

// Collaborator role names scoped to Goals. Merge roles never propagate
// onto a merge survivor; all others do.
// VocabularyGoals scopes collaborator types to goals.
const VocabularyGoals = "Goals"

const (
	RoleCreator         = "Creator"
	RoleEditor          = "Editor"
	RoleLinker          = "Linker"
	RoleUtilizer        = "Utilizer"
	RoleMergeCreator    = "Merge Creator"
	RoleMergeDeprecator = "Merge Deprecator"
)

// GoalRoles lists the vocabulary in seeding order.
var GoalRoles = []string{
	RoleCreator,
	RoleEditor,
	RoleLinker,
	RoleUtilizer,
	RoleMergeCreator,
	RoleMergeDeprecator,
}

// Goal is an intended outcome for a grantee. A goal with
// MapsToParentGoalID set has been merged away and is no longer a
// dedup target.
type Goal struct {
	ID                 int64
	GrantID            int64
	Name               string
	Status             GoalStatus
	Source             string
	CreatedVia         string
	MapsToParentGoalID *int64
	OnApprovedAR       bool
	CreatedAt          time.Time
	UpdatedAt          time.Time

	FirstNotStartedAt *time.Time
	LastNotStartedAt  *time.Time
	FirstInProgressAt *time.Time
	LastInProgressAt  *time.Time
	FirstSuspendedAt  *time.Time
	LastSuspendedAt   *time.Time
	FirstClosedAt     *time.Time
	LastClosedAt      *time.Time
}

// Objective is a concrete action under a goal (or an other-entity
// context for non-grantee work).
type Objective struct {
	ID                  int64
	GoalID              *int64
	OtherEntityID       *int64
	Title               string
	Status              ObjectiveStatus
	TTAProvided         string
	SupportType         SupportType
	CreatedHere         bool
	OnApprovedAR        bool
	OriginalObjectiveID *int64
	AROrder             int
	CreatedAt           time.Time
	UpdatedAt           time.Time

	FirstNotStartedAt *time.Time
	LastNotStartedAt  *time.Time
	FirstInProgressAt *time.Time
	LastInProgressAt  *time.Time
	FirstSuspendedAt  *time.Time
	LastSuspendedAt   *time.Time
	FirstCompleteAt   *time.Time
	LastCompleteAt    *time.Time
}

// ReportObjective is the per-report copy of an objective's mutable
// fields (the same objective can appear differently across reports).
type ReportObjective struct {
	ID                  int64
	ActivityReportID    int64
	ObjectiveID         int64
	Title               string
	Status              ObjectiveStatus
	TTAProvided         string
	SupportType         SupportType
	CloseSuspendReason  string
	CloseSuspendContext string
	ObjectiveCreatedHere bool
	AROrder             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ChildLink is one row of a many-to-many association table hung off an
// objective or report objective: ParentID is the owning row, ChildID
// the linked topic/course/file/resource.
type ChildLink struct {
	ID       int64
	ParentID int64
	ChildID  int64
}

// CollaboratorType is a vocabulary entry scoped to a domain.
type CollaboratorType struct {
	ID               int64
	Name             string
	ValidFor         string
	PropagateOnMerge bool
}

// CollaboratorFact records one user's relationship of one type to one
// goal, with the evidence that justifies it. Unique per
// (GoalID, UserID, CollaboratorTypeID).
type CollaboratorFact struct {
	ID                 int64
	GoalID             int64
	UserID             int64
	CollaboratorTypeID int64
	LinkBack           LinkBack
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ActivityReport carries the report evidence the ledger consumes:
// author, collaborators and approval state.
type ActivityReport struct {
	ID              int64
	AuthorID        int64
	CollaboratorIDs []int64
	Approved        bool
	ApprovedAt      *time.Time
	CreatedAt       time.Time
}

// ReportGoalLink associates a goal with an activity report.
type ReportGoalLink struct {
	ID               int64
	ActivityReportID int64
	GoalID           int64
	CreatedAt        time.Time
}
