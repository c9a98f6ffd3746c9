package goalmerge

// ObjectiveStatus is the lifecycle status of an objective.
type ObjectiveStatus string

const (
	ObjectiveNotStarted ObjectiveStatus = "Not Started"
	ObjectiveInProgress ObjectiveStatus = "In Progress"
	ObjectiveSuspended  ObjectiveStatus = "Suspended"
	ObjectiveComplete   ObjectiveStatus = "Complete"
)

// GoalStatus is the lifecycle status of a goal.
type GoalStatus string

const (
	GoalNotStarted GoalStatus = "Not Started"
	GoalInProgress GoalStatus = "In Progress"
	GoalSuspended  GoalStatus = "Suspended"
	GoalClosed     GoalStatus = "Closed"
)

// SupportType describes the kind of TTA support an objective delivers.
type SupportType string

const (
	SupportPlanning     SupportType = "Planning"
	SupportIntroducing  SupportType = "Introducing"
	SupportImplementing SupportType = "Implementing"
	SupportMaintaining  SupportType = "Maintaining"
)

var objectiveStatusRank = map[ObjectiveStatus]int{
	ObjectiveNotStarted: 1,
	ObjectiveInProgress: 2,
	ObjectiveSuspended:  3,
	ObjectiveComplete:   4,
}

var goalStatusRank = map[GoalStatus]int{
	GoalNotStarted: 1,
	GoalInProgress: 2,
	GoalSuspended:  3,
	GoalClosed:     4,
}

var supportTypeRank = map[SupportType]int{
	SupportPlanning:     1,
	SupportIntroducing:  2,
	SupportImplementing: 3,
	SupportMaintaining:  4,
}

// Rank returns the progression rank of the status. Unknown statuses
// rank below Not Started so they never win a resolution.
func (s ObjectiveStatus) Rank() int {
	return objectiveStatusRank[s]
}

func (s GoalStatus) Rank() int {
	return goalStatusRank[s]
}

func (s SupportType) Rank() int {
	return supportTypeRank[s]
}
