package usecase

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrVocabularyMissing means a collaborator type name has no row in
	// the vocabulary table for the requested domain.
	ErrVocabularyMissing = errors.New("collaborator type not found")

	// ErrMergeConflict is an unexpected uniqueness violation while
	// re-pointing child links; it fails one merge set, not the batch.
	ErrMergeConflict = errors.New("merge conflict")

	// ErrLockHeld means another derivation currently owns the goal.
	ErrLockHeld = errors.New("goal lock held")

	// ErrCycle means a mapsToParentGoalId chain loops back on itself.
	ErrCycle = errors.New("merge chain cycle")
)

// DetectionError describes a candidate group that could not form a
// valid duplicate set. Groups carrying one are skipped, not fatal.
type DetectionError struct {
	Key    ObjectiveKey
	Reason string
}

func (e DetectionError) Error() string {
	return fmt.Sprintf("duplicate group %v skipped: %s", e.Key, e.Reason)
}
