package usecase

import (
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/ttahub/goalmerge"
)

// ObjectiveKey identifies one logical objective: same parent keys and
// the same normalized title.
type ObjectiveKey struct {
	GoalID        int64
	OtherEntityID int64
	TitleHash     uint64
}

func objectiveKey(o goalmerge.Objective) ObjectiveKey {
	key := ObjectiveKey{
		TitleHash: xxh3.HashString(strings.TrimSpace(o.Title)),
	}
	if o.GoalID != nil {
		key.GoalID = *o.GoalID
	}
	if o.OtherEntityID != nil {
		key.OtherEntityID = *o.OtherEntityID
	}
	return key
}

// DuplicateGroup is all current rows sharing one ObjectiveKey.
type DuplicateGroup struct {
	Key     ObjectiveKey
	Members []goalmerge.Objective
}

// MergeSet is a partition of a duplicate group bounded by a Complete
// observation. A set with no Complete member is "open"; a group forms
// at most one open set.
type MergeSet struct {
	Key      ObjectiveKey
	Members  []goalmerge.Objective
	Terminal *goalmerge.Objective
}

// DetectObjectiveSets groups the given current rows into duplicate
// sets and partitions each into merge sets. Only sets with at least
// two members are returned. Groups that cannot be partitioned cleanly
// are reported as DetectionErrors and skipped.
func DetectObjectiveSets(rows []goalmerge.Objective) ([]MergeSet, []DetectionError) {
	groups := map[ObjectiveKey][]goalmerge.Objective{}
	for _, row := range rows {
		key := objectiveKey(row)
		groups[key] = append(groups[key], row)
	}

	keys := make([]ObjectiveKey, 0, len(groups))
	for key, members := range groups {
		if len(members) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	var sets []MergeSet
	var skipped []DetectionError
	for _, key := range keys {
		partitioned, err := partitionGroup(key, groups[key])
		if err != nil {
			skipped = append(skipped, *err)
			continue
		}
		sets = append(sets, partitioned...)
	}
	return sets, skipped
}

// partitionGroup scans members by updatedAt descending, id descending
// as tie break. A Complete row consumed mid-scan terminates the run of
// older duplicates that follow it: the Complete becomes the terminal of
// a new set and absorbs members until the next Complete. Rows newer
// than every Complete form the one open set a group may carry.
func partitionGroup(key ObjectiveKey, members []goalmerge.Objective) ([]MergeSet, *DetectionError) {
	if hasUntitled(members) {
		return nil, &DetectionError{Key: key, Reason: "blank title"}
	}

	ordered := make([]goalmerge.Objective, len(members))
	copy(ordered, members)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].UpdatedAt.Equal(ordered[j].UpdatedAt) {
			return ordered[i].UpdatedAt.After(ordered[j].UpdatedAt)
		}
		return ordered[i].ID > ordered[j].ID
	})

	var sets []MergeSet
	current := MergeSet{Key: key}
	for _, row := range ordered {
		if row.Status == goalmerge.ObjectiveComplete {
			if len(current.Members) > 0 {
				sets = append(sets, current)
			}
			terminal := row
			current = MergeSet{Key: key, Terminal: &terminal, Members: []goalmerge.Objective{row}}
			continue
		}
		current.Members = append(current.Members, row)
	}
	if len(current.Members) > 0 {
		sets = append(sets, current)
	}

	kept := sets[:0]
	for _, set := range sets {
		if len(set.Members) > 1 {
			kept = append(kept, set)
		}
	}
	return kept, nil
}

func hasUntitled(members []goalmerge.Objective) bool {
	for _, m := range members {
		if strings.TrimSpace(m.Title) == "" {
			return true
		}
	}
	return false
}

func lessKey(a, b ObjectiveKey) bool {
	if a.GoalID != b.GoalID {
		return a.GoalID < b.GoalID
	}
	if a.OtherEntityID != b.OtherEntityID {
		return a.OtherEntityID < b.OtherEntityID
	}
	return a.TitleHash < b.TitleHash
}

// ReportObjectivePair identifies duplicate AROs: the same objective
// linked to the same report more than once.
type ReportObjectivePair struct {
	ActivityReportID int64
	ObjectiveID      int64
}

// ReportObjectiveSet is all rows sharing one pair; exactly one survives
// a merge.
type ReportObjectiveSet struct {
	Key     ReportObjectivePair
	Members []goalmerge.ReportObjective
}

// DetectReportObjectiveSets groups report objectives into duplicate
// pairs with more than one row.
func DetectReportObjectiveSets(rows []goalmerge.ReportObjective) []ReportObjectiveSet {
	groups := map[ReportObjectivePair][]goalmerge.ReportObjective{}
	for _, row := range rows {
		key := ReportObjectivePair{ActivityReportID: row.ActivityReportID, ObjectiveID: row.ObjectiveID}
		groups[key] = append(groups[key], row)
	}

	keys := make([]ReportObjectivePair, 0, len(groups))
	for key, members := range groups {
		if len(members) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ActivityReportID != keys[j].ActivityReportID {
			return keys[i].ActivityReportID < keys[j].ActivityReportID
		}
		return keys[i].ObjectiveID < keys[j].ObjectiveID
	})

	sets := make([]ReportObjectiveSet, 0, len(keys))
	for _, key := range keys {
		members := groups[key]
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		sets = append(sets, ReportObjectiveSet{Key: key, Members: members})
	}
	return sets
}
