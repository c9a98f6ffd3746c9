package usecase

import (
	"sort"
	"time"

	"github.com/ttahub/goalmerge"
)

// Resolver defaults. A recent ttaProvided edit shorter than
// DefaultShortTextFloor runes is demoted when the longest candidate in
// the set is more than DefaultDemotionRatio times its length, on the
// grounds that it is likely a placeholder rather than a substantive
// update. Values match the historical data repair; verify against real
// data before changing them.
const (
	DefaultShortTextFloor = 10
	DefaultDemotionRatio  = 8
)

// Resolver computes the winning value per field for a merge set. It is
// pure: it never touches storage.
type Resolver struct {
	ShortTextFloor int
	DemotionRatio  int
}

func NewResolver() *Resolver {
	return &Resolver{
		ShortTextFloor: DefaultShortTextFloor,
		DemotionRatio:  DefaultDemotionRatio,
	}
}

// TextUpdate is one audit-log observation of a free-text field.
type TextUpdate struct {
	Text string
	At   time.Time
}

// ObjectiveResolution is one decided merge: the surviving row id, the
// rows to merge away, and the field values to write on the survivor.
type ObjectiveResolution struct {
	SurvivorID int64
	DonorIDs   []int64
	Resolved   goalmerge.Objective
}

// ReportObjectiveResolution is the ARO analog.
type ReportObjectiveResolution struct {
	SurvivorID int64
	DonorIDs   []int64
	Resolved   goalmerge.ReportObjective
}

// ResolveObjectiveSet picks the survivor and resolves every mutable
// field for one merge set. ttaUpdates are the audit-log observations of
// ttaProvided across the set, any order; statusEvents are the audit
// events used to repair first/last status timestamps that were never
// populated on the live rows. Fields with no resolvable winner fall
// back to zero values, never an error.
func (r *Resolver) ResolveObjectiveSet(set MergeSet, ttaUpdates []TextUpdate, statusEvents []goalmerge.ChangeEvent) ObjectiveResolution {
	members := sortedByID(set.Members)
	survivor := pickObjectiveSurvivor(set)

	resolved := survivor
	resolved.Status = maxObjectiveStatus(members)
	resolved.SupportType = maxSupportType(members)
	resolved.Title = longestText(objectiveTitles(members))
	resolved.TTAProvided = r.resolveFreeText(objectiveTTA(members), ttaUpdates)
	resolved.CreatedAt = minCreated(members)
	resolved.UpdatedAt = maxUpdated(members)
	resolved.CreatedHere = anyObjective(members, func(o goalmerge.Objective) bool { return o.CreatedHere })
	resolved.OnApprovedAR = anyObjective(members, func(o goalmerge.Objective) bool { return o.OnApprovedAR })
	// Minimum non-null id, matching the historical migrations; the
	// business intent behind this choice was never documented.
	resolved.OriginalObjectiveID = minOriginalObjectiveID(members)
	resolveStatusTimes(&resolved, members, statusEvents)

	donors := make([]int64, 0, len(members)-1)
	for _, m := range members {
		if m.ID != survivor.ID {
			donors = append(donors, m.ID)
		}
	}

	return ObjectiveResolution{
		SurvivorID: survivor.ID,
		DonorIDs:   donors,
		Resolved:   resolved,
	}
}

// ResolveReportObjectiveSet resolves one duplicate (report, objective)
// pair. The lowest-id row survives.
func (r *Resolver) ResolveReportObjectiveSet(set ReportObjectiveSet, ttaUpdates []TextUpdate) ReportObjectiveResolution {
	members := make([]goalmerge.ReportObjective, len(set.Members))
	copy(members, set.Members)
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })

	survivor := members[0]
	resolved := survivor

	best := survivor.Status
	for _, m := range members {
		if m.Status.Rank() > best.Rank() {
			best = m.Status
		}
	}
	resolved.Status = best

	bestSupport := survivor.SupportType
	for _, m := range members {
		if m.SupportType.Rank() > bestSupport.Rank() {
			bestSupport = m.SupportType
		}
	}
	resolved.SupportType = bestSupport

	titles := make([]string, len(members))
	ttas := make([]string, len(members))
	reasons := make([]string, len(members))
	contexts := make([]string, len(members))
	for i, m := range members {
		titles[i] = m.Title
		ttas[i] = m.TTAProvided
		reasons[i] = m.CloseSuspendReason
		contexts[i] = m.CloseSuspendContext
	}
	resolved.Title = longestText(titles)
	resolved.TTAProvided = r.resolveFreeText(ttas, ttaUpdates)
	resolved.CloseSuspendReason = longestText(reasons)
	resolved.CloseSuspendContext = longestText(contexts)

	for _, m := range members {
		if m.ObjectiveCreatedHere {
			resolved.ObjectiveCreatedHere = true
		}
		if m.CreatedAt.Before(resolved.CreatedAt) {
			resolved.CreatedAt = m.CreatedAt
		}
		if m.UpdatedAt.After(resolved.UpdatedAt) {
			resolved.UpdatedAt = m.UpdatedAt
		}
	}

	donors := make([]int64, 0, len(members)-1)
	for _, m := range members[1:] {
		donors = append(donors, m.ID)
	}

	return ReportObjectiveResolution{
		SurvivorID: survivor.ID,
		DonorIDs:   donors,
		Resolved:   resolved,
	}
}

// pickObjectiveSurvivor designates the terminal Complete row for closed
// sets; for open sets the most advanced, most recently updated member,
// lowest id as final tie break.
func pickObjectiveSurvivor(set MergeSet) goalmerge.Objective {
	if set.Terminal != nil {
		return *set.Terminal
	}
	best := set.Members[0]
	for _, m := range set.Members[1:] {
		switch {
		case m.Status.Rank() > best.Status.Rank():
			best = m
		case m.Status.Rank() < best.Status.Rank():
		case m.UpdatedAt.After(best.UpdatedAt):
			best = m
		case m.UpdatedAt.Equal(best.UpdatedAt) && m.ID < best.ID:
			best = m
		}
	}
	return best
}

// resolveFreeText prefers the most recent non-empty audit observation,
// demoting a short recent update that a far longer candidate dwarfs.
// With no usable observation the longest current value wins.
func (r *Resolver) resolveFreeText(current []string, updates []TextUpdate) string {
	maxLen := 0
	for _, s := range current {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	for _, u := range updates {
		if len(u.Text) > maxLen {
			maxLen = len(u.Text)
		}
	}

	ordered := make([]TextUpdate, 0, len(updates))
	for _, u := range updates {
		if u.Text != "" {
			ordered = append(ordered, u)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].At.After(ordered[j].At) })

	for _, u := range ordered {
		if len(u.Text) < r.ShortTextFloor && maxLen/(len(u.Text)+1) > r.DemotionRatio {
			continue
		}
		return u.Text
	}
	return longestText(current)
}

// longestText picks the longest non-empty candidate; candidates arrive
// in ascending-id member order, so ties keep the lowest id.
func longestText(candidates []string) string {
	best := ""
	for _, s := range candidates {
		if len(s) > len(best) {
			best = s
		}
	}
	return best
}

// resolveStatusTimes takes min of firsts and max of lasts across
// members, then fills holes from audit-log status observations.
func resolveStatusTimes(out *goalmerge.Objective, members []goalmerge.Objective, events []goalmerge.ChangeEvent) {
	out.FirstNotStartedAt = minTime(collect(members, func(o goalmerge.Objective) *time.Time { return o.FirstNotStartedAt }))
	out.LastNotStartedAt = maxTime(collect(members, func(o goalmerge.Objective) *time.Time { return o.LastNotStartedAt }))
	out.FirstInProgressAt = minTime(collect(members, func(o goalmerge.Objective) *time.Time { return o.FirstInProgressAt }))
	out.LastInProgressAt = maxTime(collect(members, func(o goalmerge.Objective) *time.Time { return o.LastInProgressAt }))
	out.FirstSuspendedAt = minTime(collect(members, func(o goalmerge.Objective) *time.Time { return o.FirstSuspendedAt }))
	out.LastSuspendedAt = maxTime(collect(members, func(o goalmerge.Objective) *time.Time { return o.LastSuspendedAt }))
	out.FirstCompleteAt = minTime(collect(members, func(o goalmerge.Objective) *time.Time { return o.FirstCompleteAt }))
	out.LastCompleteAt = maxTime(collect(members, func(o goalmerge.Objective) *time.Time { return o.LastCompleteAt }))

	first := map[goalmerge.ObjectiveStatus]*time.Time{}
	last := map[goalmerge.ObjectiveStatus]*time.Time{}
	for _, e := range events {
		status, ok := e.SnapshotString("status")
		if !ok {
			continue
		}
		s := goalmerge.ObjectiveStatus(status)
		at := e.At
		if first[s] == nil || at.Before(*first[s]) {
			t := at
			first[s] = &t
		}
		if last[s] == nil || at.After(*last[s]) {
			t := at
			last[s] = &t
		}
	}

	repair(&out.FirstNotStartedAt, first[goalmerge.ObjectiveNotStarted])
	repair(&out.LastNotStartedAt, last[goalmerge.ObjectiveNotStarted])
	repair(&out.FirstInProgressAt, first[goalmerge.ObjectiveInProgress])
	repair(&out.LastInProgressAt, last[goalmerge.ObjectiveInProgress])
	repair(&out.FirstSuspendedAt, first[goalmerge.ObjectiveSuspended])
	repair(&out.LastSuspendedAt, last[goalmerge.ObjectiveSuspended])
	repair(&out.FirstCompleteAt, first[goalmerge.ObjectiveComplete])
	repair(&out.LastCompleteAt, last[goalmerge.ObjectiveComplete])
}

func repair(dst **time.Time, observed *time.Time) {
	if *dst == nil && observed != nil {
		t := *observed
		*dst = &t
	}
}

func sortedByID(members []goalmerge.Objective) []goalmerge.Objective {
	out := make([]goalmerge.Objective, len(members))
	copy(out, members)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func maxObjectiveStatus(members []goalmerge.Objective) goalmerge.ObjectiveStatus {
	best := members[0].Status
	for _, m := range members[1:] {
		if m.Status.Rank() > best.Rank() {
			best = m.Status
		}
	}
	return best
}

func maxSupportType(members []goalmerge.Objective) goalmerge.SupportType {
	best := members[0].SupportType
	for _, m := range members[1:] {
		if m.SupportType.Rank() > best.Rank() {
			best = m.SupportType
		}
	}
	return best
}

func objectiveTitles(members []goalmerge.Objective) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Title
	}
	return out
}

func objectiveTTA(members []goalmerge.Objective) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.TTAProvided
	}
	return out
}

func minCreated(members []goalmerge.Objective) time.Time {
	min := members[0].CreatedAt
	for _, m := range members[1:] {
		if m.CreatedAt.Before(min) {
			min = m.CreatedAt
		}
	}
	return min
}

func maxUpdated(members []goalmerge.Objective) time.Time {
	max := members[0].UpdatedAt
	for _, m := range members[1:] {
		if m.UpdatedAt.After(max) {
			max = m.UpdatedAt
		}
	}
	return max
}

func anyObjective(members []goalmerge.Objective, pred func(goalmerge.Objective) bool) bool {
	for _, m := range members {
		if pred(m) {
			return true
		}
	}
	return false
}

func minOriginalObjectiveID(members []goalmerge.Objective) *int64 {
	var min *int64
	for _, m := range members {
		if m.OriginalObjectiveID == nil {
			continue
		}
		if min == nil || *m.OriginalObjectiveID < *min {
			v := *m.OriginalObjectiveID
			min = &v
		}
	}
	return min
}

func collect(members []goalmerge.Objective, get func(goalmerge.Objective) *time.Time) []*time.Time {
	out := make([]*time.Time, 0, len(members))
	for _, m := range members {
		out = append(out, get(m))
	}
	return out
}

func minTime(times []*time.Time) *time.Time {
	var min *time.Time
	for _, t := range times {
		if t == nil {
			continue
		}
		if min == nil || t.Before(*min) {
			v := *t
			min = &v
		}
	}
	return min
}

func maxTime(times []*time.Time) *time.Time {
	var max *time.Time
	for _, t := range times {
		if t == nil {
			continue
		}
		if max == nil || t.After(*max) {
			v := *t
			max = &v
		}
	}
	return max
}
