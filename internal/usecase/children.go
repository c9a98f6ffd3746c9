package usecase

import (
	"sort"

	"github.com/ttahub/goalmerge"
)

// ChildMergePlan says what to do with the child-link rows of a merge
// set's donors: re-point rows whose child is not yet linked to the
// survivor, delete rows that would collide.
type ChildMergePlan struct {
	Repoint []int64
	Delete  []int64
}

// PlanChildMerge decides, for one association table, which donor rows
// move to the survivor and which are duplicates to drop. When several
// donor rows carry the same child, the lowest row id moves and the
// rest are dropped.
func PlanChildMerge(survivorLinks, donorLinks []goalmerge.ChildLink) ChildMergePlan {
	taken := map[int64]struct{}{}
	for _, link := range survivorLinks {
		taken[link.ChildID] = struct{}{}
	}

	ordered := make([]goalmerge.ChildLink, len(donorLinks))
	copy(ordered, donorLinks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var plan ChildMergePlan
	for _, link := range ordered {
		if _, dup := taken[link.ChildID]; dup {
			plan.Delete = append(plan.Delete, link.ID)
			continue
		}
		taken[link.ChildID] = struct{}{}
		plan.Repoint = append(plan.Repoint, link.ID)
	}
	return plan
}
