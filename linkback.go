package goalmerge

import (
	"sort"
)

// Evidence keys used in collaborator linkBack payloads.
const (
	EvidenceActivityReports = "activityReportIds"
	EvidenceGoals           = "goalIds"
)

// LinkBack is the provenance payload on a collaborator fact: a mapping
// from evidence kind to the set of source record ids that justify the
// attribution. Values are kept sorted and unique.
type LinkBack map[string][]int64

// NewLinkBack builds a single-key payload.
func NewLinkBack(key string, ids ...int64) LinkBack {
	lb := LinkBack{}
	lb.Add(key, ids...)
	return lb
}

// Add inserts ids under key, keeping the set sorted and deduplicated.
func (lb LinkBack) Add(key string, ids ...int64) {
	seen := map[int64]struct{}{}
	for _, id := range lb[key] {
		seen[id] = struct{}{}
	}
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	merged := make([]int64, 0, len(seen))
	for id := range seen {
		merged = append(merged, id)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	lb[key] = merged
}

// Union merges other into a copy of lb. Arrays under shared keys are
// set-unions, never overwritten. Either side may be nil.
func (lb LinkBack) Union(other LinkBack) LinkBack {
	if lb == nil && other == nil {
		return nil
	}
	out := lb.Clone()
	if out == nil {
		out = LinkBack{}
	}
	for key, ids := range other {
		out.Add(key, ids...)
	}
	return out
}

// Subtract removes the given ids under key from a copy of lb, dropping
// the key when its array empties. The second return reports whether
// any evidence remains at all.
func (lb LinkBack) Subtract(key string, ids ...int64) (LinkBack, bool) {
	out := lb.Clone()
	if out == nil {
		return nil, false
	}
	drop := map[int64]struct{}{}
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]int64, 0, len(out[key]))
	for _, id := range out[key] {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		delete(out, key)
	} else {
		out[key] = kept
	}
	return out, len(out) > 0
}

// Contains reports whether every id is present under key.
func (lb LinkBack) Contains(key string, ids ...int64) bool {
	present := map[int64]struct{}{}
	for _, id := range lb[key] {
		present[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			return false
		}
	}
	return true
}

// Clone deep-copies the payload. Nil stays nil.
func (lb LinkBack) Clone() LinkBack {
	if lb == nil {
		return nil
	}
	out := make(LinkBack, len(lb))
	for key, ids := range lb {
		cp := make([]int64, len(ids))
		copy(cp, ids)
		out[key] = cp
	}
	return out
}
