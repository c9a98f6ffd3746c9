package usecase

import (
	"testing"
	"time"

	"github.com/ttahub/goalmerge"
)

func obj(id int64, goalID int64, title string, status goalmerge.ObjectiveStatus, updatedAt time.Time) goalmerge.Objective {
	return goalmerge.Objective{
		ID:        id,
		GoalID:    &goalID,
		Title:     title,
		Status:    status,
		CreatedAt: updatedAt.Add(-time.Hour),
		UpdatedAt: updatedAt,
	}
}

func TestDetectObjectiveSetsPartitionsOnComplete(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []goalmerge.Objective{
		obj(1, 5, "Improve X", goalmerge.ObjectiveNotStarted, base.Add(5*time.Hour)),
		obj(2, 5, "Improve X", goalmerge.ObjectiveComplete, base.Add(4*time.Hour)),
		obj(3, 5, "Improve X", goalmerge.ObjectiveInProgress, base.Add(3*time.Hour)),
		obj(4, 5, "Improve X", goalmerge.ObjectiveComplete, base.Add(2*time.Hour)),
		obj(5, 5, "Improve X", goalmerge.ObjectiveNotStarted, base.Add(1*time.Hour)),
		obj(6, 5, "Improve X", goalmerge.ObjectiveNotStarted, base.Add(30*time.Minute)),
	}

	sets, skipped := DetectObjectiveSets(rows)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped groups: %v", skipped)
	}
	if len(sets) != 2 {
		t.Fatalf("expected 2 merge sets, got %d", len(sets))
	}

	// Objective 1 is newer than every Complete and alone in the open
	// run, so it needs no merge and is dropped from the output.
	if sets[0].Terminal == nil || sets[0].Terminal.ID != 2 {
		t.Fatalf("first set should be closed by objective 2, got %+v", sets[0].Terminal)
	}
	if len(sets[0].Members) != 2 {
		t.Fatalf("objective 2 should absorb the older duplicate, got %d members", len(sets[0].Members))
	}
	if sets[1].Terminal == nil || sets[1].Terminal.ID != 4 {
		t.Fatalf("second set should be closed by objective 4, got %+v", sets[1].Terminal)
	}
	if len(sets[1].Members) != 3 {
		t.Fatalf("objective 4 should absorb both older duplicates, got %d members", len(sets[1].Members))
	}
}

func TestDetectObjectiveSetsOpenSetNewerThanComplete(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []goalmerge.Objective{
		obj(1, 5, "Improve X", goalmerge.ObjectiveNotStarted, base.Add(5*time.Hour)),
		obj(2, 5, "Improve X", goalmerge.ObjectiveInProgress, base.Add(4*time.Hour)),
		obj(3, 5, "Improve X", goalmerge.ObjectiveComplete, base.Add(3*time.Hour)),
		obj(4, 5, "Improve X", goalmerge.ObjectiveNotStarted, base.Add(2*time.Hour)),
	}

	sets, skipped := DetectObjectiveSets(rows)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped groups: %v", skipped)
	}
	if len(sets) != 2 {
		t.Fatalf("expected an open set and a closed set, got %d", len(sets))
	}
	if sets[0].Terminal != nil || len(sets[0].Members) != 2 {
		t.Fatalf("rows newer than every Complete should form the open set, got %+v", sets[0])
	}
	if sets[1].Terminal == nil || sets[1].Terminal.ID != 3 || len(sets[1].Members) != 2 {
		t.Fatalf("the Complete should absorb the older duplicate, got %+v", sets[1])
	}
}

func TestDetectObjectiveSetsOneOpenSetWithoutComplete(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []goalmerge.Objective{
		obj(1, 5, "Improve X", goalmerge.ObjectiveNotStarted, base.Add(time.Hour)),
		obj(2, 5, "Improve X", goalmerge.ObjectiveInProgress, base.Add(2*time.Hour)),
		obj(3, 5, "Improve X", goalmerge.ObjectiveSuspended, base.Add(3*time.Hour)),
	}

	sets, skipped := DetectObjectiveSets(rows)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped groups: %v", skipped)
	}
	if len(sets) != 1 {
		t.Fatalf("expected a single open merge set, got %d", len(sets))
	}
	if sets[0].Terminal != nil {
		t.Fatalf("open set must not have a terminal member")
	}
	if len(sets[0].Members) != 3 {
		t.Fatalf("open set should hold all 3 duplicates, got %d", len(sets[0].Members))
	}
}

func TestDetectObjectiveSetsIgnoresSingletons(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []goalmerge.Objective{
		obj(1, 5, "Improve X", goalmerge.ObjectiveNotStarted, base),
		obj(2, 5, "Improve Y", goalmerge.ObjectiveNotStarted, base),
		obj(3, 6, "Improve X", goalmerge.ObjectiveNotStarted, base),
	}

	sets, skipped := DetectObjectiveSets(rows)
	if len(sets) != 0 || len(skipped) != 0 {
		t.Fatalf("no duplicates expected, got %d sets %d skipped", len(sets), len(skipped))
	}
}

func TestDetectObjectiveSetsNormalizesTitleWhitespace(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []goalmerge.Objective{
		obj(1, 5, "Improve X", goalmerge.ObjectiveNotStarted, base.Add(time.Hour)),
		obj(2, 5, "  Improve X  ", goalmerge.ObjectiveInProgress, base.Add(2*time.Hour)),
	}

	sets, _ := DetectObjectiveSets(rows)
	if len(sets) != 1 {
		t.Fatalf("trimmed titles should group together, got %d sets", len(sets))
	}
}

func TestDetectObjectiveSetsSkipsBlankTitles(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []goalmerge.Objective{
		obj(1, 5, "   ", goalmerge.ObjectiveNotStarted, base.Add(time.Hour)),
		obj(2, 5, "", goalmerge.ObjectiveInProgress, base.Add(2*time.Hour)),
	}

	sets, skipped := DetectObjectiveSets(rows)
	if len(sets) != 0 {
		t.Fatalf("blank-title group must not form merge sets")
	}
	if len(skipped) != 1 {
		t.Fatalf("expected one detection error, got %d", len(skipped))
	}
}

func TestDetectReportObjectiveSets(t *testing.T) {
	rows := []goalmerge.ReportObjective{
		{ID: 1, ActivityReportID: 7, ObjectiveID: 3},
		{ID: 2, ActivityReportID: 7, ObjectiveID: 3},
		{ID: 3, ActivityReportID: 7, ObjectiveID: 4},
		{ID: 4, ActivityReportID: 8, ObjectiveID: 3},
	}

	sets := DetectReportObjectiveSets(rows)
	if len(sets) != 1 {
		t.Fatalf("expected one duplicate pair, got %d", len(sets))
	}
	if sets[0].Key != (ReportObjectivePair{ActivityReportID: 7, ObjectiveID: 3}) {
		t.Fatalf("wrong pair detected: %+v", sets[0].Key)
	}
	if sets[0].Members[0].ID != 1 {
		t.Fatalf("members should be ordered by id, got %d first", sets[0].Members[0].ID)
	}
}
