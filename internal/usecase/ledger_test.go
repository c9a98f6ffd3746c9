package usecase

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/ttahub/goalmerge"
)

type memGoals struct {
	goals map[int64]goalmerge.Goal
}

func (g *memGoals) Get(ctx context.Context, id int64) (goalmerge.Goal, error) {
	goal, ok := g.goals[id]
	if !ok {
		return goalmerge.Goal{}, context.Canceled
	}
	return goal, nil
}

func (g *memGoals) Parent(ctx context.Context, id int64) (*int64, error) {
	goal, ok := g.goals[id]
	if !ok {
		return nil, context.Canceled
	}
	return goal.MapsToParentGoalID, nil
}

type memReports struct {
	links   map[int64][]goalmerge.ReportGoalLink
	reports map[int64]goalmerge.ActivityReport
}

func (r *memReports) GoalLinks(ctx context.Context, goalID int64) ([]goalmerge.ReportGoalLink, error) {
	return r.links[goalID], nil
}

func (r *memReports) Reports(ctx context.Context, ids ...int64) ([]goalmerge.ActivityReport, error) {
	var out []goalmerge.ActivityReport
	for _, id := range ids {
		if rep, ok := r.reports[id]; ok {
			out = append(out, rep)
		}
	}
	return out, nil
}

// memCollaborators mirrors the union-upsert contract of the real
// store.
type memCollaborators struct {
	nextID int64
	facts  map[int64]goalmerge.CollaboratorFact
}

func newMemCollaborators() *memCollaborators {
	return &memCollaborators{nextID: 1, facts: map[int64]goalmerge.CollaboratorFact{}}
}

func (c *memCollaborators) Upsert(ctx context.Context, fact goalmerge.CollaboratorFact) (bool, error) {
	for id, existing := range c.facts {
		if existing.GoalID == fact.GoalID && existing.UserID == fact.UserID &&
			existing.CollaboratorTypeID == fact.CollaboratorTypeID {
			existing.LinkBack = existing.LinkBack.Union(fact.LinkBack)
			if fact.CreatedAt.Before(existing.CreatedAt) {
				existing.CreatedAt = fact.CreatedAt
			}
			if fact.UpdatedAt.After(existing.UpdatedAt) {
				existing.UpdatedAt = fact.UpdatedAt
			}
			c.facts[id] = existing
			return false, nil
		}
	}
	fact.ID = c.nextID
	c.nextID++
	c.facts[fact.ID] = fact
	return true, nil
}

func (c *memCollaborators) FindByGoal(ctx context.Context, goalID int64) ([]goalmerge.CollaboratorFact, error) {
	var out []goalmerge.CollaboratorFact
	for _, f := range c.facts {
		if f.GoalID == goalID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (c *memCollaborators) FindForType(ctx context.Context, goalID, typeID int64) ([]goalmerge.CollaboratorFact, error) {
	var out []goalmerge.CollaboratorFact
	for _, f := range c.facts {
		if f.GoalID == goalID && f.CollaboratorTypeID == typeID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (c *memCollaborators) UpdateLinkBack(ctx context.Context, id int64, lb goalmerge.LinkBack) error {
	f := c.facts[id]
	f.LinkBack = lb
	c.facts[id] = f
	return nil
}

func (c *memCollaborators) Delete(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		delete(c.facts, id)
	}
	return nil
}

type memVocabulary struct {
	types map[string]goalmerge.CollaboratorType
}

func newMemVocabulary() *memVocabulary {
	v := &memVocabulary{types: map[string]goalmerge.CollaboratorType{}}
	for i, name := range goalmerge.GoalRoles {
		v.types[name] = goalmerge.CollaboratorType{
			ID:               int64(i + 1),
			Name:             name,
			ValidFor:         "Goals",
			PropagateOnMerge: name != goalmerge.RoleMergeCreator && name != goalmerge.RoleMergeDeprecator,
		}
	}
	return v
}

func (v *memVocabulary) TypeByName(ctx context.Context, validFor, name string) (goalmerge.CollaboratorType, error) {
	typ, ok := v.types[name]
	if !ok {
		return goalmerge.CollaboratorType{}, ErrVocabularyMissing
	}
	return typ, nil
}

func (v *memVocabulary) TypeByID(ctx context.Context, id int64) (goalmerge.CollaboratorType, error) {
	for _, typ := range v.types {
		if typ.ID == id {
			return typ, nil
		}
	}
	return goalmerge.CollaboratorType{}, ErrVocabularyMissing
}

type noopLocker struct{ acquired int }

func (l *noopLocker) Acquire(ctx context.Context, goalID int64) (func(), error) {
	l.acquired++
	return func() {}, nil
}

func ledgerFixture() (*LedgerUsecase, *memCollaborators, *memAudit, *memGoals, *memReports, *memVocabulary) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	goals := &memGoals{goals: map[int64]goalmerge.Goal{
		1: {ID: 1, Name: "Improve school readiness", CreatedVia: "activityReport", CreatedAt: base},
	}}
	audit := &memAudit{events: map[goalmerge.EntityKind][]goalmerge.ChangeEvent{
		goalmerge.KindGoal: {
			{EntityID: 1, Op: goalmerge.OpInsert, ActingUserID: 30, At: base,
				Snapshot: map[string]any{"name": "Improve school readiness"}},
			{EntityID: 1, Op: goalmerge.OpUpdate, ActingUserID: 31, At: base.Add(time.Hour),
				Snapshot: map[string]any{"name": "Improve school readiness for all"}},
		},
		goalmerge.KindReportGoal: {
			{EntityID: 50, Op: goalmerge.OpInsert, ActingUserID: 32, At: base.Add(2 * time.Hour),
				Snapshot: map[string]any{"goalId": float64(1)}},
		},
	}}
	approvedAt := base.Add(3 * time.Hour)
	reports := &memReports{
		links: map[int64][]goalmerge.ReportGoalLink{
			1: {{ID: 50, ActivityReportID: 7, GoalID: 1, CreatedAt: base.Add(2 * time.Hour)}},
		},
		reports: map[int64]goalmerge.ActivityReport{
			7: {ID: 7, AuthorID: 40, CollaboratorIDs: []int64{41}, Approved: true,
				ApprovedAt: &approvedAt, CreatedAt: base},
		},
	}
	collaborators := newMemCollaborators()
	vocab := newMemVocabulary()
	uc := NewLedgerUsecase(goals, audit, reports, collaborators, vocab, &noopLocker{}, discardLogger())
	return uc, collaborators, audit, goals, reports, vocab
}

func TestDeriveCreatesExpectedRoles(t *testing.T) {
	uc, collaborators, _, _, _, vocab := ledgerFixture()

	outcome, err := uc.Derive(context.Background(), 1)
	if err != nil {
		t.Fatalf("derive failed: %v", err)
	}
	if outcome.Created == 0 {
		t.Fatalf("expected facts to be created")
	}

	byRole := map[string][]goalmerge.CollaboratorFact{}
	for _, f := range collaborators.facts {
		typ, _ := vocab.TypeByID(context.Background(), f.CollaboratorTypeID)
		byRole[typ.Name] = append(byRole[typ.Name], f)
	}

	if len(byRole[goalmerge.RoleCreator]) != 1 || byRole[goalmerge.RoleCreator][0].UserID != 30 {
		t.Fatalf("creator should credit the first insert actor, got %+v", byRole[goalmerge.RoleCreator])
	}
	if len(byRole[goalmerge.RoleEditor]) != 1 || byRole[goalmerge.RoleEditor][0].UserID != 31 {
		t.Fatalf("editor should credit the name update actor, got %+v", byRole[goalmerge.RoleEditor])
	}
	if len(byRole[goalmerge.RoleLinker]) != 1 || byRole[goalmerge.RoleLinker][0].UserID != 32 {
		t.Fatalf("linker should credit the link insert actor, got %+v", byRole[goalmerge.RoleLinker])
	}
	linker := byRole[goalmerge.RoleLinker][0]
	if !linker.LinkBack.Contains(goalmerge.EvidenceActivityReports, 7) {
		t.Fatalf("linker linkBack should carry report 7, got %v", linker.LinkBack)
	}

	utilizers := map[int64]bool{}
	for _, f := range byRole[goalmerge.RoleUtilizer] {
		utilizers[f.UserID] = true
	}
	if !utilizers[40] || !utilizers[41] {
		t.Fatalf("approved report author and collaborator should both be utilizers, got %v", utilizers)
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	uc, collaborators, _, _, _, _ := ledgerFixture()

	if _, err := uc.Derive(context.Background(), 1); err != nil {
		t.Fatalf("first derive failed: %v", err)
	}
	snapshot := map[int64]goalmerge.CollaboratorFact{}
	for id, f := range collaborators.facts {
		cp := f
		cp.LinkBack = f.LinkBack.Clone()
		snapshot[id] = cp
	}

	second, err := uc.Derive(context.Background(), 1)
	if err != nil {
		t.Fatalf("second derive failed: %v", err)
	}
	if second.Created != 0 {
		t.Fatalf("second derive must create nothing, created %d", second.Created)
	}
	if len(collaborators.facts) != len(snapshot) {
		t.Fatalf("row count changed on re-run")
	}
	for id, before := range snapshot {
		after := collaborators.facts[id]
		if !reflect.DeepEqual(before.LinkBack, after.LinkBack) {
			t.Fatalf("linkBack changed on re-run: %v -> %v", before.LinkBack, after.LinkBack)
		}
	}
}

func TestDeriveCreatorFallsBackToReportAuthor(t *testing.T) {
	uc, collaborators, audit, _, _, vocab := ledgerFixture()
	// Strip the goal audit trail so only the report flow remains.
	audit.events[goalmerge.KindGoal] = nil
	audit.events[goalmerge.KindReportGoal] = nil

	if _, err := uc.Derive(context.Background(), 1); err != nil {
		t.Fatalf("derive failed: %v", err)
	}

	creatorType, _ := vocab.TypeByName(context.Background(), "Goals", goalmerge.RoleCreator)
	facts, _ := collaborators.FindForType(context.Background(), 1, creatorType.ID)
	if len(facts) != 1 || facts[0].UserID != 40 {
		t.Fatalf("creator should fall back to the report author, got %+v", facts)
	}
}

func TestDeriveIgnoresSystemActors(t *testing.T) {
	uc, collaborators, audit, _, _, vocab := ledgerFixture()
	audit.events[goalmerge.KindGoal] = append(audit.events[goalmerge.KindGoal],
		goalmerge.ChangeEvent{EntityID: 1, Op: goalmerge.OpUpdate, ActingUserID: -1,
			At: time.Now(), Snapshot: map[string]any{"name": "migrated"}},
	)

	if _, err := uc.Derive(context.Background(), 1); err != nil {
		t.Fatalf("derive failed: %v", err)
	}

	editorType, _ := vocab.TypeByName(context.Background(), "Goals", goalmerge.RoleEditor)
	facts, _ := collaborators.FindForType(context.Background(), 1, editorType.ID)
	for _, f := range facts {
		if f.UserID <= 0 {
			t.Fatalf("system actors must never earn attribution: %+v", f)
		}
	}
}

func TestDeriveRecordsMergeRolesOnParent(t *testing.T) {
	uc, collaborators, audit, goals, _, vocab := ledgerFixture()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	parent := int64(9)
	goals.goals[9] = goalmerge.Goal{ID: 9, Name: "Improve school readiness", CreatedVia: "merge", CreatedAt: base}
	goals.goals[1] = goalmerge.Goal{ID: 1, Name: "Improve school readiness", MapsToParentGoalID: &parent, CreatedAt: base}
	audit.events[goalmerge.KindGoal] = append(audit.events[goalmerge.KindGoal],
		goalmerge.ChangeEvent{EntityID: 1, Op: goalmerge.OpUpdate, ActingUserID: 33, At: base.Add(4 * time.Hour),
			Snapshot: map[string]any{"mapsToParentGoalId": float64(9)}},
	)

	if _, err := uc.Derive(context.Background(), 1); err != nil {
		t.Fatalf("derive failed: %v", err)
	}

	depType, _ := vocab.TypeByName(context.Background(), "Goals", goalmerge.RoleMergeDeprecator)
	facts, _ := collaborators.FindForType(context.Background(), 9, depType.ID)
	if len(facts) != 1 || facts[0].UserID != 33 {
		t.Fatalf("merge deprecator should land on the parent goal, got %+v", facts)
	}
	if !facts[0].LinkBack.Contains(goalmerge.EvidenceGoals, 1) {
		t.Fatalf("merge deprecator linkBack should reference the deprecated goal")
	}
}

func TestRemoveForTypeShrinksOrDeletes(t *testing.T) {
	uc, collaborators, _, _, _, vocab := ledgerFixture()
	linkerType, _ := vocab.TypeByName(context.Background(), "Goals", goalmerge.RoleLinker)

	collaborators.Upsert(context.Background(), goalmerge.CollaboratorFact{
		GoalID: 1, UserID: 60, CollaboratorTypeID: linkerType.ID,
		LinkBack: goalmerge.NewLinkBack(goalmerge.EvidenceActivityReports, 7),
	})
	collaborators.Upsert(context.Background(), goalmerge.CollaboratorFact{
		GoalID: 1, UserID: 61, CollaboratorTypeID: linkerType.ID,
		LinkBack: goalmerge.NewLinkBack(goalmerge.EvidenceActivityReports, 7, 8),
	})

	err := uc.RemoveForType(context.Background(), 1, goalmerge.RoleLinker,
		goalmerge.NewLinkBack(goalmerge.EvidenceActivityReports, 7))
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	facts, _ := collaborators.FindForType(context.Background(), 1, linkerType.ID)
	if len(facts) != 1 {
		t.Fatalf("sole-evidence fact should be deleted, got %d facts", len(facts))
	}
	remaining := facts[0]
	if remaining.UserID != 61 {
		t.Fatalf("wrong fact deleted")
	}
	if !reflect.DeepEqual(remaining.LinkBack[goalmerge.EvidenceActivityReports], []int64{8}) {
		t.Fatalf("expected linkBack to shrink to [8], got %v", remaining.LinkBack)
	}
}

func TestPropagateOnMergeDemotesForeignCreator(t *testing.T) {
	uc, collaborators, _, goals, _, vocab := ledgerFixture()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	goals.goals[2] = goalmerge.Goal{ID: 2, Name: "A different goal name", CreatedAt: base}
	goals.goals[3] = goalmerge.Goal{ID: 3, Name: "Improve school readiness", CreatedAt: base}

	creatorType, _ := vocab.TypeByName(context.Background(), "Goals", goalmerge.RoleCreator)
	mergeType, _ := vocab.TypeByName(context.Background(), "Goals", goalmerge.RoleMergeDeprecator)
	collaborators.Upsert(context.Background(), goalmerge.CollaboratorFact{
		GoalID: 2, UserID: 70, CollaboratorTypeID: creatorType.ID,
	})
	collaborators.Upsert(context.Background(), goalmerge.CollaboratorFact{
		GoalID: 2, UserID: 71, CollaboratorTypeID: mergeType.ID,
	})

	if _, err := uc.PropagateOnMerge(context.Background(), 1, 2); err != nil {
		t.Fatalf("propagate failed: %v", err)
	}

	editorType, _ := vocab.TypeByName(context.Background(), "Goals", goalmerge.RoleEditor)
	editors, _ := collaborators.FindForType(context.Background(), 1, editorType.ID)
	if len(editors) != 1 || editors[0].UserID != 70 {
		t.Fatalf("foreign creator should demote to editor on the survivor, got %+v", editors)
	}
	creators, _ := collaborators.FindForType(context.Background(), 1, creatorType.ID)
	if len(creators) != 0 {
		t.Fatalf("no creator fact should be copied for a non-matching name")
	}
	merges, _ := collaborators.FindForType(context.Background(), 1, mergeType.ID)
	if len(merges) != 0 {
		t.Fatalf("merge roles must not propagate")
	}
}

func TestPropagateOnMergeKeepsMatchingCreator(t *testing.T) {
	uc, collaborators, _, goals, _, vocab := ledgerFixture()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	goals.goals[3] = goalmerge.Goal{ID: 3, Name: "Improve school readiness", CreatedAt: base}

	creatorType, _ := vocab.TypeByName(context.Background(), "Goals", goalmerge.RoleCreator)
	collaborators.Upsert(context.Background(), goalmerge.CollaboratorFact{
		GoalID: 3, UserID: 70, CollaboratorTypeID: creatorType.ID,
	})

	if _, err := uc.PropagateOnMerge(context.Background(), 1, 3); err != nil {
		t.Fatalf("propagate failed: %v", err)
	}

	creators, _ := collaborators.FindForType(context.Background(), 1, creatorType.ID)
	if len(creators) != 1 || creators[0].UserID != 70 {
		t.Fatalf("name-matching creator should stay a creator, got %+v", creators)
	}
}

func TestLinkBackUnionOnRepeatUpsert(t *testing.T) {
	_, collaborators, _, _, _, vocab := ledgerFixture()
	linkerType, _ := vocab.TypeByName(context.Background(), "Goals", goalmerge.RoleLinker)

	collaborators.Upsert(context.Background(), goalmerge.CollaboratorFact{
		GoalID: 1, UserID: 60, CollaboratorTypeID: linkerType.ID,
		LinkBack: goalmerge.NewLinkBack(goalmerge.EvidenceActivityReports, 1, 2),
	})
	collaborators.Upsert(context.Background(), goalmerge.CollaboratorFact{
		GoalID: 1, UserID: 60, CollaboratorTypeID: linkerType.ID,
		LinkBack: goalmerge.NewLinkBack(goalmerge.EvidenceActivityReports, 2, 3),
	})

	facts, _ := collaborators.FindForType(context.Background(), 1, linkerType.ID)
	if len(facts) != 1 {
		t.Fatalf("upsert must not duplicate the fact")
	}
	if !reflect.DeepEqual(facts[0].LinkBack[goalmerge.EvidenceActivityReports], []int64{1, 2, 3}) {
		t.Fatalf("expected union [1 2 3], got %v", facts[0].LinkBack)
	}
}

func TestResolveSurvivorFollowsChainAndGuardsCycles(t *testing.T) {
	uc, _, _, goals, _, _ := ledgerFixture()
	p2 := int64(2)
	p3 := int64(3)
	goals.goals[1] = goalmerge.Goal{ID: 1, MapsToParentGoalID: &p2}
	goals.goals[2] = goalmerge.Goal{ID: 2, MapsToParentGoalID: &p3}
	goals.goals[3] = goalmerge.Goal{ID: 3}

	survivor, err := uc.ResolveSurvivor(context.Background(), 1)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if survivor != 3 {
		t.Fatalf("expected ultimate survivor 3, got %d", survivor)
	}

	p1 := int64(1)
	goals.goals[3] = goalmerge.Goal{ID: 3, MapsToParentGoalID: &p1}
	if _, err := uc.ResolveSurvivor(context.Background(), 1); err == nil {
		t.Fatalf("cycle must be detected")
	}
}
