package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/ttahub/goalmerge"
)

// DeriveOutcome summarizes one derivation pass over one goal.
type DeriveOutcome struct {
	Created int
	Updated int
}

// LedgerUsecase derives collaborator-role facts for goals from the
// audit log and report linkage, and maintains them idempotently:
// re-running a derivation never duplicates rows or regresses evidence.
type LedgerUsecase struct {
	goals         GoalRepository
	audit         AuditLogRepository
	reports       ReportRepository
	collaborators CollaboratorRepository
	vocabulary    VocabularyRepository
	locker        Locker
	logger        *slog.Logger
}

func NewLedgerUsecase(
	goals GoalRepository,
	audit AuditLogRepository,
	reports ReportRepository,
	collaborators CollaboratorRepository,
	vocabulary VocabularyRepository,
	locker Locker,
	logger *slog.Logger,
) *LedgerUsecase {
	return &LedgerUsecase{
		goals:         goals,
		audit:         audit,
		reports:       reports,
		collaborators: collaborators,
		vocabulary:    vocabulary,
		locker:        locker,
		logger:        logger,
	}
}

// fact is one derived attribution before vocabulary resolution.
type fact struct {
	goalID   int64
	userID   int64
	role     string
	linkBack goalmerge.LinkBack
	earliest time.Time
	latest   time.Time
}

type factKey struct {
	goalID int64
	userID int64
	role   string
}

// Derive recomputes all collaborator facts justified by the goal's
// audit trail and report linkage, upserting each with linkBack union
// semantics. The per-goal lock serializes concurrent derivations.
func (uc *LedgerUsecase) Derive(ctx context.Context, goalID int64) (DeriveOutcome, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Usecase.Derive")
	defer span.End()

	release, err := uc.locker.Acquire(ctx, goalID)
	if err != nil {
		span.RecordError(err)
		return DeriveOutcome{}, err
	}
	defer release()

	goal, err := uc.goals.Get(ctx, goalID)
	if err != nil {
		span.RecordError(err)
		return DeriveOutcome{}, errors.Wrap(err, "loading goal")
	}

	events, err := uc.audit.ChangeEvents(ctx, goalmerge.KindGoal, goalID)
	if err != nil {
		span.RecordError(err)
		return DeriveOutcome{}, errors.Wrap(err, "reading goal audit log")
	}

	links, err := uc.reports.GoalLinks(ctx, goalID)
	if err != nil {
		span.RecordError(err)
		return DeriveOutcome{}, errors.Wrap(err, "loading report links")
	}

	reportIDs := make([]int64, 0, len(links))
	for _, link := range links {
		reportIDs = append(reportIDs, link.ActivityReportID)
	}
	reports, err := uc.reports.Reports(ctx, reportIDs...)
	if err != nil {
		span.RecordError(err)
		return DeriveOutcome{}, errors.Wrap(err, "loading reports")
	}
	reportsByID := map[int64]goalmerge.ActivityReport{}
	for _, r := range reports {
		reportsByID[r.ID] = r
	}

	acc := map[factKey]*fact{}
	uc.deriveCreator(acc, goal, events, links, reportsByID)
	uc.deriveEditors(acc, goal, events)
	if err := uc.deriveLinkers(ctx, acc, goal, links, reportsByID); err != nil {
		span.RecordError(err)
		return DeriveOutcome{}, err
	}
	uc.deriveUtilizers(acc, goal, links, reportsByID)
	uc.deriveMergeRoles(acc, goal, events)

	return uc.persist(ctx, acc)
}

// deriveCreator credits the acting user of the first INSERT with a
// non-null name, for goals not created via merge. A goal created
// through the report flow with no audit actor falls back to the
// earliest linked report's author.
func (uc *LedgerUsecase) deriveCreator(
	acc map[factKey]*fact,
	goal goalmerge.Goal,
	events []goalmerge.ChangeEvent,
	links []goalmerge.ReportGoalLink,
	reports map[int64]goalmerge.ActivityReport,
) {
	if goal.CreatedVia == "merge" {
		return
	}
	for _, e := range events {
		if e.Op != goalmerge.OpInsert {
			continue
		}
		if _, ok := e.SnapshotString("name"); !ok {
			continue
		}
		add(acc, goal.ID, e.ActingUserID, goalmerge.RoleCreator, nil, goal.CreatedAt)
		return
	}

	if goal.CreatedVia != "activityReport" || len(links) == 0 {
		return
	}
	earliest := links[0]
	for _, link := range links[1:] {
		if link.CreatedAt.Before(earliest.CreatedAt) {
			earliest = link
		}
	}
	if report, ok := reports[earliest.ActivityReportID]; ok {
		add(acc, goal.ID, report.AuthorID, goalmerge.RoleCreator,
			goalmerge.NewLinkBack(goalmerge.EvidenceActivityReports, report.ID), goal.CreatedAt)
	}
}

// deriveEditors credits every UPDATE that touched the name field.
func (uc *LedgerUsecase) deriveEditors(acc map[factKey]*fact, goal goalmerge.Goal, events []goalmerge.ChangeEvent) {
	for _, e := range events {
		if e.Op != goalmerge.OpUpdate {
			continue
		}
		if _, ok := e.SnapshotString("name"); !ok {
			continue
		}
		add(acc, goal.ID, e.ActingUserID, goalmerge.RoleEditor, nil, e.At)
	}
}

// deriveLinkers credits whoever associated the goal with a report: the
// change-log actor of the link INSERT, or the report's author when no
// log entry exists.
func (uc *LedgerUsecase) deriveLinkers(
	ctx context.Context,
	acc map[factKey]*fact,
	goal goalmerge.Goal,
	links []goalmerge.ReportGoalLink,
	reports map[int64]goalmerge.ActivityReport,
) error {
	if len(links) == 0 {
		return nil
	}
	linkIDs := make([]int64, 0, len(links))
	for _, link := range links {
		linkIDs = append(linkIDs, link.ID)
	}
	linkEvents, err := uc.audit.ChangeEvents(ctx, goalmerge.KindReportGoal, linkIDs...)
	if err != nil {
		return errors.Wrap(err, "reading report link audit log")
	}
	actorByLink := map[int64]int64{}
	for _, e := range linkEvents {
		if e.Op != goalmerge.OpInsert {
			continue
		}
		if _, seen := actorByLink[e.EntityID]; !seen {
			actorByLink[e.EntityID] = e.ActingUserID
		}
	}

	for _, link := range links {
		userID, ok := actorByLink[link.ID]
		if !ok {
			report, found := reports[link.ActivityReportID]
			if !found {
				continue
			}
			userID = report.AuthorID
		}
		add(acc, goal.ID, userID, goalmerge.RoleLinker,
			goalmerge.NewLinkBack(goalmerge.EvidenceActivityReports, link.ActivityReportID), link.CreatedAt)
	}
	return nil
}

// deriveUtilizers credits every collaborator of an approved report that
// references the goal, plus the author when they have no collaborator
// row of their own.
func (uc *LedgerUsecase) deriveUtilizers(
	acc map[factKey]*fact,
	goal goalmerge.Goal,
	links []goalmerge.ReportGoalLink,
	reports map[int64]goalmerge.ActivityReport,
) {
	for _, link := range links {
		report, ok := reports[link.ActivityReportID]
		if !ok || !report.Approved {
			continue
		}
		at := report.CreatedAt
		if report.ApprovedAt != nil {
			at = *report.ApprovedAt
		}
		lb := goalmerge.NewLinkBack(goalmerge.EvidenceActivityReports, report.ID)

		authorCovered := false
		for _, userID := range report.CollaboratorIDs {
			if userID == report.AuthorID {
				authorCovered = true
			}
			add(acc, goal.ID, userID, goalmerge.RoleUtilizer, lb, at)
		}
		if !authorCovered {
			add(acc, goal.ID, report.AuthorID, goalmerge.RoleUtilizer, lb, at)
		}
	}
}

// deriveMergeRoles records merge bookkeeping on the parent goal: the
// INSERT that created a merge parent, and every UPDATE that pointed a
// deprecated goal at it.
func (uc *LedgerUsecase) deriveMergeRoles(acc map[factKey]*fact, goal goalmerge.Goal, events []goalmerge.ChangeEvent) {
	for _, e := range events {
		switch e.Op {
		case goalmerge.OpInsert:
			if via, ok := e.SnapshotString("createdVia"); ok && via == "merge" {
				add(acc, goal.ID, e.ActingUserID, goalmerge.RoleMergeCreator,
					goalmerge.NewLinkBack(goalmerge.EvidenceGoals, goal.ID), e.At)
			}
		case goalmerge.OpUpdate:
			if parentID, ok := e.SnapshotInt64("mapsToParentGoalId"); ok && parentID > 0 {
				add(acc, parentID, e.ActingUserID, goalmerge.RoleMergeDeprecator,
					goalmerge.NewLinkBack(goalmerge.EvidenceGoals, goal.ID), e.At)
			}
		}
	}
}

func (uc *LedgerUsecase) persist(ctx context.Context, acc map[factKey]*fact) (DeriveOutcome, error) {
	keys := make([]factKey, 0, len(acc))
	for key := range acc {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.goalID != b.goalID {
			return a.goalID < b.goalID
		}
		if a.userID != b.userID {
			return a.userID < b.userID
		}
		return a.role < b.role
	})

	var outcome DeriveOutcome
	for _, key := range keys {
		f := acc[key]
		typ, err := uc.vocabulary.TypeByName(ctx, goalmerge.VocabularyGoals, f.role)
		if err != nil {
			return outcome, errors.Wrapf(err, "resolving collaborator type %q", f.role)
		}
		created, err := uc.collaborators.Upsert(ctx, goalmerge.CollaboratorFact{
			GoalID:             f.goalID,
			UserID:             f.userID,
			CollaboratorTypeID: typ.ID,
			LinkBack:           f.linkBack,
			CreatedAt:          f.earliest,
			UpdatedAt:          f.latest,
		})
		if err != nil {
			return outcome, errors.Wrap(err, "upserting collaborator fact")
		}
		if created {
			outcome.Created++
		} else {
			outcome.Updated++
		}
	}
	return outcome, nil
}

func add(acc map[factKey]*fact, goalID, userID int64, role string, lb goalmerge.LinkBack, at time.Time) {
	if userID <= 0 {
		return
	}
	key := factKey{goalID: goalID, userID: userID, role: role}
	existing, ok := acc[key]
	if !ok {
		acc[key] = &fact{
			goalID:   goalID,
			userID:   userID,
			role:     role,
			linkBack: lb.Clone(),
			earliest: at,
			latest:   at,
		}
		return
	}
	existing.linkBack = existing.linkBack.Union(lb)
	if at.Before(existing.earliest) {
		existing.earliest = at
	}
	if at.After(existing.latest) {
		existing.latest = at
	}
}

// RemoveForType retracts one piece of linkBack evidence from the facts
// of the given type on the goal. Facts left without evidence are
// deleted; otherwise the payload shrinks in place.
func (uc *LedgerUsecase) RemoveForType(ctx context.Context, goalID int64, typeName string, lb goalmerge.LinkBack) error {
	ctx, span := tracer.Start(ctx, "Ledger.Usecase.RemoveForType")
	defer span.End()

	filtered := goalmerge.LinkBack{}
	for key, ids := range lb {
		if len(ids) > 0 {
			filtered.Add(key, ids...)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	typ, err := uc.vocabulary.TypeByName(ctx, goalmerge.VocabularyGoals, typeName)
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "resolving collaborator type %q", typeName)
	}

	facts, err := uc.collaborators.FindForType(ctx, goalID, typ.ID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "loading collaborator facts")
	}

	var toDelete []int64
	for _, f := range facts {
		matches := false
		for key, ids := range filtered {
			if f.LinkBack.Contains(key, ids...) {
				matches = true
			}
		}
		if !matches {
			continue
		}

		remaining := f.LinkBack
		anyEvidence := true
		for key, ids := range filtered {
			remaining, anyEvidence = remaining.Subtract(key, ids...)
		}
		if !anyEvidence {
			toDelete = append(toDelete, f.ID)
			continue
		}
		if err := uc.collaborators.UpdateLinkBack(ctx, f.ID, remaining); err != nil {
			span.RecordError(err)
			return errors.Wrap(err, "shrinking linkBack")
		}
	}

	if len(toDelete) > 0 {
		if err := uc.collaborators.Delete(ctx, toDelete...); err != nil {
			span.RecordError(err)
			return errors.Wrap(err, "deleting collaborator facts")
		}
	}
	return nil
}

// PropagateOnMerge copies the deprecated goal's facts onto the merge
// survivor for every type flagged propagateOnMerge, unioning linkBack
// when the survivor already holds the fact. Creator facts from a
// donor whose name does not match the survivor demote to Editor.
func (uc *LedgerUsecase) PropagateOnMerge(ctx context.Context, survivorID, deprecatedID int64) (DeriveOutcome, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Usecase.PropagateOnMerge")
	defer span.End()

	var outcome DeriveOutcome

	survivor, err := uc.goals.Get(ctx, survivorID)
	if err != nil {
		span.RecordError(err)
		return outcome, errors.Wrap(err, "loading survivor goal")
	}
	deprecated, err := uc.goals.Get(ctx, deprecatedID)
	if err != nil {
		span.RecordError(err)
		return outcome, errors.Wrap(err, "loading deprecated goal")
	}

	facts, err := uc.collaborators.FindByGoal(ctx, deprecatedID)
	if err != nil {
		span.RecordError(err)
		return outcome, errors.Wrap(err, "loading deprecated goal facts")
	}

	for _, f := range facts {
		typ, err := uc.vocabulary.TypeByID(ctx, f.CollaboratorTypeID)
		if err != nil {
			span.RecordError(err)
			return outcome, errors.Wrap(err, "resolving collaborator type")
		}
		if !typ.PropagateOnMerge {
			continue
		}

		typeID := typ.ID
		if typ.Name == goalmerge.RoleCreator && deprecated.Name != survivor.Name {
			editor, err := uc.vocabulary.TypeByName(ctx, goalmerge.VocabularyGoals, goalmerge.RoleEditor)
			if err != nil {
				span.RecordError(err)
				return outcome, errors.Wrap(err, "resolving editor type")
			}
			typeID = editor.ID
		}

		created, err := uc.collaborators.Upsert(ctx, goalmerge.CollaboratorFact{
			GoalID:             survivorID,
			UserID:             f.UserID,
			CollaboratorTypeID: typeID,
			LinkBack:           f.LinkBack.Clone(),
			CreatedAt:          f.CreatedAt,
			UpdatedAt:          f.UpdatedAt,
		})
		if err != nil {
			span.RecordError(err)
			return outcome, errors.Wrap(err, "propagating collaborator fact")
		}
		if created {
			outcome.Created++
		} else {
			outcome.Updated++
		}
	}
	return outcome, nil
}

// ResolveSurvivor follows mapsToParentGoalId to the ultimate merge
// survivor, guarding against chains that loop.
func (uc *LedgerUsecase) ResolveSurvivor(ctx context.Context, goalID int64) (int64, error) {
	visited := map[int64]struct{}{}
	current := goalID
	for {
		if _, seen := visited[current]; seen {
			return 0, errors.Wrapf(ErrCycle, "goal %d", goalID)
		}
		visited[current] = struct{}{}

		parent, err := uc.goals.Parent(ctx, current)
		if err != nil {
			return 0, errors.Wrap(err, "following merge chain")
		}
		if parent == nil {
			return current, nil
		}
		current = *parent
	}
}
