package repository

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/ttahub/goalmerge"
	"github.com/ttahub/goalmerge/internal/usecase"
)

// childTable describes one many-to-many association table hung off a
// merge parent, generically enough that objectives and report
// objectives share the apply path.
type childTable struct {
	name      string
	parentCol string
	childCol  string
}

var objectiveChildren = []childTable{
	{name: "objective_topics", parentCol: "objective_id", childCol: "topic_id"},
	{name: "objective_courses", parentCol: "objective_id", childCol: "course_id"},
	{name: "objective_files", parentCol: "objective_id", childCol: "file_id"},
	{name: "objective_resources", parentCol: "objective_id", childCol: "resource_id"},
}

var reportObjectiveChildren = []childTable{
	{name: "report_objective_topics", parentCol: "activity_report_objective_id", childCol: "topic_id"},
	{name: "report_objective_courses", parentCol: "activity_report_objective_id", childCol: "course_id"},
	{name: "report_objective_files", parentCol: "activity_report_objective_id", childCol: "file_id"},
	{name: "report_objective_resources", parentCol: "activity_report_objective_id", childCol: "resource_id"},
}

func (t childTable) links(tx *gorm.DB, parentIDs []int64) ([]goalmerge.ChildLink, error) {
	var links []goalmerge.ChildLink
	err := tx.Table(t.name).
		Select("id, "+t.parentCol+" AS parent_id, "+t.childCol+" AS child_id").
		Where(t.parentCol+" IN ?", parentIDs).
		Order("id ASC").
		Scan(&links).Error
	return links, err
}

// mergeChildren re-points donor links onto the survivor and drops the
// ones whose child the survivor already carries, per table.
func mergeChildren(tx *gorm.DB, tables []childTable, survivorID int64, donorIDs []int64, counts usecase.MergeCounts) error {
	for _, t := range tables {
		survivorLinks, err := t.links(tx, []int64{survivorID})
		if err != nil {
			return errors.Wrapf(err, "reading %s survivor links", t.name)
		}
		donorLinks, err := t.links(tx, donorIDs)
		if err != nil {
			return errors.Wrapf(err, "reading %s donor links", t.name)
		}

		plan := usecase.PlanChildMerge(survivorLinks, donorLinks)
		c := counts[t.name]

		if len(plan.Repoint) > 0 {
			result := tx.Exec(
				"UPDATE "+t.name+" SET "+t.parentCol+" = ? WHERE id IN ?",
				survivorID, plan.Repoint,
			)
			if result.Error != nil {
				return errors.Wrapf(result.Error, "repointing %s links", t.name)
			}
			c.Repointed += result.RowsAffected
		}
		if len(plan.Delete) > 0 {
			result := tx.Exec("DELETE FROM "+t.name+" WHERE id IN ?", plan.Delete)
			if result.Error != nil {
				return errors.Wrapf(result.Error, "deleting %s links", t.name)
			}
			c.Deleted += result.RowsAffected
		}

		counts[t.name] = c
	}
	return nil
}
