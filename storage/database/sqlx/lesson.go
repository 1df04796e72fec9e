package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/lesson"
)

const lessonCols = `id, lesson_id, title, description, objective, prerequisites, created_by, status, is_published, archived, credit_points, readings, assignments, estimated_work, course_id, created_at, updated_at`

type lessonRow struct {
	ID            string         `db:"id"`
	LessonID      null.String    `db:"lesson_id"`
	Title         null.String    `db:"title"`
	Description   null.String    `db:"description"`
	Objective     null.String    `db:"objective"`
	Prerequisites pq.StringArray `db:"prerequisites"`
	CreatedBy     null.String    `db:"created_by"`
	Status        null.String    `db:"status"`
	IsPublished   null.Bool      `db:"is_published"`
	Archived      null.Bool      `db:"archived"`
	CreditPoints  null.Int       `db:"credit_points"`
	Readings      null.JSON      `db:"readings"`
	Assignments   null.JSON      `db:"assignments"`
	EstimatedWork null.Int       `db:"estimated_work"`
	CourseID      null.String    `db:"course_id"`
	CreatedAt     null.Time      `db:"created_at"`
	UpdatedAt     null.Time      `db:"updated_at"`
}

type lessonRepository struct {
	exec core.DBExecutor
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(exec core.DBExecutor) *lessonRepository {
	return &lessonRepository{exec: exec}
}

func (repo lessonRepository) toRow(lsn lesson.Lesson) (lessonRow, error) {
	row := lessonRow{
		ID:            lsn.ID,
		LessonID:      null.NewString(lsn.LessonID, lsn.LessonID != ""),
		Title:         null.NewString(lsn.Title, lsn.Title != ""),
		Description:   null.NewString(lsn.Description, lsn.Description != ""),
		Objective:     null.NewString(lsn.Objective, lsn.Objective != ""),
		Prerequisites: lsn.Prerequisites,
		CreatedBy:     null.NewString(lsn.CreatedBy, lsn.CreatedBy != ""),
		Status:        null.StringFrom(lsn.Status.String()),
		IsPublished:   null.BoolFrom(lsn.Status == core.StatusPublished),
		Archived:      null.BoolFrom(lsn.Status == core.StatusArchived),
		CreditPoints:  null.IntFrom(lsn.CreditPoints),
		EstimatedWork: null.IntFrom(lsn.EstimatedWork),
		CourseID:      null.NewString(lsn.CourseID, lsn.CourseID != ""),
		CreatedAt:     null.NewTime(lsn.CreatedAt.UTC(), !lsn.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(lsn.UpdatedAt.UTC(), !lsn.UpdatedAt.IsZero()),
	}
	if lsn.Readings != nil {
		if err := row.Readings.Marshal(lsn.Readings); err != nil {
			return lessonRow{}, errors.Wrap(err, "encoding readings")
		}
	}
	if lsn.Assignments != nil {
		if err := row.Assignments.Marshal(lsn.Assignments); err != nil {
			return lessonRow{}, errors.Wrap(err, "encoding assignments")
		}
	}
	return row, nil
}

func (repo lessonRepository) fromRow(row lessonRow) (lesson.Lesson, error) {
	// imported rows may carry legacy is_published/archived flags and
	// case-variant status strings; normalized once, here
	status := core.NormalizeStatus(row.Status.String, row.IsPublished.Bool, row.Archived.Bool)
	lsn := lesson.Lesson{
		ID:            row.ID,
		LessonID:      row.LessonID.String,
		Title:         row.Title.String,
		Description:   row.Description.String,
		Objective:     row.Objective.String,
		Prerequisites: row.Prerequisites,
		CreatedBy:     row.CreatedBy.String,
		Status:        status,
		CreditPoints:  row.CreditPoints.Int,
		EstimatedWork: row.EstimatedWork.Int,
		CourseID:      row.CourseID.String,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
	if row.Readings.Valid {
		if err := row.Readings.Unmarshal(&lsn.Readings); err != nil {
			return lesson.Lesson{}, errors.Wrap(err, "decoding readings")
		}
	}
	if row.Assignments.Valid {
		if err := row.Assignments.Unmarshal(&lsn.Assignments); err != nil {
			return lesson.Lesson{}, errors.Wrap(err, "decoding assignments")
		}
	}
	return lsn, nil
}

func (repo lessonRepository) fromRows(rows []lessonRow) ([]lesson.Lesson, error) {
	lessons := make([]lesson.Lesson, 0, len(rows))
	for _, row := range rows {
		lsn, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lsn)
	}
	return lessons, nil
}

func (repo lessonRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return lesson.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo lessonRepository) CheckLessonIDUniqueness(ctx context.Context, lessonID string, excluded []lesson.Lesson, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := `SELECT EXISTS (SELECT 1 FROM lesson WHERE lesson_id = ?`
	args := []interface{}{lessonID}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, l := range excluded {
			ids = append(ids, l.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "checking lesson uniqueness")
	}
	var exists bool
	if err = sqlx.GetContext(ctx, exe, &exists, exe.Rebind(query), inArgs...); err != nil {
		return errors.Wrap(err, "checking lesson uniqueness")
	}
	if exists {
		return lesson.ErrLessonExists
	}
	return nil
}

func (repo lessonRepository) CreateLesson(ctx context.Context, lsn lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	exe := getExec(repo.exec, exec)

	lsn.ID = uuid.New().String()
	row, err := repo.toRow(lsn)
	if err != nil {
		return lesson.Lesson{}, err
	}
	query := exe.Rebind(`INSERT INTO lesson (` + lessonCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = exe.ExecContext(ctx, query,
		row.ID, row.LessonID, row.Title, row.Description, row.Objective, row.Prerequisites,
		row.CreatedBy, row.Status, row.IsPublished, row.Archived, row.CreditPoints, row.Readings,
		row.Assignments, row.EstimatedWork, row.CourseID, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return lsn, nil
}

func (repo lessonRepository) QueryLessons(ctx context.Context, filter *lesson.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	exe := getExec(repo.exec, exec)

	query := `SELECT ` + lessonCols + ` FROM lesson`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(lesson_id ILIKE ? OR title ILIKE ? OR description ILIKE ?)`)
			val := searchPattern(filter.Search)
			args = append(args, val, val, val)
		}
		if filter.Status != "" {
			conds = append(conds, `status = ?`)
			args = append(args, filter.Status)
		}
		if filter.CourseID != "" {
			conds = append(conds, `course_id = ?`)
			args = append(args, filter.CourseID)
		}
		if filter.CreatedBy != "" {
			conds = append(conds, `created_by = ?`)
			args = append(args, filter.CreatedBy)
		}
	}

	if len(conds) > 0 {
		query += ` WHERE ` + joinAnd(conds)
	}
	query += orderBy(ordering)

	var rows []lessonRow
	if err := sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return repo.fromRows(rows)
}

func (repo lessonRepository) GetLessonByID(ctx context.Context, id string, exec ...core.DBExecutor) (lesson.Lesson, error) {
	exe := getExec(repo.exec, exec)

	if _, err := uuid.Parse(id); err != nil {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	var row lessonRow
	query := exe.Rebind(`SELECT ` + lessonCols + ` FROM lesson WHERE id = ?`)
	if err := sqlx.GetContext(ctx, exe, &row, query, id); err != nil {
		return lesson.Lesson{}, repo.trapNoRowsErr(err, "finding lesson by ID")
	}
	return repo.fromRow(row)
}

func (repo lessonRepository) GetLessonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]lesson.Lesson, error) {
	exe := getExec(repo.exec, exec)

	if len(ids) == 0 {
		return []lesson.Lesson{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+lessonCols+` FROM lesson WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons by ID")
	}
	var rows []lessonRow
	if err = sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons by ID")
	}
	return repo.fromRows(rows)
}

func (repo lessonRepository) UpdateLesson(ctx context.Context, lsn lesson.Lesson, exec ...core.DBExecutor) (lesson.Lesson, error) {
	exe := getExec(repo.exec, exec)

	row, err := repo.toRow(lsn)
	if err != nil {
		return lesson.Lesson{}, err
	}
	query := exe.Rebind(`UPDATE lesson SET title = ?, description = ?, objective = ?, prerequisites = ?, status = ?,
		is_published = ?, archived = ?, credit_points = ?, readings = ?, assignments = ?, estimated_work = ?,
		updated_at = ? WHERE id = ?`)
	res, err := exe.ExecContext(ctx, query,
		row.Title, row.Description, row.Objective, row.Prerequisites, row.Status, row.IsPublished, row.Archived,
		row.CreditPoints, row.Readings, row.Assignments, row.EstimatedWork, row.UpdatedAt, row.ID,
	)
	if err != nil {
		return lesson.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	return lsn, nil
}

func (repo lessonRepository) DeleteLessonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query, args, err := sqlx.In(`DELETE FROM lesson WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	if _, err = exe.ExecContext(ctx, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting lessons")
	}
	return nil
}

func (repo lessonRepository) ClearCourseLessons(ctx context.Context, courseID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := exe.Rebind(`UPDATE lesson SET course_id = NULL, updated_at = now() WHERE course_id = ?`)
	if _, err := exe.ExecContext(ctx, query, courseID); err != nil {
		return errors.Wrap(err, "clearing course lessons")
	}
	return nil
}

func (repo lessonRepository) SetLessonsCourse(ctx context.Context, lessonIDs []string, courseID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query, args, err := sqlx.In(`UPDATE lesson SET course_id = ?, updated_at = now() WHERE id IN (?)`, courseID, lessonIDs)
	if err != nil {
		return errors.Wrap(err, "setting lessons course")
	}
	if _, err = exe.ExecContext(ctx, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "setting lessons course")
	}
	return nil
}

func (repo lessonRepository) ArchiveLessonsByCreator(ctx context.Context, createdBy string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := exe.Rebind(`UPDATE lesson SET status = ?, is_published = false, archived = true, updated_at = now() WHERE created_by = ?`)
	if _, err := exe.ExecContext(ctx, query, core.StatusArchived.String(), createdBy); err != nil {
		return errors.Wrap(err, "archiving lessons")
	}
	return nil
}
