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
	"github.com/mwalimu/academia/core/course"
)

const courseCols = `id, course_id, title, description, lessons, status, is_published, archived, total_credit, owner, students, created_at, updated_at`

type courseRow struct {
	ID          string         `db:"id"`
	CourseID    null.String    `db:"course_id"`
	Title       null.String    `db:"title"`
	Description null.String    `db:"description"`
	Lessons     pq.StringArray `db:"lessons"`
	Status      null.String    `db:"status"`
	IsPublished null.Bool      `db:"is_published"`
	Archived    null.Bool      `db:"archived"`
	TotalCredit null.Int       `db:"total_credit"`
	Owner       null.String    `db:"owner"`
	Students    pq.StringArray `db:"students"`
	CreatedAt   null.Time      `db:"created_at"`
	UpdatedAt   null.Time      `db:"updated_at"`
}

type courseRepository struct {
	exec core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{exec: exec}
}

func (repo courseRepository) toRow(crs course.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		CourseID:    null.NewString(crs.CourseID, crs.CourseID != ""),
		Title:       null.NewString(crs.Title, crs.Title != ""),
		Description: null.NewString(crs.Description, crs.Description != ""),
		Lessons:     crs.Lessons,
		Status:      null.StringFrom(crs.Status.String()),
		IsPublished: null.BoolFrom(crs.Status == core.StatusPublished),
		Archived:    null.BoolFrom(crs.Status == core.StatusArchived),
		TotalCredit: null.IntFrom(crs.TotalCredit),
		Owner:       null.NewString(crs.Owner, crs.Owner != ""),
		Students:    crs.Students,
		CreatedAt:   null.NewTime(crs.CreatedAt.UTC(), !crs.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(crs.UpdatedAt.UTC(), !crs.UpdatedAt.IsZero()),
	}
}

func (repo courseRepository) fromRow(row courseRow) course.Course {
	return course.Course{
		ID:          row.ID,
		CourseID:    row.CourseID.String,
		Title:       row.Title.String,
		Description: row.Description.String,
		Lessons:     row.Lessons,
		Status:      core.NormalizeStatus(row.Status.String, row.IsPublished.Bool, row.Archived.Bool),
		TotalCredit: row.TotalCredit.Int,
		Owner:       row.Owner.String,
		Students:    row.Students,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo courseRepository) fromRows(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.fromRow(row))
	}
	return courses
}

func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CheckCourseIDUniqueness(ctx context.Context, courseID string, excluded []course.Course, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := `SELECT EXISTS (SELECT 1 FROM course WHERE course_id = ?`
	args := []interface{}{courseID}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, c := range excluded {
			ids = append(ids, c.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "checking course uniqueness")
	}
	var exists bool
	if err = sqlx.GetContext(ctx, exe, &exists, exe.Rebind(query), inArgs...); err != nil {
		return errors.Wrap(err, "checking course uniqueness")
	}
	if exists {
		return course.ErrCourseExists
	}
	return nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	exe := getExec(repo.exec, exec)

	crs.ID = uuid.New().String()
	row := repo.toRow(crs)
	query := exe.Rebind(`INSERT INTO course (` + courseCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exe.ExecContext(ctx, query,
		row.ID, row.CourseID, row.Title, row.Description, row.Lessons, row.Status, row.IsPublished,
		row.Archived, row.TotalCredit, row.Owner, row.Students, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	exe := getExec(repo.exec, exec)

	query := `SELECT ` + courseCols + ` FROM course`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(course_id ILIKE ? OR title ILIKE ? OR description ILIKE ?)`)
			val := searchPattern(filter.Search)
			args = append(args, val, val, val)
		}
		if filter.Status != "" {
			conds = append(conds, `status = ?`)
			args = append(args, filter.Status)
		}
		if filter.Owner != "" {
			conds = append(conds, `owner = ?`)
			args = append(args, filter.Owner)
		}
	}

	if len(conds) > 0 {
		query += ` WHERE ` + joinAnd(conds)
	}
	query += orderBy(ordering)

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return repo.fromRows(rows), nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	exe := getExec(repo.exec, exec)

	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	query := exe.Rebind(`SELECT ` + courseCols + ` FROM course WHERE id = ?`)
	if err := sqlx.GetContext(ctx, exe, &row, query, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course by ID")
	}
	return repo.fromRow(row), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	exe := getExec(repo.exec, exec)

	row := repo.toRow(crs)
	query := exe.Rebind(`UPDATE course SET title = ?, description = ?, status = ?, is_published = ?, archived = ?,
		updated_at = ? WHERE id = ?`)
	res, err := exe.ExecContext(ctx, query,
		row.Title, row.Description, row.Status, row.IsPublished, row.Archived, row.UpdatedAt, row.ID,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query, args, err := sqlx.In(`DELETE FROM course WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	if _, err = exe.ExecContext(ctx, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}

func (repo courseRepository) AddCourseStudent(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	// guarded against duplicate roster entries
	query := exe.Rebind(`UPDATE course SET students = array_append(students, ?), updated_at = now()
		WHERE id = ? AND NOT (? = ANY(students))`)
	if _, err := exe.ExecContext(ctx, query, studentID, courseID, studentID); err != nil {
		return errors.Wrap(err, "adding course student")
	}
	return nil
}

func (repo courseRepository) RemoveCourseStudent(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := exe.Rebind(`UPDATE course SET students = array_remove(students, ?), updated_at = now() WHERE id = ?`)
	if _, err := exe.ExecContext(ctx, query, studentID, courseID); err != nil {
		return errors.Wrap(err, "removing course student")
	}
	return nil
}

func (repo courseRepository) SetCourseLessons(ctx context.Context, courseID string, lessonIDs []string, totalCredit int, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := exe.Rebind(`UPDATE course SET lessons = ?, total_credit = ?, updated_at = now() WHERE id = ?`)
	if _, err := exe.ExecContext(ctx, query, pq.StringArray(lessonIDs), totalCredit, courseID); err != nil {
		return errors.Wrap(err, "setting course lessons")
	}
	return nil
}
