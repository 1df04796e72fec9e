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
	"github.com/mwalimu/academia/core/classroom"
)

const classroomCols = `id, classroom_id, title, courses, lessons, students, num_students, start_time, duration, owner, status, is_published, archived, created_at, updated_at`

type classroomRow struct {
	ID          string         `db:"id"`
	ClassroomID null.String    `db:"classroom_id"`
	Title       null.String    `db:"title"`
	Courses     pq.StringArray `db:"courses"`
	Lessons     pq.StringArray `db:"lessons"`
	Students    pq.StringArray `db:"students"`
	NumStudents null.Int       `db:"num_students"`
	StartTime   null.Time      `db:"start_time"`
	Duration    null.Int       `db:"duration"`
	Owner       null.String    `db:"owner"`
	Status      null.String    `db:"status"`
	IsPublished null.Bool      `db:"is_published"`
	Archived    null.Bool      `db:"archived"`
	CreatedAt   null.Time      `db:"created_at"`
	UpdatedAt   null.Time      `db:"updated_at"`
}

type classroomRepository struct {
	exec core.DBExecutor
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(exec core.DBExecutor) *classroomRepository {
	return &classroomRepository{exec: exec}
}

func (repo classroomRepository) toRow(cls classroom.Classroom) classroomRow {
	return classroomRow{
		ID:          cls.ID,
		ClassroomID: null.NewString(cls.ClassroomID, cls.ClassroomID != ""),
		Title:       null.NewString(cls.Title, cls.Title != ""),
		Courses:     cls.Courses,
		Lessons:     cls.Lessons,
		Students:    cls.Students,
		NumStudents: null.IntFrom(cls.NumStudents),
		StartTime:   null.NewTime(cls.StartTime.UTC(), !cls.StartTime.IsZero()),
		Duration:    null.IntFrom(cls.Duration),
		Owner:       null.NewString(cls.Owner, cls.Owner != ""),
		Status:      null.StringFrom(cls.Status.String()),
		IsPublished: null.BoolFrom(cls.Status == core.StatusPublished),
		Archived:    null.BoolFrom(cls.Status == core.StatusArchived),
		CreatedAt:   null.NewTime(cls.CreatedAt.UTC(), !cls.CreatedAt.IsZero()),
		UpdatedAt:   null.NewTime(cls.UpdatedAt.UTC(), !cls.UpdatedAt.IsZero()),
	}
}

func (repo classroomRepository) fromRow(row classroomRow) classroom.Classroom {
	return classroom.Classroom{
		ID:          row.ID,
		ClassroomID: row.ClassroomID.String,
		Title:       row.Title.String,
		Courses:     row.Courses,
		Lessons:     row.Lessons,
		Students:    row.Students,
		NumStudents: row.NumStudents.Int,
		StartTime:   row.StartTime.Time,
		Duration:    row.Duration.Int,
		Owner:       row.Owner.String,
		Status:      core.NormalizeStatus(row.Status.String, row.IsPublished.Bool, row.Archived.Bool),
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo classroomRepository) fromRows(rows []classroomRow) []classroom.Classroom {
	classrooms := make([]classroom.Classroom, 0, len(rows))
	for _, row := range rows {
		classrooms = append(classrooms, repo.fromRow(row))
	}
	return classrooms
}

func (repo classroomRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return classroom.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo classroomRepository) CheckClassroomIDUniqueness(ctx context.Context, classroomID string, excluded []classroom.Classroom, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := `SELECT EXISTS (SELECT 1 FROM classroom WHERE classroom_id = ?`
	args := []interface{}{classroomID}
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
		return errors.Wrap(err, "checking classroom uniqueness")
	}
	var exists bool
	if err = sqlx.GetContext(ctx, exe, &exists, exe.Rebind(query), inArgs...); err != nil {
		return errors.Wrap(err, "checking classroom uniqueness")
	}
	if exists {
		return classroom.ErrClassroomExists
	}
	return nil
}

func (repo classroomRepository) CreateClassroom(ctx context.Context, cls classroom.Classroom, exec ...core.DBExecutor) (classroom.Classroom, error) {
	exe := getExec(repo.exec, exec)

	cls.ID = uuid.New().String()
	cls.NumStudents = len(cls.Students)
	row := repo.toRow(cls)
	query := exe.Rebind(`INSERT INTO classroom (` + classroomCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exe.ExecContext(ctx, query,
		row.ID, row.ClassroomID, row.Title, row.Courses, row.Lessons, row.Students, row.NumStudents,
		row.StartTime, row.Duration, row.Owner, row.Status, row.IsPublished, row.Archived,
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "inserting classroom")
	}
	return cls, nil
}

func (repo classroomRepository) QueryClassrooms(ctx context.Context, filter *classroom.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]classroom.Classroom, error) {
	exe := getExec(repo.exec, exec)

	query := `SELECT ` + classroomCols + ` FROM classroom`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(classroom_id ILIKE ? OR title ILIKE ?)`)
			val := searchPattern(filter.Search)
			args = append(args, val, val)
		}
		if filter.Status != "" {
			conds = append(conds, `status = ?`)
			args = append(args, filter.Status)
		}
		if filter.CourseID != "" {
			conds = append(conds, `? = ANY(courses)`)
			args = append(args, filter.CourseID)
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

	var rows []classroomRow
	if err := sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying classrooms")
	}
	return repo.fromRows(rows), nil
}

func (repo classroomRepository) GetClassroomByID(ctx context.Context, id string, exec ...core.DBExecutor) (classroom.Classroom, error) {
	exe := getExec(repo.exec, exec)

	if _, err := uuid.Parse(id); err != nil {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	var row classroomRow
	query := exe.Rebind(`SELECT ` + classroomCols + ` FROM classroom WHERE id = ?`)
	if err := sqlx.GetContext(ctx, exe, &row, query, id); err != nil {
		return classroom.Classroom{}, repo.trapNoRowsErr(err, "finding classroom by ID")
	}
	return repo.fromRow(row), nil
}

func (repo classroomRepository) UpdateClassroom(ctx context.Context, cls classroom.Classroom, exec ...core.DBExecutor) (classroom.Classroom, error) {
	exe := getExec(repo.exec, exec)

	row := repo.toRow(cls)
	query := exe.Rebind(`UPDATE classroom SET title = ?, courses = ?, lessons = ?, start_time = ?, duration = ?,
		status = ?, is_published = ?, archived = ?, updated_at = ? WHERE id = ?`)
	res, err := exe.ExecContext(ctx, query,
		row.Title, row.Courses, row.Lessons, row.StartTime, row.Duration,
		row.Status, row.IsPublished, row.Archived, row.UpdatedAt, row.ID,
	)
	if err != nil {
		return classroom.Classroom{}, errors.Wrap(err, "updating classroom")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	return cls, nil
}

func (repo classroomRepository) DeleteClassroomsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query, args, err := sqlx.In(`DELETE FROM classroom WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting classrooms")
	}
	if _, err = exe.ExecContext(ctx, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting classrooms")
	}
	return nil
}

func (repo classroomRepository) AddClassroomStudent(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	// num_students is recomputed from the roster in the same statement so the
	// two can never drift
	query := exe.Rebind(`UPDATE classroom
		SET students = array_append(students, ?), num_students = cardinality(array_append(students, ?)), updated_at = now()
		WHERE id = ? AND NOT (? = ANY(students))`)
	if _, err := exe.ExecContext(ctx, query, studentID, studentID, classroomID, studentID); err != nil {
		return errors.Wrap(err, "adding classroom student")
	}
	return nil
}

func (repo classroomRepository) RemoveClassroomStudent(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := exe.Rebind(`UPDATE classroom
		SET students = array_remove(students, ?), num_students = cardinality(array_remove(students, ?)), updated_at = now()
		WHERE id = ?`)
	if _, err := exe.ExecContext(ctx, query, studentID, studentID, classroomID); err != nil {
		return errors.Wrap(err, "removing classroom student")
	}
	return nil
}
