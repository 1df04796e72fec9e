package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/grade"
)

const gradeCols = `id, student_id, lesson_id, classroom_id, score, passed, feedback, created_at, updated_at`

type gradeRow struct {
	ID          string      `db:"id"`
	StudentID   string      `db:"student_id"`
	LessonID    string      `db:"lesson_id"`
	ClassroomID string      `db:"classroom_id"`
	Score       null.Int    `db:"score"`
	Passed      null.Bool   `db:"passed"`
	Feedback    null.String `db:"feedback"`
	CreatedAt   null.Time   `db:"created_at"`
	UpdatedAt   null.Time   `db:"updated_at"`
}

type gradeRepository struct {
	exec core.DBExecutor
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) *gradeRepository {
	return &gradeRepository{exec: exec}
}

func (repo gradeRepository) fromRow(row gradeRow) grade.Grade {
	return grade.Grade{
		ID:          row.ID,
		StudentID:   row.StudentID,
		LessonID:    row.LessonID,
		ClassroomID: row.ClassroomID,
		Score:       row.Score.Int,
		Passed:      row.Passed.Bool,
		Feedback:    row.Feedback.String,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo gradeRepository) UpsertGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	exe := getExec(repo.exec, exec)

	// re-grading overwrites on the unique (student, lesson, classroom) triple
	query := exe.Rebind(`INSERT INTO grade (` + gradeCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, lesson_id, classroom_id) DO UPDATE
		SET score = EXCLUDED.score, passed = EXCLUDED.passed, feedback = EXCLUDED.feedback, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`)

	var ret struct {
		ID        string    `db:"id"`
		CreatedAt null.Time `db:"created_at"`
	}
	err := sqlx.GetContext(ctx, exe, &ret, query,
		uuid.New().String(), g.StudentID, g.LessonID, g.ClassroomID,
		g.Score, g.Passed, null.NewString(g.Feedback, g.Feedback != ""),
		g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
	)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "upserting grade")
	}
	g.ID = ret.ID
	g.CreatedAt = ret.CreatedAt.Time
	return g, nil
}

func (repo gradeRepository) QueryGrades(ctx context.Context, filter *grade.QueryFilter, exec ...core.DBExecutor) ([]grade.Grade, error) {
	exe := getExec(repo.exec, exec)

	query := `SELECT ` + gradeCols + ` FROM grade`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.StudentID != "" {
			conds = append(conds, `student_id = ?`)
			args = append(args, filter.StudentID)
		}
		if filter.ClassroomID != "" {
			conds = append(conds, `classroom_id = ?`)
			args = append(args, filter.ClassroomID)
		}
		if len(filter.LessonIDs) > 0 {
			conds = append(conds, `lesson_id IN (?)`)
			args = append(args, filter.LessonIDs)
		}
	}

	if len(conds) > 0 {
		query += ` WHERE ` + joinAnd(conds)
	}

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	var rows []gradeRow
	if err = sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(query), inArgs...); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}

	grades := make([]grade.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, repo.fromRow(row))
	}
	return grades, nil
}

func (repo gradeRepository) DeleteGradesByClassroom(ctx context.Context, classroomID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := exe.Rebind(`DELETE FROM grade WHERE classroom_id = ?`)
	if _, err := exe.ExecContext(ctx, query, classroomID); err != nil {
		return errors.Wrap(err, "deleting classroom grades")
	}
	return nil
}
