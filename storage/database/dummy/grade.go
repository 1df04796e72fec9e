package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/grade"
)

type gradeRepository struct {
	db *gradeTable
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db.grade}
}

// key is the unique (student, lesson, classroom) triple
func gradeKey(studentID, lessonID, classroomID string) string {
	return studentID + "/" + lessonID + "/" + classroomID
}

func (repo *gradeRepository) UpsertGrade(_ context.Context, g grade.Grade, _ ...core.DBExecutor) (grade.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := gradeKey(g.StudentID, g.LessonID, g.ClassroomID)
	if orig, ok := repo.db.table[key]; ok {
		g.ID = orig.ID
		g.CreatedAt = orig.CreatedAt
	} else {
		g.ID = uuid.New().String()
	}
	repo.db.table[key] = &g
	return g, nil
}

func (repo *gradeRepository) QueryGrades(_ context.Context, filter *grade.QueryFilter, _ ...core.DBExecutor) ([]grade.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	grades := make([]grade.Grade, 0, len(repo.db.table))
	for _, g := range repo.db.table {
		if filter != nil {
			if filter.StudentID != "" && g.StudentID != filter.StudentID {
				continue
			}
			if filter.ClassroomID != "" && g.ClassroomID != filter.ClassroomID {
				continue
			}
			if len(filter.LessonIDs) > 0 && !contains(g.LessonID, filter.LessonIDs) {
				continue
			}
		}
		grades = append(grades, *g)
	}
	return grades, nil
}

func (repo *gradeRepository) DeleteGradesByClassroom(_ context.Context, classroomID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for key, g := range repo.db.table {
		if g.ClassroomID == classroomID {
			delete(repo.db.table, key)
		}
	}
	return nil
}
