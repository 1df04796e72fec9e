package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/classroom"
)

type classroomRepository struct {
	db *classroomTable
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *DB) *classroomRepository {
	return &classroomRepository{db: db.classroom}
}

func (repo *classroomRepository) query() []classroom.Classroom {
	classrooms := make([]classroom.Classroom, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		classrooms = append(classrooms, *c)
	}
	return classrooms
}

func (repo *classroomRepository) CheckClassroomIDUniqueness(_ context.Context, classroomID string, excluded []classroom.Classroom, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exclIDs := make([]string, 0, len(excluded))
	for _, c := range excluded {
		exclIDs = append(exclIDs, c.ID)
	}
	for _, cls := range repo.query() {
		if cls.ClassroomID == classroomID && !contains(cls.ID, exclIDs) {
			return classroom.ErrClassroomExists
		}
	}
	return nil
}

func (repo *classroomRepository) CreateClassroom(_ context.Context, cls classroom.Classroom, _ ...core.DBExecutor) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls.ID = uuid.New().String()
	cls.NumStudents = len(cls.Students)
	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classroomRepository) QueryClassrooms(_ context.Context, filter *classroom.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classrooms := repo.query()
	if filter == nil {
		return classrooms, nil
	}

	filtered := make([]classroom.Classroom, 0, len(classrooms))
	kw := strings.ToLower(filter.Search)
	for _, c := range classrooms {
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(c.ClassroomID), kw) &&
			!strings.Contains(strings.ToLower(c.Title), kw) {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(c.Status.String(), filter.Status) {
			continue
		}
		if filter.CourseID != "" && !c.TeachesCourse(filter.CourseID) {
			continue
		}
		if filter.Owner != "" && c.Owner != filter.Owner {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered, nil
}

func (repo *classroomRepository) GetClassroomByID(_ context.Context, id string, _ ...core.DBExecutor) (classroom.Classroom, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.table[id]; ok {
		return *cls, nil
	}
	return classroom.Classroom{}, classroom.ErrNotFound
}

func (repo *classroomRepository) UpdateClassroom(_ context.Context, cls classroom.Classroom, _ ...core.DBExecutor) (classroom.Classroom, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[cls.ID]
	if !ok {
		return classroom.Classroom{}, classroom.ErrNotFound
	}
	// the roster is owned by the coordinator writes
	cls.Students = orig.Students
	cls.NumStudents = orig.NumStudents
	repo.db.table[cls.ID] = &cls
	return cls, nil
}

func (repo *classroomRepository) DeleteClassroomsByID(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *classroomRepository) AddClassroomStudent(_ context.Context, classroomID, studentID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls, ok := repo.db.table[classroomID]
	if !ok {
		return classroom.ErrNotFound
	}
	if !cls.HasStudent(studentID) {
		cls.Students = append(cls.Students, studentID)
	}
	cls.NumStudents = len(cls.Students)
	return nil
}

func (repo *classroomRepository) RemoveClassroomStudent(_ context.Context, classroomID, studentID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls, ok := repo.db.table[classroomID]
	if !ok {
		return classroom.ErrNotFound
	}
	students := make([]string, 0, len(cls.Students))
	for _, id := range cls.Students {
		if id != studentID {
			students = append(students, id)
		}
	}
	cls.Students = students
	cls.NumStudents = len(cls.Students)
	return nil
}
