package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func (repo *courseRepository) query() []course.Course {
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		courses = append(courses, *c)
	}
	return courses
}

func (repo *courseRepository) CheckCourseIDUniqueness(_ context.Context, courseID string, excluded []course.Course, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exclIDs := make([]string, 0, len(excluded))
	for _, c := range excluded {
		exclIDs = append(exclIDs, c.ID)
	}
	for _, crs := range repo.query() {
		if crs.CourseID == courseID && !contains(crs.ID, exclIDs) {
			return course.ErrCourseExists
		}
	}
	return nil
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := repo.query()
	if filter == nil {
		return courses, nil
	}

	filtered := make([]course.Course, 0, len(courses))
	kw := strings.ToLower(filter.Search)
	for _, c := range courses {
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(c.CourseID), kw) &&
			!strings.Contains(strings.ToLower(c.Title), kw) &&
			!strings.Contains(strings.ToLower(c.Description), kw) {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(c.Status.String(), filter.Status) {
			continue
		}
		if filter.Owner != "" && c.Owner != filter.Owner {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	// Lessons, TotalCredit and Students are owned by the coordinator writes
	crs.Lessons = orig.Lessons
	crs.TotalCredit = orig.TotalCredit
	crs.Students = orig.Students
	repo.db.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *courseRepository) AddCourseStudent(_ context.Context, courseID, studentID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	if !crs.HasStudent(studentID) {
		crs.Students = append(crs.Students, studentID)
	}
	return nil
}

func (repo *courseRepository) RemoveCourseStudent(_ context.Context, courseID, studentID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	students := make([]string, 0, len(crs.Students))
	for _, id := range crs.Students {
		if id != studentID {
			students = append(students, id)
		}
	}
	crs.Students = students
	return nil
}

func (repo *courseRepository) SetCourseLessons(_ context.Context, courseID string, lessonIDs []string, totalCredit int, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	crs.Lessons = lessonIDs
	crs.TotalCredit = totalCredit
	return nil
}
