package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/lesson"
)

type lessonRepository struct {
	db *lessonTable
}

var _ lesson.Repository = (*lessonRepository)(nil) // interface compliance check

func NewLessonRepository(db *DB) *lessonRepository {
	return &lessonRepository{db: db.lesson}
}

func (repo *lessonRepository) query() []lesson.Lesson {
	lessons := make([]lesson.Lesson, 0, len(repo.db.table))
	for _, l := range repo.db.table {
		lessons = append(lessons, *l)
	}
	return lessons
}

func (repo *lessonRepository) CheckLessonIDUniqueness(_ context.Context, lessonID string, excluded []lesson.Lesson, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exclIDs := make([]string, 0, len(excluded))
	for _, l := range excluded {
		exclIDs = append(exclIDs, l.ID)
	}
	for _, lsn := range repo.query() {
		if lsn.LessonID == lessonID && !contains(lsn.ID, exclIDs) {
			return lesson.ErrLessonExists
		}
	}
	return nil
}

func (repo *lessonRepository) CreateLesson(_ context.Context, lsn lesson.Lesson, _ ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	lsn.ID = uuid.New().String()
	repo.db.table[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *lessonRepository) QueryLessons(_ context.Context, filter *lesson.QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := repo.query()
	if filter == nil {
		return lessons, nil
	}

	filtered := make([]lesson.Lesson, 0, len(lessons))
	kw := strings.ToLower(filter.Search)
	for _, l := range lessons {
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(l.LessonID), kw) &&
			!strings.Contains(strings.ToLower(l.Title), kw) &&
			!strings.Contains(strings.ToLower(l.Description), kw) {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(l.Status.String(), filter.Status) {
			continue
		}
		if filter.CourseID != "" && l.CourseID != filter.CourseID {
			continue
		}
		if filter.CreatedBy != "" && l.CreatedBy != filter.CreatedBy {
			continue
		}
		filtered = append(filtered, l)
	}
	return filtered, nil
}

func (repo *lessonRepository) GetLessonByID(_ context.Context, id string, _ ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lsn, ok := repo.db.table[id]; ok {
		return *lsn, nil
	}
	return lesson.Lesson{}, lesson.ErrNotFound
}

func (repo *lessonRepository) GetLessonsByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]lesson.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]lesson.Lesson, 0, len(ids))
	for _, id := range ids {
		if lsn, ok := repo.db.table[id]; ok {
			lessons = append(lessons, *lsn)
		}
	}
	return lessons, nil
}

func (repo *lessonRepository) UpdateLesson(_ context.Context, lsn lesson.Lesson, _ ...core.DBExecutor) (lesson.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[lsn.ID]
	if !ok {
		return lesson.Lesson{}, lesson.ErrNotFound
	}
	lsn.CourseID = orig.CourseID // owned by the course linkage writes
	repo.db.table[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *lessonRepository) DeleteLessonsByID(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *lessonRepository) ClearCourseLessons(_ context.Context, courseID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, lsn := range repo.db.table {
		if lsn.CourseID == courseID {
			lsn.CourseID = ""
		}
	}
	return nil
}

func (repo *lessonRepository) SetLessonsCourse(_ context.Context, lessonIDs []string, courseID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range lessonIDs {
		if lsn, ok := repo.db.table[id]; ok {
			lsn.CourseID = courseID
		}
	}
	return nil
}

func (repo *lessonRepository) ArchiveLessonsByCreator(_ context.Context, createdBy string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, lsn := range repo.db.table {
		if lsn.CreatedBy == createdBy {
			lsn.Status = core.StatusArchived
		}
	}
	return nil
}
