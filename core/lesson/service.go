package lesson

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core"
)

var (
	// errors
	ErrNotFound     = errors.New("lesson not found")
	ErrLessonExists = errors.New("a lesson with this lesson_id already exists")

	errSelfPrerequisite    = "a lesson cannot be its own prerequisite"
	errUnknownPrerequisite = "unknown prerequisite lesson"
	errCyclicPrerequisite  = "prerequisites must not form a cycle"
)

type (
	Repository interface {
		CheckLessonIDUniqueness(ctx context.Context, lessonID string, excluded []Lesson, exec ...core.DBExecutor) error
		CreateLesson(ctx context.Context, lsn Lesson, exec ...core.DBExecutor) (Lesson, error)
		QueryLessons(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Lesson, error)
		GetLessonByID(ctx context.Context, id string, exec ...core.DBExecutor) (Lesson, error)
		GetLessonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson, exec ...core.DBExecutor) (Lesson, error)
		DeleteLessonsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error

		// course linkage, used by core/enroll (two-phase clear-then-set)
		ClearCourseLessons(ctx context.Context, courseID string, exec ...core.DBExecutor) error
		SetLessonsCourse(ctx context.Context, lessonIDs []string, courseID string, exec ...core.DBExecutor) error
		// ArchiveLessonsByCreator flips status to Archived on every lesson
		// created by the given instructor (instructor-deletion cascade).
		ArchiveLessonsByCreator(ctx context.Context, createdBy string, exec ...core.DBExecutor) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, lessonID string, excluded ...Lesson) error
		Create(ctx context.Context, nl NewLesson, createdBy string) (Lesson, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lesson, error)
		GetByID(ctx context.Context, id string) (Lesson, error)
		Update(ctx context.Context, id string, ul UpdateLesson) (Lesson, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ctx context.Context, lessonID string, excluded ...Lesson) error {
	if err := svc.repo.CheckLessonIDUniqueness(ctx, lessonID, excluded); err != nil {
		if errors.Cause(err) == ErrLessonExists {
			return core.NewValidationError(err, core.FieldError{Field: "lesson_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nl NewLesson, createdBy string) (Lesson, error) {
	status, _ := core.ParseStatus(nl.Status)
	now := time.Now().UTC()
	lsn := Lesson{
		LessonID:      nl.LessonID,
		Title:         nl.Title,
		Description:   nl.Description,
		Objective:     nl.Objective,
		Prerequisites: nl.Prerequisites,
		CreatedBy:     createdBy,
		Status:        status,
		CreditPoints:  nl.CreditPoints,
		Readings:      nl.Readings,
		Assignments:   nl.Assignments,
		EstimatedWork: nl.EstimatedWork,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := svc.validatePrerequisites(ctx, &lsn); err != nil {
		return Lesson{}, err
	}
	return svc.repo.CreateLesson(ctx, lsn)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	orig, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}

	lsn := orig
	lsn.Title = ul.Title
	lsn.Description = ul.Description
	lsn.Objective = ul.Objective
	lsn.UpdatedAt = time.Now().UTC()
	if ul.Status != "" {
		lsn.Status, _ = core.ParseStatus(ul.Status)
	}
	if ul.Prerequisites != nil {
		lsn.Prerequisites = ul.Prerequisites
		if err = svc.validatePrerequisites(ctx, &lsn); err != nil {
			return Lesson{}, err
		}
	}
	if ul.CreditPoints != nil {
		lsn.CreditPoints = *ul.CreditPoints
	}
	if ul.EstimatedWork != nil {
		lsn.EstimatedWork = *ul.EstimatedWork
	}
	if ul.Readings != nil {
		lsn.Readings = ul.Readings
	}
	if ul.Assignments != nil {
		lsn.Assignments = ul.Assignments
	}
	return svc.repo.UpdateLesson(ctx, lsn)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteLessonsByID(ctx, ids)
}

// validatePrerequisites rejects self-referential and cyclic prerequisite
// edges, and edges pointing at lessons that do not exist. The stored lessons
// are loaded into an id-indexed map and the whole graph is walked from the
// edited lesson before anything is committed.
func (svc *service) validatePrerequisites(ctx context.Context, lsn *Lesson) error {
	if len(lsn.Prerequisites) == 0 {
		return nil
	}

	for _, pid := range lsn.Prerequisites {
		if pid == lsn.ID || (lsn.ID == "" && pid == lsn.LessonID) {
			return core.NewValidationError(nil, core.FieldError{Field: "prerequisites", Error: errSelfPrerequisite})
		}
	}

	all, err := svc.repo.QueryLessons(ctx, nil, nil)
	if err != nil {
		return errors.Wrap(err, "loading lessons for prerequisite validation")
	}
	index := make(map[string]Lesson, len(all))
	for _, l := range all {
		index[l.ID] = l
	}

	for _, pid := range lsn.Prerequisites {
		if _, ok := index[pid]; !ok {
			return core.NewValidationError(nil, core.FieldError{Field: "prerequisites", Error: errUnknownPrerequisite + ": " + pid})
		}
	}

	// walk the graph from every direct prerequisite; reaching the edited
	// lesson again means the new edges would close a cycle
	if lsn.ID != "" {
		seen := make(map[string]bool, len(index))
		stack := append([]string(nil), lsn.Prerequisites...)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if id == lsn.ID {
				return core.NewValidationError(nil, core.FieldError{Field: "prerequisites", Error: errCyclicPrerequisite})
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			stack = append(stack, index[id].Prerequisites...)
		}
	}
	return nil
}
