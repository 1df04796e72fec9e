package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core"
)

var (
	// errors
	ErrNotFound     = errors.New("course not found")
	ErrCourseExists = errors.New("a course with this course_id already exists")
)

type (
	Repository interface {
		CheckCourseIDUniqueness(ctx context.Context, courseID string, excluded []Course, exec ...core.DBExecutor) error
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error

		// roster and lesson-list writes, used by core/enroll
		AddCourseStudent(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) error
		RemoveCourseStudent(ctx context.Context, courseID, studentID string, exec ...core.DBExecutor) error
		SetCourseLessons(ctx context.Context, courseID string, lessonIDs []string, totalCredit int, exec ...core.DBExecutor) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, courseID string, excluded ...Course) error
		Create(ctx context.Context, nc NewCourse, owner string) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		Published(ctx context.Context) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ctx context.Context, courseID string, excluded ...Course) error {
	if err := svc.repo.CheckCourseIDUniqueness(ctx, courseID, excluded); err != nil {
		if errors.Cause(err) == ErrCourseExists {
			return core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Create saves the course record only; its Lessons list is linked up by the
// caller through the enrollment coordinator so the lessons' own course
// back-references are written in the same transaction.
func (svc *service) Create(ctx context.Context, nc NewCourse, owner string) (Course, error) {
	status, _ := core.ParseStatus(nc.Status)
	now := time.Now().UTC()
	crs := Course{
		CourseID:    nc.CourseID,
		Title:       nc.Title,
		Description: nc.Description,
		Status:      status,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering)
}

func (svc *service) Published(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, &QueryFilter{Status: core.StatusPublished.String()}, nil)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// Update applies scalar fields only; Lessons and Students are owned by the
// enrollment coordinator.
func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	crs := orig
	crs.Title = uc.Title
	crs.Description = uc.Description
	crs.UpdatedAt = time.Now().UTC()
	if uc.Status != "" {
		crs.Status, _ = core.ParseStatus(uc.Status)
	}
	return svc.repo.UpdateCourse(ctx, crs)
}
