package classroom

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core"
)

var (
	// errors
	ErrNotFound        = errors.New("classroom not found")
	ErrClassroomExists = errors.New("a classroom with this classroom_id already exists")
)

type (
	Repository interface {
		CheckClassroomIDUniqueness(ctx context.Context, classroomID string, excluded []Classroom, exec ...core.DBExecutor) error
		CreateClassroom(ctx context.Context, cls Classroom, exec ...core.DBExecutor) (Classroom, error)
		QueryClassrooms(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Classroom, error)
		GetClassroomByID(ctx context.Context, id string, exec ...core.DBExecutor) (Classroom, error)
		UpdateClassroom(ctx context.Context, cls Classroom, exec ...core.DBExecutor) (Classroom, error)
		DeleteClassroomsByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error

		// roster writes, used by core/enroll; both recompute num_students
		// from the stored students list in the same statement
		AddClassroomStudent(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) error
		RemoveClassroomStudent(ctx context.Context, classroomID, studentID string, exec ...core.DBExecutor) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, classroomID string, excluded ...Classroom) error
		Create(ctx context.Context, nc NewClassroom, owner string) (Classroom, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Classroom, error)
		// Ongoing and Completed return published classrooms classified by
		// their timeline relative to now.
		Ongoing(ctx context.Context, now time.Time) ([]Classroom, error)
		Completed(ctx context.Context, now time.Time) ([]Classroom, error)
		GetByID(ctx context.Context, id string) (Classroom, error)
		Update(ctx context.Context, id string, uc UpdateClassroom) (Classroom, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(ctx context.Context, classroomID string, excluded ...Classroom) error {
	if err := svc.repo.CheckClassroomIDUniqueness(ctx, classroomID, excluded); err != nil {
		if errors.Cause(err) == ErrClassroomExists {
			return core.NewValidationError(err, core.FieldError{Field: "classroom_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewClassroom, owner string) (Classroom, error) {
	status, _ := core.ParseStatus(nc.Status)
	now := time.Now().UTC()
	cls := Classroom{
		ClassroomID: nc.ClassroomID,
		Title:       nc.Title,
		Courses:     nc.Courses,
		Lessons:     nc.Lessons,
		StartTime:   nc.StartTime,
		Duration:    nc.Duration,
		Owner:       owner,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateClassroom(ctx, cls)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Classroom, error) {
	return svc.repo.QueryClassrooms(ctx, filter, ordering)
}

func (svc *service) Ongoing(ctx context.Context, now time.Time) ([]Classroom, error) {
	return svc.queryByTimeline(ctx, TimelineOngoing, now)
}

func (svc *service) Completed(ctx context.Context, now time.Time) ([]Classroom, error) {
	return svc.queryByTimeline(ctx, TimelineCompleted, now)
}

func (svc *service) queryByTimeline(ctx context.Context, tl Timeline, now time.Time) ([]Classroom, error) {
	published, err := svc.repo.QueryClassrooms(ctx, &QueryFilter{Status: core.StatusPublished.String()}, nil)
	if err != nil {
		return nil, err
	}
	classrooms := make([]Classroom, 0, len(published))
	for _, cls := range published {
		if cls.Timeline(now) == tl {
			classrooms = append(classrooms, cls)
		}
	}
	return classrooms, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Classroom, error) {
	return svc.repo.GetClassroomByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateClassroom) (Classroom, error) {
	orig, err := svc.repo.GetClassroomByID(ctx, id)
	if err != nil {
		return Classroom{}, err
	}

	cls := orig
	cls.Title = uc.Title
	cls.UpdatedAt = time.Now().UTC()
	if uc.Courses != nil {
		cls.Courses = uc.Courses
	}
	if uc.Lessons != nil {
		cls.Lessons = uc.Lessons
	}
	if !uc.StartTime.IsZero() {
		cls.StartTime = uc.StartTime
	}
	if uc.Duration != nil {
		cls.Duration = *uc.Duration
	}
	if uc.Status != "" {
		cls.Status, _ = core.ParseStatus(uc.Status)
	}
	return svc.repo.UpdateClassroom(ctx, cls)
}
