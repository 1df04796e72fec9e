package classroom

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/academia/core"
)

// Timeline is the derived schedule state of a published classroom.
type Timeline string

const (
	TimelineOngoing   Timeline = "ongoing"
	TimelineCompleted Timeline = "completed"
)

// Classroom is a scheduled running of one course, with its own student
// roster and time window. Duration is expressed in weeks everywhere —
// write and read side alike.
type Classroom struct {
	ID          string      `json:"id"`
	ClassroomID string      `json:"classroom_id"` // human-readable label, unique
	Title       string      `json:"title"`
	Courses     []string    `json:"courses"` // exactly one in practice
	Lessons     []string    `json:"lessons"` // subset of the course's lessons taught in this run
	Students    []string    `json:"students"`
	NumStudents int         `json:"num_students"`
	StartTime   time.Time   `json:"start_time"`
	Duration    int         `json:"duration"` // weeks
	Owner       string      `json:"owner"`
	Status      core.Status `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (c *Classroom) HasStudent(studentID string) bool {
	for _, id := range c.Students {
		if id == studentID {
			return true
		}
	}
	return false
}

func (c *Classroom) TeachesCourse(courseID string) bool {
	for _, id := range c.Courses {
		if id == courseID {
			return true
		}
	}
	return false
}

// Timeline classifies the classroom as ongoing or completed relative to now.
// end = start + duration weeks; completed once now is past end. When the
// window cannot be computed (zero start or missing duration) the classroom
// falls back to ongoing.
func (c *Classroom) Timeline(now time.Time) Timeline {
	if c.StartTime.IsZero() || c.Duration <= 0 {
		return TimelineOngoing
	}
	end := c.StartTime.Add(time.Duration(c.Duration) * 7 * 24 * time.Hour)
	if now.After(end) {
		return TimelineCompleted
	}
	return TimelineOngoing
}

// NewClassroom contains information needed to create a new Classroom.
type NewClassroom struct {
	ClassroomID string    `json:"classroom_id" validate:"required"`
	Title       string    `json:"title" validate:"required"`
	Courses     []string  `json:"courses" validate:"required,min=1"`
	Lessons     []string  `json:"lessons"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	Duration    int       `json:"duration" validate:"required,gt=0"` // weeks
	Status      string    `json:"status" validate:"omitempty,entstatus"`
}

func (nc *NewClassroom) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.ClassroomID = core.CleanString(nc.ClassroomID)
	nc.Title = core.CleanString(nc.Title)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nc.ClassroomID)
}

// UpdateClassroom defines what information may be provided to modify an
// existing Classroom. The Students list is owned by the enrollment
// coordinator and cannot be set here.
type UpdateClassroom struct {
	Title     string    `json:"title"`
	Courses   []string  `json:"courses" validate:"omitempty,min=1"`
	Lessons   []string  `json:"lessons"`
	StartTime time.Time `json:"start_time"`
	Duration  *int      `json:"duration" validate:"omitempty,gt=0"`
	Status    string    `json:"status" validate:"omitempty,entstatus"`
}

func (uc *UpdateClassroom) Validate(ctx context.Context, orig Classroom, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	return validate.Struct(uc)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Status   string `query:"status"`
	CourseID string `query:"course"`
	Owner    string `query:"owner"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.CourseID == "" && qf.Owner == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status)
}
