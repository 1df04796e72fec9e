package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/academia/core"
)

// Course is a named bundle of lessons with a total credit value.
// Lessons and Students hold cross-references that core/enroll keeps in sync
// with Lesson.CourseID and User.CourseID respectively.
type Course struct {
	ID          string      `json:"id"`
	CourseID    string      `json:"course_id"` // human-readable label, unique
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Lessons     []string    `json:"lessons"`
	Status      core.Status `json:"status"`
	TotalCredit int         `json:"total_credit"` // derived sum of lesson credits at save time
	Owner       string      `json:"owner"`
	Students    []string    `json:"students"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (c *Course) HasStudent(studentID string) bool {
	for _, id := range c.Students {
		if id == studentID {
			return true
		}
	}
	return false
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	CourseID    string   `json:"course_id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	Lessons     []string `json:"lessons"`
	Status      string   `json:"status" validate:"omitempty,entstatus"`
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.CourseID = core.CleanString(nc.CourseID)
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nc.CourseID)
}

// UpdateCourse defines what information may be provided to modify an existing
// Course. The Lessons list is applied through the enrollment coordinator so
// lesson back-references stay consistent.
type UpdateCourse struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Lessons     []string `json:"lessons"`
	Status      string   `json:"status" validate:"omitempty,entstatus"`
}

func (uc *UpdateCourse) Validate(ctx context.Context, orig Course, validate *validator.Validate) error {
	if title := core.CleanString(uc.Title); title != "" {
		uc.Title = title
	} else {
		uc.Title = orig.Title
	}
	if desc := core.CleanString(uc.Description); desc != "" {
		uc.Description = desc
	} else {
		uc.Description = orig.Description
	}

	return validate.Struct(uc)
}

type QueryFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
	Owner  string `query:"owner"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.Owner == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status)
}
