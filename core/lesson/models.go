package lesson

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/academia/core"
)

type (
	// Reading is a single piece of reading material attached to a lesson.
	Reading struct {
		Title string `json:"title" validate:"required"`
		URL   string `json:"url" validate:"required,url"`
	}

	// Assignment is graded homework attached to a lesson.
	Assignment struct {
		Title   string    `json:"title" validate:"required"`
		DueDate time.Time `json:"due_date"`
		Points  int       `json:"points" validate:"gte=0"`
	}

	// Lesson is the smallest unit of content. It belongs to at most one
	// course at a time and may list other lessons as prerequisites.
	Lesson struct {
		ID            string       `json:"id"`
		LessonID      string       `json:"lesson_id"` // human-readable label, unique
		Title         string       `json:"title"`
		Description   string       `json:"description,omitempty"`
		Objective     string       `json:"objective,omitempty"`
		Prerequisites []string     `json:"prerequisites,omitempty"` // lesson ids; acyclic, never self
		CreatedBy     string       `json:"created_by"`
		Status        core.Status  `json:"status"`
		CreditPoints  int          `json:"credit_points"`
		Readings      []Reading    `json:"readings,omitempty"`
		Assignments   []Assignment `json:"assignments,omitempty"`
		EstimatedWork int          `json:"estimated_work"` // hours per week
		CourseID      string       `json:"course,omitempty"`
		CreatedAt     time.Time    `json:"created_at"`
		UpdatedAt     time.Time    `json:"updated_at"`
	}
)

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	LessonID      string       `json:"lesson_id" validate:"required"`
	Title         string       `json:"title" validate:"required"`
	Description   string       `json:"description"`
	Objective     string       `json:"objective"`
	Prerequisites []string     `json:"prerequisites"`
	Status        string       `json:"status" validate:"omitempty,entstatus"`
	CreditPoints  int          `json:"credit_points" validate:"gte=0"`
	Readings      []Reading    `json:"readings" validate:"omitempty,dive"`
	Assignments   []Assignment `json:"assignments" validate:"omitempty,dive"`
	EstimatedWork int          `json:"estimated_work" validate:"gte=0"`
}

func (nl *NewLesson) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nl.LessonID = core.CleanString(nl.LessonID)
	nl.Title = core.CleanString(nl.Title)
	nl.Description = core.CleanString(nl.Description)
	nl.Objective = core.CleanString(nl.Objective)

	if err := validate.Struct(nl); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nl.LessonID)
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
// nil slices mean "leave unchanged"; prerequisites are re-validated whenever set.
type UpdateLesson struct {
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Objective     string       `json:"objective"`
	Prerequisites []string     `json:"prerequisites"`
	Status        string       `json:"status" validate:"omitempty,entstatus"`
	CreditPoints  *int         `json:"credit_points" validate:"omitempty,gte=0"`
	Readings      []Reading    `json:"readings" validate:"omitempty,dive"`
	Assignments   []Assignment `json:"assignments" validate:"omitempty,dive"`
	EstimatedWork *int         `json:"estimated_work" validate:"omitempty,gte=0"`
}

func (ul *UpdateLesson) Validate(ctx context.Context, orig Lesson, validate *validator.Validate) error {
	if title := core.CleanString(ul.Title); title != "" {
		ul.Title = title
	} else {
		ul.Title = orig.Title
	}
	if desc := core.CleanString(ul.Description); desc != "" {
		ul.Description = desc
	} else {
		ul.Description = orig.Description
	}
	if obj := core.CleanString(ul.Objective); obj != "" {
		ul.Objective = obj
	} else {
		ul.Objective = orig.Objective
	}

	return validate.Struct(ul)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Status    string `query:"status"`
	CourseID  string `query:"course"`
	CreatedBy string `query:"created_by"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.CourseID == "" && qf.CreatedBy == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status)
}
