package grade

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/academia/core"
)

// PassMark is the score threshold at which a graded lesson counts as passed.
const PassMark = 50

// Grade is a (student, lesson, classroom)-scoped score. The triple is unique:
// re-grading overwrites. Passed is always recomputed server-side from Score.
type Grade struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student"`
	LessonID    string    `json:"lesson"`
	ClassroomID string    `json:"classroom"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	Feedback    string    `json:"feedback"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewGrade contains information needed to record a grade. A client-supplied
// "passed" value is deliberately not bindable here: the outcome is derived
// from Score alone.
type NewGrade struct {
	StudentID   string `json:"student" validate:"required"`
	LessonID    string `json:"lesson" validate:"required"`
	ClassroomID string `json:"classroom" validate:"required"`
	Score       int    `json:"score" validate:"gte=0,lte=100"`
	Feedback    string `json:"feedback"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Feedback = core.CleanString(ng.Feedback)
	return validate.Struct(ng)
}

// DefaultFeedback is applied when a grade is recorded without feedback.
func DefaultFeedback(score int) string {
	return fmt.Sprintf("Graded: %d/100", score)
}

// BulkRow is one student's entry in a bulk grading request.
type BulkRow struct {
	StudentID string `json:"student" validate:"required"`
	Score     int    `json:"score" validate:"gte=0,lte=100"`
	Feedback  string `json:"feedback"`
}

// BulkRowResult reports the outcome of a single bulk row; rows fail
// independently and never abort the batch.
type BulkRowResult struct {
	StudentID string `json:"student"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

type BulkResult struct {
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Rows      []BulkRowResult `json:"rows"`
}

// Lesson row statuses in a progress report.
const (
	StatusGraded   = "graded"
	StatusUngraded = "ungraded"
)

// LessonProgress is one lesson's row in a student progress report.
// Score is nil (rendered as "-") while the lesson is ungraded.
type LessonProgress struct {
	LessonID    string `json:"lesson_id"`
	LessonTitle string `json:"lesson_title"`
	Score       *int   `json:"score"`
	Passed      bool   `json:"passed"`
	Feedback    string `json:"feedback"`
	Status      string `json:"status"`
}

// ProgressReport is a student's completion summary over their enrolled course.
type ProgressReport struct {
	StudentID        string           `json:"student"`
	CourseID         string           `json:"course,omitempty"`
	ProgressPercent  float64          `json:"progress_percent"`
	PassedCount      int              `json:"passed_count"`
	TotalLessonCount int              `json:"total_lesson_count"`
	Message          string           `json:"message,omitempty"`
	PerLesson        []LessonProgress `json:"per_lesson"`
}

type QueryFilter struct {
	StudentID   string
	ClassroomID string
	LessonIDs   []string
}
