package grade

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/lesson"
	"github.com/mwalimu/academia/core/user"
)

var (
	// errors
	ErrNotFound    = errors.New("grade not found")
	ErrNotEnrolled = errors.New("student is not enrolled in a course and classroom")

	msgNoCourse      = "not enrolled in any course yet"
	feedbackUngraded = "Not graded yet"
)

type (
	Repository interface {
		// UpsertGrade inserts or overwrites on the unique
		// (student, lesson, classroom) triple.
		UpsertGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		QueryGrades(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Grade, error)
		DeleteGradesByClassroom(ctx context.Context, classroomID string, exec ...core.DBExecutor) error
	}

	Service interface {
		// RecordGrade upserts a grade; Passed is recomputed from Score and
		// the default feedback is applied when none is given.
		RecordGrade(ctx context.Context, ng NewGrade) (Grade, error)
		// BulkRecordGrades applies RecordGrade per row; failures are
		// reported per-row, never aborting the batch.
		BulkRecordGrades(ctx context.Context, classroomID, lessonID string, rows []BulkRow) BulkResult
		// ClassroomGrades lists every grade recorded in a classroom.
		ClassroomGrades(ctx context.Context, classroomID string) ([]Grade, error)
		// Progress computes a student's completion over their enrolled course.
		Progress(ctx context.Context, studentID string) (ProgressReport, error)
	}

	service struct {
		repo    Repository
		usrRepo user.Repository
		lsnRepo lesson.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrRepo user.Repository, lsnRepo lesson.Repository) Service {
	return &service{
		repo:    repo,
		usrRepo: usrRepo,
		lsnRepo: lsnRepo,
	}
}

func (svc *service) RecordGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	student, err := svc.usrRepo.GetUserByID(ctx, ng.StudentID)
	if err != nil {
		return Grade{}, err
	}
	if student.CourseID == "" || student.ClassroomID == "" {
		return Grade{}, ErrNotEnrolled
	}

	feedback := ng.Feedback
	if feedback == "" {
		feedback = DefaultFeedback(ng.Score)
	}
	now := time.Now().UTC()
	g := Grade{
		StudentID:   ng.StudentID,
		LessonID:    ng.LessonID,
		ClassroomID: ng.ClassroomID,
		Score:       ng.Score,
		Passed:      ng.Score >= PassMark,
		Feedback:    feedback,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.UpsertGrade(ctx, g)
}

func (svc *service) BulkRecordGrades(ctx context.Context, classroomID, lessonID string, rows []BulkRow) BulkResult {
	res := BulkResult{Rows: make([]BulkRowResult, 0, len(rows))}
	for _, row := range rows {
		_, err := svc.RecordGrade(ctx, NewGrade{
			StudentID:   row.StudentID,
			LessonID:    lessonID,
			ClassroomID: classroomID,
			Score:       row.Score,
			Feedback:    row.Feedback,
		})
		if err != nil {
			res.Failed++
			res.Rows = append(res.Rows, BulkRowResult{StudentID: row.StudentID, Error: err.Error()})
			continue
		}
		res.Succeeded++
		res.Rows = append(res.Rows, BulkRowResult{StudentID: row.StudentID, OK: true})
	}
	return res
}

func (svc *service) ClassroomGrades(ctx context.Context, classroomID string) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, &QueryFilter{ClassroomID: classroomID})
}

// Progress builds the per-lesson report over every lesson of the student's
// course, with grades scoped to the student's current classroom: the same
// course may run in several classrooms and a grade is only meaningful in the
// classroom it was given in.
func (svc *service) Progress(ctx context.Context, studentID string) (ProgressReport, error) {
	student, err := svc.usrRepo.GetUserByID(ctx, studentID)
	if err != nil {
		return ProgressReport{}, err
	}

	report := ProgressReport{StudentID: studentID, PerLesson: []LessonProgress{}}
	if student.CourseID == "" {
		report.Message = msgNoCourse
		return report, nil
	}
	report.CourseID = student.CourseID

	lessons, err := svc.lsnRepo.QueryLessons(ctx, &lesson.QueryFilter{CourseID: student.CourseID}, nil)
	if err != nil {
		return ProgressReport{}, errors.Wrap(err, "querying course lessons")
	}
	report.TotalLessonCount = len(lessons)
	if len(lessons) == 0 {
		return report, nil
	}

	// no current classroom means no grades in scope: grades recorded in a
	// classroom the student has since left do not count
	var grades []Grade
	if student.ClassroomID != "" {
		lessonIDs := make([]string, 0, len(lessons))
		for _, lsn := range lessons {
			lessonIDs = append(lessonIDs, lsn.ID)
		}
		grades, err = svc.repo.QueryGrades(ctx, &QueryFilter{
			StudentID:   studentID,
			ClassroomID: student.ClassroomID,
			LessonIDs:   lessonIDs,
		})
		if err != nil {
			return ProgressReport{}, errors.Wrap(err, "querying grades")
		}
	}
	byLesson := make(map[string]Grade, len(grades))
	for _, g := range grades {
		byLesson[g.LessonID] = g
	}

	for _, lsn := range lessons {
		row := LessonProgress{
			LessonID:    lsn.ID,
			LessonTitle: lsn.Title,
			Feedback:    feedbackUngraded,
			Status:      StatusUngraded,
		}
		if g, ok := byLesson[lsn.ID]; ok {
			score := g.Score
			row.Score = &score
			row.Passed = g.Passed
			row.Feedback = g.Feedback
			row.Status = StatusGraded
			if g.Passed {
				report.PassedCount++
			}
		}
		report.PerLesson = append(report.PerLesson, row)
	}

	report.ProgressPercent = 100 * float64(report.PassedCount) / float64(report.TotalLessonCount)
	return report, nil
}
