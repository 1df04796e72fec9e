package grade_test

import (
	"context"
	"math"
	"testing"

	"github.com/mwalimu/academia/core/grade"
	"github.com/mwalimu/academia/core/lesson"
	"github.com/mwalimu/academia/core/user"
	dummydb "github.com/mwalimu/academia/storage/database/dummy"
)

type fixture struct {
	svc     grade.Service
	usrRepo user.Repository
	lsnRepo lesson.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	lsnRepo := dummydb.NewLessonRepository(db)
	return &fixture{
		svc:     grade.NewService(dummydb.NewGradeRepository(db), usrRepo, lsnRepo),
		usrRepo: usrRepo,
		lsnRepo: lsnRepo,
	}
}

// enrolledStudent creates a student claimed into the given course and classroom.
func (f *fixture) enrolledStudent(t *testing.T, courseID, classroomID string) user.User {
	t.Helper()
	ctx := context.Background()
	usr, err := f.usrRepo.CreateUser(ctx, user.User{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@test.cd",
		Roles:     []string{user.RoleStudent},
	})
	if err != nil {
		t.Fatalf("creating student: %v", err)
	}
	if courseID != "" {
		if _, err = f.usrRepo.ClaimUserCourse(ctx, usr.ID, courseID); err != nil {
			t.Fatalf("claiming course: %v", err)
		}
	}
	if classroomID != "" {
		if _, err = f.usrRepo.ClaimUserClassroom(ctx, usr.ID, classroomID); err != nil {
			t.Fatalf("claiming classroom: %v", err)
		}
	}
	return usr
}

func (f *fixture) courseLesson(t *testing.T, lessonID, title, courseID string) lesson.Lesson {
	t.Helper()
	lsn, err := f.lsnRepo.CreateLesson(context.Background(), lesson.Lesson{
		LessonID: lessonID,
		Title:    title,
		CourseID: courseID,
	})
	if err != nil {
		t.Fatalf("creating lesson: %v", err)
	}
	return lsn
}

func TestService_RecordGrade_upsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.enrolledStudent(t, "course-1", "class-1")
	lsn := f.courseLesson(t, "algebra-101", "Algebra", "course-1")

	first, err := f.svc.RecordGrade(ctx, grade.NewGrade{
		StudentID:   student.ID,
		LessonID:    lsn.ID,
		ClassroomID: "class-1",
		Score:       40,
	})
	if err != nil {
		t.Fatalf("RecordGrade(): %v", err)
	}
	if first.Passed {
		t.Error("score 40 should not pass")
	}
	if first.Feedback != grade.DefaultFeedback(40) {
		t.Errorf("feedback = %q, want default %q", first.Feedback, grade.DefaultFeedback(40))
	}

	// regrading the same triple overwrites, it never duplicates
	second, err := f.svc.RecordGrade(ctx, grade.NewGrade{
		StudentID:   student.ID,
		LessonID:    lsn.ID,
		ClassroomID: "class-1",
		Score:       75,
		Feedback:    "Much better",
	})
	if err != nil {
		t.Fatalf("RecordGrade(): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a new grade: %q != %q", second.ID, first.ID)
	}
	if !second.Passed {
		t.Error("score 75 should pass")
	}

	grades, err := f.svc.ClassroomGrades(ctx, "class-1")
	if err != nil {
		t.Fatalf("ClassroomGrades(): %v", err)
	}
	if len(grades) != 1 {
		t.Fatalf("got %d grades, want 1", len(grades))
	}
	if grades[0].Score != 75 || grades[0].Feedback != "Much better" {
		t.Errorf("stored grade = %+v", grades[0])
	}
}

func TestService_RecordGrade_notEnrolled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.enrolledStudent(t, "", "") // no course, no classroom
	lsn := f.courseLesson(t, "algebra-101", "Algebra", "course-1")

	_, err := f.svc.RecordGrade(ctx, grade.NewGrade{
		StudentID:   student.ID,
		LessonID:    lsn.ID,
		ClassroomID: "class-1",
		Score:       90,
	})
	if err != grade.ErrNotEnrolled {
		t.Errorf("error = %v, want ErrNotEnrolled", err)
	}
}

func TestService_BulkRecordGrades_partialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	enrolled := f.enrolledStudent(t, "course-1", "class-1")
	lsn := f.courseLesson(t, "algebra-101", "Algebra", "course-1")

	rows := []grade.BulkRow{
		{StudentID: enrolled.ID, Score: 80},
		{StudentID: "missing-student", Score: 60},
	}
	res := f.svc.BulkRecordGrades(ctx, "class-1", lsn.ID, rows)

	if res.Succeeded != 1 || res.Failed != 1 {
		t.Errorf("succeeded/failed = %d/%d, want 1/1", res.Succeeded, res.Failed)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d row results, want 2", len(res.Rows))
	}
	if !res.Rows[0].OK || res.Rows[0].Error != "" {
		t.Errorf("row 0 = %+v, want ok", res.Rows[0])
	}
	if res.Rows[1].OK || res.Rows[1].Error == "" {
		t.Errorf("row 1 = %+v, want failure with message", res.Rows[1])
	}
}

func TestService_Progress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.enrolledStudent(t, "course-1", "class-1")
	l1 := f.courseLesson(t, "algebra-101", "Algebra", "course-1")
	f.courseLesson(t, "algebra-102", "Algebra II", "course-1")
	f.courseLesson(t, "algebra-103", "Algebra III", "course-1")

	if _, err := f.svc.RecordGrade(ctx, grade.NewGrade{
		StudentID:   student.ID,
		LessonID:    l1.ID,
		ClassroomID: "class-1",
		Score:       80,
	}); err != nil {
		t.Fatalf("RecordGrade(): %v", err)
	}

	report, err := f.svc.Progress(ctx, student.ID)
	if err != nil {
		t.Fatalf("Progress(): %v", err)
	}

	if report.TotalLessonCount != 3 || report.PassedCount != 1 {
		t.Errorf("total/passed = %d/%d, want 3/1", report.TotalLessonCount, report.PassedCount)
	}
	if math.Abs(report.ProgressPercent-100.0/3) > 0.01 {
		t.Errorf("progress = %v, want ~33.33", report.ProgressPercent)
	}
	if len(report.PerLesson) != 3 {
		t.Fatalf("got %d per-lesson rows, want 3", len(report.PerLesson))
	}

	var graded, ungraded int
	for _, row := range report.PerLesson {
		switch row.Status {
		case grade.StatusGraded:
			graded++
			if row.Score == nil || *row.Score != 80 || !row.Passed {
				t.Errorf("graded row = %+v", row)
			}
		case grade.StatusUngraded:
			ungraded++
			if row.Score != nil || row.Passed || row.Feedback != "Not graded yet" {
				t.Errorf("ungraded row = %+v", row)
			}
		}
	}
	if graded != 1 || ungraded != 2 {
		t.Errorf("graded/ungraded = %d/%d, want 1/2", graded, ungraded)
	}
}

func TestService_Progress_leftClassroom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.enrolledStudent(t, "course-1", "class-1")
	l1 := f.courseLesson(t, "algebra-101", "Algebra", "course-1")
	f.courseLesson(t, "algebra-102", "Algebra II", "course-1")

	if _, err := f.svc.RecordGrade(ctx, grade.NewGrade{
		StudentID:   student.ID,
		LessonID:    l1.ID,
		ClassroomID: "class-1",
		Score:       80,
	}); err != nil {
		t.Fatalf("RecordGrade(): %v", err)
	}

	// grades from a classroom the student has since left must not count
	if _, err := f.usrRepo.ClearUserClassroom(ctx, student.ID, "class-1"); err != nil {
		t.Fatalf("clearing classroom: %v", err)
	}

	report, err := f.svc.Progress(ctx, student.ID)
	if err != nil {
		t.Fatalf("Progress(): %v", err)
	}
	if report.TotalLessonCount != 2 || report.PassedCount != 0 {
		t.Errorf("total/passed = %d/%d, want 2/0", report.TotalLessonCount, report.PassedCount)
	}
	if report.ProgressPercent != 0 {
		t.Errorf("progress = %v, want 0", report.ProgressPercent)
	}
	for _, row := range report.PerLesson {
		if row.Status != grade.StatusUngraded {
			t.Errorf("row %q status = %q, want ungraded", row.LessonID, row.Status)
		}
	}
}

func TestService_Progress_noCourse(t *testing.T) {
	f := newFixture(t)

	student := f.enrolledStudent(t, "", "")
	report, err := f.svc.Progress(context.Background(), student.ID)
	if err != nil {
		t.Fatalf("Progress(): %v", err)
	}

	if report.Message == "" {
		t.Error("expected an explanatory message for a course-less student")
	}
	if report.TotalLessonCount != 0 || report.PassedCount != 0 || report.ProgressPercent != 0 {
		t.Errorf("expected a zero-value report, got %+v", report)
	}
	if len(report.PerLesson) != 0 {
		t.Errorf("expected no per-lesson rows, got %d", len(report.PerLesson))
	}
}
