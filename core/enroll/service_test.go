package enroll_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/classroom"
	"github.com/mwalimu/academia/core/course"
	"github.com/mwalimu/academia/core/enroll"
	"github.com/mwalimu/academia/core/lesson"
	"github.com/mwalimu/academia/core/user"
	dummydb "github.com/mwalimu/academia/storage/database/dummy"
)

type fixture struct {
	svc     enroll.Service
	usrRepo user.Repository
	crsRepo course.Repository
	clsRepo classroom.Repository
	lsnRepo lesson.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	crsRepo := dummydb.NewCourseRepository(db)
	clsRepo := dummydb.NewClassroomRepository(db)
	lsnRepo := dummydb.NewLessonRepository(db)
	grdRepo := dummydb.NewGradeRepository(db)
	return &fixture{
		svc:     enroll.NewService(dummydb.NewTransactor(), usrRepo, crsRepo, clsRepo, lsnRepo, grdRepo),
		usrRepo: usrRepo,
		crsRepo: crsRepo,
		clsRepo: clsRepo,
		lsnRepo: lsnRepo,
	}
}

func (f *fixture) student(t *testing.T, email string) user.User {
	t.Helper()
	usr, err := f.usrRepo.CreateUser(context.Background(), user.User{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Roles:     []string{user.RoleStudent},
	})
	if err != nil {
		t.Fatalf("creating student: %v", err)
	}
	return usr
}

func (f *fixture) course(t *testing.T, courseID string) course.Course {
	t.Helper()
	crs, err := f.crsRepo.CreateCourse(context.Background(), course.Course{
		CourseID: courseID,
		Title:    "Course " + courseID,
		Status:   core.StatusPublished,
	})
	if err != nil {
		t.Fatalf("creating course: %v", err)
	}
	return crs
}

func (f *fixture) classroom(t *testing.T, classroomID string, courseIDs ...string) classroom.Classroom {
	t.Helper()
	cls, err := f.clsRepo.CreateClassroom(context.Background(), classroom.Classroom{
		ClassroomID: classroomID,
		Title:       "Classroom " + classroomID,
		Courses:     courseIDs,
		Status:      core.StatusPublished,
	})
	if err != nil {
		t.Fatalf("creating classroom: %v", err)
	}
	return cls
}

func TestService_EnrollInCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.student(t, "jane@test.cd")
	crs := f.course(t, "go-101")

	if err := f.svc.EnrollInCourse(ctx, student.ID, crs.ID); err != nil {
		t.Fatalf("EnrollInCourse(): %v", err)
	}

	// both sides of the reference are written
	gotUsr, _ := f.usrRepo.GetUserByID(ctx, student.ID)
	if gotUsr.CourseID != crs.ID {
		t.Errorf("student.CourseID = %q, want %q", gotUsr.CourseID, crs.ID)
	}
	gotCrs, _ := f.crsRepo.GetCourseByID(ctx, crs.ID)
	if !gotCrs.HasStudent(student.ID) {
		t.Error("course roster is missing the student")
	}

	// double enrollment is rejected loudly, even into another course
	other := f.course(t, "go-102")
	if err := f.svc.EnrollInCourse(ctx, student.ID, other.ID); errors.Cause(err) != enroll.ErrAlreadyEnrolled {
		t.Errorf("error = %v, want ErrAlreadyEnrolled", err)
	}
	if err := f.svc.EnrollInCourse(ctx, student.ID, crs.ID); errors.Cause(err) != enroll.ErrAlreadyEnrolled {
		t.Errorf("error = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestService_EnrollInCourse_notStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instructor, err := f.usrRepo.CreateUser(ctx, user.User{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@test.cd",
		Roles:     []string{user.RoleInstructor},
	})
	if err != nil {
		t.Fatalf("creating instructor: %v", err)
	}
	crs := f.course(t, "go-101")

	if err := f.svc.EnrollInCourse(ctx, instructor.ID, crs.ID); errors.Cause(err) != enroll.ErrNotStudent {
		t.Errorf("error = %v, want ErrNotStudent", err)
	}
}

func TestService_EnrollInClassroom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.student(t, "jane@test.cd")
	crs := f.course(t, "go-101")
	cls := f.classroom(t, "go-101-spring", crs.ID)

	if err := f.svc.EnrollInClassroom(ctx, student.ID, cls.ID); err != nil {
		t.Fatalf("EnrollInClassroom(): %v", err)
	}

	gotCls, _ := f.clsRepo.GetClassroomByID(ctx, cls.ID)
	if !gotCls.HasStudent(student.ID) {
		t.Error("classroom roster is missing the student")
	}
	if gotCls.NumStudents != len(gotCls.Students) {
		t.Errorf("num_students = %d, roster size = %d", gotCls.NumStudents, len(gotCls.Students))
	}

	// same classroom again
	if err := f.svc.EnrollInClassroom(ctx, student.ID, cls.ID); errors.Cause(err) != enroll.ErrAlreadyEnrolled {
		t.Errorf("error = %v, want ErrAlreadyEnrolled", err)
	}

	// different classroom names the conflicting one
	other := f.classroom(t, "go-101-fall", crs.ID)
	err := f.svc.EnrollInClassroom(ctx, student.ID, other.ID)
	var conflict *enroll.ClassroomConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want *ClassroomConflictError", err)
	}
	if conflict.ClassroomID != cls.ID || conflict.Title != cls.Title {
		t.Errorf("conflict names %q (%q), want %q (%q)", conflict.Title, conflict.ClassroomID, cls.Title, cls.ID)
	}
}

func TestService_UnenrollFromClassroom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.student(t, "jane@test.cd")
	crs := f.course(t, "go-101")
	cls := f.classroom(t, "go-101-spring", crs.ID)

	if err := f.svc.EnrollInClassroom(ctx, student.ID, cls.ID); err != nil {
		t.Fatalf("EnrollInClassroom(): %v", err)
	}
	if err := f.svc.UnenrollFromClassroom(ctx, student.ID, cls.ID); err != nil {
		t.Fatalf("UnenrollFromClassroom(): %v", err)
	}

	gotCls, _ := f.clsRepo.GetClassroomByID(ctx, cls.ID)
	if gotCls.HasStudent(student.ID) || gotCls.NumStudents != 0 {
		t.Errorf("roster = %v, num_students = %d after unenroll", gotCls.Students, gotCls.NumStudents)
	}

	// a second unenroll never silently succeeds
	if err := f.svc.UnenrollFromClassroom(ctx, student.ID, cls.ID); errors.Cause(err) != enroll.ErrNotEnrolled {
		t.Errorf("error = %v, want ErrNotEnrolled", err)
	}
}

// Unenrolling from a course drops the student from every classroom teaching
// that course and clears their classroom reference.
func TestService_UnenrollFromCourse_cascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.student(t, "jane@test.cd")
	crs := f.course(t, "go-101")
	cls := f.classroom(t, "go-101-spring", crs.ID)

	if err := f.svc.EnrollInCourse(ctx, student.ID, crs.ID); err != nil {
		t.Fatalf("EnrollInCourse(): %v", err)
	}
	if err := f.svc.EnrollInClassroom(ctx, student.ID, cls.ID); err != nil {
		t.Fatalf("EnrollInClassroom(): %v", err)
	}

	if err := f.svc.UnenrollFromCourse(ctx, student.ID, crs.ID); err != nil {
		t.Fatalf("UnenrollFromCourse(): %v", err)
	}

	gotUsr, _ := f.usrRepo.GetUserByID(ctx, student.ID)
	if gotUsr.CourseID != "" || gotUsr.ClassroomID != "" {
		t.Errorf("student refs not cleared: course=%q classroom=%q", gotUsr.CourseID, gotUsr.ClassroomID)
	}
	gotCrs, _ := f.crsRepo.GetCourseByID(ctx, crs.ID)
	if gotCrs.HasStudent(student.ID) {
		t.Error("course roster still holds the student")
	}
	gotCls, _ := f.clsRepo.GetClassroomByID(ctx, cls.ID)
	if gotCls.HasStudent(student.ID) || gotCls.NumStudents != 0 {
		t.Errorf("classroom roster still holds the student: %v (%d)", gotCls.Students, gotCls.NumStudents)
	}

	if err := f.svc.UnenrollFromCourse(ctx, student.ID, crs.ID); errors.Cause(err) != enroll.ErrNotEnrolled {
		t.Errorf("error = %v, want ErrNotEnrolled", err)
	}
}

// Two concurrent classroom enrollments for the same student: the conditional
// claim lets exactly one win.
func TestService_EnrollInClassroom_concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.student(t, "jane@test.cd")
	crs := f.course(t, "go-101")
	cls1 := f.classroom(t, "go-101-spring", crs.ID)
	cls2 := f.classroom(t, "go-101-fall", crs.ID)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{cls1.ID, cls2.ID} {
		wg.Add(1)
		go func(i int, classroomID string) {
			defer wg.Done()
			errs[i] = f.svc.EnrollInClassroom(ctx, student.ID, classroomID)
		}(i, id)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("%d enrollments won, want exactly 1 (errs: %v)", won, errs)
	}

	gotUsr, _ := f.usrRepo.GetUserByID(ctx, student.ID)
	var inRosters int
	for _, id := range []string{cls1.ID, cls2.ID} {
		cls, _ := f.clsRepo.GetClassroomByID(ctx, id)
		if cls.HasStudent(student.ID) {
			inRosters++
			if gotUsr.ClassroomID != cls.ID {
				t.Errorf("student.ClassroomID = %q but roster winner is %q", gotUsr.ClassroomID, cls.ID)
			}
		}
	}
	if inRosters != 1 {
		t.Errorf("student appears in %d rosters, want 1", inRosters)
	}
}

func TestService_SaveCourseLessons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	crs := f.course(t, "go-101")
	l1, _ := f.lsnRepo.CreateLesson(ctx, lesson.Lesson{LessonID: "intro", Title: "Intro", CreditPoints: 3})
	l2, _ := f.lsnRepo.CreateLesson(ctx, lesson.Lesson{LessonID: "types", Title: "Types", CreditPoints: 5})

	got, err := f.svc.SaveCourseLessons(ctx, crs.ID, []string{l1.ID, l2.ID})
	if err != nil {
		t.Fatalf("SaveCourseLessons(): %v", err)
	}
	if got.TotalCredit != 8 {
		t.Errorf("total credit = %d, want 8", got.TotalCredit)
	}
	if len(got.Lessons) != 2 {
		t.Errorf("lessons = %v, want 2 entries", got.Lessons)
	}
	gotL1, _ := f.lsnRepo.GetLessonByID(ctx, l1.ID)
	if gotL1.CourseID != crs.ID {
		t.Errorf("lesson back-reference = %q, want %q", gotL1.CourseID, crs.ID)
	}

	// replacing the list clears the old back-references
	got, err = f.svc.SaveCourseLessons(ctx, crs.ID, []string{l2.ID})
	if err != nil {
		t.Fatalf("SaveCourseLessons(): %v", err)
	}
	if got.TotalCredit != 5 {
		t.Errorf("total credit = %d, want 5", got.TotalCredit)
	}
	gotL1, _ = f.lsnRepo.GetLessonByID(ctx, l1.ID)
	if gotL1.CourseID != "" {
		t.Errorf("stale back-reference %q on removed lesson", gotL1.CourseID)
	}

	// unknown ids are rejected
	if _, err = f.svc.SaveCourseLessons(ctx, crs.ID, []string{"no-such-lesson"}); err == nil {
		t.Error("expected a validation error for an unknown lesson id")
	}
}

func TestService_DeleteCourse_cascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.student(t, "jane@test.cd")
	crs := f.course(t, "go-101")
	cls := f.classroom(t, "go-101-spring", crs.ID)
	lsn, _ := f.lsnRepo.CreateLesson(ctx, lesson.Lesson{LessonID: "intro", Title: "Intro", CreditPoints: 3})

	if _, err := f.svc.SaveCourseLessons(ctx, crs.ID, []string{lsn.ID}); err != nil {
		t.Fatalf("SaveCourseLessons(): %v", err)
	}
	if err := f.svc.EnrollInCourse(ctx, student.ID, crs.ID); err != nil {
		t.Fatalf("EnrollInCourse(): %v", err)
	}
	if err := f.svc.EnrollInClassroom(ctx, student.ID, cls.ID); err != nil {
		t.Fatalf("EnrollInClassroom(): %v", err)
	}

	if err := f.svc.DeleteCourse(ctx, crs.ID); err != nil {
		t.Fatalf("DeleteCourse(): %v", err)
	}

	if _, err := f.crsRepo.GetCourseByID(ctx, crs.ID); errors.Cause(err) != course.ErrNotFound {
		t.Errorf("course still exists: %v", err)
	}
	gotUsr, _ := f.usrRepo.GetUserByID(ctx, student.ID)
	if gotUsr.CourseID != "" || gotUsr.ClassroomID != "" {
		t.Errorf("student refs not cleared: course=%q classroom=%q", gotUsr.CourseID, gotUsr.ClassroomID)
	}
	gotLsn, _ := f.lsnRepo.GetLessonByID(ctx, lsn.ID)
	if gotLsn.CourseID != "" {
		t.Errorf("lesson back-reference %q survived course deletion", gotLsn.CourseID)
	}
}

func TestService_DeleteUser_instructorArchivesLessons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	instructor, err := f.usrRepo.CreateUser(ctx, user.User{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "john@test.cd",
		Roles:     []string{user.RoleInstructor},
	})
	if err != nil {
		t.Fatalf("creating instructor: %v", err)
	}
	lsn, _ := f.lsnRepo.CreateLesson(ctx, lesson.Lesson{
		LessonID:  "intro",
		Title:     "Intro",
		CreatedBy: instructor.ID,
		Status:    core.StatusPublished,
	})

	if err := f.svc.DeleteUser(ctx, instructor); err != nil {
		t.Fatalf("DeleteUser(): %v", err)
	}

	if _, err := f.usrRepo.GetUserByID(ctx, instructor.ID); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("instructor still exists: %v", err)
	}
	gotLsn, err := f.lsnRepo.GetLessonByID(ctx, lsn.ID)
	if err != nil {
		t.Fatalf("lesson should survive instructor deletion: %v", err)
	}
	if gotLsn.Status != core.StatusArchived {
		t.Errorf("lesson status = %v, want Archived", gotLsn.Status)
	}
}
