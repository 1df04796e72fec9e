// Package enroll coordinates the bidirectional references between students,
// courses, classrooms and lessons: User.CourseID/ClassroomID on one side,
// Course.Students / Classroom.Students / Lesson.CourseID on the other.
// Every operation runs in a single transaction so the two sides can never be
// observed half-written, and the student-side reference is written with a
// conditional claim so concurrent enrollments cannot both win.
package enroll

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/classroom"
	"github.com/mwalimu/academia/core/course"
	"github.com/mwalimu/academia/core/lesson"
	"github.com/mwalimu/academia/core/user"
)

var (
	// errors
	ErrAlreadyEnrolled = errors.New("student is already enrolled")
	ErrNotEnrolled     = errors.New("student is not enrolled")
	ErrNotStudent      = errors.New("user is not a student")
)

// ClassroomConflictError reports an enrollment attempt while the student is
// already enrolled in a different classroom, naming the conflicting one.
type ClassroomConflictError struct {
	ClassroomID string
	Title       string
}

func (e *ClassroomConflictError) Error() string {
	return fmt.Sprintf("already enrolled in classroom %q", e.Title)
}

type (
	Service interface {
		EnrollInCourse(ctx context.Context, studentID, courseID string) error
		UnenrollFromCourse(ctx context.Context, studentID, courseID string) error
		EnrollInClassroom(ctx context.Context, studentID, classroomID string) error
		UnenrollFromClassroom(ctx context.Context, studentID, classroomID string) error
		// RemoveStudentFromClassroom is the staff-initiated removal: same
		// cleanup as UnenrollFromClassroom without the self-service
		// precondition check on who is asking.
		RemoveStudentFromClassroom(ctx context.Context, classroomID, studentID string) error

		// SaveCourseLessons rewrites the course's lesson list and the
		// lessons' course back-references (two-phase clear-then-set), and
		// recomputes the course's total credit.
		SaveCourseLessons(ctx context.Context, courseID string, lessonIDs []string) (course.Course, error)

		// delete cascades
		DeleteCourse(ctx context.Context, courseID string) error
		DeleteClassroom(ctx context.Context, classroomID string) error
		DeleteLesson(ctx context.Context, lessonID string) error
		// DeleteUser removes the user after unwinding what they leave
		// behind: a student is unenrolled everywhere; an instructor's
		// lessons are archived, never deleted.
		DeleteUser(ctx context.Context, usr user.User) error
	}

	service struct {
		tx        core.Transactor
		usrRepo   user.Repository
		crsRepo   course.Repository
		clsRepo   classroom.Repository
		lsnRepo   lesson.Repository
		gradeRepo GradeCleaner
	}

	// GradeCleaner is the slice of the grade repository the coordinator
	// needs for classroom-deletion cleanup.
	GradeCleaner interface {
		DeleteGradesByClassroom(ctx context.Context, classroomID string, exec ...core.DBExecutor) error
	}
)

var _ Service = (*service)(nil)

func NewService(
	tx core.Transactor,
	usrRepo user.Repository,
	crsRepo course.Repository,
	clsRepo classroom.Repository,
	lsnRepo lesson.Repository,
	gradeRepo GradeCleaner,
) Service {
	return &service{
		tx:        tx,
		usrRepo:   usrRepo,
		crsRepo:   crsRepo,
		clsRepo:   clsRepo,
		lsnRepo:   lsnRepo,
		gradeRepo: gradeRepo,
	}
}

func (svc *service) EnrollInCourse(ctx context.Context, studentID, courseID string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		student, err := svc.usrRepo.GetUserByID(ctx, studentID, exec)
		if err != nil {
			return err
		}
		if !student.IsStudent() {
			return ErrNotStudent
		}
		if _, err = svc.crsRepo.GetCourseByID(ctx, courseID, exec); err != nil {
			return err
		}

		claimed, err := svc.usrRepo.ClaimUserCourse(ctx, studentID, courseID, exec)
		if err != nil {
			return errors.Wrap(err, "claiming student course")
		}
		if !claimed {
			return ErrAlreadyEnrolled
		}
		return svc.crsRepo.AddCourseStudent(ctx, courseID, studentID, exec)
	})
}

func (svc *service) UnenrollFromCourse(ctx context.Context, studentID, courseID string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		cleared, err := svc.usrRepo.ClearUserCourse(ctx, studentID, courseID, exec)
		if err != nil {
			return errors.Wrap(err, "clearing student course")
		}
		if !cleared {
			return ErrNotEnrolled
		}
		if err = svc.crsRepo.RemoveCourseStudent(ctx, courseID, studentID, exec); err != nil {
			return errors.Wrap(err, "removing student from course roster")
		}
		return svc.dropFromCourseClassrooms(ctx, studentID, courseID, exec)
	})
}

// dropFromCourseClassrooms removes the student from every classroom teaching
// the course and clears their classroom reference if it pointed at one of
// them (invariant: leaving a course also leaves its classrooms).
func (svc *service) dropFromCourseClassrooms(ctx context.Context, studentID, courseID string, exec core.DBExecutor) error {
	classrooms, err := svc.clsRepo.QueryClassrooms(ctx, &classroom.QueryFilter{CourseID: courseID}, nil, exec)
	if err != nil {
		return errors.Wrap(err, "querying course classrooms")
	}
	for _, cls := range classrooms {
		if !cls.HasStudent(studentID) {
			continue
		}
		if err = svc.clsRepo.RemoveClassroomStudent(ctx, cls.ID, studentID, exec); err != nil {
			return errors.Wrapf(err, "removing student from classroom %s", cls.ClassroomID)
		}
		if _, err = svc.usrRepo.ClearUserClassroom(ctx, studentID, cls.ID, exec); err != nil {
			return errors.Wrap(err, "clearing student classroom")
		}
	}
	return nil
}

func (svc *service) EnrollInClassroom(ctx context.Context, studentID, classroomID string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		student, err := svc.usrRepo.GetUserByID(ctx, studentID, exec)
		if err != nil {
			return err
		}
		if !student.IsStudent() {
			return ErrNotStudent
		}
		if _, err = svc.clsRepo.GetClassroomByID(ctx, classroomID, exec); err != nil {
			return err
		}

		if student.ClassroomID == classroomID {
			return ErrAlreadyEnrolled
		}
		if student.ClassroomID != "" {
			other, err := svc.clsRepo.GetClassroomByID(ctx, student.ClassroomID, exec)
			if err != nil {
				return errors.Wrap(err, "resolving conflicting classroom")
			}
			return &ClassroomConflictError{ClassroomID: other.ID, Title: other.Title}
		}

		// re-check at write time: under concurrency the read above may be
		// stale and only one of two racing claims may win
		claimed, err := svc.usrRepo.ClaimUserClassroom(ctx, studentID, classroomID, exec)
		if err != nil {
			return errors.Wrap(err, "claiming student classroom")
		}
		if !claimed {
			return ErrAlreadyEnrolled
		}
		return svc.clsRepo.AddClassroomStudent(ctx, classroomID, studentID, exec)
	})
}

func (svc *service) UnenrollFromClassroom(ctx context.Context, studentID, classroomID string) error {
	return svc.removeFromClassroom(ctx, classroomID, studentID, true)
}

func (svc *service) RemoveStudentFromClassroom(ctx context.Context, classroomID, studentID string) error {
	return svc.removeFromClassroom(ctx, classroomID, studentID, false)
}

func (svc *service) removeFromClassroom(ctx context.Context, classroomID, studentID string, mustBeEnrolled bool) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		cls, err := svc.clsRepo.GetClassroomByID(ctx, classroomID, exec)
		if err != nil {
			return err
		}

		cleared, err := svc.usrRepo.ClearUserClassroom(ctx, studentID, classroomID, exec)
		if err != nil {
			return errors.Wrap(err, "clearing student classroom")
		}
		if mustBeEnrolled && !cleared {
			return ErrNotEnrolled
		}
		if !cleared && !cls.HasStudent(studentID) {
			return ErrNotEnrolled
		}
		return svc.clsRepo.RemoveClassroomStudent(ctx, classroomID, studentID, exec)
	})
}

func (svc *service) SaveCourseLessons(ctx context.Context, courseID string, lessonIDs []string) (course.Course, error) {
	var crs course.Course
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if crs, err = svc.crsRepo.GetCourseByID(ctx, courseID, exec); err != nil {
			return err
		}

		lessons, err := svc.lsnRepo.GetLessonsByID(ctx, lessonIDs, exec)
		if err != nil {
			return errors.Wrap(err, "resolving course lessons")
		}
		if len(lessons) != len(lessonIDs) {
			return core.NewValidationError(nil, core.FieldError{Field: "lessons", Error: "unknown lesson in list"})
		}
		var totalCredit int
		for _, lsn := range lessons {
			totalCredit += lsn.CreditPoints
		}

		// two-phase clear-then-set so a lesson moved between courses in the
		// same request cannot keep a stale back-reference
		if err = svc.lsnRepo.ClearCourseLessons(ctx, courseID, exec); err != nil {
			return errors.Wrap(err, "unlinking previous lessons")
		}
		if len(lessonIDs) > 0 {
			if err = svc.lsnRepo.SetLessonsCourse(ctx, lessonIDs, courseID, exec); err != nil {
				return errors.Wrap(err, "linking new lessons")
			}
		}
		if err = svc.crsRepo.SetCourseLessons(ctx, courseID, lessonIDs, totalCredit, exec); err != nil {
			return errors.Wrap(err, "saving course lesson list")
		}

		crs.Lessons = lessonIDs
		crs.TotalCredit = totalCredit
		return nil
	})
	return crs, err
}

func (svc *service) DeleteCourse(ctx context.Context, courseID string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.crsRepo.GetCourseByID(ctx, courseID, exec); err != nil {
			return err
		}

		// unwind rosters: classrooms teaching this course first, then the
		// course itself
		classrooms, err := svc.clsRepo.QueryClassrooms(ctx, &classroom.QueryFilter{CourseID: courseID}, nil, exec)
		if err != nil {
			return errors.Wrap(err, "querying course classrooms")
		}
		for _, cls := range classrooms {
			if err = svc.usrRepo.ClearClassroomRefs(ctx, cls.ID, exec); err != nil {
				return errors.Wrapf(err, "clearing refs to classroom %s", cls.ClassroomID)
			}
			for _, studentID := range cls.Students {
				if err = svc.clsRepo.RemoveClassroomStudent(ctx, cls.ID, studentID, exec); err != nil {
					return errors.Wrapf(err, "emptying classroom %s", cls.ClassroomID)
				}
			}
		}
		if err = svc.usrRepo.ClearCourseRefs(ctx, courseID, exec); err != nil {
			return errors.Wrap(err, "clearing student course refs")
		}
		if err = svc.lsnRepo.ClearCourseLessons(ctx, courseID, exec); err != nil {
			return errors.Wrap(err, "unlinking course lessons")
		}
		return svc.crsRepo.DeleteCoursesByID(ctx, []string{courseID}, exec)
	})
}

func (svc *service) DeleteClassroom(ctx context.Context, classroomID string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.clsRepo.GetClassroomByID(ctx, classroomID, exec); err != nil {
			return err
		}
		if err := svc.usrRepo.ClearClassroomRefs(ctx, classroomID, exec); err != nil {
			return errors.Wrap(err, "clearing student classroom refs")
		}
		if err := svc.gradeRepo.DeleteGradesByClassroom(ctx, classroomID, exec); err != nil {
			return errors.Wrap(err, "deleting classroom grades")
		}
		return svc.clsRepo.DeleteClassroomsByID(ctx, []string{classroomID}, exec)
	})
}

func (svc *service) DeleteLesson(ctx context.Context, lessonID string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		lsn, err := svc.lsnRepo.GetLessonByID(ctx, lessonID, exec)
		if err != nil {
			return err
		}
		// drop the lesson from its course's list before deleting the row
		if lsn.CourseID != "" {
			crs, err := svc.crsRepo.GetCourseByID(ctx, lsn.CourseID, exec)
			if err != nil && errors.Cause(err) != course.ErrNotFound {
				return err
			}
			if err == nil {
				remaining := make([]string, 0, len(crs.Lessons))
				totalCredit := crs.TotalCredit
				for _, id := range crs.Lessons {
					if id == lessonID {
						totalCredit -= lsn.CreditPoints
						continue
					}
					remaining = append(remaining, id)
				}
				if err = svc.crsRepo.SetCourseLessons(ctx, crs.ID, remaining, totalCredit, exec); err != nil {
					return errors.Wrap(err, "updating course lesson list")
				}
			}
		}
		return svc.lsnRepo.DeleteLessonsByID(ctx, []string{lessonID}, exec)
	})
}

func (svc *service) DeleteUser(ctx context.Context, usr user.User) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if usr.IsStudent() {
			if usr.ClassroomID != "" {
				if _, err := svc.usrRepo.ClearUserClassroom(ctx, usr.ID, usr.ClassroomID, exec); err != nil {
					return errors.Wrap(err, "clearing student classroom")
				}
				if err := svc.clsRepo.RemoveClassroomStudent(ctx, usr.ClassroomID, usr.ID, exec); err != nil {
					return errors.Wrap(err, "removing student from classroom roster")
				}
			}
			if usr.CourseID != "" {
				if _, err := svc.usrRepo.ClearUserCourse(ctx, usr.ID, usr.CourseID, exec); err != nil {
					return errors.Wrap(err, "clearing student course")
				}
				if err := svc.crsRepo.RemoveCourseStudent(ctx, usr.CourseID, usr.ID, exec); err != nil {
					return errors.Wrap(err, "removing student from course roster")
				}
			}
		}
		if usr.IsInstructor() {
			if err := svc.lsnRepo.ArchiveLessonsByCreator(ctx, usr.ID, exec); err != nil {
				return errors.Wrap(err, "archiving instructor lessons")
			}
		}
		return svc.usrRepo.DeleteUsersByID(ctx, []string{usr.ID}, exec)
	})
}
