package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/classroom"
	"github.com/mwalimu/academia/core/grade"
	"github.com/mwalimu/academia/core/user"
)

type gradeApi struct {
	svc      grade.Service
	clsSvc   classroom.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerGradeAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc grade.Service,
	clsSvc classroom.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := gradeApi{svc: svc, clsSvc: clsSvc, usrSvc: usrSvc, validate: validate}

	gg := g.Group("/grades", jwt)
	gg.POST("", api.record, staffMiddleware())
	gg.POST("/bulk", api.recordBulk, staffMiddleware())
	gg.GET("/progress/:studentId", api.progress)
	gg.GET("/classroom/:classroomId", api.classroomGrades, staffMiddleware())
}

func (api *gradeApi) record(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkClassroomOwnership(ctx, data.ClassroomID); err != nil {
		return err
	}

	g, err := api.svc.RecordGrade(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *gradeApi) recordBulk(ctx echo.Context) error {
	var data BulkGradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkGradeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := api.checkClassroomOwnership(ctx, data.ClassroomID); err != nil {
		return err
	}

	res := api.svc.BulkRecordGrades(ctx.Request().Context(), data.ClassroomID, data.LessonID, data.Rows)
	return ctx.JSON(http.StatusOK, res)
}

// progress is readable by the student themself, the owner of their current
// classroom, or an admin.
func (api *gradeApi) progress(ctx echo.Context) error {
	studentID := ctx.Param("studentId")

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && claims.Subject != studentID {
		if !claims.IsInstructor {
			return errHttpForbidden
		}
		student, err := api.usrSvc.GetByID(ctx.Request().Context(), studentID)
		if err != nil {
			return err
		}
		if student.ClassroomID == "" {
			return errHttpForbidden
		}
		cls, err := api.clsSvc.GetByID(ctx.Request().Context(), student.ClassroomID)
		if err != nil {
			return err
		}
		if cls.Owner != claims.Subject {
			return errHttpForbidden
		}
	}

	report, err := api.svc.Progress(ctx.Request().Context(), studentID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, report)
}

func (api *gradeApi) classroomGrades(ctx echo.Context) error {
	classroomID := ctx.Param("classroomId")
	if err := api.checkClassroomOwnership(ctx, classroomID); err != nil {
		return err
	}

	grades, err := api.svc.ClassroomGrades(ctx.Request().Context(), classroomID)
	if err != nil {
		return err
	}
	if grades == nil {
		grades = []grade.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

// checkClassroomOwnership resolves the classroom and only lets its owner or
// an admin through. Grading rights follow classroom ownership.
func (api *gradeApi) checkClassroomOwnership(ctx echo.Context, classroomID string) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	cls, err := api.clsSvc.GetByID(ctx.Request().Context(), classroomID)
	if err != nil {
		return err
	}
	if !claims.IsAdmin && cls.Owner != claims.Subject {
		return errHttpForbidden
	}
	return nil
}

type BulkGradeRequest struct {
	ClassroomID string          `json:"classroom" validate:"required"`
	LessonID    string          `json:"lesson" validate:"required"`
	Rows        []grade.BulkRow `json:"rows" validate:"required,min=1,dive"`
}

func (br *BulkGradeRequest) Validate(validate *validator.Validate) error {
	br.ClassroomID = core.CleanString(br.ClassroomID)
	br.LessonID = core.CleanString(br.LessonID)
	return validate.Struct(br)
}
