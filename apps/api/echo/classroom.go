package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core/classroom"
	"github.com/mwalimu/academia/core/enroll"
	"github.com/mwalimu/academia/core/user"
)

type classroomApi struct {
	svc       classroom.Service
	enrollSvc enroll.Service
	usrSvc    user.Service
	validate  *validator.Validate
}

func registerClassroomAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc classroom.Service,
	enrollSvc enroll.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := classroomApi{svc: svc, enrollSvc: enrollSvc, usrSvc: usrSvc, validate: validate}

	cg := g.Group("/classrooms", jwt)
	cg.POST("", api.create, staffMiddleware())
	cg.GET("", api.query)
	cg.GET("/ongoing", api.ongoing)
	cg.GET("/completed", api.completed)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update, staffMiddleware())
	cg.DELETE("/:id", api.destroy, staffMiddleware())

	// student self-service enrollment
	cg.POST("/:id/enrol", api.enrol, studentMiddleware())
	cg.POST("/:id/unenrol", api.unenrol, studentMiddleware())

	// staff-initiated roster management
	cg.POST("/:id/students/:studentId", api.addStudent, staffMiddleware())
	cg.DELETE("/:id/students/:studentId", api.removeStudent, staffMiddleware())
}

func (api *classroomApi) create(ctx echo.Context) error {
	var data classroom.NewClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	cls, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classroomApi) query(ctx echo.Context) error {
	filter := new(classroom.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []classroom.Classroom{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classrooms, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	if classrooms == nil {
		classrooms = []classroom.Classroom{}
	}
	return ctx.JSON(http.StatusOK, classrooms)
}

func (api *classroomApi) ongoing(ctx echo.Context) error {
	classrooms, err := api.svc.Ongoing(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "querying ongoing classrooms")
	}
	if classrooms == nil {
		classrooms = []classroom.Classroom{}
	}
	return ctx.JSON(http.StatusOK, classrooms)
}

func (api *classroomApi) completed(ctx echo.Context) error {
	classrooms, err := api.svc.Completed(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "querying completed classrooms")
	}
	if classrooms == nil {
		classrooms = []classroom.Classroom{}
	}
	return ctx.JSON(http.StatusOK, classrooms)
}

func (api *classroomApi) retrieve(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classroomApi) update(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := api.checkOwnership(ctx, cls); err != nil {
		return err
	}

	var data classroom.UpdateClassroom
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassroom")
	}
	if err := data.Validate(ctx.Request().Context(), cls, api.validate); err != nil {
		return err
	}

	cls, err = api.svc.Update(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating classroom")
	}
	return ctx.JSON(http.StatusOK, cls)
}

// destroy clears every enrolled student's classroom reference and drops the
// classroom's grades before the row goes away.
func (api *classroomApi) destroy(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := api.checkOwnership(ctx, cls); err != nil {
		return err
	}

	if err := api.enrollSvc.DeleteClassroom(ctx.Request().Context(), cls.ID); err != nil {
		return errors.Wrap(err, "deleting classroom")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) enrol(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.enrollSvc.EnrollInClassroom(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "enrolled"})
}

func (api *classroomApi) unenrol(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.enrollSvc.UnenrollFromClassroom(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "unenrolled"})
}

func (api *classroomApi) addStudent(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := api.checkOwnership(ctx, cls); err != nil {
		return err
	}

	if err := api.enrollSvc.EnrollInClassroom(ctx.Request().Context(), ctx.Param("studentId"), cls.ID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "enrolled"})
}

func (api *classroomApi) removeStudent(ctx echo.Context) error {
	cls, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := api.checkOwnership(ctx, cls); err != nil {
		return err
	}

	if err := api.enrollSvc.RemoveStudentFromClassroom(ctx.Request().Context(), cls.ID, ctx.Param("studentId")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) checkOwnership(ctx echo.Context, cls classroom.Classroom) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && cls.Owner != claims.Subject {
		return errHttpForbidden
	}
	return nil
}
