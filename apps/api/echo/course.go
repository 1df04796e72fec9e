package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core/course"
	"github.com/mwalimu/academia/core/enroll"
	"github.com/mwalimu/academia/core/user"
)

type courseApi struct {
	svc       course.Service
	enrollSvc enroll.Service
	usrSvc    user.Service
	validate  *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc course.Service,
	enrollSvc enroll.Service,
	usrSvc user.Service,
	validate *validator.Validate,
) {
	api := courseApi{svc: svc, enrollSvc: enrollSvc, usrSvc: usrSvc, validate: validate}

	cg := g.Group("/courses")

	// public catalog
	cg.GET("/published", api.published)

	ag := cg.Group("", jwt)
	ag.POST("", api.create, staffMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.PUT("/:id", api.update, staffMiddleware())
	ag.DELETE("/:id", api.destroy, staffMiddleware())

	// student self-service enrollment
	ag.POST("/:id/enrol", api.enrol, studentMiddleware())
	ag.POST("/:id/unenrol", api.unenrol, studentMiddleware())
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	crs, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}

	// the lesson list goes through the coordinator so lesson back-references
	// and total_credit stay consistent
	if len(data.Lessons) > 0 {
		if crs, err = api.enrollSvc.SaveCourseLessons(ctx.Request().Context(), crs.ID, data.Lessons); err != nil {
			return err
		}
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) published(ctx echo.Context) error {
	courses, err := api.svc.Published(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying published courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := api.checkOwnership(ctx, crs); err != nil {
		return err
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(ctx.Request().Context(), crs, api.validate); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}

	// nil means "leave the lesson list unchanged"
	if data.Lessons != nil {
		if crs, err = api.enrollSvc.SaveCourseLessons(ctx.Request().Context(), crs.ID, data.Lessons); err != nil {
			return err
		}
	}
	return ctx.JSON(http.StatusOK, crs)
}

// destroy cascades: lessons are unlinked and every enrolled student is
// unenrolled before the course row goes away.
func (api *courseApi) destroy(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}
	if err := api.checkOwnership(ctx, crs); err != nil {
		return err
	}

	if err := api.enrollSvc.DeleteCourse(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enrol(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.enrollSvc.EnrollInCourse(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "enrolled"})
}

func (api *courseApi) unenrol(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if err := api.enrollSvc.UnenrollFromCourse(ctx.Request().Context(), claims.Subject, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "unenrolled"})
}

func (api *courseApi) checkOwnership(ctx echo.Context, crs course.Course) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !claims.IsAdmin && crs.Owner != claims.Subject {
		return errHttpForbidden
	}
	return nil
}
