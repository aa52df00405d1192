package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/user"
)

var errClassNotFoundInCtx = errors.New("class object not found in echo.Context")

type classApi struct {
	svc      class.ServiceInterface
	validate *validator.Validate
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := classApi{svc: deps.ClassSvc, validate: deps.Validate}

	staff := staffMiddleware(user.RoleUsher, user.RoleTeacher)
	teachers := staffMiddleware(user.RoleTeacher)

	cg := g.Group("/classes", jwt)
	cg.POST("", api.create, adminMiddleware())
	cg.GET("", api.query, staff)

	dg := cg.Group("/:id", staff, classObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/enrollments", api.enrollments, teachers)
	dg.POST("/enrollments", api.enroll, teachers)
	dg.PATCH("/enrollments/:member_id", api.setStatus, teachers)
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *classApi) query(ctx echo.Context) error {
	filter := new(class.QueryFilter)
	ordering, page, err := bindQuery(ctx, filter)
	if err != nil {
		return err
	}

	res, err := api.svc.Query(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classApi) update(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}

	var data class.UpdateClass
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err = api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classApi) destroy(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) enrollments(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}

	enrollments, err := api.svc.Enrollments(ctx.Request().Context(), c.ID, ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrollments == nil {
		enrollments = []class.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func (api *classApi) enroll(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}

	var data EnrollRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	e, err := api.svc.Enroll(ctx.Request().Context(), c, data.MemberID)
	if err != nil {
		return errors.Wrap(err, "enrolling member")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *classApi) setStatus(ctx echo.Context) error {
	c, err := ctxClass(ctx)
	if err != nil {
		return err
	}

	var data class.SetStatus
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetStatus")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	e, err := api.svc.SetStatus(ctx.Request().Context(), c.ID, ctx.Param("member_id"), data.Status)
	if err != nil {
		return errors.Wrap(err, "setting enrollment status")
	}
	return ctx.JSON(http.StatusOK, e)
}

func ctxClass(ctx echo.Context) (class.Class, error) {
	c, ok := ctx.Get(objectKey).(class.Class)
	if !ok {
		return class.Class{}, errors.Wrap(errClassNotFoundInCtx, "retrieving object from context")
	}
	return c, nil
}

func classObjectMiddleware(svc class.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Is(err, class.ErrNotFound) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding class by ID")
			}
			ctx.Set(objectKey, c)
			return next(ctx)
		}
	}
}

type EnrollRequest struct {
	MemberID string `json:"member_id" validate:"required"`
}
