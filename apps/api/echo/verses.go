package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core/devotion"
)

const maxImportSize = "1M"

var errVerseNotFoundInCtx = errors.New("verse object not found in echo.Context")

type verseApi struct {
	svc      devotion.ServiceInterface
	validate *validator.Validate
}

func registerVerseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := verseApi{svc: deps.DevotionSvc, validate: deps.Validate}

	// un-authed endpoints
	g.GET("/verse-of-the-day", api.today)

	vg := g.Group("/verses", jwt, adminMiddleware())
	vg.POST("", api.create)
	vg.GET("", api.query)
	vg.POST("/import", api.importVerses, middleware.BodyLimit(maxImportSize))

	dg := vg.Group("/:id", verseObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

func (api *verseApi) today(ctx echo.Context) error {
	v, err := api.svc.Today(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting verse of the day")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *verseApi) create(ctx echo.Context) error {
	var data devotion.NewVerse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewVerse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	v, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating verse")
	}
	return ctx.JSON(http.StatusCreated, v)
}

func (api *verseApi) query(ctx echo.Context) error {
	filter := new(devotion.QueryFilter)
	ordering, page, err := bindQuery(ctx, filter)
	if err != nil {
		return err
	}

	res, err := api.svc.Query(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying verses")
	}
	return ctx.JSON(http.StatusOK, res)
}

// importVerses loads the YAML document in the request body.
func (api *verseApi) importVerses(ctx echo.Context) error {
	res, err := api.svc.Import(ctx.Request().Context(), ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "importing verses")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *verseApi) retrieve(ctx echo.Context) error {
	v, err := ctxVerse(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *verseApi) update(ctx echo.Context) error {
	v, err := ctxVerse(ctx)
	if err != nil {
		return err
	}

	var data devotion.UpdateVerse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateVerse")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	v, err = api.svc.Update(ctx.Request().Context(), v, data)
	if err != nil {
		return errors.Wrap(err, "updating verse")
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *verseApi) destroy(ctx echo.Context) error {
	v, err := ctxVerse(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), v.ID); err != nil {
		return errors.Wrap(err, "deleting verse")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func ctxVerse(ctx echo.Context) (devotion.Verse, error) {
	v, ok := ctx.Get(objectKey).(devotion.Verse)
	if !ok {
		return devotion.Verse{}, errors.Wrap(errVerseNotFoundInCtx, "retrieving object from context")
	}
	return v, nil
}

func verseObjectMiddleware(svc devotion.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			v, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Is(err, devotion.ErrNotFound) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding verse by ID")
			}
			ctx.Set(objectKey, v)
			return next(ctx)
		}
	}
}
