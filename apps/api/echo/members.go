package echoapi

import (
	"bufio"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/class"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/core/user"
	qrsvc "github.com/japhetcordova/clc-sub000/services/qrcode"
)

const objectKey = "object"

var errMemberNotFoundInCtx = errors.New("member object not found in echo.Context")

type memberApi struct {
	svc      member.ServiceInterface
	classes  class.ServiceInterface
	validate *validator.Validate
}

func registerMemberAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *Deps) {
	api := memberApi{
		svc:      deps.MemberSvc,
		classes:  deps.ClassSvc,
		validate: deps.Validate,
	}

	// un-authed endpoints
	g.GET("/cards/:payload", api.publicCard)

	mg := g.Group("/members")
	mg.POST("/register", api.register, rateLimiter(deps.Conf.Server))

	// authed endpoints
	staff := staffMiddleware(user.RoleUsher, user.RoleTeacher)
	ag := mg.Group("", jwt)
	ag.POST("", api.create, adminMiddleware())
	ag.GET("", api.query, staff)
	ag.DELETE("", api.destroyMultiple, adminMiddleware())
	ag.GET("/birthdays", api.birthdays, staff)

	// detail endpoints
	dg := ag.Group("/:id", staff, memberObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, adminMiddleware())
	dg.PATCH("/active", api.setActive, adminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.GET("/qr.png", api.qrCode)
	dg.GET("/card.png", api.card)
	dg.GET("/photo", api.photo)
	dg.PUT("/photo", api.uploadPhoto, adminMiddleware())
	dg.GET("/classes", api.memberClasses)
}

// Handlers

func (api *memberApi) register(ctx echo.Context) error {
	var data member.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	m, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering member")
	}
	return ctx.JSON(http.StatusCreated, RegisterResponse{Member: m, Payload: api.svc.Payload(m)})
}

func (api *memberApi) create(ctx echo.Context) error {
	var data member.NewMember
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMember")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	m, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating member")
	}
	return ctx.JSON(http.StatusCreated, m)
}

func (api *memberApi) query(ctx echo.Context) error {
	filter := new(member.QueryFilter)
	ordering, page, err := bindQuery(ctx, filter)
	if err != nil {
		return err
	}

	res, err := api.svc.Query(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *memberApi) birthdays(ctx echo.Context) error {
	month := int(core.NowFunc().Month())
	if m := ctx.QueryParam("month"); m != "" {
		var err error
		if month, err = strconv.Atoi(m); err != nil {
			month = 0 // rejected by the service
		}
	}

	members, err := api.svc.Birthdays(ctx.Request().Context(), month)
	if err != nil {
		return errors.Wrap(err, "listing birthdays")
	}
	if members == nil {
		members = []member.Member{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *memberApi) retrieve(ctx echo.Context) error {
	m, err := ctxMember(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) update(ctx echo.Context) error {
	m, err := ctxMember(ctx)
	if err != nil {
		return err
	}

	var data member.UpdateMember
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateMember")
	}
	if err = data.Validate(m, api.validate, api.svc); err != nil {
		return err
	}

	m, err = api.svc.Update(ctx.Request().Context(), m, data)
	if err != nil {
		return errors.Wrap(err, "updating member")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) setActive(ctx echo.Context) error {
	m, err := ctxMember(ctx)
	if err != nil {
		return err
	}

	var data SetActiveRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetActiveRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}

	m, err = api.svc.SetActive(ctx.Request().Context(), m, *data.IsActive)
	if err != nil {
		return errors.Wrap(err, "setting member active")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) destroy(ctx echo.Context) error {
	m, err := ctxMember(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), m.ID); err != nil {
		return errors.Wrap(err, "deleting member")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting members")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *memberApi) qrCode(ctx echo.Context) error {
	m, err := ctxMember(ctx)
	if err != nil {
		return err
	}

	size := qrsvc.DefaultSize
	if s, err := strconv.Atoi(ctx.QueryParam("size")); err == nil && s >= 64 && s <= 1024 {
		size = s
	}
	png, err := qrsvc.Encode(api.svc.Payload(m), size)
	if err != nil {
		return errors.Wrap(err, "encoding QR code")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

func (api *memberApi) card(ctx echo.Context) error {
	m, err := ctxMember(ctx)
	if err != nil {
		return err
	}
	return api.sendCard(ctx, m)
}

func (api *memberApi) sendCard(ctx echo.Context, m member.Member) error {
	png, err := api.svc.Card(m)
	if err != nil {
		return errors.Wrap(err, "rendering card")
	}
	if ctx.QueryParam("download") != "" {
		ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="id-`+m.Code+`.png"`)
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

// publicCard serves the ID card of the member whose signed QR payload is in the path.
func (api *memberApi) publicCard(ctx echo.Context) error {
	m, err := api.svc.GetByPayload(ctx.Request().Context(), ctx.Param("payload"))
	if err != nil {
		if errors.Is(err, member.ErrInvalidPayload) || core.IsNotFound(err) {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding member by payload")
	}
	return api.sendCard(ctx, m)
}

func (api *memberApi) photo(ctx echo.Context) error {
	m, err := ctxMember(ctx)
	if err != nil {
		return err
	}

	rc, err := api.svc.Photo(ctx.Request().Context(), m)
	if err != nil {
		return errors.Wrap(err, "getting photo")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer rc.Close()

	br := bufio.NewReader(rc)
	head, _ := br.Peek(512)
	return ctx.Stream(http.StatusOK, http.DetectContentType(head), br)
}

func (api *memberApi) uploadPhoto(ctx echo.Context) error {
	m, err := ctxMember(ctx)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile("photo")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "photo", Error: "a photo file is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening photo")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	m, err = api.svc.SetPhoto(ctx.Request().Context(), m, file)
	if err != nil {
		return errors.Wrap(err, "setting photo")
	}
	return ctx.JSON(http.StatusOK, m)
}

func (api *memberApi) memberClasses(ctx echo.Context) error {
	m, err := ctxMember(ctx)
	if err != nil {
		return err
	}

	enrollments, err := api.classes.MemberClasses(ctx.Request().Context(), m.ID)
	if err != nil {
		return errors.Wrap(err, "listing member classes")
	}
	if enrollments == nil {
		enrollments = []class.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

func ctxMember(ctx echo.Context) (member.Member, error) {
	m, ok := ctx.Get(objectKey).(member.Member)
	if !ok {
		return member.Member{}, errors.Wrap(errMemberNotFoundInCtx, "retrieving object from context")
	}
	return m, nil
}

func memberObjectMiddleware(svc member.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			m, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Is(err, member.ErrNotFound) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding member by ID")
			}
			ctx.Set(objectKey, m)
			return next(ctx)
		}
	}
}

type (
	RegisterResponse struct {
		Member  member.Member `json:"member"`
		Payload string        `json:"payload"`
	}

	SetActiveRequest struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}
)
