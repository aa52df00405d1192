package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/member"
	"github.com/japhetcordova/clc-sub000/core/user"
	qrsvc "github.com/japhetcordova/clc-sub000/services/qrcode"
)

const maxScanImageSize = 8 << 20

type attendanceApi struct {
	svc attendance.ServiceInterface
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps *Deps) {
	api := attendanceApi{svc: deps.AttendanceSvc}

	ag := g.Group("/attendance", jwt)
	scanner := scannerMiddleware(auth)
	ag.POST("", api.checkIn, scanner)
	ag.POST("/scan-image", api.scanImage, scanner)
	ag.GET("/slots", api.slots, scanner)
	ag.GET("", api.query, staffMiddleware(user.RoleUsher, user.RoleTeacher))
	ag.GET("/summary", api.summary, staffMiddleware(user.RoleTeacher))
	ag.DELETE("/:id", api.destroy, adminMiddleware())
}

// Handlers

func (api *attendanceApi) checkIn(ctx echo.Context) error {
	var data attendance.CheckIn
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckIn")
	}
	return api.doCheckIn(ctx, data)
}

// scanImage checks in the member whose QR code is in the uploaded "image".
func (api *attendanceApi) scanImage(ctx echo.Context) error {
	fh, err := ctx.FormFile("image")
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "image", Error: "an image file is required"})
	}
	if fh.Size > maxScanImageSize {
		return core.NewValidationError(nil, core.FieldError{Field: "image", Error: "image is too large"})
	}
	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening image")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	payload, err := qrsvc.Decode(file)
	if err != nil {
		if errors.Is(err, qrsvc.ErrNoCode) || errors.Is(err, qrsvc.ErrBadImage) {
			return core.NewValidationError(err, core.FieldError{Field: "image", Error: errors.Cause(err).Error()})
		}
		return errors.Wrap(err, "decoding QR code")
	}
	return api.doCheckIn(ctx, attendance.CheckIn{Payload: payload, ClassID: ctx.FormValue("class_id")})
}

func (api *attendanceApi) doCheckIn(ctx echo.Context, data attendance.CheckIn) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.IsScanner {
		data.At = time.Time{} // scanners record live check-ins only
	}

	rec, m, err := api.svc.CheckIn(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "checking in")
	}
	return ctx.JSON(http.StatusCreated, CheckInResponse{Record: rec, Member: m})
}

func (api *attendanceApi) slots(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Slots())
}

func (api *attendanceApi) query(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	ordering, page, err := bindQuery(ctx, filter)
	if err != nil {
		return err
	}

	res, err := api.svc.Query(ctx.Request().Context(), filter, ordering, page)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *attendanceApi) summary(ctx echo.Context) error {
	filter := new(attendance.QueryFilter)
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, filter); err != nil {
		return err
	}

	sum, err := api.svc.Summary(ctx.Request().Context(), filter, ctx.QueryParam("group_by"))
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting attendance record")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type CheckInResponse struct {
	Record attendance.Record `json:"record"`
	Member member.Member     `json:"member"`
}
