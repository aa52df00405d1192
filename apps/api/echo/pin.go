package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/accesspin"
	"github.com/japhetcordova/clc-sub000/core/user"
)

var errInvalidPIN = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired PIN")

type pinApi struct {
	svc      accesspin.ServiceInterface
	auth     *authenticator
	validate *validator.Validate
}

func registerPinAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps *Deps) {
	api := pinApi{svc: deps.PinSvc, auth: auth, validate: deps.Validate}

	pg := g.Group("/pin")
	pg.POST("/verify", api.verify, rateLimiter(deps.Conf.Server))
	pg.GET("", api.current, jwt, staffMiddleware(user.RoleUsher))
	pg.POST("/rotate", api.rotate, jwt, adminMiddleware())
}

// Handlers

func (api *pinApi) current(ctx echo.Context) error {
	pin, err := api.svc.Current(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting current PIN")
	}
	return ctx.JSON(http.StatusOK, pin)
}

func (api *pinApi) rotate(ctx echo.Context) error {
	pin, err := api.svc.Rotate(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "rotating PIN")
	}
	return ctx.JSON(http.StatusOK, pin)
}

// verify exchanges today's PIN for a scanner token that expires at church-local midnight.
func (api *pinApi) verify(ctx echo.Context) error {
	var data VerifyPINRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyPINRequest")
	}
	data.PIN = core.CleanString(data.PIN)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	pin, err := api.svc.Verify(ctx.Request().Context(), data.PIN)
	if err != nil {
		if errors.Is(err, accesspin.ErrInvalidPIN) {
			return errInvalidPIN
		}
		return errors.Wrap(err, "verifying PIN")
	}

	token, err := api.auth.generateToken(GetScannerClaims(pin, api.auth.conf))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, ScannerTokenResponse{Token: token, ExpiresAt: pin.ExpiresAt})
}

type (
	VerifyPINRequest struct {
		PIN string `json:"pin" validate:"required,numeric"`
	}

	ScannerTokenResponse struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
)
