package echoapi

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/user"
)

func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// staffMiddleware lets admins in, along with users holding a role under any of prefixes.
func staffMiddleware(prefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin {
				return next(ctx)
			}
			for _, role := range claims.Roles {
				for _, prefix := range prefixes {
					if strings.HasPrefix(role, prefix) {
						return next(ctx)
					}
				}
			}
			return errHttpForbidden
		}
	}
}

// scannerMiddleware lets admins, ushers and PIN unlocked scanners in.
func scannerMiddleware(auth *authenticator) echo.MiddlewareFunc {
	staff := staffMiddleware(user.RoleUsher)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		staffNext := staff(next)
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsScanner {
				return staffNext(ctx)
			}
			if err = auth.checkScanner(ctx, claims); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// rateLimiter limits requests per client IP; each call gets its own budget.
func rateLimiter(conf core.ServerConfig) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(conf.RateLimit),
		Burst:     conf.RateBurst,
		ExpiresIn: 10 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{Store: store})
}
