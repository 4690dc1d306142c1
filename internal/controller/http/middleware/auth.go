package middleware

import (
	"strings"

	"github.com/Egor213/JewelCRM/internal/apierr"
	"github.com/Egor213/JewelCRM/internal/auth"
	"github.com/Egor213/JewelCRM/internal/domain"
	"github.com/Egor213/JewelCRM/internal/eventlog"
	"github.com/Egor213/JewelCRM/internal/requestctx"
	"github.com/labstack/echo/v4"
)

const bearerPrefix = "bearer "

// Authenticate requires a valid bearer token and stores the verified
// identity on the request context.
func Authenticate(a auth.Authenticator, logger *eventlog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()

			token, ok := bearerToken(req.Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apierr.Unauthenticated("Missing bearer token")
			}

			id, err := a.Authenticate(ctx, token)
			if err != nil {
				if logger != nil {
					logger.LogSecurityEvent(ctx, "authentication failed", eventlog.SeverityMedium, map[string]any{
						"ip": c.RealIP(),
					})
				}
				e := apierr.Unauthenticated("Invalid or expired token")
				e.Err = err
				return e
			}

			c.SetRequest(req.WithContext(requestctx.WithIdentity(ctx, id)))
			return next(c)
		}
	}
}

// RequireRole lets through identities holding one of roles.
func RequireRole(roles ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := requestctx.Identity(c.Request().Context())
			if !ok {
				return apierr.Unauthenticated("")
			}
			for _, r := range roles {
				if id.Role == r {
					return next(c)
				}
			}
			return apierr.Unauthorized("Insufficient permissions")
		}
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
