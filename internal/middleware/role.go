package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/model"
)

// RequireRole rejects requests whose "role" (set by JWTAuth) is not one of
// roles with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextRole).(string)
			if !ok || !allowed[role] {
				return forbidden(c)
			}
			return next(c)
		}
	}
}

// AccountLookup loads the stored account behind a token subject.
type AccountLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// RequireStoredAdmin re-reads the caller's account after JWTAuth and
// rejects callers whose is_admin flag has since been revoked, even while
// their access token still carries the ADMIN role.  Deleted accounts get
// 401.  The stored role replaces the one from the token.
func RequireStoredAdmin(users AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token", "code": "unauthenticated"})
			}
			u, err := users.GetByID(c.Request().Context(), actor.UserID)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account no longer exists", "code": "unauthenticated"})
				}
				log.Printf("auth: load account %d: %v", actor.UserID, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error", "code": string(apperr.KindInternal)})
			}
			if !u.IsAdmin {
				return forbidden(c)
			}
			c.Set(ContextRole, u.Role())
			c.Set(ContextActor, u.Actor())
			return next(c)
		}
	}
}

func forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "forbidden"})
}
