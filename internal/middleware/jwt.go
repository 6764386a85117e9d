package middleware // reusable HTTP middleware for the reservation API

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextActor  = "actor"
)

// JWTAuth validates the Bearer access token and stores the caller in the
// echo context: "user_id" (uint64), "role" (string) and "actor"
// (model.Actor).  Requests without a valid token get 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthenticated(c, "missing bearer token")
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if err != nil {
				return unauthenticated(c, "invalid token")
			}
			uid, _ := claims.UserID() // ParseAccessToken already checked sub
			c.Set(ContextUserID, uid)
			c.Set(ContextRole, claims.Role)
			c.Set(ContextActor, model.Actor{UserID: uid, IsAdmin: claims.Role == model.RoleAdmin})
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": "unauthenticated"})
}
