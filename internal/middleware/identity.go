package middleware

// Helpers that read the caller stored by JWTAuth.  Rate limit and cache
// keys use "anon" when no token was presented.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/model"
)

// ActorFrom returns the authenticated actor, or false on public routes.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(ContextActor).(model.Actor)
	return a, ok
}

func currentUserID(c echo.Context) string {
	if uid, ok := c.Get(ContextUserID).(uint64); ok && uid != 0 {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
