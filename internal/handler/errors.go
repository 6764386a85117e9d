package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/apperr"
)

// statusFor maps an error kind to its HTTP status.  Everything else is a 500.
var statusFor = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindInvalidTransition: http.StatusConflict,
	apperr.KindConflict:          http.StatusConflict,
}

// writeError renders err as {"error": message, "code": kind}.  Errors
// without a kind are logged and hidden behind a generic message.
func writeError(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	status, ok := statusFor[kind]
	if !ok {
		log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error", "code": string(apperr.KindInternal)})
	}
	return c.JSON(status, echo.Map{"error": err.Error(), "code": string(kind)})
}

func badRequest(c echo.Context, msg string) error {
	return writeError(c, apperr.Validation(msg))
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": "unauthenticated"})
}
