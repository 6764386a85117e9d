package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/repository"
	"github.com/iliyamo/hall-reservation/internal/service"
)

// AdminHandler serves the administrator review and calendar endpoints.
type AdminHandler struct {
	Reservations *service.ReservationService
	Catalog      *service.CatalogService
}

func NewAdminHandler(r *service.ReservationService, cat *service.CatalogService) *AdminHandler {
	return &AdminHandler{Reservations: r, Catalog: cat}
}

// windowBound parses a start_date/end_date query value.  A bare date used
// as an upper bound covers the whole day.
func windowBound(c echo.Context, name string, upper bool) (*time.Time, error) {
	raw := c.QueryParam(name)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := parseTime(name, raw)
	if err != nil {
		return nil, err
	}
	if upper && isDateOnly(raw) {
		t = t.Add(24 * time.Hour)
	}
	return &t, nil
}

// ListReservations handles
// GET /admin/reservations[?status&hall_id&user_id&start_date&end_date&skip&limit].
func (h *AdminHandler) ListReservations(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var (
		f   repository.ReservationFilter
		err error
	)
	if f.Status, err = queryStatus(c); err != nil {
		return writeError(c, err)
	}
	if f.HallID, err = queryUint(c, "hall_id"); err != nil {
		return writeError(c, err)
	}
	if f.UserID, err = queryUint(c, "user_id"); err != nil {
		return writeError(c, err)
	}
	if f.From, err = windowBound(c, "start_date", false); err != nil {
		return writeError(c, err)
	}
	if f.To, err = windowBound(c, "end_date", true); err != nil {
		return writeError(c, err)
	}
	if f.Skip, f.Limit, err = paging(c); err != nil {
		return writeError(c, err)
	}
	list, err := h.Reservations.ListAll(c.Request().Context(), a, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationList(list))
}

type reviewReq struct {
	AdminMessage string `json:"admin_message"`
}

// reviewMessage takes admin_message from the query string, falling back
// to a JSON body.
func reviewMessage(c echo.Context) string {
	if msg := c.QueryParam("admin_message"); msg != "" {
		return msg
	}
	var req reviewReq
	if c.Request().ContentLength != 0 {
		_ = c.Bind(&req)
	}
	return req.AdminMessage
}

// Approve handles PUT /admin/reservations/:id/approve[?admin_message=].
func (h *AdminHandler) Approve(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Reservations.Approve(c.Request().Context(), a, id, reviewMessage(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationOut(res))
}

// Deny handles PUT /admin/reservations/:id/deny?admin_message=reason.
func (h *AdminHandler) Deny(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Reservations.Deny(c.Request().Context(), a, id, reviewMessage(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationOut(res))
}

type calendarEvent struct {
	ID     uint64    `json:"id"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	UserID uint64    `json:"user_id"`
	HallID uint64    `json:"hall_id"`
}

// Calendar handles GET /admin/calendar?start_date&end_date[&hall_id].
func (h *AdminHandler) Calendar(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	from, err := windowBound(c, "start_date", false)
	if err != nil {
		return writeError(c, err)
	}
	to, err := windowBound(c, "end_date", true)
	if err != nil {
		return writeError(c, err)
	}
	if from == nil || to == nil {
		return badRequest(c, "start_date and end_date are required")
	}
	hallID, err := queryUint(c, "hall_id")
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.Reservations.Calendar(c.Request().Context(), a, *from, *to, hallID)
	if err != nil {
		return writeError(c, err)
	}
	events := make([]calendarEvent, 0, len(list))
	for _, r := range list {
		events = append(events, calendarEvent{
			ID:     r.ID,
			Title:  r.Description + " - " + r.HallName,
			Start:  r.Range.Start,
			End:    r.Range.End,
			UserID: r.UserID,
			HallID: r.HallID,
		})
	}
	return c.JSON(http.StatusOK, events)
}

// Users handles GET /admin/users[?skip&limit].
func (h *AdminHandler) Users(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	skip, limit, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	users, err := h.Catalog.ListUsers(c.Request().Context(), a, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]userOut, 0, len(users))
	for _, u := range users {
		out = append(out, toUserOut(u))
	}
	return c.JSON(http.StatusOK, out)
}
