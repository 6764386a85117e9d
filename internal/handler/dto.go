package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/middleware"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository"
)

// Accepted datetime layouts.  Values without an offset are taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperr.Validation(field + " is required")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation(field + " must be an ISO-8601 datetime")
}

// isDateOnly reports whether raw names a calendar day without a time.
func isDateOnly(raw string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	return err == nil
}

func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return id, nil
}

func queryUint(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation(name + " must be a positive integer")
	}
	return v, nil
}

// paging reads skip and limit; repositories clamp the limit.
func paging(c echo.Context) (skip, limit int, err error) {
	s, err := queryUint(c, "skip")
	if err != nil {
		return 0, 0, err
	}
	l, err := queryUint(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	return int(s), int(l), nil
}

func queryStatus(c echo.Context) (*model.ReservationStatus, error) {
	raw := c.QueryParam("status")
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	st, err := model.ParseReservationStatus(raw)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// actor returns the caller stored by JWTAuth.
func actor(c echo.Context) (model.Actor, bool) {
	return middleware.ActorFrom(c)
}

type hallOut struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Capacity uint32 `json:"capacity,omitempty"`
}

func toHallOut(h *model.Hall) hallOut {
	return hallOut{ID: h.ID, Name: h.Name, Capacity: h.Capacity}
}

type resourceOut struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Quantity uint32 `json:"quantity,omitempty"`
}

type reservationOut struct {
	ID             uint64        `json:"id"`
	UserID         uint64        `json:"user_id"`
	HallID         uint64        `json:"hall_id"`
	Hall           hallOut       `json:"hall"`
	StartDatetime  time.Time     `json:"start_datetime"`
	EndDatetime    time.Time     `json:"end_datetime"`
	Description    string        `json:"description"`
	Status         string        `json:"status"`
	AdminMessage   *string       `json:"admin_message"`
	Resources      []resourceOut `json:"resources"`
	OtherResources []string      `json:"other_resources"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func toReservationOut(r *model.Reservation) reservationOut {
	res := make([]resourceOut, 0, len(r.Resources))
	for _, s := range r.Resources {
		res = append(res, resourceOut{ID: s.ResourceID, Name: s.ResourceName, Quantity: s.Quantity})
	}
	other := r.OtherResources
	if other == nil {
		other = []string{}
	}
	return reservationOut{
		ID:             r.ID,
		UserID:         r.UserID,
		HallID:         r.HallID,
		Hall:           hallOut{ID: r.HallID, Name: r.HallName},
		StartDatetime:  r.Range.Start,
		EndDatetime:    r.Range.End,
		Description:    r.Description,
		Status:         r.Status.String(),
		AdminMessage:   r.AdminMessage,
		Resources:      res,
		OtherResources: other,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toReservationList(list []*model.Reservation) []reservationOut {
	out := make([]reservationOut, 0, len(list))
	for _, r := range list {
		out = append(out, toReservationOut(r))
	}
	return out
}

// conflictOut summarises a reservation that overlaps the requested slot.
type conflictOut struct {
	ID            uint64    `json:"id"`
	Status        string    `json:"status"`
	StartDatetime time.Time `json:"start_datetime"`
	EndDatetime   time.Time `json:"end_datetime"`
}

func toConflicts(list []*model.Reservation) []conflictOut {
	out := make([]conflictOut, 0, len(list))
	for _, r := range list {
		out = append(out, conflictOut{ID: r.ID, Status: r.Status.String(), StartDatetime: r.Range.Start, EndDatetime: r.Range.End})
	}
	return out
}

type pastReservationOut struct {
	reservationOut
	FeedbackSubmitted bool `json:"feedback_submitted"`
}

func toPastList(list []repository.PastReservation) []pastReservationOut {
	out := make([]pastReservationOut, 0, len(list))
	for _, p := range list {
		out = append(out, pastReservationOut{reservationOut: toReservationOut(p.Reservation), FeedbackSubmitted: p.FeedbackSubmitted})
	}
	return out
}

type feedbackOut struct {
	ID            uint64    `json:"id"`
	ReservationID uint64    `json:"reservation_id"`
	Rating        int       `json:"rating"`
	Comments      string    `json:"comments"`
	CreatedAt     time.Time `json:"created_at"`
}

func toFeedbackOut(f *model.Feedback) feedbackOut {
	return feedbackOut{ID: f.ID, ReservationID: f.ReservationID, Rating: f.Rating, Comments: f.Comments, CreatedAt: f.CreatedAt}
}

type notificationOut struct {
	ID        uint64    `json:"id"`
	UserID    *uint64   `json:"user_id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type userOut struct {
	ID            uint64    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	StudentNumber string    `json:"student_number"`
	IsAdmin       bool      `json:"is_admin"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

func toUserOut(u *model.User) userOut {
	return userOut{
		ID:            u.ID,
		Email:         u.Email,
		FullName:      u.FullName,
		StudentNumber: u.StudentNumber,
		IsAdmin:       u.IsAdmin,
		Role:          u.Role(),
		CreatedAt:     u.CreatedAt,
	}
}
