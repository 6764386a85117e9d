package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/service"
)

// FeedbackHandler serves feedback submission and lookup.
type FeedbackHandler struct {
	Feedback *service.FeedbackService
}

func NewFeedbackHandler(f *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{Feedback: f}
}

type feedbackReq struct {
	ReservationID uint64 `json:"reservation_id"`
	Rating        int    `json:"rating"`
	Comments      string `json:"comments"`
}

// Submit handles POST /feedback.
func (h *FeedbackHandler) Submit(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req feedbackReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ReservationID == 0 {
		return badRequest(c, "reservation_id is required")
	}
	fb, err := h.Feedback.Submit(c.Request().Context(), a, req.ReservationID, req.Rating, req.Comments)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toFeedbackOut(fb))
}

// ForReservation handles GET /feedback/reservation/:id.
func (h *FeedbackHandler) ForReservation(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	fb, err := h.Feedback.ForReservation(c.Request().Context(), a, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toFeedbackOut(fb))
}

// List handles GET /admin/feedback.
func (h *FeedbackHandler) List(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	skip, limit, err := paging(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.Feedback.ListAll(c.Request().Context(), a, skip, limit)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]feedbackOut, 0, len(list))
	for _, f := range list {
		out = append(out, toFeedbackOut(f))
	}
	return c.JSON(http.StatusOK, out)
}
