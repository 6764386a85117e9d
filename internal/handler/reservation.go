package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hall-reservation/internal/service"
)

// ReservationHandler serves the student-facing reservation endpoints.
type ReservationHandler struct {
	Reservations *service.ReservationService
}

func NewReservationHandler(r *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{Reservations: r}
}

type resourceReq struct {
	ResourceID uint64 `json:"resource_id"`
	Quantity   uint32 `json:"quantity"`
}

// reservationReq is the create/update body.  resource_ids is shorthand for
// quantity 1 of each id not already listed in resources.
type reservationReq struct {
	HallID         uint64        `json:"hall_id"`
	StartDatetime  string        `json:"start_datetime"`
	EndDatetime    string        `json:"end_datetime"`
	ResourceIDs    []uint64      `json:"resource_ids"`
	Resources      []resourceReq `json:"resources"`
	OtherResources []string      `json:"other_resources"`
	Description    string        `json:"description"`
}

func (r reservationReq) toInput() (service.ReservationInput, error) {
	start, err := parseTime("start_datetime", r.StartDatetime)
	if err != nil {
		return service.ReservationInput{}, err
	}
	end, err := parseTime("end_datetime", r.EndDatetime)
	if err != nil {
		return service.ReservationInput{}, err
	}
	listed := make(map[uint64]bool, len(r.Resources))
	resources := make([]service.ResourceRequest, 0, len(r.Resources)+len(r.ResourceIDs))
	for _, rr := range r.Resources {
		listed[rr.ResourceID] = true
		resources = append(resources, service.ResourceRequest{ResourceID: rr.ResourceID, Quantity: rr.Quantity})
	}
	for _, id := range r.ResourceIDs {
		if listed[id] {
			continue
		}
		listed[id] = true
		resources = append(resources, service.ResourceRequest{ResourceID: id, Quantity: 1})
	}
	return service.ReservationInput{
		HallID:         r.HallID,
		Start:          start,
		End:            end,
		Description:    r.Description,
		Resources:      resources,
		OtherResources: r.OtherResources,
	}, nil
}

// reservationWriteOut is a created or updated reservation with the
// overlaps found at write time.  Overlaps are a warning only.
type reservationWriteOut struct {
	reservationOut
	Conflict  bool          `json:"conflict"`
	Conflicts []conflictOut `json:"conflicts"`
}

func writeResult(c echo.Context, status int, res service.ReservationResult) error {
	c.Response().Header().Set("X-Availability-Conflict", strconv.FormatBool(res.HasConflict()))
	return c.JSON(status, reservationWriteOut{
		reservationOut: toReservationOut(res.Reservation),
		Conflict:       res.HasConflict(),
		Conflicts:      toConflicts(res.Conflicts),
	})
}

// Create handles POST /reservations.
func (h *ReservationHandler) Create(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	in, err := req.toInput()
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Reservations.Create(c.Request().Context(), a, in)
	if err != nil {
		return writeError(c, err)
	}
	return writeResult(c, http.StatusCreated, res)
}

// Update handles PUT /reservations/:id.
func (h *ReservationHandler) Update(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req reservationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	in, err := req.toInput()
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Reservations.Update(c.Request().Context(), a, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return writeResult(c, http.StatusOK, res)
}

// List handles GET /reservations[?status=].
func (h *ReservationHandler) List(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	status, err := queryStatus(c)
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.Reservations.ListMine(c.Request().Context(), a, status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationList(list))
}

// PastApproved handles GET /reservations/past-approved.
func (h *ReservationHandler) PastApproved(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	list, err := h.Reservations.PastApproved(c.Request().Context(), a)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toPastList(list))
}

// Get handles GET /reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Reservations.Get(c.Request().Context(), a, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationOut(res))
}

// Cancel handles DELETE /reservations/:id and returns the cancelled reservation.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c, "unauthorized")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	res, err := h.Reservations.Cancel(c.Request().Context(), a, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationOut(res))
}

type availabilityOut struct {
	Available bool          `json:"available"`
	Conflicts []conflictOut `json:"conflicts"`
}

// CheckAvailability handles
// GET /check-availability?hall_id&start_datetime&end_datetime[&exclude_id].
func (h *ReservationHandler) CheckAvailability(c echo.Context) error {
	hallID, err := queryUint(c, "hall_id")
	if err != nil {
		return writeError(c, err)
	}
	if hallID == 0 {
		return badRequest(c, "hall_id is required")
	}
	start, err := parseTime("start_datetime", c.QueryParam("start_datetime"))
	if err != nil {
		return writeError(c, err)
	}
	end, err := parseTime("end_datetime", c.QueryParam("end_datetime"))
	if err != nil {
		return writeError(c, err)
	}
	excludeID, err := queryUint(c, "exclude_id")
	if err != nil {
		return writeError(c, err)
	}
	free, conflicts, err := h.Reservations.CheckAvailability(c.Request().Context(), hallID, start, end, excludeID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, availabilityOut{Available: free, Conflicts: toConflicts(conflicts)})
}
