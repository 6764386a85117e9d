package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/queue"
	"github.com/iliyamo/hall-reservation/internal/repository"
)

// Input limits.
const (
	MaxDescriptionLength   = 500
	MaxOtherResources      = 20
	MaxOtherResourceLength = 100
)

// ResourceRequest asks for quantity units of a catalogue resource.
type ResourceRequest struct {
	ResourceID uint64
	Quantity   uint32
}

// ReservationInput carries the editable fields of a reservation.  Update
// replaces all of them.
type ReservationInput struct {
	HallID         uint64
	Start          time.Time
	End            time.Time
	Description    string
	Resources      []ResourceRequest
	OtherResources []string
}

// ReservationResult is a persisted reservation plus the reservations it
// overlaps at write time.  Conflicts are a warning for the caller; they
// never block creation or update.
type ReservationResult struct {
	Reservation *model.Reservation
	Conflicts   []*model.Reservation
}

// HasConflict reports whether the write overlapped a blocking reservation.
func (r ReservationResult) HasConflict() bool { return len(r.Conflicts) > 0 }

// ReservationService orchestrates the reservation lifecycle.  Status
// changes run as a compare-and-set inside a transaction that also inserts
// the resulting notifications, so a lost race produces neither.
type ReservationService struct {
	stores       Stores
	availability *AvailabilityChecker
	events       EventPublisher
	now          Clock
}

// NewReservationService wires the service.  A nil events publisher drops
// events and a nil clock uses time.Now.
func NewReservationService(stores Stores, availability *AvailabilityChecker, events EventPublisher, now Clock) *ReservationService {
	return &ReservationService{stores: stores, availability: availability, events: orNop(events), now: orNow(now)}
}

// validated is a ReservationInput after checks, ready to persist.
type validated struct {
	hall      *model.Hall
	rng       model.TimeRange
	desc      string
	resources []model.ResourceSelection
	other     []string
}

func (s *ReservationService) validate(ctx context.Context, in ReservationInput) (validated, error) {
	rng, err := model.NewTimeRange(in.Start, in.End)
	if err != nil {
		return validated{}, err
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return validated{}, apperr.Validation("description is required")
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return validated{}, apperr.Validation(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	other, err := cleanOtherResources(in.OtherResources)
	if err != nil {
		return validated{}, err
	}
	if in.HallID == 0 {
		return validated{}, apperr.Validation("hall_id is required")
	}
	hall, err := s.stores.Halls.GetByID(ctx, in.HallID)
	if err != nil {
		return validated{}, err
	}
	resources, err := s.resolveResources(ctx, in.Resources)
	if err != nil {
		return validated{}, err
	}
	return validated{hall: hall, rng: rng, desc: desc, resources: resources, other: other}, nil
}

func cleanOtherResources(items []string) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if utf8.RuneCountInString(it) > MaxOtherResourceLength {
			return nil, apperr.Validation(fmt.Sprintf("other resources must be at most %d characters each", MaxOtherResourceLength))
		}
		out = append(out, it)
	}
	if len(out) > MaxOtherResources {
		return nil, apperr.Validation(fmt.Sprintf("at most %d other resources are allowed", MaxOtherResources))
	}
	return out, nil
}

// resolveResources checks that every requested resource exists, appears
// once and has a positive quantity.
func (s *ReservationService) resolveResources(ctx context.Context, reqs []ResourceRequest) ([]model.ResourceSelection, error) {
	if len(reqs) == 0 {
		return []model.ResourceSelection{}, nil
	}
	ids := make([]uint64, 0, len(reqs))
	seen := make(map[uint64]bool, len(reqs))
	for _, r := range reqs {
		if r.Quantity < 1 {
			return nil, apperr.Validation("resource quantity must be at least 1")
		}
		if seen[r.ResourceID] {
			return nil, apperr.Validation(fmt.Sprintf("resource %d requested more than once", r.ResourceID))
		}
		seen[r.ResourceID] = true
		ids = append(ids, r.ResourceID)
	}
	found, err := s.stores.Resources.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.ResourceSelection, 0, len(reqs))
	for _, r := range reqs {
		res, ok := found[r.ResourceID]
		if !ok {
			return nil, apperr.NotFound(fmt.Sprintf("resource %d not found", r.ResourceID))
		}
		out = append(out, model.ResourceSelection{ResourceID: res.ID, ResourceName: res.Name, Quantity: r.Quantity})
	}
	return out, nil
}

// Create records a PENDING reservation for actor.  Overlaps are returned in
// the result instead of failing; only invalid input fails.  Administrators
// receive a broadcast about the new request.
func (s *ReservationService) Create(ctx context.Context, actor model.Actor, in ReservationInput) (_ ReservationResult, err error) {
	ctx, span := startSpan(ctx, "ReservationService.Create")
	defer func() { endSpan(span, err) }()

	v, err := s.validate(ctx, in)
	if err != nil {
		return ReservationResult{}, err
	}
	conflicts, err := s.availability.Conflicts(ctx, v.hall.ID, v.rng, 0)
	if err != nil {
		return ReservationResult{}, err
	}

	now := s.now().UTC()
	res := &model.Reservation{
		UserID:         actor.UserID,
		HallID:         v.hall.ID,
		HallName:       v.hall.Name,
		Range:          v.rng,
		Description:    v.desc,
		Status:         model.StatusPending,
		Resources:      v.resources,
		OtherResources: v.other,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = repository.WithTx(ctx, s.stores.DB, func(tx *sql.Tx) error {
		if err := s.stores.Reservations.CreateTx(ctx, tx, res); err != nil {
			return err
		}
		msg := fmt.Sprintf("New reservation request for %s", v.hall.Name)
		return s.stores.Notifications.CreateTx(ctx, tx, repository.NewNotification(nil, msg, now))
	})
	if err != nil {
		return ReservationResult{}, err
	}
	span.SetAttributes(attribute.Int64("reservation.id", int64(res.ID)), attribute.Int("reservation.conflicts", len(conflicts)))

	publish(ctx, s.events, queue.NewReservationEvent(queue.EventCreated, res, actor.UserID, "", now))
	return ReservationResult{Reservation: res, Conflicts: conflicts}, nil
}

// Update replaces the editable fields of a PENDING reservation owned by
// actor.  Anyone else, or any other status, is Forbidden.
func (s *ReservationService) Update(ctx context.Context, actor model.Actor, id uint64, in ReservationInput) (_ ReservationResult, err error) {
	ctx, span := startSpan(ctx, "ReservationService.Update")
	span.SetAttributes(attribute.Int64("reservation.id", int64(id)))
	defer func() { endSpan(span, err) }()

	current, err := s.stores.Reservations.GetByID(ctx, id)
	if err != nil {
		return ReservationResult{}, err
	}
	if !current.IsOwnedBy(actor.UserID) {
		return ReservationResult{}, apperr.Forbidden("only the owner may edit this reservation")
	}
	if current.Status != model.StatusPending {
		return ReservationResult{}, apperr.Forbidden(fmt.Sprintf("reservation is %s; only PENDING reservations can be edited", current.Status))
	}

	v, err := s.validate(ctx, in)
	if err != nil {
		return ReservationResult{}, err
	}
	conflicts, err := s.availability.Conflicts(ctx, v.hall.ID, v.rng, id)
	if err != nil {
		return ReservationResult{}, err
	}

	now := s.now().UTC()
	next := *current
	next.HallID = v.hall.ID
	next.HallName = v.hall.Name
	next.Range = v.rng
	next.Description = v.desc
	next.Resources = v.resources
	next.OtherResources = v.other
	next.UpdatedAt = now
	err = repository.WithTx(ctx, s.stores.DB, func(tx *sql.Tx) error {
		return s.stores.Reservations.UpdatePendingTx(ctx, tx, &next)
	})
	if err != nil {
		return ReservationResult{}, err
	}

	publish(ctx, s.events, queue.NewReservationEvent(queue.EventUpdated, &next, actor.UserID, "", now))
	return ReservationResult{Reservation: &next, Conflicts: conflicts}, nil
}

// Approve moves a PENDING reservation to APPROVED and notifies the owner.
// It fails with Conflict when the reservation now overlaps another APPROVED
// reservation in the same hall; approvals in one hall serialise on a hall
// row lock so two overlapping requests cannot both be approved.
func (s *ReservationService) Approve(ctx context.Context, actor model.Actor, id uint64, adminMessage string) (_ *model.Reservation, err error) {
	ctx, span := startSpan(ctx, "ReservationService.Approve")
	span.SetAttributes(attribute.Int64("reservation.id", int64(id)))
	defer func() { endSpan(span, err) }()

	res, err := s.stores.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := model.Transition(res.Status, model.StatusApproved, actor, res.UserID, adminMessage); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	msg := strings.TrimSpace(adminMessage)
	var stored *string
	if msg != "" {
		stored = &msg
	}
	err = repository.WithTx(ctx, s.stores.DB, func(tx *sql.Tx) error {
		if err := s.stores.Halls.LockTx(ctx, tx, res.HallID); err != nil {
			return err
		}
		clash, err := s.stores.Reservations.ListOverlappingTx(ctx, tx, res.HallID, res.Range,
			[]model.ReservationStatus{model.StatusApproved}, res.ID)
		if err != nil {
			return err
		}
		if len(clash) > 0 {
			return apperr.Conflict(fmt.Sprintf("reservation overlaps approved reservation #%d in %s", clash[0].ID, res.HallName))
		}
		if err := s.stores.Reservations.SetStatusTx(ctx, tx, res.ID, model.StatusPending, model.StatusApproved, stored, now); err != nil {
			return err
		}
		text := fmt.Sprintf("Your reservation for %s has been approved.", res.HallName)
		if msg != "" {
			text += " Message: " + msg
		}
		owner := res.UserID
		return s.stores.Notifications.CreateTx(ctx, tx, repository.NewNotification(&owner, text, now))
	})
	if err != nil {
		return nil, err
	}

	res.Status = model.StatusApproved
	res.AdminMessage = stored
	res.UpdatedAt = now
	publish(ctx, s.events, queue.NewReservationEvent(queue.EventApproved, res, actor.UserID, msg, now))
	return res, nil
}

// Deny moves a PENDING reservation to DENIED with a reason and notifies
// the owner.  An empty reason is rejected before anything is read.
func (s *ReservationService) Deny(ctx context.Context, actor model.Actor, id uint64, reason string) (_ *model.Reservation, err error) {
	ctx, span := startSpan(ctx, "ReservationService.Deny")
	span.SetAttributes(attribute.Int64("reservation.id", int64(id)))
	defer func() { endSpan(span, err) }()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("a reason is required to deny a reservation")
	}
	res, err := s.stores.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := model.Transition(res.Status, model.StatusDenied, actor, res.UserID, reason); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = repository.WithTx(ctx, s.stores.DB, func(tx *sql.Tx) error {
		if err := s.stores.Reservations.SetStatusTx(ctx, tx, res.ID, model.StatusPending, model.StatusDenied, &reason, now); err != nil {
			return err
		}
		text := fmt.Sprintf("Your reservation for %s has been denied. Reason: %s", res.HallName, reason)
		owner := res.UserID
		return s.stores.Notifications.CreateTx(ctx, tx, repository.NewNotification(&owner, text, now))
	})
	if err != nil {
		return nil, err
	}

	res.Status = model.StatusDenied
	res.AdminMessage = &reason
	res.UpdatedAt = now
	publish(ctx, s.events, queue.NewReservationEvent(queue.EventDenied, res, actor.UserID, reason, now))
	return res, nil
}

// Cancel moves a PENDING or APPROVED reservation to CANCELLED.  The owner
// cancelling raises an admin broadcast (an alert when it was APPROVED); an
// administrator cancelling someone else's reservation notifies the owner.
func (s *ReservationService) Cancel(ctx context.Context, actor model.Actor, id uint64) (_ *model.Reservation, err error) {
	ctx, span := startSpan(ctx, "ReservationService.Cancel")
	span.SetAttributes(attribute.Int64("reservation.id", int64(id)))
	defer func() { endSpan(span, err) }()

	res, err := s.stores.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !res.IsOwnedBy(actor.UserID) {
		return nil, apperr.Forbidden("only the owner or an administrator may cancel this reservation")
	}
	from := res.Status
	if err := model.Transition(from, model.StatusCancelled, actor, res.UserID, ""); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = repository.WithTx(ctx, s.stores.DB, func(tx *sql.Tx) error {
		if err := s.stores.Reservations.SetStatusTx(ctx, tx, res.ID, from, model.StatusCancelled, nil, now); err != nil {
			return err
		}
		return s.stores.Notifications.CreateTx(ctx, tx, cancelNotification(res, from, actor, now))
	})
	if err != nil {
		return nil, err
	}

	res.Status = model.StatusCancelled
	res.UpdatedAt = now
	publish(ctx, s.events, queue.NewReservationEvent(queue.EventCancelled, res, actor.UserID, "", now))
	return res, nil
}

func cancelNotification(res *model.Reservation, from model.ReservationStatus, actor model.Actor, now time.Time) *model.Notification {
	if !res.IsOwnedBy(actor.UserID) {
		owner := res.UserID
		text := fmt.Sprintf("Your reservation for %s has been cancelled by an administrator.", res.HallName)
		return repository.NewNotification(&owner, text, now)
	}
	if from == model.StatusApproved {
		text := fmt.Sprintf("ALERT: Reservation #%d for %s was CANCELLED after being APPROVED", res.ID, res.HallName)
		return repository.NewNotification(nil, text, now)
	}
	text := fmt.Sprintf("Reservation #%d for %s has been cancelled by the user", res.ID, res.HallName)
	return repository.NewNotification(nil, text, now)
}

// Get returns a reservation visible to actor.  Other users' reservations
// are reported as NotFound.
func (s *ReservationService) Get(ctx context.Context, actor model.Actor, id uint64) (*model.Reservation, error) {
	res, err := s.stores.Reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !res.IsOwnedBy(actor.UserID) {
		return nil, apperr.NotFound("reservation not found")
	}
	return res, nil
}

// ListMine returns actor's own reservations, optionally of one status.
func (s *ReservationService) ListMine(ctx context.Context, actor model.Actor, status *model.ReservationStatus) ([]*model.Reservation, error) {
	return s.stores.Reservations.ListByUser(ctx, actor.UserID, status)
}

// ListAll returns every reservation matching f.  Administrators only.
func (s *ReservationService) ListAll(ctx context.Context, actor model.Actor, f repository.ReservationFilter) ([]*model.Reservation, error) {
	if !actor.IsAdmin {
		return nil, apperr.Forbidden("administrators only")
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, apperr.Validation("end_date must not be before start_date")
	}
	return s.stores.Reservations.List(ctx, f)
}

// Calendar returns APPROVED reservations lying inside [from, to], for one
// hall when hallID is non-zero.  Administrators only.
func (s *ReservationService) Calendar(ctx context.Context, actor model.Actor, from, to time.Time, hallID uint64) ([]*model.Reservation, error) {
	if !actor.IsAdmin {
		return nil, apperr.Forbidden("administrators only")
	}
	window, err := model.NewTimeRange(from, to)
	if err != nil {
		return nil, err
	}
	return s.stores.Reservations.ListApprovedInWindow(ctx, window.Start, window.End, hallID)
}

// PastApproved lists actor's finished APPROVED reservations with whether
// feedback was already submitted.
func (s *ReservationService) PastApproved(ctx context.Context, actor model.Actor) ([]repository.PastReservation, error) {
	return s.stores.Reservations.ListPastApproved(ctx, actor.UserID, s.now())
}

// CheckAvailability validates the window and returns whether hallID is
// free, with the blocking reservations when it is not.
func (s *ReservationService) CheckAvailability(ctx context.Context, hallID uint64, start, end time.Time, excludeID uint64) (bool, []*model.Reservation, error) {
	rng, err := model.NewTimeRange(start, end)
	if err != nil {
		return false, nil, err
	}
	conflicts, err := s.availability.Conflicts(ctx, hallID, rng, excludeID)
	if err != nil {
		return false, nil, err
	}
	return len(conflicts) == 0, conflicts, nil
}
