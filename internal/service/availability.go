package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/repository"
)

// BlockingStatuses returns the statuses that occupy a hall under policy.
func BlockingStatuses(policy string) ([]model.ReservationStatus, error) {
	switch policy {
	case config.PolicyPendingAndApproved, "":
		return []model.ReservationStatus{model.StatusPending, model.StatusApproved}, nil
	case config.PolicyApprovedOnly:
		return []model.ReservationStatus{model.StatusApproved}, nil
	}
	return nil, fmt.Errorf("unknown availability policy %q", policy)
}

// AvailabilityChecker answers whether a hall is free for a time range.  It
// only reads; results are advisory and nothing is locked.
type AvailabilityChecker struct {
	halls        *repository.HallRepo
	reservations *repository.ReservationRepo
	blocking     []model.ReservationStatus
}

// NewAvailabilityChecker builds a checker for the given policy.
func NewAvailabilityChecker(stores Stores, policy string) (*AvailabilityChecker, error) {
	blocking, err := BlockingStatuses(policy)
	if err != nil {
		return nil, err
	}
	return &AvailabilityChecker{halls: stores.Halls, reservations: stores.Reservations, blocking: blocking}, nil
}

// Conflicts returns the blocking reservations of hallID that overlap rng,
// ignoring excludeID (0 for none).  An unknown hall is NotFound.
func (a *AvailabilityChecker) Conflicts(ctx context.Context, hallID uint64, rng model.TimeRange, excludeID uint64) (out []*model.Reservation, err error) {
	ctx, span := startSpan(ctx, "AvailabilityChecker.Conflicts")
	span.SetAttributes(attribute.Int64("hall.id", int64(hallID)))
	defer func() { endSpan(span, err) }()

	if _, err := a.halls.GetByID(ctx, hallID); err != nil {
		return nil, err
	}
	candidates, err := a.reservations.ListOverlapping(ctx, hallID, rng, a.blocking, excludeID)
	if err != nil {
		return nil, err
	}
	out = make([]*model.Reservation, 0, len(candidates))
	for _, c := range candidates {
		if c.Range.Overlaps(rng) {
			out = append(out, c)
		}
	}
	return out, nil
}

// IsAvailable reports whether no blocking reservation overlaps rng.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, hallID uint64, rng model.TimeRange, excludeID uint64) (bool, error) {
	conflicts, err := a.Conflicts(ctx, hallID, rng, excludeID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}
