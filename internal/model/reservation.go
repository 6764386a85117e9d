package model

import (
	"strings"
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperr"
)

// ReservationStatus is the lifecycle state of a reservation.  Values are
// persisted verbatim in reservations.status.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusApproved  ReservationStatus = "APPROVED"
	StatusDenied    ReservationStatus = "DENIED"
	StatusCancelled ReservationStatus = "CANCELLED"
)

// ParseReservationStatus validates a status string at the boundary.
// Matching is case-insensitive; anything unknown is a validation error.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch st := ReservationStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusApproved, StatusDenied, StatusCancelled:
		return st, nil
	}
	return "", apperr.Validation("unknown reservation status: " + s)
}

func (s ReservationStatus) String() string { return string(s) }

// IsTerminal reports whether no transition may leave s.
func (s ReservationStatus) IsTerminal() bool {
	return s == StatusDenied || s == StatusCancelled
}

// ResourceSelection links a reservation to a resource with a quantity.
// ResourceName is filled when loaded from storage.
type ResourceSelection struct {
	ResourceID   uint64
	ResourceName string
	Quantity     uint32
}

// Reservation is a user's request to use a hall for a time range.
//
// Fields:
//
//	ID             – reservations.id
//	UserID         – owning user
//	HallID         – reserved hall
//	Range          – [start, end) in UTC
//	Description    – free text shown to admins (1..500 characters)
//	Status         – lifecycle state
//	AdminMessage   – approval note or denial reason (nullable)
//	Resources      – attached resources with quantities
//	OtherResources – free-text items not in the resource catalogue
type Reservation struct {
	ID             uint64
	UserID         uint64
	HallID         uint64
	HallName       string
	Range          TimeRange
	Description    string
	Status         ReservationStatus
	AdminMessage   *string
	Resources      []ResourceSelection
	OtherResources []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOwnedBy reports whether userID owns the reservation.
func (r *Reservation) IsOwnedBy(userID uint64) bool { return r.UserID == userID }

// HasEnded reports whether the reservation's end is strictly before now.
func (r *Reservation) HasEnded(now time.Time) bool { return now.After(r.Range.End) }
