// Package queue carries reservation lifecycle events over RabbitMQ: the
// publisher used by the service layer and the audit consumer that appends
// every event to a log file.
package queue

import (
	"time"

	"github.com/iliyamo/hall-reservation/internal/model"
)

// EventType names a lifecycle event.
type EventType string

const (
	EventCreated           EventType = "reservation.created"
	EventUpdated           EventType = "reservation.updated"
	EventApproved          EventType = "reservation.approved"
	EventDenied            EventType = "reservation.denied"
	EventCancelled         EventType = "reservation.cancelled"
	EventFeedbackSubmitted EventType = "reservation.feedback_submitted"
)

// ReservationEvent is published after a lifecycle change commits.  It holds
// enough for consumers to audit the change without reading the database.
type ReservationEvent struct {
	Type          EventType `json:"type"`
	ReservationID uint64    `json:"reservation_id"`
	UserID        uint64    `json:"user_id"`
	ActorID       uint64    `json:"actor_id"`
	HallID        uint64    `json:"hall_id"`
	HallName      string    `json:"hall_name"`
	Status        string    `json:"status"`
	StartsAt      string    `json:"starts_at"`
	EndsAt        string    `json:"ends_at"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    string    `json:"occurred_at"`
}

// NewReservationEvent snapshots res for an event of type t triggered by
// actorID at now.
func NewReservationEvent(t EventType, res *model.Reservation, actorID uint64, message string, now time.Time) ReservationEvent {
	return ReservationEvent{
		Type:          t,
		ReservationID: res.ID,
		UserID:        res.UserID,
		ActorID:       actorID,
		HallID:        res.HallID,
		HallName:      res.HallName,
		Status:        res.Status.String(),
		StartsAt:      res.Range.Start.UTC().Format(time.RFC3339),
		EndsAt:        res.Range.End.UTC().Format(time.RFC3339),
		Message:       message,
		OccurredAt:    now.UTC().Format(time.RFC3339),
	}
}
