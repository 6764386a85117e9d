package model

import "time"

// Rating bounds for feedback.
const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is a student's rating of a finished, approved reservation.  At
// most one exists per reservation.
type Feedback struct {
	ID            uint64    // feedback.id
	ReservationID uint64    // feedback.reservation_id (unique)
	Rating        int       // feedback.rating, 1..5
	Comments      string    // feedback.comments
	CreatedAt     time.Time // feedback.created_at_ms
}

// Notification is a message for one user, or for every administrator when
// RecipientUserID is nil.
type Notification struct {
	ID              uint64
	RecipientUserID *uint64
	Message         string
	IsRead          bool
	CreatedAt       time.Time
}

// IsBroadcast reports whether the notification targets all administrators.
func (n Notification) IsBroadcast() bool { return n.RecipientUserID == nil }

// VisibleTo reports whether actor may see the notification.
func (n Notification) VisibleTo(actor Actor) bool {
	if n.RecipientUserID == nil {
		return actor.IsAdmin
	}
	return *n.RecipientUserID == actor.UserID
}
