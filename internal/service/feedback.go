package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/queue"
	"github.com/iliyamo/hall-reservation/internal/repository"
)

// MaxCommentLength bounds feedback comments.
const MaxCommentLength = 2000

// FeedbackService records one rating per finished APPROVED reservation.
type FeedbackService struct {
	stores Stores
	events EventPublisher
	now    Clock
}

func NewFeedbackService(stores Stores, events EventPublisher, now Clock) *FeedbackService {
	return &FeedbackService{stores: stores, events: orNop(events), now: orNow(now)}
}

// Submit stores feedback for a reservation owned by actor.  Checks run in
// this order: rating, existence, ownership, end time, status, duplicate.
func (s *FeedbackService) Submit(ctx context.Context, actor model.Actor, reservationID uint64, rating int, comments string) (_ *model.Feedback, err error) {
	ctx, span := startSpan(ctx, "FeedbackService.Submit")
	span.SetAttributes(attribute.Int64("reservation.id", int64(reservationID)))
	defer func() { endSpan(span, err) }()

	if rating < model.MinRating || rating > model.MaxRating {
		return nil, apperr.Validation(fmt.Sprintf("rating must be between %d and %d", model.MinRating, model.MaxRating))
	}
	comments = strings.TrimSpace(comments)
	if utf8.RuneCountInString(comments) > MaxCommentLength {
		return nil, apperr.Validation(fmt.Sprintf("comments must be at most %d characters", MaxCommentLength))
	}
	res, err := s.stores.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !res.IsOwnedBy(actor.UserID) {
		return nil, apperr.Forbidden("only the owner may leave feedback")
	}
	now := s.now().UTC()
	if !res.HasEnded(now) {
		return nil, apperr.Validation("feedback can only be submitted after the reservation has ended")
	}
	if res.Status != model.StatusApproved {
		return nil, apperr.Validation("feedback can only be submitted for approved reservations")
	}
	exists, err := s.stores.Feedback.ExistsForReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrFeedbackExists
	}

	fb := &model.Feedback{ReservationID: reservationID, Rating: rating, Comments: comments, CreatedAt: now}
	err = repository.WithTx(ctx, s.stores.DB, func(tx *sql.Tx) error {
		if err := s.stores.Feedback.CreateTx(ctx, tx, fb); err != nil {
			return err
		}
		msg := fmt.Sprintf("New feedback received for reservation #%d", reservationID)
		return s.stores.Notifications.CreateTx(ctx, tx, repository.NewNotification(nil, msg, now))
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, queue.NewReservationEvent(queue.EventFeedbackSubmitted, res, actor.UserID,
		fmt.Sprintf("rating=%d", rating), now))
	return fb, nil
}

// ForReservation returns the feedback of a reservation visible to actor.
func (s *FeedbackService) ForReservation(ctx context.Context, actor model.Actor, reservationID uint64) (*model.Feedback, error) {
	res, err := s.stores.Reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && !res.IsOwnedBy(actor.UserID) {
		return nil, apperr.NotFound("reservation not found")
	}
	return s.stores.Feedback.GetByReservation(ctx, reservationID)
}

// ListAll returns every feedback entry, newest first.  Administrators only.
func (s *FeedbackService) ListAll(ctx context.Context, actor model.Actor, skip, limit int) ([]*model.Feedback, error) {
	if !actor.IsAdmin {
		return nil, apperr.Forbidden("administrators only")
	}
	return s.stores.Feedback.List(ctx, skip, limit)
}
