// Package service implements the hall reservation domain: availability
// checks, the reservation lifecycle, feedback, notifications and the admin
// catalogue.  Every operation takes an explicit model.Actor.
package service

import (
	"context"
	"database/sql"
	"log"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/hall-reservation/internal/queue"
	"github.com/iliyamo/hall-reservation/internal/repository"
	"github.com/iliyamo/hall-reservation/internal/telemetry"
)

// Stores bundles the repositories the services share.
type Stores struct {
	DB            *sql.DB
	Users         *repository.UserRepo
	Halls         *repository.HallRepo
	Resources     *repository.ResourceRepo
	Reservations  *repository.ReservationRepo
	Feedback      *repository.FeedbackRepo
	Notifications *repository.NotificationRepo
	Tokens        *repository.TokenRepo
}

// NewStores builds every repository on db.
func NewStores(db *sql.DB) Stores {
	return Stores{
		DB:            db,
		Users:         repository.NewUserRepo(db),
		Halls:         repository.NewHallRepo(db),
		Resources:     repository.NewResourceRepo(db),
		Reservations:  repository.NewReservationRepo(db),
		Feedback:      repository.NewFeedbackRepo(db),
		Notifications: repository.NewNotificationRepo(db),
		Tokens:        repository.NewTokenRepo(db),
	}
}

// EventPublisher receives lifecycle events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// Clock returns the current instant.
type Clock func() time.Time

func orNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func orNop(p EventPublisher) EventPublisher {
	if p == nil {
		return queue.NopPublisher{}
	}
	return p
}

// publish is best effort; the state change is already committed.
func publish(ctx context.Context, p EventPublisher, ev queue.ReservationEvent) {
	if err := p.Publish(ctx, ev); err != nil {
		log.Printf("events: publish %s for reservation %d failed: %v", ev.Type, ev.ReservationID, err)
	}
}

var tracer = telemetry.Tracer("service")

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
