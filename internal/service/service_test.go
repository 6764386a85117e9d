package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/config"
	"github.com/iliyamo/hall-reservation/internal/database"
	"github.com/iliyamo/hall-reservation/internal/model"
	"github.com/iliyamo/hall-reservation/internal/queue"
	"github.com/iliyamo/hall-reservation/internal/repository"
)

// monday is 2026-03-02, a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type env struct {
	stores       Stores
	clock        *fakeClock
	events       *recordingPublisher
	availability *AvailabilityChecker
	reservations *ReservationService
	feedback     *FeedbackService
	inbox        *NotificationService
	catalog      *CatalogService

	admin    model.Actor
	student  model.Actor
	stranger model.Actor
	hall     *model.Hall
	other    *model.Hall
	mic      *model.Resource
}

func newEnv(t *testing.T, policy string) *env {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := database.Migrate(ctx, db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	e := &env{
		stores: NewStores(db),
		clock:  &fakeClock{now: monday(8, 0)},
		events: &recordingPublisher{},
	}
	e.availability, err = NewAvailabilityChecker(e.stores, policy)
	if err != nil {
		t.Fatalf("checker: %v", err)
	}
	e.reservations = NewReservationService(e.stores, e.availability, e.events, e.clock.Now)
	e.feedback = NewFeedbackService(e.stores, e.events, e.clock.Now)
	e.inbox = NewNotificationService(e.stores)
	e.catalog = NewCatalogService(e.stores, e.clock.Now)

	mkUser := func(email string, admin bool) model.Actor {
		u, err := e.stores.Users.Create(ctx, repository.NewUser{Email: email, Password: "password", IsAdmin: admin}, 4, e.clock.Now())
		if err != nil {
			t.Fatalf("create user %s: %v", email, err)
		}
		return u.Actor()
	}
	e.admin = mkUser("admin@example.com", true)
	e.student = mkUser("student@example.com", false)
	e.stranger = mkUser("other@example.com", false)

	if e.hall, err = e.catalog.CreateHall(ctx, e.admin, "Function Hall", 200); err != nil {
		t.Fatalf("hall: %v", err)
	}
	if e.other, err = e.catalog.CreateHall(ctx, e.admin, "PE Hall", 500); err != nil {
		t.Fatalf("hall: %v", err)
	}
	if e.mic, err = e.catalog.CreateResource(ctx, e.admin, "Microphone"); err != nil {
		t.Fatalf("resource: %v", err)
	}
	return e
}

func (e *env) input(hall *model.Hall, start, end time.Time) ReservationInput {
	return ReservationInput{
		HallID:      hall.ID,
		Start:       start,
		End:         end,
		Description: "org general assembly",
		Resources:   []ResourceRequest{{ResourceID: e.mic.ID, Quantity: 2}},
	}
}

func (e *env) create(t *testing.T, actor model.Actor, start, end time.Time) *model.Reservation {
	t.Helper()
	out, err := e.reservations.Create(context.Background(), actor, e.input(e.hall, start, end))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return out.Reservation
}

func (e *env) approved(t *testing.T, start, end time.Time) *model.Reservation {
	t.Helper()
	res := e.create(t, e.student, start, end)
	if _, err := e.reservations.Approve(context.Background(), e.admin, res.ID, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	return res
}

func (e *env) messages(t *testing.T, actor model.Actor) []string {
	t.Helper()
	list, err := e.inbox.List(context.Background(), actor, 0, 100)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.Message)
	}
	return out
}

func containsMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func mustRange(t *testing.T, start, end time.Time) model.TimeRange {
	t.Helper()
	r, err := model.NewTimeRange(start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return r
}

func TestAvailabilityAroundApprovedReservation(t *testing.T) {
	t.Parallel()

	for _, policy := range []string{config.PolicyPendingAndApproved, config.PolicyApprovedOnly} {
		e := newEnv(t, policy)
		ctx := context.Background()
		e.approved(t, monday(10, 0), monday(11, 0))

		free, err := e.availability.IsAvailable(ctx, e.hall.ID, mustRange(t, monday(11, 0), monday(12, 0)), 0)
		if err != nil || !free {
			t.Fatalf("%s: abutting range available = %v, %v", policy, free, err)
		}
		free, err = e.availability.IsAvailable(ctx, e.hall.ID, mustRange(t, monday(10, 30), monday(10, 45)), 0)
		if err != nil || free {
			t.Fatalf("%s: inner range available = %v, %v", policy, free, err)
		}
		free, err = e.availability.IsAvailable(ctx, e.other.ID, mustRange(t, monday(10, 30), monday(10, 45)), 0)
		if err != nil || !free {
			t.Fatalf("%s: other hall available = %v, %v", policy, free, err)
		}
	}
}

func TestAvailabilityPendingDependsOnPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		policy      string
		wantBlocked bool
	}{
		{config.PolicyPendingAndApproved, true},
		{config.PolicyApprovedOnly, false},
	}
	for _, tc := range cases {
		e := newEnv(t, tc.policy)
		pending := e.create(t, e.student, monday(10, 0), monday(11, 0))

		rng := mustRange(t, monday(10, 15), monday(10, 45))
		free, err := e.availability.IsAvailable(context.Background(), e.hall.ID, rng, 0)
		if err != nil {
			t.Fatalf("%s: %v", tc.policy, err)
		}
		if free == tc.wantBlocked {
			t.Fatalf("%s: available = %v, want %v", tc.policy, free, !tc.wantBlocked)
		}
		free, _ = e.availability.IsAvailable(context.Background(), e.hall.ID, rng, pending.ID)
		if !free {
			t.Fatalf("%s: excluding the pending reservation must free the hall", tc.policy)
		}
	}
}

func TestAvailabilityIgnoresDeniedAndCancelled(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	denied := e.create(t, e.student, monday(10, 0), monday(11, 0))
	if _, err := e.reservations.Deny(ctx, e.admin, denied.ID, "maintenance"); err != nil {
		t.Fatalf("deny: %v", err)
	}
	cancelled := e.create(t, e.student, monday(10, 0), monday(11, 0))
	if _, err := e.reservations.Cancel(ctx, e.student, cancelled.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	free, err := e.availability.IsAvailable(ctx, e.hall.ID, mustRange(t, monday(10, 0), monday(11, 0)), 0)
	if err != nil || !free {
		t.Fatalf("available = %v, %v", free, err)
	}
	if _, err := e.availability.IsAvailable(ctx, 999, mustRange(t, monday(10, 0), monday(11, 0)), 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unknown hall: %v", err)
	}
}

func TestBlockingStatusesRejectsUnknownPolicy(t *testing.T) {
	t.Parallel()
	if _, err := BlockingStatuses("first_come"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreateRecordsPendingDespiteConflict(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	first := e.approved(t, monday(10, 0), monday(11, 0))
	out, err := e.reservations.Create(ctx, e.stranger, e.input(e.hall, monday(10, 30), monday(11, 30)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out.Reservation.Status != model.StatusPending || out.Reservation.ID == 0 {
		t.Fatalf("reservation = %+v", out.Reservation)
	}
	if !out.HasConflict() || out.Conflicts[0].ID != first.ID {
		t.Fatalf("conflicts = %+v", out.Conflicts)
	}
	stored, err := e.reservations.Get(ctx, e.stranger, out.Reservation.ID)
	if err != nil || len(stored.Resources) != 1 || stored.Resources[0].Quantity != 2 {
		t.Fatalf("stored = %+v, %v", stored, err)
	}
	if !containsMessage(e.messages(t, e.admin), "New reservation request for Function Hall") {
		t.Fatalf("admin broadcast missing: %v", e.messages(t, e.admin))
	}
	types := e.events.types()
	if len(types) == 0 || types[len(types)-1] != queue.EventCreated {
		t.Fatalf("events = %v", types)
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	base := e.input(e.hall, monday(10, 0), monday(11, 0))
	cases := []struct {
		name   string
		mutate func(*ReservationInput)
		want   error
	}{
		{"inverted range", func(in *ReservationInput) { in.End = in.Start.Add(-time.Minute) }, model.ErrInvalidRange},
		{"zero length", func(in *ReservationInput) { in.End = in.Start }, apperr.ErrValidation},
		{"within one millisecond", func(in *ReservationInput) {
			in.Start = monday(10, 0).Add(100 * time.Microsecond)
			in.End = in.Start.Add(500 * time.Microsecond)
		}, apperr.ErrValidation},
		{"blank description", func(in *ReservationInput) { in.Description = "   " }, apperr.ErrValidation},
		{"long description", func(in *ReservationInput) { in.Description = strings.Repeat("é", 501) }, apperr.ErrValidation},
		{"unknown hall", func(in *ReservationInput) { in.HallID = 404 }, apperr.ErrNotFound},
		{"unknown resource", func(in *ReservationInput) { in.Resources = []ResourceRequest{{ResourceID: 404, Quantity: 1}} }, apperr.ErrNotFound},
		{"zero quantity", func(in *ReservationInput) { in.Resources[0].Quantity = 0 }, apperr.ErrValidation},
		{"duplicate resource", func(in *ReservationInput) { in.Resources = append(in.Resources, in.Resources[0]) }, apperr.ErrValidation},
		{"long extra", func(in *ReservationInput) { in.OtherResources = []string{strings.Repeat("x", 101)} }, apperr.ErrValidation},
	}
	for _, tc := range cases {
		in := base
		in.Resources = append([]ResourceRequest(nil), base.Resources...)
		tc.mutate(&in)
		if _, err := e.reservations.Create(ctx, e.student, in); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	in := base
	in.Description = strings.Repeat("é", 500)
	in.OtherResources = []string{" extension cord ", "", "tape"}
	out, err := e.reservations.Create(ctx, e.student, in)
	if err != nil {
		t.Fatalf("500-character description: %v", err)
	}
	if got := out.Reservation.OtherResources; len(got) != 2 || got[0] != "extension cord" {
		t.Fatalf("other resources = %q", got)
	}
}

func TestUpdateRules(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	res := e.create(t, e.student, monday(10, 0), monday(11, 0))
	moved := e.input(e.other, monday(10, 30), monday(11, 30))
	moved.Resources = nil

	if _, err := e.reservations.Update(ctx, e.stranger, res.ID, moved); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger update: %v", err)
	}
	if _, err := e.reservations.Update(ctx, e.admin, res.ID, moved); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("admin update: %v", err)
	}
	if _, err := e.reservations.Update(ctx, e.student, 404, moved); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing update: %v", err)
	}

	tiny := e.input(e.hall, monday(10, 0).Add(200*time.Microsecond), monday(10, 0).Add(700*time.Microsecond))
	if _, err := e.reservations.Update(ctx, e.student, res.ID, tiny); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("sub-millisecond update: %v", err)
	}

	// Shifting within its own slot must not conflict with itself.
	same := e.input(e.hall, monday(10, 15), monday(11, 0))
	out, err := e.reservations.Update(ctx, e.student, res.ID, same)
	if err != nil || out.HasConflict() {
		t.Fatalf("self update = %+v, %v", out, err)
	}

	out, err = e.reservations.Update(ctx, e.student, res.ID, moved)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := e.reservations.Get(ctx, e.student, res.ID)
	if got.HallID != e.other.ID || got.Status != model.StatusPending || len(got.Resources) != 0 {
		t.Fatalf("after update = %+v", got)
	}
	if out.Reservation.HallName != "PE Hall" {
		t.Fatalf("hall name = %q", out.Reservation.HallName)
	}
}

func TestApproveRules(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	a := e.create(t, e.student, monday(10, 0), monday(11, 0))
	b := e.create(t, e.stranger, monday(10, 30), monday(11, 30))

	if _, err := e.reservations.Approve(ctx, e.student, a.ID, ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("student approving: %v", err)
	}
	got, err := e.reservations.Approve(ctx, e.admin, a.ID, "Please keep the hall clean")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Status != model.StatusApproved || got.AdminMessage == nil {
		t.Fatalf("approved = %+v", got)
	}
	if !containsMessage(e.messages(t, e.student), "Your reservation for Function Hall has been approved. Message: Please keep the hall clean") {
		t.Fatalf("owner notification missing: %v", e.messages(t, e.student))
	}

	if _, err := e.reservations.Approve(ctx, e.admin, b.ID, ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("approving overlapping request: %v", err)
	}
	still, _ := e.reservations.Get(ctx, e.admin, b.ID)
	if still.Status != model.StatusPending {
		t.Fatalf("overlapping request status = %s", still.Status)
	}

	if _, err := e.reservations.Approve(ctx, e.admin, a.ID, ""); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("approving twice: %v", err)
	}
	if _, err := e.reservations.Approve(ctx, e.admin, 404, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("approving missing: %v", err)
	}
}

func TestDenyRequiresReasonAndLeavesStatus(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	res := e.create(t, e.student, monday(10, 0), monday(11, 0))
	for _, reason := range []string{"", "  "} {
		if _, err := e.reservations.Deny(ctx, e.admin, res.ID, reason); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("deny %q: %v", reason, err)
		}
	}
	got, _ := e.reservations.Get(ctx, e.student, res.ID)
	if got.Status != model.StatusPending {
		t.Fatalf("status after failed deny = %s", got.Status)
	}

	if _, err := e.reservations.Deny(ctx, e.student, res.ID, "no"); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("student denying: %v", err)
	}
	denied, err := e.reservations.Deny(ctx, e.admin, res.ID, "Hall under maintenance")
	if err != nil || denied.Status != model.StatusDenied {
		t.Fatalf("deny = %+v, %v", denied, err)
	}
	if !containsMessage(e.messages(t, e.student), "Your reservation for Function Hall has been denied. Reason: Hall under maintenance") {
		t.Fatalf("owner notification missing: %v", e.messages(t, e.student))
	}
	if _, err := e.reservations.Cancel(ctx, e.student, res.ID); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("cancelling denied: %v", err)
	}
}

func TestCancelNotifications(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	pending := e.create(t, e.student, monday(9, 0), monday(10, 0))
	if _, err := e.reservations.Cancel(ctx, e.stranger, pending.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger cancelling: %v", err)
	}
	if _, err := e.reservations.Cancel(ctx, e.student, pending.ID); err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	approved := e.approved(t, monday(12, 0), monday(13, 0))
	if _, err := e.reservations.Cancel(ctx, e.admin, approved.ID); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}

	admin := e.messages(t, e.admin)
	if !containsMessage(admin, "has been cancelled by the user") {
		t.Fatalf("admin messages = %v", admin)
	}
	if containsMessage(admin, "CANCELLED after being APPROVED") {
		t.Fatalf("admin cancelling must not raise the owner alert: %v", admin)
	}
	if !containsMessage(e.messages(t, e.student), "cancelled by an administrator") {
		t.Fatalf("student messages = %v", e.messages(t, e.student))
	}
	if _, err := e.reservations.Cancel(ctx, e.student, approved.ID); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("cancelling twice: %v", err)
	}
}

func TestGetHidesOtherUsersReservations(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	res := e.create(t, e.student, monday(9, 0), monday(10, 0))
	if _, err := e.reservations.Get(ctx, e.stranger, res.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("stranger get: %v", err)
	}
	if _, err := e.reservations.Get(ctx, e.admin, res.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
	if _, err := e.reservations.ListAll(ctx, e.student, repository.ReservationFilter{}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("student list all: %v", err)
	}
	mine, err := e.reservations.ListMine(ctx, e.stranger, nil)
	if err != nil || len(mine) != 0 {
		t.Fatalf("stranger list = %d, %v", len(mine), err)
	}
}

// Create, approve, fail to edit, cancel: the admin alert must name the hall.
func TestReservationLifecycleEndToEnd(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	created, err := e.reservations.Create(ctx, e.student, e.input(e.hall, monday(10, 0), monday(11, 0)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := created.Reservation.ID
	if created.Reservation.Status != model.StatusPending {
		t.Fatalf("status = %s", created.Reservation.Status)
	}
	if _, err := e.reservations.Approve(ctx, e.admin, id, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := e.reservations.Update(ctx, e.student, id, e.input(e.hall, monday(12, 0), monday(13, 0))); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("update approved: %v", err)
	}
	cancelled, err := e.reservations.Cancel(ctx, e.student, id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}

	list, err := e.inbox.List(ctx, e.admin, 0, 100)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	var alert *model.Notification
	for _, n := range list {
		if strings.Contains(n.Message, "CANCELLED after being APPROVED") {
			alert = n
		}
	}
	if alert == nil || !alert.IsBroadcast() || !strings.Contains(alert.Message, "Function Hall") {
		t.Fatalf("admin alert = %+v", alert)
	}

	want := []queue.EventType{queue.EventCreated, queue.EventApproved, queue.EventCancelled}
	got := e.events.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestConcurrentApprovalsApplyOnce(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()
	res := e.create(t, e.student, monday(10, 0), monday(11, 0))

	const racers = 4
	var (
		wg   sync.WaitGroup
		errs = make([]error, racers)
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.reservations.Approve(ctx, e.admin, res.ID, "")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidTransition):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
	approvals := 0
	for _, m := range e.messages(t, e.student) {
		if strings.Contains(m, "has been approved") {
			approvals++
		}
	}
	if approvals != 1 {
		t.Fatalf("approval notifications = %d, want 1", approvals)
	}
}

func TestFeedbackRules(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	res := e.approved(t, monday(10, 0), monday(11, 0))
	pending := e.create(t, e.student, monday(12, 0), monday(13, 0))

	if _, err := e.feedback.Submit(ctx, e.student, res.ID, 0, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("rating 0: %v", err)
	}
	if _, err := e.feedback.Submit(ctx, e.student, res.ID, 6, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("rating 6: %v", err)
	}
	if _, err := e.feedback.Submit(ctx, e.student, 404, 5, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing reservation: %v", err)
	}
	// Before the end, every reservation is rejected regardless of status.
	for _, id := range []uint64{res.ID, pending.ID} {
		if _, err := e.feedback.Submit(ctx, e.student, id, 5, ""); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("early feedback on %d: %v", id, err)
		}
	}

	e.clock.Set(monday(11, 0))
	if _, err := e.feedback.Submit(ctx, e.student, res.ID, 5, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("feedback exactly at end: %v", err)
	}

	e.clock.Set(monday(14, 0))
	if _, err := e.feedback.Submit(ctx, e.stranger, res.ID, 5, ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("stranger feedback: %v", err)
	}
	if _, err := e.feedback.Submit(ctx, e.student, pending.ID, 5, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("feedback on pending: %v", err)
	}
	fb, err := e.feedback.Submit(ctx, e.student, res.ID, 4, "  Great venue  ")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if fb.Comments != "Great venue" || fb.Rating != 4 {
		t.Fatalf("feedback = %+v", fb)
	}
	if _, err := e.feedback.Submit(ctx, e.student, res.ID, 3, ""); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second feedback: %v", err)
	}
	if !containsMessage(e.messages(t, e.admin), "New feedback received for reservation #") {
		t.Fatalf("admin messages = %v", e.messages(t, e.admin))
	}

	got, err := e.feedback.ForReservation(ctx, e.admin, res.ID)
	if err != nil || got.ID != fb.ID {
		t.Fatalf("for reservation = %+v, %v", got, err)
	}
	if _, err := e.feedback.ForReservation(ctx, e.stranger, res.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("stranger read: %v", err)
	}
	past, err := e.reservations.PastApproved(ctx, e.student)
	if err != nil || len(past) != 1 || !past[0].FeedbackSubmitted {
		t.Fatalf("past approved = %+v, %v", past, err)
	}
	all, err := e.feedback.ListAll(ctx, e.admin, 0, 10)
	if err != nil || len(all) != 1 {
		t.Fatalf("list all = %d, %v", len(all), err)
	}
}

func TestCalendarAndCatalog(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	in := e.approved(t, monday(10, 0), monday(11, 0))
	e.create(t, e.student, monday(12, 0), monday(13, 0))

	cal, err := e.reservations.Calendar(ctx, e.admin, monday(0, 0), monday(23, 0), 0)
	if err != nil || len(cal) != 1 || cal[0].ID != in.ID {
		t.Fatalf("calendar = %v, %v", cal, err)
	}
	if _, err := e.reservations.Calendar(ctx, e.admin, monday(23, 0), monday(0, 0), 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("inverted calendar window: %v", err)
	}
	if _, err := e.reservations.Calendar(ctx, e.student, monday(0, 0), monday(23, 0), 0); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("student calendar: %v", err)
	}

	if _, err := e.catalog.CreateHall(ctx, e.student, "Gym", 10); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("student creating hall: %v", err)
	}
	if _, err := e.catalog.CreateHall(ctx, e.admin, "Gym", 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("zero capacity: %v", err)
	}
	if _, err := e.catalog.CreateHall(ctx, e.admin, "PE Hall", 10); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("duplicate hall: %v", err)
	}
	h, err := e.catalog.UpdateHall(ctx, e.admin, e.other.ID, "PE Hall", 450)
	if err != nil || h.Capacity != 450 {
		t.Fatalf("update hall = %+v, %v", h, err)
	}
	if _, err := e.catalog.UpdateHall(ctx, e.admin, 404, "Ghost", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("update missing hall: %v", err)
	}
	if err := e.catalog.DeleteResource(ctx, e.admin, e.mic.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("delete attached resource: %v", err)
	}
	users, err := e.catalog.ListUsers(ctx, e.admin, 0, 10)
	if err != nil || len(users) != 3 {
		t.Fatalf("users = %d, %v", len(users), err)
	}
}

func TestNotificationInbox(t *testing.T) {
	t.Parallel()
	e := newEnv(t, config.PolicyPendingAndApproved)
	ctx := context.Background()

	e.approved(t, monday(10, 0), monday(11, 0))
	if n, _ := e.inbox.UnreadCount(ctx, e.student); n != 1 {
		t.Fatalf("student unread = %d", n)
	}
	if n, _ := e.inbox.UnreadCount(ctx, e.admin); n != 1 {
		t.Fatalf("admin unread = %d", n)
	}
	list, _ := e.inbox.List(ctx, e.student, 0, 10)
	if err := e.inbox.MarkRead(ctx, e.stranger, list[0].ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("stranger mark read: %v", err)
	}
	if err := e.inbox.MarkRead(ctx, e.student, list[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n, _ := e.inbox.MarkAllRead(ctx, e.admin); n != 1 {
		t.Fatalf("admin mark all = %d", n)
	}
	if n, _ := e.inbox.UnreadCount(ctx, e.admin); n != 0 {
		t.Fatalf("admin unread after mark all = %d", n)
	}
}
