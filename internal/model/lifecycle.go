package model

import (
	"fmt"
	"strings"

	"github.com/iliyamo/hall-reservation/internal/apperr"
)

// Actor is the authenticated caller of a domain operation.  It is built per
// request from the bearer token and passed explicitly; there is no
// process-wide session state.
type Actor struct {
	UserID  uint64
	IsAdmin bool
}

type transitionRule struct {
	adminOnly   bool
	needsReason bool
}

// lifecycle lists every legal edge.  Anything missing is an invalid transition.
var lifecycle = map[ReservationStatus]map[ReservationStatus]transitionRule{
	StatusPending: {
		StatusApproved:  {adminOnly: true},
		StatusDenied:    {adminOnly: true, needsReason: true},
		StatusCancelled: {},
	},
	StatusApproved: {
		StatusCancelled: {},
	},
}

// CanTransition reports whether from→to is an edge of the lifecycle,
// ignoring who triggers it.
func CanTransition(from, to ReservationStatus) bool {
	_, ok := lifecycle[from][to]
	return ok
}

// Transition checks that actor may move a reservation owned by ownerID from
// one status to another.  reason is the admin message and is only required
// when denying.
//
// Errors: InvalidTransition for any pair outside the lifecycle (including
// leaving DENIED or CANCELLED), Forbidden when the edge exists but the actor
// may not take it, Validation when a denial has no reason.
func Transition(from, to ReservationStatus, actor Actor, ownerID uint64, reason string) error {
	rule, ok := lifecycle[from][to]
	if !ok {
		if from.IsTerminal() {
			return apperr.InvalidTransition(fmt.Sprintf("reservation is %s and can no longer change", from))
		}
		return apperr.InvalidTransition(fmt.Sprintf("cannot move reservation from %s to %s", from, to))
	}
	if rule.adminOnly && !actor.IsAdmin {
		return apperr.Forbidden(fmt.Sprintf("only administrators may mark a reservation %s", to))
	}
	if !rule.adminOnly && !actor.IsAdmin && actor.UserID != ownerID {
		return apperr.Forbidden("only the owner or an administrator may cancel this reservation")
	}
	if rule.needsReason && strings.TrimSpace(reason) == "" {
		return apperr.Validation("a reason is required to deny a reservation")
	}
	return nil
}
