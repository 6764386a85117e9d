package model

import (
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperr"
)

// ErrInvalidRange is returned when a range does not end strictly after it
// starts.  It is a validation error.
var ErrInvalidRange = apperr.Validation("end time must be after start time")

// TimeRange is the half-open interval [Start, End).  Both bounds are kept in
// UTC.  The zero value is not a valid range; build one with NewTimeRange.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange validates ordering and returns the range.  Bounds are
// truncated to the millisecond, the precision they are stored at, so
// zero-length and inverted ranges are judged on the persisted values and
// fail with ErrInvalidRange.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	start = start.UTC().Truncate(time.Millisecond)
	end = end.UTC().Truncate(time.Millisecond)
	if !end.After(start) {
		return TimeRange{}, ErrInvalidRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// Overlaps reports whether the two ranges share any instant.  Touching
// boundaries (a.End == b.Start) do not overlap.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Within reports whether r lies entirely inside outer.
func (r TimeRange) Within(outer TimeRange) bool {
	return !r.Start.Before(outer.Start) && !r.End.After(outer.End)
}

func (r TimeRange) Duration() time.Duration { return r.End.Sub(r.Start) }
