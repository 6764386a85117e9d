package model

import "time"

// Hall is a reservable physical space.  Halls are reference data managed by
// administrators.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name, e.g. "Function Hall".
//	Capacity  – number of people the hall holds.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Hall struct {
	ID        uint64    // halls.id
	Name      string    // halls.name
	Capacity  uint32    // halls.capacity
	CreatedAt time.Time // halls.created_at_ms
	UpdatedAt time.Time // halls.updated_at_ms
}

// Resource is an orderable item or piece of equipment that can be attached
// to a reservation.
type Resource struct {
	ID   uint64 // resources.id
	Name string // resources.name (unique)
}
