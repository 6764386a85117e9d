package repository // repository holds data access logic for domain entities

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/model"
)

// HallRepo provides methods to create, list and update halls.
type HallRepo struct {
	db *sql.DB
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo {
	return &HallRepo{db: db}
}

const hallColumns = `id, name, capacity, created_at_ms, updated_at_ms`

func scanHall(row interface{ Scan(...any) error }) (*model.Hall, error) {
	var (
		h                  model.Hall
		createdMs, updated int64
	)
	if err := row.Scan(&h.ID, &h.Name, &h.Capacity, &createdMs, &updated); err != nil {
		return nil, err
	}
	h.CreatedAt = fromMillis(createdMs)
	h.UpdatedAt = fromMillis(updated)
	return &h, nil
}

// Create inserts a new hall and sets its ID and timestamps.  A duplicate
// name is a Conflict.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall, now time.Time) error {
	const q = `INSERT INTO halls (name, capacity, created_at_ms, updated_at_ms) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, h.Name, h.Capacity, toMillis(now), toMillis(now))
	if err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("a hall with this name already exists")
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	h.CreatedAt = now.UTC().Truncate(time.Millisecond)
	h.UpdatedAt = h.CreatedAt
	return nil
}

// GetByID retrieves a hall.  A missing hall is NotFound.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	h, err := scanHall(r.db.QueryRowContext(ctx, `SELECT `+hallColumns+` FROM halls WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "hall")
	}
	return h, nil
}

// List returns every hall ordered by name.
func (r *HallRepo) List(ctx context.Context) ([]*model.Hall, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+hallColumns+` FROM halls ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Hall, 0)
	for rows.Next() {
		h, err := scanHall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Update changes a hall's name and capacity.
func (r *HallRepo) Update(ctx context.Context, h *model.Hall, now time.Time) error {
	const q = `UPDATE halls SET name = ?, capacity = ?, updated_at_ms = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, h.Name, h.Capacity, toMillis(now), h.ID); err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("a hall with this name already exists")
		}
		return err
	}
	// MySQL reports zero affected rows for an unchanged row, so re-read
	// instead of trusting RowsAffected.
	updated, err := r.GetByID(ctx, h.ID)
	if err != nil {
		return err
	}
	*h = *updated
	return nil
}

// LockTx takes a row lock on the hall for the rest of tx.  Approvals in the
// same hall serialise on it; the no-op UPDATE works on both dialects.
func (r *HallRepo) LockTx(ctx context.Context, tx *sql.Tx, hallID uint64) error {
	res, err := tx.ExecContext(ctx, `UPDATE halls SET updated_at_ms = updated_at_ms WHERE id = ?`, hallID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM halls WHERE id = ?`, hallID).Scan(&one)
		return notFound(err, "hall")
	}
	return nil
}

// ResourceRepo manages the resource catalogue.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo constructs a ResourceRepo.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// Create inserts a resource.  A duplicate name is a Conflict.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	result, err := r.db.ExecContext(ctx, `INSERT INTO resources (name) VALUES (?)`, res.Name)
	if err != nil {
		if isDuplicate(err) {
			return apperr.Conflict("a resource with this name already exists")
		}
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// List returns the catalogue ordered by name.
func (r *ResourceRepo) List(ctx context.Context) ([]model.Resource, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM resources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Resource, 0)
	for rows.Next() {
		var res model.Resource
		if err := rows.Scan(&res.ID, &res.Name); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// GetByIDs returns the resources with the given ids keyed by id.  Unknown
// ids are simply absent from the map.
func (r *ResourceRepo) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]model.Resource, error) {
	out := make(map[uint64]model.Resource, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM resources WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var res model.Resource
		if err := rows.Scan(&res.ID, &res.Name); err != nil {
			return nil, err
		}
		out[res.ID] = res
	}
	return out, rows.Err()
}

// Delete removes a resource.  Resources still attached to a reservation
// cannot be deleted (Conflict).
func (r *ResourceRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperr.Conflict("resource is attached to existing reservations")
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("resource not found")
	}
	return nil
}
