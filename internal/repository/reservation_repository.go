package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and their
// attached resources.  Resource selections live in reservation_resources;
// free-text extras are stored as a JSON array in reservations.other_resources.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationFilter narrows the admin listing.  Zero values mean "any".
// From and To keep reservations that lie entirely inside the window.
type ReservationFilter struct {
	Status *model.ReservationStatus
	HallID uint64
	UserID uint64
	From   *time.Time
	To     *time.Time
	Skip   int
	Limit  int
}

// PastReservation is an ended APPROVED reservation plus whether feedback
// was already left for it.
type PastReservation struct {
	Reservation       *model.Reservation
	FeedbackSubmitted bool
}

const reservationSelect = `SELECT r.id, r.user_id, r.hall_id, h.name, r.start_ms, r.end_ms,
       r.description, r.status, r.admin_message, r.other_resources,
       r.created_at_ms, r.updated_at_ms
  FROM reservations r
  JOIN halls h ON h.id = r.hall_id`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var (
		res                  model.Reservation
		startMs, endMs       int64
		createdMs, updatedMs int64
		status, other        string
		adminMsg             sql.NullString
	)
	if err := row.Scan(
		&res.ID, &res.UserID, &res.HallID, &res.HallName, &startMs, &endMs,
		&res.Description, &status, &adminMsg, &other,
		&createdMs, &updatedMs,
	); err != nil {
		return nil, err
	}
	st, err := model.ParseReservationStatus(status)
	if err != nil {
		return nil, fmt.Errorf("reservation %d: %w", res.ID, err)
	}
	res.Status = st
	// rows satisfy end_ms > start_ms by a CHECK constraint
	res.Range = model.TimeRange{Start: fromMillis(startMs), End: fromMillis(endMs)}
	if adminMsg.Valid {
		msg := adminMsg.String
		res.AdminMessage = &msg
	}
	res.OtherResources = []string{}
	if strings.TrimSpace(other) != "" {
		if err := json.Unmarshal([]byte(other), &res.OtherResources); err != nil {
			return nil, fmt.Errorf("reservation %d other_resources: %w", res.ID, err)
		}
	}
	res.Resources = []model.ResourceSelection{}
	res.CreatedAt = fromMillis(createdMs)
	res.UpdatedAt = fromMillis(updatedMs)
	return &res, nil
}

func encodeOther(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateTx inserts a reservation and its resource selections within tx.  It
// sets the generated ID on res.  The caller must commit or roll back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	other, err := encodeOther(res.OtherResources)
	if err != nil {
		return err
	}
	const q = `INSERT INTO reservations
	  (user_id, hall_id, start_ms, end_ms, description, status, admin_message, other_resources, created_at_ms, updated_at_ms)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		res.UserID, res.HallID, toMillis(res.Range.Start), toMillis(res.Range.End),
		res.Description, string(res.Status), res.AdminMessage, other,
		toMillis(res.CreatedAt), toMillis(res.UpdatedAt),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return r.insertResourcesTx(ctx, tx, res.ID, res.Resources)
}

// insertResourcesTx inserts all selections in a single statement.  An empty
// slice is a no-op.
func (r *ReservationRepo) insertResourcesTx(ctx context.Context, tx *sql.Tx, reservationID uint64, sel []model.ResourceSelection) error {
	if len(sel) == 0 {
		return nil
	}
	query := `INSERT INTO reservation_resources (reservation_id, resource_id, quantity) VALUES `
	args := make([]any, 0, len(sel)*3)
	for i, s := range sel {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, reservationID, s.ResourceID, s.Quantity)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// UpdatePendingTx rewrites the editable fields of a reservation that is
// still PENDING and replaces its resource selections.  If the row is no
// longer PENDING the update is a Conflict.
func (r *ReservationRepo) UpdatePendingTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	other, err := encodeOther(res.OtherResources)
	if err != nil {
		return err
	}
	const q = `UPDATE reservations
	   SET hall_id = ?, start_ms = ?, end_ms = ?, description = ?, other_resources = ?, updated_at_ms = ?
	 WHERE id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, q,
		res.HallID, toMillis(res.Range.Start), toMillis(res.Range.End), res.Description, other,
		toMillis(res.UpdatedAt), res.ID, string(model.StatusPending),
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// MySQL also reports zero for an unchanged row; only a status
		// change is a lost race.
		st, err := r.statusTx(ctx, tx, res.ID)
		if err != nil {
			return err
		}
		if st != model.StatusPending {
			return apperr.Conflict("reservation no longer in PENDING state")
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_resources WHERE reservation_id = ?`, res.ID); err != nil {
		return err
	}
	return r.insertResourcesTx(ctx, tx, res.ID, res.Resources)
}

// SetStatusTx moves a reservation from one status to another with a
// compare-and-set on the current status.  adminMessage replaces the stored
// message when non-nil.  Zero affected rows means another writer won.
func (r *ReservationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, from, to model.ReservationStatus, adminMessage *string, now time.Time) error {
	q := `UPDATE reservations SET status = ?, updated_at_ms = ?`
	args := []any{string(to), toMillis(now)}
	if adminMessage != nil {
		q += `, admin_message = ?`
		args = append(args, *adminMessage)
	}
	q += ` WHERE id = ? AND status = ?`
	args = append(args, id, string(from))

	result, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.Conflict(fmt.Sprintf("reservation no longer in %s state", from))
	}
	return nil
}

func (r *ReservationRepo) statusTx(ctx context.Context, tx *sql.Tx, id uint64) (model.ReservationStatus, error) {
	var st string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM reservations WHERE id = ?`, id).Scan(&st); err != nil {
		return "", notFound(err, "reservation")
	}
	return model.ParseReservationStatus(st)
}

// GetByID loads a reservation with its resources.  A missing row is NotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, reservationSelect+` WHERE r.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "reservation")
	}
	if err := r.loadResources(ctx, r.db, []*model.Reservation{res}); err != nil {
		return nil, err
	}
	return res, nil
}

// ListByUser returns the user's reservations newest first, optionally
// restricted to one status.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, status *model.ReservationStatus) ([]*model.Reservation, error) {
	return r.List(ctx, ReservationFilter{UserID: userID, Status: status, Limit: 500})
}

// List returns reservations matching f ordered by start time descending.
func (r *ReservationRepo) List(ctx context.Context, f ReservationFilter) ([]*model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != nil {
		where = append(where, "r.status = ?")
		args = append(args, string(*f.Status))
	}
	if f.HallID != 0 {
		where = append(where, "r.hall_id = ?")
		args = append(args, f.HallID)
	}
	if f.UserID != 0 {
		where = append(where, "r.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.From != nil {
		where = append(where, "r.start_ms >= ?")
		args = append(args, toMillis(*f.From))
	}
	if f.To != nil {
		where = append(where, "r.end_ms <= ?")
		args = append(args, toMillis(*f.To))
	}
	q := reservationSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	skip, limit := pageArgs(f.Skip, f.Limit)
	q += " ORDER BY r.start_ms DESC, r.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, skip)
	return r.query(ctx, r.db, q, args...)
}

// ListOverlapping returns reservations of hallID whose status is in
// statuses and whose range intersects rng, skipping excludeID (0 = none).
func (r *ReservationRepo) ListOverlapping(ctx context.Context, hallID uint64, rng model.TimeRange, statuses []model.ReservationStatus, excludeID uint64) ([]*model.Reservation, error) {
	return r.listOverlapping(ctx, r.db, hallID, rng, statuses, excludeID)
}

// ListOverlappingTx is ListOverlapping inside tx.
func (r *ReservationRepo) ListOverlappingTx(ctx context.Context, tx *sql.Tx, hallID uint64, rng model.TimeRange, statuses []model.ReservationStatus, excludeID uint64) ([]*model.Reservation, error) {
	return r.listOverlapping(ctx, tx, hallID, rng, statuses, excludeID)
}

func (r *ReservationRepo) listOverlapping(ctx context.Context, q Querier, hallID uint64, rng model.TimeRange, statuses []model.ReservationStatus, excludeID uint64) ([]*model.Reservation, error) {
	if len(statuses) == 0 {
		return []*model.Reservation{}, nil
	}
	args := []any{hallID, toMillis(rng.End), toMillis(rng.Start), excludeID}
	for _, st := range statuses {
		args = append(args, string(st))
	}
	query := reservationSelect + `
	 WHERE r.hall_id = ? AND r.start_ms < ? AND r.end_ms > ? AND r.id <> ?
	   AND r.status IN (` + placeholders(len(statuses)) + `)
	 ORDER BY r.start_ms`
	return r.query(ctx, q, query, args...)
}

// ListApprovedInWindow returns APPROVED reservations lying entirely inside
// [from, to], optionally for one hall, in start order.
func (r *ReservationRepo) ListApprovedInWindow(ctx context.Context, from, to time.Time, hallID uint64) ([]*model.Reservation, error) {
	q := reservationSelect + ` WHERE r.status = ? AND r.start_ms >= ? AND r.end_ms <= ?`
	args := []any{string(model.StatusApproved), toMillis(from), toMillis(to)}
	if hallID != 0 {
		q += ` AND r.hall_id = ?`
		args = append(args, hallID)
	}
	q += ` ORDER BY r.start_ms, r.id`
	return r.query(ctx, r.db, q, args...)
}

// ListPastApproved returns the user's APPROVED reservations that ended
// before now, newest first, flagged with whether feedback exists.
func (r *ReservationRepo) ListPastApproved(ctx context.Context, userID uint64, now time.Time) ([]PastReservation, error) {
	q := strings.Replace(reservationSelect, "SELECT ", "SELECT (f.id IS NOT NULL), ", 1) + `
	  LEFT JOIN feedback f ON f.reservation_id = r.id
	 WHERE r.user_id = ? AND r.status = ? AND r.end_ms < ?
	 ORDER BY r.end_ms DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, string(model.StatusApproved), toMillis(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]PastReservation, 0)
	list := make([]*model.Reservation, 0)
	for rows.Next() {
		var submitted bool
		res, err := scanReservation(prefixScanner{rows, &submitted})
		if err != nil {
			return nil, err
		}
		out = append(out, PastReservation{Reservation: res, FeedbackSubmitted: submitted})
		list = append(list, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if err := r.loadResources(ctx, r.db, list); err != nil {
		return nil, err
	}
	return out, nil
}

// prefixScanner scans one leading column into first before the
// reservation columns.
type prefixScanner struct {
	rows  *sql.Rows
	first any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.rows.Scan(append([]any{p.first}, dest...)...)
}

func (r *ReservationRepo) query(ctx context.Context, q Querier, query string, args ...any) ([]*model.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// release the connection before the follow-up query; sqlite runs with
	// a single connection
	rows.Close()
	if err := r.loadResources(ctx, q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadResources fills Resources for all reservations in a single query.
func (r *ReservationRepo) loadResources(ctx context.Context, q Querier, list []*model.Reservation) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[uint64]*model.Reservation, len(list))
	ids := make([]any, 0, len(list))
	for _, res := range list {
		index[res.ID] = res
		ids = append(ids, res.ID)
	}
	query := `SELECT rr.reservation_id, rr.resource_id, rs.name, rr.quantity
	            FROM reservation_resources rr
	            JOIN resources rs ON rs.id = rr.resource_id
	           WHERE rr.reservation_id IN (` + placeholders(len(ids)) + `)
	           ORDER BY rr.reservation_id, rs.name`
	rows, err := q.QueryContext(ctx, query, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			rid uint64
			sel model.ResourceSelection
		)
		if err := rows.Scan(&rid, &sel.ResourceID, &sel.ResourceName, &sel.Quantity); err != nil {
			return err
		}
		if res, ok := index[rid]; ok {
			res.Resources = append(res.Resources, sel)
		}
	}
	return rows.Err()
}
