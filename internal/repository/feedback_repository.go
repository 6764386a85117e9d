package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hall-reservation/internal/apperr"
	"github.com/iliyamo/hall-reservation/internal/model"
)

// ErrFeedbackExists is returned for a second submission on one reservation.
var ErrFeedbackExists = apperr.Conflict("feedback already submitted for this reservation")

// FeedbackRepo stores ratings left on finished reservations.
type FeedbackRepo struct{ db *sql.DB }

func NewFeedbackRepo(db *sql.DB) *FeedbackRepo { return &FeedbackRepo{db: db} }

const feedbackColumns = `id, reservation_id, rating, comments, created_at_ms`

func scanFeedback(row interface{ Scan(...any) error }) (*model.Feedback, error) {
	var (
		f         model.Feedback
		createdMs int64
	)
	if err := row.Scan(&f.ID, &f.ReservationID, &f.Rating, &f.Comments, &createdMs); err != nil {
		return nil, err
	}
	f.CreatedAt = fromMillis(createdMs)
	return &f, nil
}

// CreateTx inserts feedback within tx.  The unique index on reservation_id
// turns a concurrent duplicate into ErrFeedbackExists.
func (r *FeedbackRepo) CreateTx(ctx context.Context, tx *sql.Tx, f *model.Feedback) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO feedback (reservation_id, rating, comments, created_at_ms) VALUES (?, ?, ?, ?)`,
		f.ReservationID, f.Rating, f.Comments, toMillis(f.CreatedAt))
	if err != nil {
		if isDuplicate(err) {
			return ErrFeedbackExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	return nil
}

// GetByReservation returns the feedback for a reservation, or NotFound.
func (r *FeedbackRepo) GetByReservation(ctx context.Context, reservationID uint64) (*model.Feedback, error) {
	f, err := scanFeedback(r.db.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE reservation_id = ?`, reservationID))
	if err != nil {
		return nil, notFound(err, "feedback")
	}
	return f, nil
}

// ExistsForReservation reports whether feedback was already left.
func (r *FeedbackRepo) ExistsForReservation(ctx context.Context, reservationID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM feedback WHERE reservation_id = ?`, reservationID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns feedback newest first.
func (r *FeedbackRepo) List(ctx context.Context, skip, limit int) ([]*model.Feedback, error) {
	skip, limit = pageArgs(skip, limit)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+feedbackColumns+` FROM feedback ORDER BY created_at_ms DESC, id DESC LIMIT ? OFFSET ?`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Feedback, 0)
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
