package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) interfaces.BookingRepository {
	return &bookingRepository{db: db}
}

const selectBooking = `
	SELECT b.id, b.venue_id, v.manager_id, b.organizer_id, b.start_date, b.end_date, b.status,
		b.event_name, b.description, b.expected_attendees, b.created_at, b.updated_at
	FROM bookings b
	JOIN venues v ON v.id = b.venue_id
`

func scanBooking(s scanner) (*models.Booking, error) {
	var (
		b         models.Booking
		attendees sql.NullInt64
	)
	err := s.Scan(&b.ID, &b.VenueID, &b.VenueManagerID, &b.OrganizerID, &b.StartDate, &b.EndDate, &b.Status,
		&b.EventName, &b.Description, &attendees, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.ExpectedAttendees = intPtr(attendees)
	return &b, nil
}

// Create serializes on the venue row: the venue lock is held from the
// overlap check through the insert.
func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		managerID, err := lockVenueRow(ctx, tx, booking.VenueID)
		if err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, booking.VenueID, booking.ID, booking.StartDate, booking.EndDate); err != nil {
			return err
		}

		booking.Status = models.StatusPending
		booking.VenueManagerID = managerID
		query := `
			INSERT INTO bookings (id, venue_id, organizer_id, start_date, end_date, status, event_name, description, expected_attendees)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING created_at, updated_at
		`
		return tx.QueryRowContext(ctx, query,
			booking.ID, booking.VenueID, booking.OrganizerID, booking.StartDate, booking.EndDate,
			booking.Status, booking.EventName, booking.Description, nullableInt(booking.ExpectedAttendees),
		).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	})
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, selectBooking+` WHERE b.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("booking", id)
	}
	if err != nil {
		return nil, translate(err, "get booking")
	}
	return b, nil
}

func (r *bookingRepository) List(ctx context.Context, filter interfaces.BookingFilter) ([]models.Booking, error) {
	query := selectBooking + ` WHERE 1=1`
	args := []any{}
	argPos := 1
	if filter.OrganizerID != "" {
		query += fmt.Sprintf(` AND b.organizer_id = $%d`, argPos)
		args = append(args, filter.OrganizerID)
		argPos++
	}
	if filter.ManagerID != "" {
		query += fmt.Sprintf(` AND v.manager_id = $%d`, argPos)
		args = append(args, filter.ManagerID)
	}
	query += ` ORDER BY b.created_at DESC, b.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "list bookings")
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, translate(err, "list bookings")
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "list bookings")
	}
	return bookings, nil
}

// UpdateStatus takes the venue lock before the booking lock, the same
// order Create uses, so approvals and submissions on one venue serialize.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, next models.Status, guard interfaces.BookingGuard) (*models.Booking, error) {
	var out *models.Booking
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var venueID string
		err := tx.QueryRowContext(ctx, `SELECT venue_id FROM bookings WHERE id = $1`, id).Scan(&venueID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("booking", id)
		}
		if err != nil {
			return err
		}
		if _, err := lockVenueRow(ctx, tx, venueID); err != nil {
			return err
		}

		b, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(b); err != nil {
				return err
			}
		}
		if !b.Status.CanTransition(next) {
			return notPending("booking", id, b.Status)
		}
		if next == models.StatusApproved {
			if err := checkOverlap(ctx, tx, b.VenueID, b.ID, b.StartDate, b.EndDate); err != nil {
				return err
			}
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE bookings SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status = $3
			RETURNING updated_at
		`, next, id, models.StatusPending).Scan(&b.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return notPending("booking", id, b.Status)
		}
		if err != nil {
			return err
		}
		b.Status = next
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookingRepository) Delete(ctx context.Context, id string, guard interfaces.BookingGuard) ([]string, error) {
	var keys []string
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		b, err := lockBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(b); err != nil {
				return err
			}
		}

		keys, err = queryStrings(ctx, tx, `
			SELECT d.object_key
			FROM permit_documents d
			JOIN permits p ON p.id = d.permit_id
			WHERE p.booking_id = $1
			ORDER BY d.object_key
		`, id)
		if err != nil {
			return err
		}

		stmts := []string{
			`DELETE FROM permit_documents WHERE permit_id IN (SELECT id FROM permits WHERE booking_id = $1)`,
			`DELETE FROM permits WHERE booking_id = $1`,
			`DELETE FROM bookings WHERE id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func lockVenueRow(ctx context.Context, tx *sql.Tx, venueID string) (string, error) {
	var managerID string
	err := tx.QueryRowContext(ctx, `SELECT manager_id FROM venues WHERE id = $1 FOR UPDATE`, venueID).Scan(&managerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NotFound("venue", venueID)
	}
	return managerID, err
}

func lockBooking(ctx context.Context, tx *sql.Tx, id string) (*models.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx, selectBooking+` WHERE b.id = $1 FOR UPDATE OF b`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("booking", id)
	}
	return b, err
}

// checkOverlap fails with a conflict when an approved booking on venueID,
// other than excludeID, intersects [start, end).
func checkOverlap(ctx context.Context, tx *sql.Tx, venueID, excludeID string, start, end time.Time) error {
	var conflicting string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM bookings
		WHERE venue_id = $1
		  AND status = 'APPROVED'
		  AND id <> $2
		  AND start_date < $3
		  AND end_date > $4
		LIMIT 1
	`, venueID, excludeID, end, start).Scan(&conflicting)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return apperrors.WithMetadata(apperrors.CodeConflict, "venue is already booked for an overlapping period", map[string]string{
		"venue_id":               venueID,
		"conflicting_booking_id": conflicting,
	})
}

func notPending(resource, id string, current models.Status) error {
	return apperrors.WithMetadata(apperrors.CodeConflict, resource+" is no longer pending", map[string]string{
		resource + "_id": id,
		"current_status": string(current),
	})
}
