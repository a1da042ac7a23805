package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/models"
)

var bookingColumns = []string{
	"id", "venue_id", "manager_id", "organizer_id", "start_date", "end_date", "status",
	"event_name", "description", "expected_attendees", "created_at", "updated_at",
}

func newBooking(start time.Time) *models.Booking {
	return &models.Booking{
		ID:          "b1",
		VenueID:     "v1",
		OrganizerID: "o1",
		StartDate:   start,
		EndDate:     start.Add(3 * time.Hour),
		EventName:   "Tech Summit",
		Description: "Annual summit",
	}
}

func TestBookingCreateLocksVenueChecksOverlapThenInserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT manager_id FROM venues WHERE id = \$1 FOR UPDATE`).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows([]string{"manager_id"}).AddRow("m1"))
	mock.ExpectQuery(`SELECT id FROM bookings\s+WHERE venue_id = \$1\s+AND status = 'APPROVED'`).
		WithArgs("v1", "b1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	b := newBooking(start)
	if err := NewBookingRepository(db).Create(context.Background(), b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Status != models.StatusPending {
		t.Fatalf("expected PENDING, got %s", b.Status)
	}
	if b.VenueManagerID != "m1" {
		t.Fatalf("expected manager m1, got %q", b.VenueManagerID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookingCreateConflictRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT manager_id FROM venues`).
		WillReturnRows(sqlmock.NewRows([]string{"manager_id"}).AddRow("m1"))
	mock.ExpectQuery(`SELECT id FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))
	mock.ExpectRollback()

	err = NewBookingRepository(db).Create(context.Background(), newBooking(time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)))
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Metadata["conflicting_booking_id"] != "a1" {
		t.Fatalf("expected conflicting booking id, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookingCreateUnknownVenue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT manager_id FROM venues`).
		WillReturnRows(sqlmock.NewRows([]string{"manager_id"}))
	mock.ExpectRollback()

	err = NewBookingRepository(db).Create(context.Background(), newBooking(time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)))
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookingCreateExclusionViolationIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT manager_id FROM venues`).
		WillReturnRows(sqlmock.NewRows([]string{"manager_id"}).AddRow("m1"))
	mock.ExpectQuery(`SELECT id FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnError(&pq.Error{Code: "23P01", Constraint: "bookings_no_approved_overlap"})
	mock.ExpectRollback()

	err = NewBookingRepository(db).Create(context.Background(), newBooking(time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)))
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestBookingApproveLocksVenueThenBooking(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT venue_id FROM bookings WHERE id = \$1`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"venue_id"}).AddRow("v1"))
	mock.ExpectQuery(`SELECT manager_id FROM venues WHERE id = \$1 FOR UPDATE`).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows([]string{"manager_id"}).AddRow("m1"))
	mock.ExpectQuery(`WHERE b\.id = \$1 FOR UPDATE OF b`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow("b1", "v1", "m1", "o1", start, start.Add(3*time.Hour), "PENDING", "Tech Summit", "Annual summit", nil, now, now))
	mock.ExpectQuery(`SELECT id FROM bookings`).
		WithArgs("v1", "b1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`UPDATE bookings SET status = \$1`).
		WithArgs(models.StatusApproved, "b1", models.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	guarded := false
	got, err := NewBookingRepository(db).UpdateStatus(context.Background(), "b1", models.StatusApproved, func(b *models.Booking) error {
		guarded = true
		if b.VenueManagerID != "m1" {
			t.Errorf("guard saw manager %q", b.VenueManagerID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if !guarded {
		t.Fatalf("expected guard to run")
	}
	if got.Status != models.StatusApproved {
		t.Fatalf("expected APPROVED, got %s", got.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookingUpdateStatusGuardErrorRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT venue_id FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"venue_id"}).AddRow("v1"))
	mock.ExpectQuery(`SELECT manager_id FROM venues`).
		WillReturnRows(sqlmock.NewRows([]string{"manager_id"}).AddRow("m1"))
	mock.ExpectQuery(`FOR UPDATE OF b`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow("b1", "v1", "m1", "o1", start, start.Add(time.Hour), "PENDING", "e", "d", 100, start, start))
	mock.ExpectRollback()

	forbidden := apperrors.Forbidden("not your venue")
	_, err = NewBookingRepository(db).UpdateStatus(context.Background(), "b1", models.StatusApproved, func(*models.Booking) error {
		return forbidden
	})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookingUpdateStatusTerminalIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT venue_id FROM bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"venue_id"}).AddRow("v1"))
	mock.ExpectQuery(`SELECT manager_id FROM venues`).
		WillReturnRows(sqlmock.NewRows([]string{"manager_id"}).AddRow("m1"))
	mock.ExpectQuery(`FOR UPDATE OF b`).
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow("b1", "v1", "m1", "o1", start, start.Add(time.Hour), "DECLINED", "e", "d", nil, start, start))
	mock.ExpectRollback()

	_, err = NewBookingRepository(db).UpdateStatus(context.Background(), "b1", models.StatusApproved, nil)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Metadata["current_status"] != "DECLINED" {
		t.Fatalf("expected current status in metadata, got %v", err)
	}
}

func TestBookingDeleteCascades(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF b`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow("b1", "v1", "m1", "o1", start, start.Add(time.Hour), "APPROVED", "e", "d", nil, start, start))
	mock.ExpectQuery(`SELECT d\.object_key`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"object_key"}).AddRow("permits/p1/d1.pdf"))
	mock.ExpectExec(`DELETE FROM permit_documents`).WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM permits`).WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM bookings`).WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	keys, err := NewBookingRepository(db).Delete(context.Background(), "b1", nil)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(keys) != 1 || keys[0] != "permits/p1/d1.pdf" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
