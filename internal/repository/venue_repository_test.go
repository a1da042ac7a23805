package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

var venueColumns = []string{"id", "name", "address", "latitude", "longitude", "capacity", "description", "manager_id", "created_at", "updated_at"}

func TestVenueSearchBuildsFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	minLat, maxLat := -2.0, -1.9
	mock.ExpectQuery(`WHERE 1=1 AND \(name ILIKE \$1 OR address ILIKE \$1\) AND latitude >= \$2 AND latitude <= \$3 ORDER BY name, id`).
		WithArgs(`%50\%%`, minLat, maxLat).
		WillReturnRows(sqlmock.NewRows(venueColumns).
			AddRow("v1", "Hall 50%", "KG 7 Ave", -1.95, 30.09, 2600, "", "m1", now, now).
			AddRow("v2", "Hall 50% Annex", "KG 7 Ave", -1.96, 30.10, nil, "", "m1", now, now))

	venues, err := NewVenueRepository(db).Search(context.Background(), interfaces.VenueFilter{Keyword: " 50% ", MinLat: &minLat, MaxLat: &maxLat})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(venues) != 2 {
		t.Fatalf("expected 2 venues, got %d", len(venues))
	}
	if venues[0].Capacity == nil || *venues[0].Capacity != 2600 {
		t.Fatalf("expected capacity 2600, got %v", venues[0].Capacity)
	}
	if venues[1].Capacity != nil {
		t.Fatalf("expected nil capacity, got %v", *venues[1].Capacity)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVenueUpdateGuardDenied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM venues\s+WHERE id = \$1 FOR UPDATE`).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows(venueColumns).AddRow("v1", "Hall", "Addr", 0.0, 0.0, nil, "", "m1", now, now))
	mock.ExpectRollback()

	name := "Renamed"
	_, err = NewVenueRepository(db).Update(context.Background(), "v1", &models.UpdateVenueRequest{Name: &name}, func(v *models.Venue) error {
		if v.ManagerID != "m2" {
			return apperrors.Forbidden("not the venue manager")
		}
		return nil
	})
	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVenueDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("v9").WillReturnRows(sqlmock.NewRows(venueColumns))
	mock.ExpectRollback()

	_, err = NewVenueRepository(db).Delete(context.Background(), "v9", nil)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestVenueDeleteLocksBookingsBeforeCascade(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`FROM venues\s+WHERE id = \$1 FOR UPDATE`).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows(venueColumns).AddRow("v1", "Hall", "Addr", 0.0, 0.0, nil, "", "m1", now, now))
	mock.ExpectQuery(`SELECT id FROM bookings WHERE venue_id = \$1 ORDER BY id FOR UPDATE`).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b1").AddRow("b2"))
	mock.ExpectQuery(`SELECT d.object_key`).
		WithArgs("v1").
		WillReturnRows(sqlmock.NewRows([]string{"object_key"}).AddRow("permits/p1/d1.pdf"))
	mock.ExpectExec(`DELETE FROM permit_documents`).WithArgs("v1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM permits`).WithArgs("v1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM bookings`).WithArgs("v1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM venues`).WithArgs("v1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	keys, err := NewVenueRepository(db).Delete(context.Background(), "v1", func(*models.Venue) error { return nil })
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(keys) != 1 || keys[0] != "permits/p1/d1.pdf" {
		t.Fatalf("unexpected object keys %v", keys)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
