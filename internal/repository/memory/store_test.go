package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

func seedVenue(t *testing.T, s *Store, id, manager string) {
	t.Helper()
	if err := s.Venues().Create(context.Background(), &models.Venue{ID: id, Name: "Hall " + id, Address: "KG 7 Ave", ManagerID: manager}); err != nil {
		t.Fatalf("create venue: %v", err)
	}
}

func TestBookingCreateRequiresVenue(t *testing.T) {
	s := NewStore()
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	err := s.Bookings().Create(context.Background(), &models.Booking{ID: "b1", VenueID: "missing", StartDate: start, EndDate: start.Add(time.Hour)})
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApproveRejectsOverlapWithApproved(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedVenue(t, s, "v1", "m1")

	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	a := &models.Booking{ID: "a", VenueID: "v1", OrganizerID: "o1", StartDate: start, EndDate: start.Add(4 * time.Hour)}
	b := &models.Booking{ID: "b", VenueID: "v1", OrganizerID: "o2", StartDate: start.Add(2 * time.Hour), EndDate: start.Add(6 * time.Hour)}
	for _, bk := range []*models.Booking{a, b} {
		if err := s.Bookings().Create(ctx, bk); err != nil {
			t.Fatalf("create %s: %v", bk.ID, err)
		}
	}

	if _, err := s.Bookings().UpdateStatus(ctx, "a", models.StatusApproved, nil); err != nil {
		t.Fatalf("approve a: %v", err)
	}
	_, err := s.Bookings().UpdateStatus(ctx, "b", models.StatusApproved, nil)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict approving b, got %v", err)
	}
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Metadata["conflicting_booking_id"] != "a" {
		t.Fatalf("expected conflicting booking a in metadata, got %v", err)
	}

	got, err := s.Bookings().GetByID(ctx, "b")
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	if got.Status != models.StatusPending {
		t.Fatalf("expected b to stay pending, got %s", got.Status)
	}
	if got.VenueManagerID != "m1" {
		t.Fatalf("expected venue manager m1, got %q", got.VenueManagerID)
	}
}

func TestVenueDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedVenue(t, s, "v1", "m1")

	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	if err := s.Bookings().Create(ctx, &models.Booking{ID: "b1", VenueID: "v1", OrganizerID: "o1", StartDate: start, EndDate: start.Add(time.Hour)}); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if err := s.Permits().Create(ctx, &models.Permit{ID: "p1", BookingID: "b1", ApplicantID: "o1", Type: models.PermitOther, Details: "x"}, nil); err != nil {
		t.Fatalf("create permit: %v", err)
	}
	if err := s.Permits().AddDocument(ctx, &models.PermitDocument{ID: "d1", PermitID: "p1", ObjectKey: "permits/p1/d1.pdf"}, nil); err != nil {
		t.Fatalf("add document: %v", err)
	}

	keys, err := s.Venues().Delete(ctx, "v1", nil)
	if err != nil {
		t.Fatalf("delete venue: %v", err)
	}
	if len(keys) != 1 || keys[0] != "permits/p1/d1.pdf" {
		t.Fatalf("expected removed document key, got %v", keys)
	}
	if _, err := s.Bookings().GetByID(ctx, "b1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected booking gone, got %v", err)
	}
	if _, err := s.Permits().GetByID(ctx, "p1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected permit gone, got %v", err)
	}
}

func TestGuardErrorAbortsUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedVenue(t, s, "v1", "m1")

	denied := errors.New("denied")
	name := "Renamed"
	_, err := s.Venues().Update(ctx, "v1", &models.UpdateVenueRequest{Name: &name}, func(*models.Venue) error { return denied })
	if !errors.Is(err, denied) {
		t.Fatalf("expected guard error, got %v", err)
	}
	v, _ := s.Venues().GetByID(ctx, "v1")
	if v.Name != "Hall v1" {
		t.Fatalf("expected name unchanged, got %q", v.Name)
	}
}

func TestSearchFiltersKeywordAndLatitude(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, v := range []models.Venue{
		{ID: "1", Name: "Kigali Arena", Address: "KG 17 Ave", Latitude: -1.95, ManagerID: "m"},
		{ID: "2", Name: "Serena Hotel", Address: "Kigali, KN 3 Ave", Latitude: -1.94, ManagerID: "m"},
		{ID: "3", Name: "Nairobi Hall", Address: "Moi Ave", Latitude: -1.29, ManagerID: "m"},
	} {
		v := v
		if err := s.Venues().Create(ctx, &v); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := s.Venues().Search(ctx, interfaces.VenueFilter{Keyword: "kigali"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 keyword matches, got %d", len(got))
	}

	minLat, maxLat := -2.0, -1.5
	got, err = s.Venues().Search(ctx, interfaces.VenueFilter{MinLat: &minLat, MaxLat: &maxLat})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 venues in band, got %d", len(got))
	}
}
