package memory

import (
	"context"
	"sort"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

type bookingRepo struct{ s *Store }

func (r *bookingRepo) Create(_ context.Context, booking *models.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	venue, ok := r.s.venues[booking.VenueID]
	if !ok {
		return apperrors.NotFound("venue", booking.VenueID)
	}
	if err := r.overlapLocked(booking.VenueID, "", booking); err != nil {
		return err
	}

	now := r.s.now()
	booking.Status = models.StatusPending
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.VenueManagerID = venue.venue.ManagerID
	r.s.bookings[booking.ID] = bookingRecord{seq: r.s.nextSeq(), booking: *booking}
	return nil
}

func (r *bookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("booking", id)
	}
	b := r.s.bookingWithManagerLocked(rec)
	return &b, nil
}

func (r *bookingRepo) List(_ context.Context, filter interfaces.BookingFilter) ([]models.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := make([]bookingRecord, 0, len(r.s.bookings))
	for _, rec := range r.s.bookings {
		if filter.OrganizerID != "" && rec.booking.OrganizerID != filter.OrganizerID {
			continue
		}
		if filter.ManagerID != "" {
			v, ok := r.s.venues[rec.booking.VenueID]
			if !ok || v.venue.ManagerID != filter.ManagerID {
				continue
			}
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return newestFirst(recs[i].booking.CreatedAt, recs[j].booking.CreatedAt, recs[i].seq, recs[j].seq)
	})
	out := make([]models.Booking, len(recs))
	for i, rec := range recs {
		out[i] = r.s.bookingWithManagerLocked(rec)
	}
	return out, nil
}

func (r *bookingRepo) UpdateStatus(_ context.Context, id string, next models.Status, guard interfaces.BookingGuard) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("booking", id)
	}
	current := r.s.bookingWithManagerLocked(rec)
	if guard != nil {
		if err := guard(&current); err != nil {
			return nil, err
		}
	}
	if !current.Status.CanTransition(next) {
		return nil, apperrors.WithMetadata(apperrors.CodeConflict, "booking is no longer pending", map[string]string{
			"booking_id":     id,
			"current_status": string(current.Status),
		})
	}
	if next == models.StatusApproved {
		if err := r.overlapLocked(current.VenueID, id, &current); err != nil {
			return nil, err
		}
	}

	rec.booking.Status = next
	rec.booking.UpdatedAt = r.s.now()
	r.s.bookings[id] = rec
	out := r.s.bookingWithManagerLocked(rec)
	return &out, nil
}

func (r *bookingRepo) Delete(_ context.Context, id string, guard interfaces.BookingGuard) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("booking", id)
	}
	if guard != nil {
		b := r.s.bookingWithManagerLocked(rec)
		if err := guard(&b); err != nil {
			return nil, err
		}
	}
	keys := r.s.cascadeBookingLocked(id)
	delete(r.s.bookings, id)
	return keys, nil
}

// overlapLocked reports a conflict when an approved booking on venueID,
// other than excludeID, intersects candidate's range.
func (r *bookingRepo) overlapLocked(venueID, excludeID string, candidate *models.Booking) error {
	for _, rec := range r.s.bookings {
		b := rec.booking
		if b.VenueID != venueID || b.ID == excludeID || b.Status != models.StatusApproved {
			continue
		}
		if b.Overlaps(candidate.StartDate, candidate.EndDate) {
			return overlapConflict(b)
		}
	}
	return nil
}
