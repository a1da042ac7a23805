package memory

import (
	"context"
	"sort"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

type venueRepo struct{ s *Store }

func (r *venueRepo) Create(_ context.Context, venue *models.Venue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	venue.CreatedAt = now
	venue.UpdatedAt = now
	r.s.venues[venue.ID] = venueRecord{seq: r.s.nextSeq(), venue: *venue}
	return nil
}

func (r *venueRepo) GetByID(_ context.Context, id string) (*models.Venue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.venues[id]
	if !ok {
		return nil, apperrors.NotFound("venue", id)
	}
	v := rec.venue
	return &v, nil
}

func (r *venueRepo) List(_ context.Context, managerID string) ([]models.Venue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := make([]venueRecord, 0, len(r.s.venues))
	for _, rec := range r.s.venues {
		if managerID != "" && rec.venue.ManagerID != managerID {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return newestFirst(recs[i].venue.CreatedAt, recs[j].venue.CreatedAt, recs[i].seq, recs[j].seq)
	})
	out := make([]models.Venue, len(recs))
	for i, rec := range recs {
		out[i] = rec.venue
	}
	return out, nil
}

func (r *venueRepo) Search(_ context.Context, filter interfaces.VenueFilter) ([]models.Venue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []models.Venue{}
	for _, rec := range r.s.venues {
		v := rec.venue
		if filter.Keyword != "" && !containsFold(v.Name, filter.Keyword) && !containsFold(v.Address, filter.Keyword) {
			continue
		}
		if filter.MinLat != nil && v.Latitude < *filter.MinLat {
			continue
		}
		if filter.MaxLat != nil && v.Latitude > *filter.MaxLat {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *venueRepo) Update(_ context.Context, id string, req *models.UpdateVenueRequest, guard interfaces.VenueGuard) (*models.Venue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.venues[id]
	if !ok {
		return nil, apperrors.NotFound("venue", id)
	}
	if guard != nil {
		v := rec.venue
		if err := guard(&v); err != nil {
			return nil, err
		}
	}

	v := &rec.venue
	if req.Name != nil {
		v.Name = *req.Name
	}
	if req.Address != nil {
		v.Address = *req.Address
	}
	if req.Latitude != nil {
		v.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		v.Longitude = *req.Longitude
	}
	if req.Capacity != nil {
		c := *req.Capacity
		v.Capacity = &c
	}
	if req.Description != nil {
		v.Description = *req.Description
	}
	v.UpdatedAt = r.s.now()
	r.s.venues[id] = rec

	out := rec.venue
	return &out, nil
}

func (r *venueRepo) Delete(_ context.Context, id string, guard interfaces.VenueGuard) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.venues[id]
	if !ok {
		return nil, apperrors.NotFound("venue", id)
	}
	if guard != nil {
		v := rec.venue
		if err := guard(&v); err != nil {
			return nil, err
		}
	}

	var keys []string
	for bid, b := range r.s.bookings {
		if b.booking.VenueID != id {
			continue
		}
		keys = append(keys, r.s.cascadeBookingLocked(bid)...)
		delete(r.s.bookings, bid)
	}
	delete(r.s.venues, id)
	return keys, nil
}
