package services

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/authz"
	"venuepermits/internal/geo"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

type VenueService struct {
	venues interfaces.VenueRepository
	docs   interfaces.DocumentStore
	logger *slog.Logger
}

func NewVenueService(venues interfaces.VenueRepository, docs interfaces.DocumentStore, logger *slog.Logger) *VenueService {
	return &VenueService{venues: venues, docs: docs, logger: resolveLogger(logger)}
}

func (s *VenueService) Create(ctx context.Context, p authz.Principal, req models.CreateVenueRequest) (_ *models.Venue, err error) {
	ctx, span := tracer.Start(ctx, "VenueService.Create")
	defer func() { endSpan(span, err) }()

	if err := authz.CheckRole(p, authz.VenueCreate); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	v := &models.Venue{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Address:     strings.TrimSpace(req.Address),
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Capacity:    req.Capacity,
		Description: req.Description,
		ManagerID:   p.ID,
	}
	if err := s.venues.Create(ctx, v); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "venue created", "venue_id", v.ID, "manager_id", v.ManagerID)
	return v, nil
}

func (s *VenueService) Get(ctx context.Context, id string) (*models.Venue, error) {
	return s.venues.GetByID(ctx, id)
}

// List returns the caller's own venues for venue managers and every venue
// for everyone else.
func (s *VenueService) List(ctx context.Context, p authz.Principal) ([]models.Venue, error) {
	if p.Role == models.RoleVenueManager {
		return s.venues.List(ctx, p.ID)
	}
	return s.venues.List(ctx, "")
}

// Search filters by keyword and, when the query has an origin, by
// great-circle distance. Geo results are ordered nearest first.
func (s *VenueService) Search(ctx context.Context, q models.VenueSearchQuery) (_ []models.VenueSearchResult, err error) {
	ctx, span := tracer.Start(ctx, "VenueService.Search")
	defer func() { endSpan(span, err) }()

	if err := validateSearch(&q); err != nil {
		return nil, err
	}

	filter := interfaces.VenueFilter{Keyword: strings.TrimSpace(q.Keyword)}
	if q.HasOrigin() {
		minLat, maxLat := geo.LatitudeBand(*q.Latitude, q.RadiusKm)
		filter.MinLat = &minLat
		filter.MaxLat = &maxLat
	}

	venues, err := s.venues.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	results := make([]models.VenueSearchResult, 0, len(venues))
	if !q.HasOrigin() {
		for _, v := range venues {
			results = append(results, models.VenueSearchResult{Venue: v})
		}
		return results, nil
	}

	type ranked struct {
		result models.VenueSearchResult
		exact  float64
	}
	matched := make([]ranked, 0, len(venues))
	for _, v := range venues {
		d := geo.DistanceKm(*q.Latitude, *q.Longitude, v.Latitude, v.Longitude)
		if d > q.RadiusKm {
			continue
		}
		shown := math.Round(d*1000) / 1000
		matched = append(matched, ranked{models.VenueSearchResult{Venue: v, DistanceKm: &shown}, d})
	}
	// Ordered on the unrounded distance; DistanceKm is display precision only.
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].exact < matched[j].exact })
	for _, m := range matched {
		results = append(results, m.result)
	}
	span.SetAttributes(attribute.Int("venues.matched", len(results)))
	return results, nil
}

func validateSearch(q *models.VenueSearchQuery) error {
	if (q.Latitude == nil) != (q.Longitude == nil) {
		return apperrors.Invalid("lat and long must be provided together")
	}
	if q.RadiusKm < 0 || math.IsNaN(q.RadiusKm) {
		return apperrors.Invalid("radius_km must be positive")
	}
	if !q.HasOrigin() {
		return nil
	}
	if !geo.ValidLatitude(*q.Latitude) {
		return apperrors.Invalid("lat must be between -90 and 90")
	}
	if !geo.ValidLongitude(*q.Longitude) {
		return apperrors.Invalid("long must be between -180 and 180")
	}
	if q.RadiusKm == 0 {
		q.RadiusKm = models.DefaultSearchRadiusKm
	}
	return nil
}

func (s *VenueService) Update(ctx context.Context, p authz.Principal, id string, req models.UpdateVenueRequest) (_ *models.Venue, err error) {
	ctx, span := tracer.Start(ctx, "VenueService.Update")
	defer func() { endSpan(span, err) }()

	if err := trimVenueUpdate(&req); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	v, err := s.venues.Update(ctx, id, &req, func(v *models.Venue) error {
		return authz.Check(p, authz.VenueUpdate, authz.Resource{ManagerID: v.ManagerID})
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "venue updated", "venue_id", id, "by", p.ID)
	return v, nil
}

func trimVenueUpdate(req *models.UpdateVenueRequest) error {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return apperrors.WithMetadata(apperrors.CodeInvalid, "name must not be blank", map[string]string{"name": "required"})
		}
		req.Name = &name
	}
	if req.Address != nil {
		addr := strings.TrimSpace(*req.Address)
		if addr == "" {
			return apperrors.WithMetadata(apperrors.CodeInvalid, "address must not be blank", map[string]string{"address": "required"})
		}
		req.Address = &addr
	}
	return nil
}

// Delete removes the venue together with its bookings, their permits and
// permit documents.
func (s *VenueService) Delete(ctx context.Context, p authz.Principal, id string) (err error) {
	ctx, span := tracer.Start(ctx, "VenueService.Delete")
	defer func() { endSpan(span, err) }()

	keys, err := s.venues.Delete(ctx, id, func(v *models.Venue) error {
		return authz.Check(p, authz.VenueDelete, authz.Resource{ManagerID: v.ManagerID})
	})
	if err != nil {
		return err
	}
	removeObjects(ctx, s.docs, s.logger, keys)
	s.logger.InfoContext(ctx, "venue deleted", "venue_id", id, "by", p.ID, "documents_removed", len(keys))
	return nil
}
