package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/models"
	"venuepermits/internal/services"
)

type VenueHandler struct {
	BaseHandler
	svc *services.VenueService
}

func NewVenueHandler(base BaseHandler, svc *services.VenueService) *VenueHandler {
	return &VenueHandler{BaseHandler: base, svc: svc}
}

// Search godoc
// @Tags Venues
// @Summary Search venues by keyword and distance
// @Produce json
// @Param keyword query string false "Matches name or address"
// @Param lat query number false "Origin latitude"
// @Param long query number false "Origin longitude"
// @Param radius_km query number false "Search radius in km (default 10)"
// @Success 200 {array} models.VenueSearchResult
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/venues/search [get]
func (h *VenueHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	results, err := h.svc.Search(r.Context(), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func parseSearchQuery(r *http.Request) (models.VenueSearchQuery, error) {
	values := r.URL.Query()
	q := models.VenueSearchQuery{Keyword: strings.TrimSpace(values.Get("keyword"))}

	parse := func(name string) (*float64, error) {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalid, name+" must be a number", map[string]string{name: raw})
		}
		return &v, nil
	}

	var err error
	if q.Latitude, err = parse("lat"); err != nil {
		return q, err
	}
	if q.Longitude, err = parse("long"); err != nil {
		return q, err
	}
	radius, err := parse("radius_km")
	if err != nil {
		return q, err
	}
	if radius != nil {
		if *radius <= 0 {
			return q, apperrors.Invalid("radius_km must be positive")
		}
		q.RadiusKm = *radius
	}
	return q, nil
}

// Get godoc
// @Tags Venues
// @Summary Get venue
// @Produce json
// @Param id path string true "Venue ID"
// @Success 200 {object} models.Venue
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/venues/{id} [get]
func (h *VenueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "venue")
	if !ok {
		return
	}
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// List godoc
// @Tags Venues
// @Summary List venues (managers see their own)
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Venue
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/venues [get]
func (h *VenueHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	venues, err := h.svc.List(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, venues)
}

// Create godoc
// @Tags Venues
// @Summary Create venue
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.CreateVenueRequest true "Venue"
// @Success 201 {object} models.Venue
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/v1/venues [post]
func (h *VenueHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.CreateVenueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.Create(r.Context(), p, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Update godoc
// @Tags Venues
// @Summary Update venue
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Venue ID"
// @Param body body models.UpdateVenueRequest true "Fields to change"
// @Success 200 {object} models.Venue
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/venues/{id} [put]
// @Router /api/v1/venues/{id} [patch]
func (h *VenueHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "venue")
	if !ok {
		return
	}
	var req models.UpdateVenueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.Update(r.Context(), p, id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Delete godoc
// @Tags Venues
// @Summary Delete venue with its bookings and permits
// @Security BearerAuth
// @Param id path string true "Venue ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/venues/{id} [delete]
func (h *VenueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "venue")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
