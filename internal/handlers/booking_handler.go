package handlers

import (
	"net/http"

	"venuepermits/internal/models"
	"venuepermits/internal/services"
)

type BookingHandler struct {
	BaseHandler
	svc *services.BookingService
}

func NewBookingHandler(base BaseHandler, svc *services.BookingService) *BookingHandler {
	return &BookingHandler{BaseHandler: base, svc: svc}
}

// Create godoc
// @Tags Bookings
// @Summary Request a venue booking
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.CreateBookingRequest true "Booking"
// @Success 201 {object} models.Booking
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/bookings [post]
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.Submit(r.Context(), p, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// List godoc
// @Tags Bookings
// @Summary List bookings visible to the caller
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Booking
// @Router /api/v1/bookings [get]
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	bookings, err := h.svc.List(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// Get godoc
// @Tags Bookings
// @Summary Get booking
// @Security BearerAuth
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} models.Booking
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "booking")
	if !ok {
		return
	}
	b, err := h.svc.Get(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateStatus godoc
// @Tags Bookings
// @Summary Approve or decline a pending booking
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param body body models.UpdateStatusRequest true "Decision"
// @Success 200 {object} models.Booking
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/bookings/{id}/status [patch]
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "booking")
	if !ok {
		return
	}
	var req models.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.TransitionStatus(r.Context(), p, id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Delete godoc
// @Tags Bookings
// @Summary Withdraw a booking with its permits
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/bookings/{id} [delete]
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "booking")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
