package handlers

import (
	"net/http"

	"venuepermits/internal/models"
	"venuepermits/internal/services"
)

type AuthHandler struct {
	BaseHandler
	auth *services.AuthService
}

func NewAuthHandler(base BaseHandler, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{BaseHandler: base, auth: auth}
}

// Signup godoc
// @Tags Auth
// @Summary Register an organizer account
// @Accept json
// @Produce json
// @Param body body models.SignupRequest true "Signup payload"
// @Success 201 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Login godoc
// @Tags Auth
// @Summary Exchange credentials for an access token
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Username or email and password"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.auth.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
