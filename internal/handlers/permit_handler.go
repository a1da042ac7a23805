package handlers

import (
	"errors"
	"net/http"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/models"
	"venuepermits/internal/services"
)

type PermitHandler struct {
	BaseHandler
	svc      *services.PermitService
	maxBytes int64
}

func NewPermitHandler(base BaseHandler, svc *services.PermitService, maxDocumentBytes int64) *PermitHandler {
	if maxDocumentBytes <= 0 {
		maxDocumentBytes = services.DefaultMaxDocumentBytes
	}
	return &PermitHandler{BaseHandler: base, svc: svc, maxBytes: maxDocumentBytes}
}

// Create godoc
// @Tags Permits
// @Summary Apply for a permit on an approved booking
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.CreatePermitRequest true "Permit application"
// @Success 201 {object} models.Permit
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/permits [post]
func (h *PermitHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	var req models.CreatePermitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	permit, err := h.svc.Apply(r.Context(), p, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, permit)
}

// List godoc
// @Tags Permits
// @Summary List permits visible to the caller
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Permit
// @Router /api/v1/permits [get]
func (h *PermitHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	permits, err := h.svc.List(r.Context(), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, permits)
}

// Get godoc
// @Tags Permits
// @Summary Get permit
// @Security BearerAuth
// @Produce json
// @Param id path string true "Permit ID"
// @Success 200 {object} models.Permit
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/permits/{id} [get]
func (h *PermitHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "permit")
	if !ok {
		return
	}
	permit, err := h.svc.Get(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, permit)
}

// UpdateStatus godoc
// @Tags Permits
// @Summary Approve or decline a pending permit
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Permit ID"
// @Param body body models.UpdatePermitStatusRequest true "Decision and notes"
// @Success 200 {object} models.Permit
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/permits/{id}/status [patch]
func (h *PermitHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "permit")
	if !ok {
		return
	}
	var req models.UpdatePermitStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	permit, err := h.svc.TransitionStatus(r.Context(), p, id, req.Status, req.AuthorityNotes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, permit)
}

// Delete godoc
// @Tags Permits
// @Summary Withdraw a permit application
// @Security BearerAuth
// @Param id path string true "Permit ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/permits/{id} [delete]
func (h *PermitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "permit")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadDocument godoc
// @Tags Permits
// @Summary Attach a supporting document to a pending permit
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Permit ID"
// @Param file formData file true "Document"
// @Success 201 {object} models.PermitDocument
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/permits/{id}/documents [post]
func (h *PermitHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "permit")
	if !ok {
		return
	}

	// Room for the multipart envelope on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+(1<<20))
	const maxMemory = 32 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONErrorResponse(w, http.StatusRequestEntityTooLarge, string(apperrors.CodeInvalid), "file is too large", nil)
			return
		}
		writeJSONErrorResponse(w, http.StatusBadRequest, string(apperrors.CodeInvalid), "Failed to parse form", nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONErrorResponse(w, http.StatusBadRequest, string(apperrors.CodeInvalid), "file is required", map[string]string{"file": "required"})
		return
	}
	defer file.Close()

	doc, err := h.svc.AttachDocument(r.Context(), p, id, services.DocumentUpload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ListDocuments godoc
// @Tags Permits
// @Summary List documents attached to a permit
// @Security BearerAuth
// @Produce json
// @Param id path string true "Permit ID"
// @Success 200 {array} models.PermitDocument
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/permits/{id}/documents [get]
func (h *PermitHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, "permit")
	if !ok {
		return
	}
	docs, err := h.svc.ListDocuments(r.Context(), p, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}
