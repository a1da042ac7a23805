package memory

import (
	"context"
	"sort"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

type permitRepo struct{ s *Store }

func (r *permitRepo) Create(_ context.Context, permit *models.Permit, guard interfaces.BookingGuard) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.bookings[permit.BookingID]
	if !ok {
		return apperrors.NotFound("booking", permit.BookingID)
	}
	if guard != nil {
		b := r.s.bookingWithManagerLocked(rec)
		if err := guard(&b); err != nil {
			return err
		}
	}

	now := r.s.now()
	permit.Status = models.StatusPending
	permit.CreatedAt = now
	permit.UpdatedAt = now
	r.s.permits[permit.ID] = permitRecord{seq: r.s.nextSeq(), permit: *permit}
	return nil
}

func (r *permitRepo) GetByID(_ context.Context, id string) (*models.Permit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.permits[id]
	if !ok {
		return nil, apperrors.NotFound("permit", id)
	}
	p := rec.permit
	return &p, nil
}

func (r *permitRepo) List(_ context.Context, applicantID string) ([]models.Permit, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := make([]permitRecord, 0, len(r.s.permits))
	for _, rec := range r.s.permits {
		if applicantID != "" && rec.permit.ApplicantID != applicantID {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return newestFirst(recs[i].permit.CreatedAt, recs[j].permit.CreatedAt, recs[i].seq, recs[j].seq)
	})
	out := make([]models.Permit, len(recs))
	for i, rec := range recs {
		out[i] = rec.permit
	}
	return out, nil
}

func (r *permitRepo) UpdateStatus(_ context.Context, id string, next models.Status, notes string, guard interfaces.PermitGuard) (*models.Permit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.permits[id]
	if !ok {
		return nil, apperrors.NotFound("permit", id)
	}
	if guard != nil {
		p := rec.permit
		if err := guard(&p); err != nil {
			return nil, err
		}
	}
	if !rec.permit.Status.CanTransition(next) {
		return nil, apperrors.WithMetadata(apperrors.CodeConflict, "permit is no longer pending", map[string]string{
			"permit_id":      id,
			"current_status": string(rec.permit.Status),
		})
	}

	rec.permit.Status = next
	rec.permit.AuthorityNotes = notes
	rec.permit.UpdatedAt = r.s.now()
	r.s.permits[id] = rec
	out := rec.permit
	return &out, nil
}

func (r *permitRepo) Delete(_ context.Context, id string, guard interfaces.PermitGuard) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.permits[id]
	if !ok {
		return nil, apperrors.NotFound("permit", id)
	}
	if guard != nil {
		p := rec.permit
		if err := guard(&p); err != nil {
			return nil, err
		}
	}
	keys := r.s.cascadePermitLocked(id)
	delete(r.s.permits, id)
	return keys, nil
}

func (r *permitRepo) AddDocument(_ context.Context, doc *models.PermitDocument, guard interfaces.PermitGuard) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.permits[doc.PermitID]
	if !ok {
		return apperrors.NotFound("permit", doc.PermitID)
	}
	if guard != nil {
		p := rec.permit
		if err := guard(&p); err != nil {
			return err
		}
	}
	doc.UploadedAt = r.s.now()
	r.s.documents[doc.ID] = documentRecord{seq: r.s.nextSeq(), doc: *doc}
	return nil
}

func (r *permitRepo) ListDocuments(_ context.Context, permitID string) ([]models.PermitDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	recs := []documentRecord{}
	for _, rec := range r.s.documents {
		if rec.doc.PermitID == permitID {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]models.PermitDocument, len(recs))
	for i, rec := range recs {
		out[i] = rec.doc
	}
	return out, nil
}
