package services

import (
	"context"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/authz"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

// DefaultMaxDocumentBytes caps a single permit document upload.
const DefaultMaxDocumentBytes int64 = 10 << 20

type PermitService struct {
	permits  interfaces.PermitRepository
	docs     interfaces.DocumentStore
	logger   *slog.Logger
	maxBytes int64
}

func NewPermitService(permits interfaces.PermitRepository, docs interfaces.DocumentStore, logger *slog.Logger, maxDocumentBytes int64) *PermitService {
	if maxDocumentBytes <= 0 {
		maxDocumentBytes = DefaultMaxDocumentBytes
	}
	return &PermitService{permits: permits, docs: docs, logger: resolveLogger(logger), maxBytes: maxDocumentBytes}
}

// Apply files a permit against the caller's own approved booking.
func (s *PermitService) Apply(ctx context.Context, p authz.Principal, req models.CreatePermitRequest) (_ *models.Permit, err error) {
	ctx, span := tracer.Start(ctx, "PermitService.Apply")
	defer func() { endSpan(span, err) }()

	if err := authz.CheckRole(p, authz.PermitApply); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	permit := &models.Permit{
		ID:          uuid.NewString(),
		BookingID:   req.BookingID,
		ApplicantID: p.ID,
		Type:        req.Type,
		Details:     req.Details,
	}
	span.SetAttributes(attribute.String("booking.id", req.BookingID))

	err = s.permits.Create(ctx, permit, func(b *models.Booking) error {
		if err := authz.Check(p, authz.PermitApply, authz.Resource{OwnerID: b.OrganizerID}); err != nil {
			return err
		}
		if b.Status != models.StatusApproved {
			return apperrors.WithMetadata(apperrors.CodeConflict, "booking must be approved before applying for permits", map[string]string{
				"booking_id":     b.ID,
				"current_status": string(b.Status),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "permit applied", "permit_id", permit.ID, "booking_id", permit.BookingID, "type", permit.Type)
	return permit, nil
}

// List returns every permit to authorities and the caller's own
// applications to everyone else.
func (s *PermitService) List(ctx context.Context, p authz.Principal) ([]models.Permit, error) {
	if p.Role == models.RoleAuthority {
		return s.permits.List(ctx, "")
	}
	return s.permits.List(ctx, p.ID)
}

func (s *PermitService) Get(ctx context.Context, p authz.Principal, id string) (*models.Permit, error) {
	permit, err := s.permits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(p, authz.PermitRead, authz.Resource{OwnerID: permit.ApplicantID}); err != nil {
		return nil, err
	}
	return permit, nil
}

func (s *PermitService) TransitionStatus(ctx context.Context, p authz.Principal, id string, next models.Status, notes string) (_ *models.Permit, err error) {
	ctx, span := tracer.Start(ctx, "PermitService.TransitionStatus")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("permit.id", id), attribute.String("permit.next_status", string(next)))

	if err := authz.CheckRole(p, authz.PermitReview); err != nil {
		return nil, err
	}
	if !next.IsDecision() {
		return nil, apperrors.Invalid("status must be APPROVED or DECLINED")
	}
	if err := validateRequest(models.UpdatePermitStatusRequest{Status: next, AuthorityNotes: notes}); err != nil {
		return nil, err
	}

	permit, err := s.permits.UpdateStatus(ctx, id, next, strings.TrimSpace(notes), func(pm *models.Permit) error {
		if pm.Status.Terminal() {
			return apperrors.WithMetadata(apperrors.CodeConflict, "permit is no longer pending", map[string]string{
				"permit_id":      pm.ID,
				"current_status": string(pm.Status),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "permit status changed", "permit_id", id, "status", next, "by", p.ID)
	return permit, nil
}

func (s *PermitService) Delete(ctx context.Context, p authz.Principal, id string) (err error) {
	ctx, span := tracer.Start(ctx, "PermitService.Delete")
	defer func() { endSpan(span, err) }()

	keys, err := s.permits.Delete(ctx, id, func(pm *models.Permit) error {
		return authz.Check(p, authz.PermitDelete, authz.Resource{OwnerID: pm.ApplicantID})
	})
	if err != nil {
		return err
	}
	removeObjects(ctx, s.docs, s.logger, keys)
	s.logger.InfoContext(ctx, "permit deleted", "permit_id", id, "by", p.ID)
	return nil
}

// DocumentUpload is one file attached to a permit application.
type DocumentUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// AttachDocument stores a supporting file for a pending permit owned by
// the caller. The object is written first and removed again when the
// record cannot be saved.
func (s *PermitService) AttachDocument(ctx context.Context, p authz.Principal, permitID string, up DocumentUpload) (_ *models.PermitDocument, err error) {
	ctx, span := tracer.Start(ctx, "PermitService.AttachDocument")
	defer func() { endSpan(span, err) }()

	if s.docs == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "document storage is not configured")
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(up.FileName), `\`, "/"))
	if name == "" || name == "." || name == "/" {
		return nil, apperrors.Invalid("file name is required")
	}
	if up.Size <= 0 {
		return nil, apperrors.Invalid("file is empty")
	}
	if up.Size > s.maxBytes {
		return nil, apperrors.WithMetadata(apperrors.CodeInvalid, "file is too large", map[string]string{"file_name": name})
	}

	guard := func(pm *models.Permit) error {
		if err := authz.Check(p, authz.DocumentAttach, authz.Resource{OwnerID: pm.ApplicantID}); err != nil {
			return err
		}
		if pm.Status != models.StatusPending {
			return apperrors.WithMetadata(apperrors.CodeConflict, "documents can only be attached to pending permits", map[string]string{
				"permit_id":      pm.ID,
				"current_status": string(pm.Status),
			})
		}
		return nil
	}

	permit, err := s.permits.GetByID(ctx, permitID)
	if err != nil {
		return nil, err
	}
	if err := guard(permit); err != nil {
		return nil, err
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	doc := &models.PermitDocument{
		ID:          uuid.NewString(),
		PermitID:    permitID,
		FileName:    name,
		ContentType: contentType,
		SizeBytes:   up.Size,
	}
	doc.ObjectKey = path.Join("permits", permitID, doc.ID+strings.ToLower(path.Ext(name)))

	url, err := s.docs.Put(ctx, doc.ObjectKey, io.LimitReader(up.Body, s.maxBytes), contentType)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "failed to store document", err)
	}
	doc.URL = url

	if err := s.permits.AddDocument(ctx, doc, guard); err != nil {
		removeObjects(ctx, s.docs, s.logger, []string{doc.ObjectKey})
		return nil, err
	}
	s.logger.InfoContext(ctx, "permit document attached", "permit_id", permitID, "document_id", doc.ID, "size_bytes", doc.SizeBytes)
	return doc, nil
}

func (s *PermitService) ListDocuments(ctx context.Context, p authz.Principal, permitID string) ([]models.PermitDocument, error) {
	permit, err := s.permits.GetByID(ctx, permitID)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(p, authz.DocumentRead, authz.Resource{OwnerID: permit.ApplicantID}); err != nil {
		return nil, err
	}
	return s.permits.ListDocuments(ctx, permitID)
}
