package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/authz"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

type BookingService struct {
	bookings interfaces.BookingRepository
	docs     interfaces.DocumentStore
	logger   *slog.Logger
}

func NewBookingService(bookings interfaces.BookingRepository, docs interfaces.DocumentStore, logger *slog.Logger) *BookingService {
	return &BookingService{bookings: bookings, docs: docs, logger: resolveLogger(logger)}
}

// Submit records a pending booking. The repository rejects it when the
// venue is unknown or an approved booking overlaps the range.
func (s *BookingService) Submit(ctx context.Context, p authz.Principal, req models.CreateBookingRequest) (_ *models.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.Submit")
	defer func() { endSpan(span, err) }()

	if err := authz.CheckRole(p, authz.BookingSubmit); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	b := &models.Booking{
		ID:                uuid.NewString(),
		VenueID:           req.VenueID,
		OrganizerID:       p.ID,
		StartDate:         req.StartDate.UTC(),
		EndDate:           req.EndDate.UTC(),
		EventName:         strings.TrimSpace(req.EventName),
		Description:       req.Details,
		ExpectedAttendees: req.ExpectedAttendees,
	}
	span.SetAttributes(attribute.String("venue.id", b.VenueID))

	if err := s.bookings.Create(ctx, b); err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeConflict {
			s.logger.InfoContext(ctx, "booking rejected", "venue_id", b.VenueID, "organizer_id", p.ID, "error", err)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "booking submitted", "booking_id", b.ID, "venue_id", b.VenueID, "organizer_id", p.ID)
	return b, nil
}

// List scopes by role: authorities see every booking, venue managers the
// bookings on their venues, organizers their own.
func (s *BookingService) List(ctx context.Context, p authz.Principal) ([]models.Booking, error) {
	var filter interfaces.BookingFilter
	switch p.Role {
	case models.RoleAuthority:
	case models.RoleVenueManager:
		filter.ManagerID = p.ID
	case models.RoleOrganizer:
		filter.OrganizerID = p.ID
	default:
		return nil, apperrors.Forbidden("unknown role")
	}
	return s.bookings.List(ctx, filter)
}

func (s *BookingService) Get(ctx context.Context, p authz.Principal, id string) (*models.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.Check(p, authz.BookingRead, bookingResource(b)); err != nil {
		return nil, err
	}
	return b, nil
}

// TransitionStatus moves a pending booking to APPROVED or DECLINED.
// Checks run in order: decision value, reviewer role, existence, pending
// state, then ownership of the venue.
func (s *BookingService) TransitionStatus(ctx context.Context, p authz.Principal, id string, next models.Status) (_ *models.Booking, err error) {
	ctx, span := tracer.Start(ctx, "BookingService.TransitionStatus")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("booking.id", id), attribute.String("booking.next_status", string(next)))

	if !next.IsDecision() {
		return nil, apperrors.Invalid("status must be APPROVED or DECLINED")
	}
	if err := authz.CheckRole(p, authz.BookingReview); err != nil {
		return nil, err
	}

	b, err := s.bookings.UpdateStatus(ctx, id, next, func(b *models.Booking) error {
		if b.Status.Terminal() {
			return apperrors.WithMetadata(apperrors.CodeConflict, "booking is no longer pending", map[string]string{
				"booking_id":     b.ID,
				"current_status": string(b.Status),
			})
		}
		return authz.Check(p, authz.BookingReview, bookingResource(b))
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "booking status changed", "booking_id", id, "status", next, "by", p.ID)
	return b, nil
}

// Delete removes an organizer's own booking with its permits and their
// documents.
func (s *BookingService) Delete(ctx context.Context, p authz.Principal, id string) (err error) {
	ctx, span := tracer.Start(ctx, "BookingService.Delete")
	defer func() { endSpan(span, err) }()

	keys, err := s.bookings.Delete(ctx, id, func(b *models.Booking) error {
		return authz.Check(p, authz.BookingDelete, bookingResource(b))
	})
	if err != nil {
		return err
	}
	removeObjects(ctx, s.docs, s.logger, keys)
	s.logger.InfoContext(ctx, "booking deleted", "booking_id", id, "by", p.ID)
	return nil
}

func bookingResource(b *models.Booking) authz.Resource {
	return authz.Resource{OwnerID: b.OrganizerID, ManagerID: b.VenueManagerID}
}
