package interfaces

import (
	"context"

	"venuepermits/internal/models"
)

// Guards run inside the repository transaction after the target row is
// locked and loaded. A non-nil error aborts the transaction and is
// returned unchanged.
type (
	VenueGuard   func(*models.Venue) error
	BookingGuard func(*models.Booking) error
	PermitGuard  func(*models.Permit) error
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByIdentifier matches username or email, case-insensitively.
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	ExistsByUserName(ctx context.Context, userName string) (bool, error)
}

// VenueFilter narrows a venue scan. Nil bounds are not applied.
type VenueFilter struct {
	Keyword string
	MinLat  *float64
	MaxLat  *float64
}

type VenueRepository interface {
	Create(ctx context.Context, venue *models.Venue) error
	GetByID(ctx context.Context, id string) (*models.Venue, error)
	// List returns all venues, or only those managed by managerID when it
	// is non-empty, newest first.
	List(ctx context.Context, managerID string) ([]models.Venue, error)
	Search(ctx context.Context, filter VenueFilter) ([]models.Venue, error)
	Update(ctx context.Context, id string, req *models.UpdateVenueRequest, guard VenueGuard) (*models.Venue, error)
	// Delete removes the venue with its bookings, their permits and
	// documents. It returns the object keys of the removed documents.
	Delete(ctx context.Context, id string, guard VenueGuard) ([]string, error)
}

// BookingFilter scopes a booking listing. Empty fields are not applied.
type BookingFilter struct {
	OrganizerID string
	ManagerID   string
}

type BookingRepository interface {
	// Create atomically verifies the venue exists and that no approved
	// booking on it overlaps the new range, then inserts a pending
	// booking.
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	// UpdateStatus locks the venue and the booking, runs guard, re-checks
	// overlap when approving, and writes the new status.
	UpdateStatus(ctx context.Context, id string, next models.Status, guard BookingGuard) (*models.Booking, error)
	Delete(ctx context.Context, id string, guard BookingGuard) ([]string, error)
}

type PermitRepository interface {
	// Create holds a share lock on the booking while guard runs, so the
	// booking cannot change status between the check and the insert.
	Create(ctx context.Context, permit *models.Permit, guard BookingGuard) error
	GetByID(ctx context.Context, id string) (*models.Permit, error)
	// List returns all permits, or those of applicantID when non-empty.
	List(ctx context.Context, applicantID string) ([]models.Permit, error)
	UpdateStatus(ctx context.Context, id string, next models.Status, notes string, guard PermitGuard) (*models.Permit, error)
	Delete(ctx context.Context, id string, guard PermitGuard) ([]string, error)
	AddDocument(ctx context.Context, doc *models.PermitDocument, guard PermitGuard) error
	ListDocuments(ctx context.Context, permitID string) ([]models.PermitDocument, error)
}
