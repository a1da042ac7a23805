package models

import "time"

type PermitType string

const (
	PermitNoiseControl   PermitType = "NOISE_CONTROL"
	PermitPublicSafety   PermitType = "PUBLIC_SAFETY"
	PermitAlcoholService PermitType = "ALCOHOL_SERVICE"
	PermitPublicHealth   PermitType = "PUBLIC_HEALTH"
	PermitOther          PermitType = "OTHER"
)

type Permit struct {
	ID             string     `json:"id"`
	BookingID      string     `json:"booking_id"`
	ApplicantID    string     `json:"applicant_id"`
	Type           PermitType `json:"type"`
	Details        string     `json:"details"`
	Status         Status     `json:"status"`
	AuthorityNotes string     `json:"authority_notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type CreatePermitRequest struct {
	BookingID string     `json:"booking_id" validate:"required,uuid"`
	Type      PermitType `json:"type" validate:"required,oneof=NOISE_CONTROL PUBLIC_SAFETY ALCOHOL_SERVICE PUBLIC_HEALTH OTHER"`
	Details   string     `json:"details" validate:"required"`
}

type UpdatePermitStatusRequest struct {
	Status         Status `json:"status" validate:"required,oneof=APPROVED DECLINED"`
	AuthorityNotes string `json:"authority_notes,omitempty" validate:"max=2000"`
}

// PermitDocument is supporting evidence attached to a permit application.
type PermitDocument struct {
	ID          string    `json:"id"`
	PermitID    string    `json:"permit_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	ObjectKey   string    `json:"-"`
	URL         string    `json:"url"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
