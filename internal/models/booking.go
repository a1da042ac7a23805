package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type Booking struct {
	ID                string    `json:"id"`
	VenueID           string    `json:"venue_id"`
	VenueManagerID    string    `json:"venue_manager_id,omitempty"`
	OrganizerID       string    `json:"organizer_id"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	Status            Status    `json:"status"`
	EventName         string    `json:"event_name"`
	Description       string    `json:"description"`
	ExpectedAttendees *int      `json:"expected_attendees,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Overlaps reports whether b's half-open interval [StartDate, EndDate)
// intersects [start, end). Touching endpoints do not overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return start.Before(b.EndDate) && end.After(b.StartDate)
}

type CreateBookingRequest struct {
	VenueID           string    `json:"venue_id" validate:"required,uuid"`
	StartDate         time.Time `json:"start_date" validate:"required"`
	EndDate           time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	EventName         string    `json:"event_name" validate:"required,max=255"`
	Details           string    `json:"details" validate:"required"`
	ExpectedAttendees *int      `json:"expected_attendees,omitempty" validate:"omitempty,min=1"`
}

// UnmarshalJSON accepts start_date and end_date either as RFC 3339
// timestamps or as calendar dates ("2026-02-01", midnight UTC).
func (r *CreateBookingRequest) UnmarshalJSON(data []byte) error {
	type plain CreateBookingRequest
	var raw struct {
		plain
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := parseDateTime("start_date", raw.StartDate)
	if err != nil {
		return err
	}
	end, err := parseDateTime("end_date", raw.EndDate)
	if err != nil {
		return err
	}
	*r = CreateBookingRequest(raw.plain)
	r.StartDate, r.EndDate = start, end
	return nil
}

func parseDateTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%s: %q is not an RFC 3339 timestamp or YYYY-MM-DD date", field, s)
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=APPROVED DECLINED"`
}
