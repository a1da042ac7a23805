package models

import "time"

type Venue struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Capacity    *int      `json:"capacity,omitempty"`
	Description string    `json:"description,omitempty"`
	ManagerID   string    `json:"manager_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VenueSearchResult is a venue annotated with its distance from the search
// origin. DistanceKm is nil when the search carried no coordinates.
type VenueSearchResult struct {
	Venue
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

type CreateVenueRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Address     string   `json:"address" validate:"required,max=512"`
	Latitude    *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Capacity    *int     `json:"capacity,omitempty" validate:"omitempty,min=1"`
	Description string   `json:"description,omitempty"`
}

// UpdateVenueRequest carries the mutable venue fields. ManagerID is not
// part of it.
type UpdateVenueRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Address     *string  `json:"address,omitempty" validate:"omitempty,min=1,max=512"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	Capacity    *int     `json:"capacity,omitempty" validate:"omitempty,min=1"`
	Description *string  `json:"description,omitempty"`
}

// VenueSearchQuery filters venues by keyword and, when Latitude and
// Longitude are both set, by great-circle distance.
type VenueSearchQuery struct {
	Keyword   string
	Latitude  *float64
	Longitude *float64
	RadiusKm  float64
}

// DefaultSearchRadiusKm applies when a geo search omits the radius.
const DefaultSearchRadiusKm = 10.0

func (q VenueSearchQuery) HasOrigin() bool {
	return q.Latitude != nil && q.Longitude != nil
}
