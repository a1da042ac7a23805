package models

type Role string

const (
	RoleOrganizer    Role = "ORGANIZER"
	RoleVenueManager Role = "VENUE_MANAGER"
	RoleAuthority    Role = "AUTHORITY"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOrganizer, RoleVenueManager, RoleAuthority:
		return true
	}
	return false
}
