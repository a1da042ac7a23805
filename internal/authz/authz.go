// Package authz decides whether a principal may perform an action on a
// resource. Decisions are pure functions of the principal's role, the
// action and the resource's ownership; no storage is consulted.
package authz

import (
	"venuepermits/internal/apperrors"
	"venuepermits/internal/models"
)

// Principal is the authenticated caller.
type Principal struct {
	ID   string
	Role models.Role
}

type Action string

const (
	VenueCreate Action = "venue/create"
	VenueUpdate Action = "venue/update"
	VenueDelete Action = "venue/delete"

	BookingSubmit Action = "booking/submit"
	BookingRead   Action = "booking/read"
	BookingReview Action = "booking/review"
	BookingDelete Action = "booking/delete"

	PermitApply  Action = "permit/apply"
	PermitRead   Action = "permit/read"
	PermitReview Action = "permit/review"
	PermitDelete Action = "permit/delete"

	DocumentAttach Action = "permit/document/attach"
	DocumentRead   Action = "permit/document/read"
)

// Resource carries the ownership facts of the record being acted on.
// OwnerID is the booking organizer or permit applicant; ManagerID is the
// manager of the venue involved.
type Resource struct {
	OwnerID   string
	ManagerID string
}

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// DenyReason describes why a check was denied.
type DenyReason int

const (
	// ReasonNoGrant means the principal's role has no grant for the action.
	ReasonNoGrant DenyReason = iota

	// ReasonNotRelated means a grant exists but requires an ownership
	// relation the principal does not hold.
	ReasonNotRelated
)

func (r DenyReason) String() string {
	switch r {
	case ReasonNoGrant:
		return "role has no grant for action"
	case ReasonNotRelated:
		return "principal does not own the resource"
	default:
		return "unknown"
	}
}

type Result struct {
	Decision Decision

	// Reason is only meaningful when Decision is Deny.
	Reason DenyReason
}

// Relation is the link a grant requires between principal and resource.
type Relation int

const (
	Any Relation = iota
	Owner
	Manager
)

type grant struct {
	roles    []models.Role
	actions  []Action
	relation Relation
}

var everyone = []models.Role{models.RoleOrganizer, models.RoleVenueManager, models.RoleAuthority}

var policy = []grant{
	{roles: []models.Role{models.RoleVenueManager}, actions: []Action{VenueCreate}, relation: Any},
	{roles: []models.Role{models.RoleVenueManager}, actions: []Action{VenueUpdate, VenueDelete, BookingRead, BookingReview}, relation: Manager},
	{roles: []models.Role{models.RoleAuthority}, actions: []Action{VenueUpdate, VenueDelete, BookingRead, BookingReview, PermitRead, PermitReview, DocumentRead}, relation: Any},
	{roles: []models.Role{models.RoleOrganizer}, actions: []Action{BookingSubmit}, relation: Any},
	{roles: []models.Role{models.RoleOrganizer}, actions: []Action{BookingRead, BookingDelete, PermitApply}, relation: Owner},
	{roles: everyone, actions: []Action{PermitRead, PermitDelete, DocumentAttach, DocumentRead}, relation: Owner},
}

// Evaluate checks whether p can perform action on r.
func Evaluate(p Principal, action Action, r Resource) Result {
	granted := false
	for _, g := range policy {
		if !g.covers(p.Role, action) {
			continue
		}
		granted = true
		if g.relation.holds(p.ID, r) {
			return Result{Decision: Allow}
		}
	}
	if granted {
		return Result{Decision: Deny, Reason: ReasonNotRelated}
	}
	return Result{Decision: Deny, Reason: ReasonNoGrant}
}

// RoleAllowed reports whether any grant for p's role covers action,
// ignoring ownership. Services use it as the gate that runs before a
// record is loaded.
func RoleAllowed(p Principal, action Action) bool {
	for _, g := range policy {
		if g.covers(p.Role, action) {
			return true
		}
	}
	return false
}

// Check is Evaluate returning a forbidden error on Deny.
func Check(p Principal, action Action, r Resource) error {
	res := Evaluate(p, action, r)
	if res.Decision == Allow {
		return nil
	}
	return apperrors.WithMetadata(apperrors.CodeForbidden, "not allowed to "+string(action), map[string]string{
		"action": string(action),
		"reason": res.Reason.String(),
	})
}

// CheckRole is RoleAllowed returning a forbidden error.
func CheckRole(p Principal, action Action) error {
	if RoleAllowed(p, action) {
		return nil
	}
	return apperrors.WithMetadata(apperrors.CodeForbidden, "role "+string(p.Role)+" may not "+string(action), map[string]string{
		"action": string(action),
		"reason": ReasonNoGrant.String(),
	})
}

func (g grant) covers(role models.Role, action Action) bool {
	roleOK := false
	for _, r := range g.roles {
		if r == role {
			roleOK = true
			break
		}
	}
	if !roleOK {
		return false
	}
	for _, a := range g.actions {
		if a == action {
			return true
		}
	}
	return false
}

func (rel Relation) holds(principalID string, r Resource) bool {
	switch rel {
	case Any:
		return true
	case Owner:
		return principalID != "" && principalID == r.OwnerID
	case Manager:
		return principalID != "" && principalID == r.ManagerID
	}
	return false
}
