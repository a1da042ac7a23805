package models

// Status is the review state shared by bookings and permits.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusDeclined},
	StatusApproved: {},
	StatusDeclined: {},
}

func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

func (s Status) CanTransition(to Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsDecision reports whether s is a value a reviewer may set.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusDeclined
}
