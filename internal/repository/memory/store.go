// Package memory is an in-process implementation of the repository
// interfaces. Every mutating call runs under one mutex, which gives the
// same serialization the Postgres repositories get from row locks.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"venuepermits/internal/apperrors"
	"venuepermits/internal/interfaces"
	"venuepermits/internal/models"
)

type Store struct {
	mu  sync.RWMutex
	seq int64
	now func() time.Time

	users     map[string]userRecord
	venues    map[string]venueRecord
	bookings  map[string]bookingRecord
	permits   map[string]permitRecord
	documents map[string]documentRecord
}

type userRecord struct {
	seq  int64
	user models.User
}

type venueRecord struct {
	seq   int64
	venue models.Venue
}

type bookingRecord struct {
	seq     int64
	booking models.Booking
}

type permitRecord struct {
	seq    int64
	permit models.Permit
}

type documentRecord struct {
	seq int64
	doc models.PermitDocument
}

func NewStore() *Store {
	return &Store{
		now:       func() time.Time { return time.Now().UTC() },
		users:     make(map[string]userRecord),
		venues:    make(map[string]venueRecord),
		bookings:  make(map[string]bookingRecord),
		permits:   make(map[string]permitRecord),
		documents: make(map[string]documentRecord),
	}
}

// SetClock replaces the timestamp source. Tests use it to make ordering
// deterministic.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Users() interfaces.UserRepository       { return &userRepo{s} }
func (s *Store) Venues() interfaces.VenueRepository     { return &venueRepo{s} }
func (s *Store) Bookings() interfaces.BookingRepository { return &bookingRepo{s} }
func (s *Store) Permits() interfaces.PermitRepository   { return &permitRepo{s} }

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// newestFirst orders by creation time descending, then by insertion order
// descending so records created within the same clock tick stay stable.
func newestFirst(aTime, bTime time.Time, aSeq, bSeq int64) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return aSeq > bSeq
}

// cascadeBookingLocked removes the permits and documents of bookingID and
// returns the object keys of the documents. Caller holds s.mu.
func (s *Store) cascadeBookingLocked(bookingID string) []string {
	var keys []string
	for id, p := range s.permits {
		if p.permit.BookingID != bookingID {
			continue
		}
		keys = append(keys, s.cascadePermitLocked(id)...)
		delete(s.permits, id)
	}
	return keys
}

func (s *Store) cascadePermitLocked(permitID string) []string {
	var keys []string
	for id, d := range s.documents {
		if d.doc.PermitID != permitID {
			continue
		}
		keys = append(keys, d.doc.ObjectKey)
		delete(s.documents, id)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) bookingWithManagerLocked(rec bookingRecord) models.Booking {
	b := rec.booking
	if v, ok := s.venues[b.VenueID]; ok {
		b.VenueManagerID = v.venue.ManagerID
	}
	return b
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func overlapConflict(existing models.Booking) error {
	return apperrors.WithMetadata(apperrors.CodeConflict, "venue is already booked for an overlapping period", map[string]string{
		"venue_id":               existing.VenueID,
		"conflicting_booking_id": existing.ID,
	})
}
