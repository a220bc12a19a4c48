package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/osa030/vibeq/internal/domain/request"
)

// Store holds every request of the session, including terminal ones, and
// enforces the queue invariants: at most one now-playing request, unique
// order values among approved requests, frozen terminal requests.
//
// All methods are safe for concurrent use. Readers always observe a
// consistent (status, order) pairing because mutations happen under one
// lock and reads return copies.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]*request.Request
	creation []string // request ids in creation order
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byID: make(map[string]*request.Request),
	}
}

// Create adds a new PENDING request with the given metadata and returns it.
func (s *Store) Create(meta request.Metadata) request.Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &request.Request{
		ID:        uuid.New().String(),
		Metadata:  meta,
		Status:    request.StatusPending,
		CreatedAt: time.Now(),
	}
	s.byID[r.ID] = r
	s.creation = append(s.creation, r.ID)
	return *r
}

// Get returns a copy of the request with the given id.
func (s *Store) Get(id string) (request.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return request.Request{}, errors.Wrapf(ErrNotFound, "id=%s", id)
	}
	return *r, nil
}

// List returns a snapshot of all requests: approved requests sorted by
// order first, then everything else in creation order.
func (s *Store) List() []request.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	approved := make([]request.Request, 0)
	others := make([]request.Request, 0)
	for _, id := range s.creation {
		r := s.byID[id]
		if r.Status == request.StatusApproved {
			approved = append(approved, *r)
		} else {
			others = append(others, *r)
		}
	}
	sort.Slice(approved, func(i, j int) bool { return approved[i].Order < approved[j].Order })
	return append(approved, others...)
}

// NowPlaying returns the approved request with the lowest order, if any.
func (s *Store) NowPlaying() (request.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowPlayingLocked()
}

func (s *Store) nowPlayingLocked() (request.Request, bool) {
	var current *request.Request
	for _, r := range s.byID {
		if r.Status != request.StatusApproved {
			continue
		}
		if current == nil || r.Order < current.Order {
			current = r
		}
	}
	if current == nil {
		return request.Request{}, false
	}
	return *current, true
}

// Upcoming returns the approved requests excluding the now-playing one,
// sorted by order.
func (s *Store) Upcoming() []request.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upcomingLocked()
}

func (s *Store) upcomingLocked() []request.Request {
	now, ok := s.nowPlayingLocked()
	var result []request.Request
	for _, r := range s.byID {
		if r.Status != request.StatusApproved {
			continue
		}
		if ok && r.ID == now.ID {
			continue
		}
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Order < result[j].Order })
	return result
}

// ApplyTransition moves a request from an expected status to a new one and
// returns the updated request. The expected-status check and the commit
// happen under one lock, so two racing transitions from the same status
// cannot both succeed. Transitions out of a terminal status are rejected.
// When transitioning to APPROVED, order may be nil to append at the end of
// the approved set; a requested order that collides with another approved
// request is resolved by shifting the colliding tail up, so order
// uniqueness always holds.
func (s *Store) ApplyTransition(id string, from, to request.Status, order *int) (request.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return request.Request{}, errors.Wrapf(ErrNotFound, "id=%s", id)
	}
	if !to.Valid() {
		return request.Request{}, errors.Wrapf(ErrInvalidArgument, "status=%s", to)
	}
	if r.Status.Terminal() {
		return request.Request{}, errors.Wrapf(ErrInvalidState, "request %s is %s", id, r.Status)
	}
	if r.Status != from {
		return request.Request{}, errors.Wrapf(ErrInvalidState, "request %s is %s, want %s", id, r.Status, from)
	}

	if to == request.StatusApproved {
		if order != nil {
			s.makeRoomLocked(*order)
			r.Order = *order
		} else {
			r.Order = s.maxOrderLocked() + 1
		}
	}
	r.Status = to
	return *r, nil
}

// CompleteNowPlaying moves a request to COMPLETED only while it is the
// now-playing request. The check and the commit happen under one lock, so
// duplicate completion signals racing each other cannot both advance the
// queue.
func (s *Store) CompleteNowPlaying(id string) (request.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return request.Request{}, errors.Wrapf(ErrNotFound, "id=%s", id)
	}
	now, ok := s.nowPlayingLocked()
	if !ok || now.ID != id {
		return request.Request{}, errors.Wrapf(ErrInvalidState, "request %s is not now-playing", id)
	}
	r.Status = request.StatusCompleted
	return *r, nil
}

// ReorderUpcoming assigns strictly increasing orders to the upcoming
// approved requests following the caller-specified id sequence, starting
// just above the now-playing order. The id set must match the upcoming set
// exactly; partial or foreign sets fail with ErrInvalidArgument and leave
// the order untouched.
func (s *Store) ReorderUpcoming(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	upcoming := s.upcomingLocked()
	if len(ids) != len(upcoming) {
		return errors.Wrapf(ErrInvalidArgument, "got %d ids, upcoming set has %d", len(ids), len(upcoming))
	}

	want := make(map[string]bool, len(upcoming))
	for _, r := range upcoming {
		want[r.ID] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !want[id] {
			return errors.Wrapf(ErrInvalidArgument, "id %s is not in the upcoming set", id)
		}
		if seen[id] {
			return errors.Wrapf(ErrInvalidArgument, "duplicate id %s", id)
		}
		seen[id] = true
	}

	base := 0
	if now, ok := s.nowPlayingLocked(); ok {
		base = now.Order
	}
	for i, id := range ids {
		s.byID[id].Order = base + 1 + i
	}
	return nil
}

// Reset atomically discards every request regardless of status.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*request.Request)
	s.creation = nil
}

// Restore replaces the store contents with previously persisted requests.
// Used once at boot; the slice order is taken as the creation order.
func (s *Store) Restore(reqs []request.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*request.Request, len(reqs))
	s.creation = make([]string, 0, len(reqs))
	for i := range reqs {
		r := reqs[i]
		s.byID[r.ID] = &r
		s.creation = append(s.creation, r.ID)
	}
}

// Len returns the number of stored requests, terminal ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// makeRoomLocked shifts approved orders >= from up by one so that the
// value from becomes free. No-op when the value is unused.
func (s *Store) makeRoomLocked(from int) {
	taken := false
	for _, r := range s.byID {
		if r.Status == request.StatusApproved && r.Order == from {
			taken = true
			break
		}
	}
	if !taken {
		return
	}
	for _, r := range s.byID {
		if r.Status == request.StatusApproved && r.Order >= from {
			r.Order++
		}
	}
}

func (s *Store) maxOrderLocked() int {
	max := 0
	for _, r := range s.byID {
		if r.Status == request.StatusApproved && r.Order > max {
			max = r.Order
		}
	}
	return max
}
