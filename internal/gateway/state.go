package gateway

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrServiceUnavailable is returned when the admission semaphore cannot
// be acquired (the process is at its configured write concurrency
// ceiling).
var ErrServiceUnavailable = errors.New("gateway: service unavailable")

// ErrRoomNotFound is returned by room-scoped operations for an unknown
// room id.
var ErrRoomNotFound = errors.New("gateway: room not found")

// DefaultAdmissionCapacity is the default maximum concurrent writes
// (create-room, send-message, invite-member) in flight at once.
const DefaultAdmissionCapacity = 2048

// State holds the room/message/member maps behind three independent
// RWMutexes, plus the process-wide write admission semaphore. Lock
// ordering when more than one map must be held is always
// rooms -> messages -> members.
type State struct {
	roomsMu sync.RWMutex
	rooms   map[string]Room

	messagesMu sync.RWMutex
	messages   map[string][]StoredMessage

	membersMu sync.RWMutex
	members   map[string][]string

	admission *semaphore.Weighted
}

// NewState builds an empty State with the given admission capacity (0
// selects DefaultAdmissionCapacity).
func NewState(admissionCapacity int64) *State {
	if admissionCapacity <= 0 {
		admissionCapacity = DefaultAdmissionCapacity
	}
	return &State{
		rooms:     make(map[string]Room),
		messages:  make(map[string][]StoredMessage),
		members:   make(map[string][]string),
		admission: semaphore.NewWeighted(admissionCapacity),
	}
}

// acquireAdmission acquires one admission permit, non-blocking: if the
// semaphore has no spare capacity right now, it reports unavailable
// rather than queuing the caller indefinitely, matching the "channel
// closed/saturated" contract.
func (s *State) acquireAdmission(ctx context.Context) (release func(), err error) {
	if !s.admission.TryAcquire(1) {
		return nil, ErrServiceUnavailable
	}
	return func() { s.admission.Release(1) }, nil
}

// CreateRoom inserts a new room under a held admission permit.
func (s *State) CreateRoom(ctx context.Context, name, topic string) (Room, error) {
	room := Room{ID: NewRoomID(), Name: name, Topic: topic}

	release, err := s.acquireAdmission(ctx)
	if err != nil {
		return Room{}, err
	}
	defer release()

	s.roomsMu.Lock()
	s.rooms[room.ID] = room
	s.roomsMu.Unlock()
	return room, nil
}

// RoomExists reports whether roomID names a known room.
func (s *State) RoomExists(roomID string) bool {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

// GetRoom returns the room named by roomID and its messages, or
// ErrRoomNotFound.
func (s *State) GetRoom(roomID string) (Room, []StoredMessage, error) {
	s.roomsMu.RLock()
	room, ok := s.rooms[roomID]
	s.roomsMu.RUnlock()
	if !ok {
		return Room{}, nil, ErrRoomNotFound
	}

	s.messagesMu.RLock()
	msgs := append([]StoredMessage(nil), s.messages[roomID]...)
	s.messagesMu.RUnlock()

	return room, msgs, nil
}

// RoomCount returns the number of rooms currently tracked, for the
// nexis_rooms_active gauge.
func (s *State) RoomCount() int {
	s.roomsMu.RLock()
	defer s.roomsMu.RUnlock()
	return len(s.rooms)
}

// AppendMessage appends msg to roomID's message log under a held
// admission permit, after checking the room exists.
func (s *State) AppendMessage(ctx context.Context, roomID string, msg StoredMessage) error {
	if !s.RoomExists(roomID) {
		return ErrRoomNotFound
	}

	release, err := s.acquireAdmission(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.messagesMu.Lock()
	s.messages[roomID] = append(s.messages[roomID], msg)
	s.messagesMu.Unlock()
	return nil
}

// InviteMember adds memberID to roomID's member set under a held
// admission permit. Idempotent: inviting the same member twice is a
// no-op that still succeeds.
func (s *State) InviteMember(ctx context.Context, roomID, memberID string) error {
	if !s.RoomExists(roomID) {
		return ErrRoomNotFound
	}

	release, err := s.acquireAdmission(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.membersMu.Lock()
	defer s.membersMu.Unlock()
	for _, existing := range s.members[roomID] {
		if existing == memberID {
			return nil
		}
	}
	s.members[roomID] = append(s.members[roomID], memberID)
	return nil
}

// RoomMembers returns a snapshot of roomID's member ids.
func (s *State) RoomMembers(roomID string) []string {
	s.membersMu.RLock()
	defer s.membersMu.RUnlock()
	return append([]string(nil), s.members[roomID]...)
}
