// Package calendar defines the calendar collaborator contract and an
// in-process implementation of it. The interface is the seam where a real
// provider (CalDAV, Google Calendar, a device bridge) would plug in.
package calendar

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPermissionDenied = errors.New("calendar access not granted")
	ErrDuplicateEvent   = errors.New("calendar event already exists")
	ErrEventNotFound    = errors.New("calendar event not found")
)

// dedupWindow is how close two starts may be for events with the same title
// before the second one counts as a duplicate.
const dedupWindow = 60 * time.Second

// Event is one scheduled calendar entry.
type Event struct {
	ID       string
	Title    string
	Start    time.Time
	Location string
}

// Service is the calendar collaborator. AddEvent must reject duplicates:
// an event with the same title starting within ±60s of an existing one.
type Service interface {
	RequestAccess(ctx context.Context) (bool, error)
	AddEvent(ctx context.Context, title string, start time.Time, location string) (string, error)
	RemoveEvent(ctx context.Context, eventID string) error
}

// MemoryService keeps events in memory and enforces the duplicate window.
type MemoryService struct {
	mu      sync.RWMutex
	events  map[string]Event
	granted bool
}

// NewMemoryService creates a store. granted controls whether RequestAccess
// reports permission, standing in for the user-facing permission prompt.
func NewMemoryService(granted bool) *MemoryService {
	return &MemoryService{
		events:  make(map[string]Event),
		granted: granted,
	}
}

func (s *MemoryService) RequestAccess(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.granted, nil
}

// SetAccess flips the simulated permission grant.
func (s *MemoryService) SetAccess(granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.granted = granted
}

func (s *MemoryService) AddEvent(_ context.Context, title string, start time.Time, location string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.granted {
		return "", ErrPermissionDenied
	}
	for _, event := range s.events {
		if event.Title != title {
			continue
		}
		delta := event.Start.Sub(start)
		if delta < 0 {
			delta = -delta
		}
		if delta <= dedupWindow {
			return "", ErrDuplicateEvent
		}
	}

	event := Event{
		ID:       uuid.NewString(),
		Title:    title,
		Start:    start,
		Location: location,
	}
	s.events[event.ID] = event
	return event.ID, nil
}

func (s *MemoryService) RemoveEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return ErrEventNotFound
	}
	delete(s.events, eventID)
	return nil
}

// Events lists the stored events, for assertions in tests.
func (s *MemoryService) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]Event, 0, len(s.events))
	for _, event := range s.events {
		events = append(events, event)
	}
	return events
}
