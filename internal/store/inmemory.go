// Package store provides storage backends for rsvpd.
//
// This file implements an in-memory store used in tests and for ephemeral
// runs without a database DSN.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/evinta/rsvpd/internal/models"
)

// InMemoryStore is a mutex-guarded map-based Store implementation.
type InMemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.User
	events        map[string]models.Event
	participants  map[string]models.Participant
	conversations map[string]models.ConversationState
	documents     []models.DocumentRecord
	callBatches   map[string]models.CallBatch
	receipts      []models.Receipt
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:         make(map[string]models.User),
		events:        make(map[string]models.Event),
		participants:  make(map[string]models.Participant),
		conversations: make(map[string]models.ConversationState),
		callBatches:   make(map[string]models.CallBatch),
	}
}

func (s *InMemoryStore) AddUser(u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *InMemoryStore) GetUser(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *InMemoryStore) ListUsers() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (s *InMemoryStore) AddEvent(e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	return nil
}

func (s *InMemoryStore) GetEvent(id string) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *InMemoryStore) ListEventsByUser(userID string) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []models.Event
	for _, e := range s.events {
		if e.UserID == userID {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.Before(events[j].CreatedAt) })
	return events, nil
}

func (s *InMemoryStore) UpdateEventStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	s.events[id] = e
	return nil
}

func (s *InMemoryStore) AddParticipants(ps []models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		s.participants[p.ID] = p
	}
	return nil
}

func (s *InMemoryStore) ListParticipantsByEvent(eventID string) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ps []models.Participant
	for _, p := range s.participants {
		if p.EventID == eventID {
			ps = append(ps, p)
		}
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt) })
	return ps, nil
}

func (s *InMemoryStore) GetParticipant(id string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *InMemoryStore) GetParticipantByPhone(phone string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.PhoneNumber == phone {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) GetConversation(participantID string) (*models.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.conversations[participantID]
	if !ok {
		return nil, nil
	}
	return &cs, nil
}

func (s *InMemoryStore) SaveConversation(cs models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[cs.ParticipantID] = cs
	return nil
}

func (s *InMemoryStore) AddDocument(d models.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, d)
	return nil
}

func (s *InMemoryStore) ListDocuments(participantID string) ([]models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []models.DocumentRecord
	for _, d := range s.documents {
		if d.ParticipantID == participantID {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (s *InMemoryStore) UpdateDocument(d models.DocumentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.documents {
		if s.documents[i].ID == d.ID {
			s.documents[i] = d
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) AddCallBatch(b models.CallBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callBatches[b.ID] = b
	return nil
}

func (s *InMemoryStore) GetCallBatchByEvent(eventID string) (*models.CallBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.CallBatch
	for _, b := range s.callBatches {
		if b.EventID != eventID {
			continue
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			found := b
			latest = &found
		}
	}
	return latest, nil
}

func (s *InMemoryStore) ListActiveCallBatches() ([]models.CallBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var batches []models.CallBatch
	for _, b := range s.callBatches {
		if !models.IsTerminalCallBatchStatus(b.Status) {
			batches = append(batches, b)
		}
	}
	return batches, nil
}

func (s *InMemoryStore) UpdateCallBatchStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.callBatches[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = time.Now()
	s.callBatches[id] = b
	return nil
}

func (s *InMemoryStore) AddReceipt(r models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *InMemoryStore) GetReceipts() ([]models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receipts := make([]models.Receipt, len(s.receipts))
	copy(receipts, s.receipts)
	return receipts, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
