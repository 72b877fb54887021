package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/splitledger/internal/domain"
)

// PeopleStore keeps the people registry in memory, keyed by email.
type PeopleStore struct {
	mu     sync.RWMutex
	people map[string]domain.Person
}

// NewPeopleStore creates an empty in-memory people registry.
func NewPeopleStore() *PeopleStore {
	return &PeopleStore{people: make(map[string]domain.Person)}
}

// SavePerson upserts a person, keyed by email.
func (s *PeopleStore) SavePerson(ctx context.Context, p domain.Person) error {
	if p.Email == "" {
		return fmt.Errorf("memstore: person email is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Transactions = nil // registry holds configuration, not attachments
	s.people[p.Email] = p
	return nil
}

// ListPeople returns all registered people, ordered by email for stable
// member ordering. Each call hands out fresh copies so that callers may
// attach transactions without polluting the registry.
func (s *PeopleStore) ListPeople(ctx context.Context) ([]*domain.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emails := make([]string, 0, len(s.people))
	for e := range s.people {
		emails = append(emails, e)
	}
	sort.Strings(emails)

	people := make([]*domain.Person, 0, len(emails))
	for _, e := range emails {
		p := s.people[e]
		people = append(people, &p)
	}
	return people, nil
}
