// Package memory provides an in-memory store.Store, used in tests and as
// the zero-configuration development backend.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/veldt-dev/veldt/pkg/store"
)

type accessKey struct {
	user    uuid.UUID
	account uuid.UUID
}

// Store implements store.Store with mutex-guarded maps. The five namespaces
// of the durable layout map onto maps here.
type Store struct {
	mu sync.RWMutex

	usersByName map[string]uuid.UUID
	usersByID   map[uuid.UUID]store.User
	accounts    map[uuid.UUID]store.Account
	access      map[accessKey]store.AccessLevel
	seq         map[uuid.UUID]uint64
	objectSeq   map[store.ObjectStateKey]uint64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		usersByName: make(map[string]uuid.UUID),
		usersByID:   make(map[uuid.UUID]store.User),
		accounts:    make(map[uuid.UUID]store.Account),
		access:      make(map[accessKey]store.AccessLevel),
		seq:         make(map[uuid.UUID]uint64),
		objectSeq:   make(map[store.ObjectStateKey]uint64),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) HasAnyUsers(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.usersByID) > 0, nil
}

func (s *Store) CreateUser(_ context.Context, user store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.usersByName[user.Username]; taken {
		return store.ErrUserExists
	}
	// Both namespaces are written under one lock: a reader never observes
	// one without the other.
	s.usersByID[user.ID] = user
	s.usersByName[user.Username] = user.ID
	return nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersByName[username]
	if !ok {
		return nil, nil
	}
	user, ok := s.usersByID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *Store) CreateAccount(_ context.Context, account store.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
	return nil
}

func (s *Store) AttachAccountToUser(_ context.Context, accountID, userID uuid.UUID, access store.AccessLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The access entry and the counter bump are one atomic step under the
	// write lock; account visibility is part of what the state token tracks.
	s.access[accessKey{user: userID, account: accountID}] = access
	s.seq[userID]++
	return nil
}

func (s *Store) GetAccountsForUser(_ context.Context, userID uuid.UUID) ([]store.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []store.Account
	for key := range s.access {
		if key.user != userID {
			continue
		}
		account, ok := s.accounts[key.account]
		if !ok {
			// Dangling access entry; skip.
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (s *Store) IncrementSeqNumber(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[userID]++
	return nil
}

func (s *Store) FetchSeqNumber(_ context.Context, userID uuid.UUID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq[userID], nil
}

func (s *Store) IncrementObjectSeq(_ context.Context, key store.ObjectStateKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objectSeq[key]++
	return nil
}

func (s *Store) FetchObjectSeq(_ context.Context, key store.ObjectStateKey) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objectSeq[key], nil
}
