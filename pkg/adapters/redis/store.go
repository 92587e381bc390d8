// Package redis implements store.Store on Redis. The five namespaces of
// the durable layout become key prefixes; Redis INCR supplies the atomic
// read-modify-write the state-token counters require, playing the role a
// merge operator plays on an embedded engine.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/veldt-dev/veldt/pkg/store"
)

// Store implements store.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix overrides the key prefix shared by every namespace.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "veldt:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) userNameKey(username string) string { return s.prefix + "user:name:" + username }
func (s *Store) userIDKey(id uuid.UUID) string      { return s.prefix + "user:id:" + id.String() }
func (s *Store) accountKey(id uuid.UUID) string     { return s.prefix + "account:id:" + id.String() }
func (s *Store) seqKey(userID uuid.UUID) string     { return s.prefix + "seq:" + userID.String() }

func (s *Store) accessKey(userID, accountID uuid.UUID) string {
	return s.prefix + "access:" + userID.String() + ":" + accountID.String()
}

func (s *Store) objectSeqKey(key store.ObjectStateKey) string {
	return s.prefix + "objseq:" + key.AccountID.String() + ":" + key.DataType
}

// HasAnyUsers scans the users-by-id namespace for a single key.
func (s *Store) HasAnyUsers(ctx context.Context) (bool, error) {
	iter := s.client.Scan(ctx, 0, s.prefix+"user:id:*", 1).Iterator()
	if iter.Next(ctx) {
		return true, nil
	}
	if err := iter.Err(); err != nil {
		return false, fmt.Errorf("scanning users: %w", err)
	}
	return false, nil
}

// CreateUser claims the username index first (SETNX), then writes the
// record. The two writes are independently idempotent: a failure in
// between leaves a dangling index repairable by re-running the write.
func (s *Store) CreateUser(ctx context.Context, user store.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, s.userNameKey(user.Username), user.ID.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("claiming username: %w", err)
	}
	if !claimed {
		return store.ErrUserExists
	}

	if err := s.client.Set(ctx, s.userIDKey(user.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("storing user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	idStr, err := s.client.Get(ctx, s.userNameKey(username)).Result()
	if errors.Is(err, backend.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up username: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt username index for %q: %w", username, err)
	}

	data, err := s.client.Get(ctx, s.userIDKey(id)).Result()
	if errors.Is(err, backend.Nil) {
		// Dangling index entry.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}

	var user store.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	return &user, nil
}

func (s *Store) CreateAccount(ctx context.Context, account store.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("encoding account: %w", err)
	}
	if err := s.client.Set(ctx, s.accountKey(account.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("storing account: %w", err)
	}
	return nil
}

// AttachAccountToUser writes the access entry and bumps the user's counter
// in one transactional pipeline, since account visibility is part of what
// the state token tracks.
func (s *Store) AttachAccountToUser(ctx context.Context, accountID, userID uuid.UUID, access store.AccessLevel) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.accessKey(userID, accountID), int(access), 0)
		pipe.Incr(ctx, s.seqKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("attaching account: %w", err)
	}
	return nil
}

func (s *Store) GetAccountsForUser(ctx context.Context, userID uuid.UUID) ([]store.Account, error) {
	pattern := s.prefix + "access:" + userID.String() + ":*"
	keyPrefix := s.prefix + "access:" + userID.String() + ":"

	var accounts []store.Account
	iter := s.client.Scan(ctx, 0, pattern, 64).Iterator()
	for iter.Next(ctx) {
		accountID, err := uuid.Parse(strings.TrimPrefix(iter.Val(), keyPrefix))
		if err != nil {
			return nil, fmt.Errorf("corrupt access key %q: %w", iter.Val(), err)
		}

		data, err := s.client.Get(ctx, s.accountKey(accountID)).Result()
		if errors.Is(err, backend.Nil) {
			// Access entry with no account record; skip.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("fetching account: %w", err)
		}

		var account store.Account
		if err := json.Unmarshal([]byte(data), &account); err != nil {
			return nil, fmt.Errorf("decoding account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning access entries: %w", err)
	}
	return accounts, nil
}

// IncrementSeqNumber relies on INCR being atomic server-side; concurrent
// increments are never lost.
func (s *Store) IncrementSeqNumber(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Incr(ctx, s.seqKey(userID)).Err(); err != nil {
		return fmt.Errorf("incrementing seq number: %w", err)
	}
	return nil
}

func (s *Store) FetchSeqNumber(ctx context.Context, userID uuid.UUID) (uint64, error) {
	return s.fetchCounter(ctx, s.seqKey(userID))
}

func (s *Store) IncrementObjectSeq(ctx context.Context, key store.ObjectStateKey) error {
	if err := s.client.Incr(ctx, s.objectSeqKey(key)).Err(); err != nil {
		return fmt.Errorf("incrementing object seq: %w", err)
	}
	return nil
}

func (s *Store) FetchObjectSeq(ctx context.Context, key store.ObjectStateKey) (uint64, error) {
	return s.fetchCounter(ctx, s.objectSeqKey(key))
}

func (s *Store) fetchCounter(ctx context.Context, key string) (uint64, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, backend.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetching counter: %w", err)
	}
	seq, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt counter %q: %w", key, err)
	}
	return seq, nil
}
