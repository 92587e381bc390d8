// Package store defines the durable account/state model: users, accounts,
// user-account linkage and the per-user sequence counters behind state
// tokens. Adapters under pkg/adapters implement the ports declared here.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUserExists is returned when creating a user whose username is taken.
var ErrUserExists = errors.New("user already exists")

// AccessLevel describes a user's access to a linked account.
type AccessLevel uint8

const (
	// AccessOwner is currently the only access level.
	AccessOwner AccessLevel = 1
)

// User is an authenticatable principal. Credential holds the encoded
// password hash, never a plaintext.
type User struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Credential string    `json:"credential"`
}

// NewUser creates a user with a fresh id and a hashed credential.
func NewUser(username, password string) (User, error) {
	credential, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return User{ID: uuid.New(), Username: username, Credential: credential}, nil
}

// VerifyPassword checks a candidate password against the stored credential.
func (u User) VerifyPassword(password string) (bool, error) {
	return VerifyPassword(u.Credential, password)
}

// Account is a collection of data a user may access.
type Account struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	IsPersonal bool      `json:"isPersonal"`
	IsReadOnly bool      `json:"isReadOnly"`
}

// NewAccount creates an account with a fresh id.
func NewAccount(name string, personal, readOnly bool) Account {
	return Account{ID: uuid.New(), Name: name, IsPersonal: personal, IsReadOnly: readOnly}
}

// ObjectStateKey keys a per-account, per-data-type state counter, the
// generalisation of the session counter used by /get- and /changes-style
// methods.
type ObjectStateKey struct {
	AccountID uuid.UUID
	DataType  string
}

// UserStore persists users across two namespaces (by id and by username);
// a reader must never observe one write without the other.
type UserStore interface {
	// HasAnyUsers reports whether any user exists. Used once at startup to
	// decide whether to bootstrap the root user.
	HasAnyUsers(ctx context.Context) (bool, error)
	CreateUser(ctx context.Context, user User) error
	// GetUserByUsername returns nil with no error when the user is absent.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// AccountStore persists accounts and user-account linkage.
type AccountStore interface {
	CreateAccount(ctx context.Context, account Account) error
	// AttachAccountToUser writes the access entry and atomically bumps the
	// user's sequence counter: account visibility is part of what the state
	// token tracks.
	AttachAccountToUser(ctx context.Context, accountID, userID uuid.UUID, access AccessLevel) error
	// GetAccountsForUser resolves the user's access entries. Entries whose
	// account record is missing are silently skipped.
	GetAccountsForUser(ctx context.Context, userID uuid.UUID) ([]Account, error)
}

// SeqStore provides the monotonic counters behind state tokens. Increments
// must be linearizable under concurrent callers: a lost increment would let
// two different server states mint the same token.
type SeqStore interface {
	IncrementSeqNumber(ctx context.Context, userID uuid.UUID) error
	// FetchSeqNumber returns 0 for a counter that was never incremented.
	FetchSeqNumber(ctx context.Context, userID uuid.UUID) (uint64, error)
	// IncrementObjectSeq / FetchObjectSeq are the per-(account, data type)
	// counters backing object state strings, independent of the session
	// counter.
	IncrementObjectSeq(ctx context.Context, key ObjectStateKey) error
	FetchObjectSeq(ctx context.Context, key ObjectStateKey) (uint64, error)
}

// Store is the full account/state storage surface.
type Store interface {
	UserStore
	AccountStore
	SeqStore
}
