// Package storetest provides a reusable contract suite that every
// store.Store adapter must pass.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-dev/veldt/internal/logging"
	"github.com/veldt-dev/veldt/pkg/store"
)

// Factory builds a fresh, empty store for each subtest.
type Factory func(t *testing.T) store.Store

// Run exercises the full store contract against the adapter under test.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	ctx := context.Background()

	t.Run("HasAnyUsers_EmptyStore", func(t *testing.T) {
		s := newStore(t)
		exists, err := s.HasAnyUsers(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("CreateUser_GetByUsername", func(t *testing.T) {
		s := newStore(t)
		user, err := store.NewUser("alice", "secret")
		require.NoError(t, err)
		require.NoError(t, s.CreateUser(ctx, user))

		exists, err := s.HasAnyUsers(ctx)
		require.NoError(t, err)
		assert.True(t, exists)

		got, err := s.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Username, got.Username)
		assert.Equal(t, user.Credential, got.Credential)
	})

	t.Run("GetUserByUsername_Absent", func(t *testing.T) {
		s := newStore(t)
		got, err := s.GetUserByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Accounts_AttachAndList", func(t *testing.T) {
		s := newStore(t)
		user, err := store.NewUser("bob", "secret")
		require.NoError(t, err)
		require.NoError(t, s.CreateUser(ctx, user))

		personal := store.NewAccount("bob", true, false)
		shared := store.NewAccount("team", false, true)
		require.NoError(t, s.CreateAccount(ctx, personal))
		require.NoError(t, s.CreateAccount(ctx, shared))

		require.NoError(t, s.AttachAccountToUser(ctx, personal.ID, user.ID, store.AccessOwner))
		require.NoError(t, s.AttachAccountToUser(ctx, shared.ID, user.ID, store.AccessOwner))

		accounts, err := s.GetAccountsForUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, accounts, 2)

		byID := map[uuid.UUID]store.Account{}
		for _, acc := range accounts {
			byID[acc.ID] = acc
		}
		assert.Equal(t, personal, byID[personal.ID])
		assert.Equal(t, shared, byID[shared.ID])
	})

	t.Run("Accounts_DanglingAccessSkipped", func(t *testing.T) {
		s := newStore(t)
		user, err := store.NewUser("carol", "secret")
		require.NoError(t, err)
		require.NoError(t, s.CreateUser(ctx, user))

		kept := store.NewAccount("kept", true, false)
		require.NoError(t, s.CreateAccount(ctx, kept))
		require.NoError(t, s.AttachAccountToUser(ctx, kept.ID, user.ID, store.AccessOwner))

		// Access entry pointing at an account record that was never written.
		require.NoError(t, s.AttachAccountToUser(ctx, uuid.New(), user.ID, store.AccessOwner))

		accounts, err := s.GetAccountsForUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.Equal(t, kept.ID, accounts[0].ID)
	})

	t.Run("SeqNumber_DefaultsToZero", func(t *testing.T) {
		s := newStore(t)
		seq, err := s.FetchSeqNumber(ctx, uuid.New())
		require.NoError(t, err)
		assert.Equal(t, uint64(0), seq)
	})

	t.Run("SeqNumber_AttachIncrements", func(t *testing.T) {
		s := newStore(t)
		user, err := store.NewUser("dave", "secret")
		require.NoError(t, err)
		require.NoError(t, s.CreateUser(ctx, user))

		account := store.NewAccount("dave", true, false)
		require.NoError(t, s.CreateAccount(ctx, account))

		before, err := s.FetchSeqNumber(ctx, user.ID)
		require.NoError(t, err)

		require.NoError(t, s.AttachAccountToUser(ctx, account.ID, user.ID, store.AccessOwner))

		after, err := s.FetchSeqNumber(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	})

	t.Run("SeqNumber_ConcurrentIncrementsNeverLost", func(t *testing.T) {
		s := newStore(t)
		userID := uuid.New()

		const k = 1000
		var wg sync.WaitGroup
		wg.Add(k)
		errs := make(chan error, k)
		for i := 0; i < k; i++ {
			go func() {
				defer wg.Done()
				errs <- s.IncrementSeqNumber(ctx, userID)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		seq, err := s.FetchSeqNumber(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, uint64(k), seq)
	})

	t.Run("ObjectSeq_IndependentOfSessionCounter", func(t *testing.T) {
		s := newStore(t)
		userID := uuid.New()
		key := store.ObjectStateKey{AccountID: uuid.New(), DataType: "Contact"}
		other := store.ObjectStateKey{AccountID: key.AccountID, DataType: "ContactBook"}

		require.NoError(t, s.IncrementObjectSeq(ctx, key))
		require.NoError(t, s.IncrementObjectSeq(ctx, key))

		seq, err := s.FetchObjectSeq(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), seq)

		otherSeq, err := s.FetchObjectSeq(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), otherSeq)

		sessionSeq, err := s.FetchSeqNumber(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), sessionSeq)
	})

	t.Run("Bootstrap_Idempotent", func(t *testing.T) {
		s := newStore(t)
		logger := logging.NewNop()

		require.NoError(t, store.EnsureRootUser(ctx, s, logger))

		root, err := s.GetUserByUsername(ctx, "root")
		require.NoError(t, err)
		require.NotNil(t, root)

		accounts, err := s.GetAccountsForUser(ctx, root.ID)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		assert.True(t, accounts[0].IsPersonal)
		assert.False(t, accounts[0].IsReadOnly)

		// Second startup against the same store creates nothing new.
		require.NoError(t, store.EnsureRootUser(ctx, s, logger))

		again, err := s.GetUserByUsername(ctx, "root")
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, root.ID, again.ID)

		accounts, err = s.GetAccountsForUser(ctx, root.ID)
		require.NoError(t, err)
		assert.Len(t, accounts, 1)
	})
}
