package session_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-dev/veldt/pkg/adapters/memory"
	"github.com/veldt-dev/veldt/pkg/extension"
	"github.com/veldt-dev/veldt/pkg/jmap"
	"github.com/veldt-dev/veldt/pkg/session"
	"github.com/veldt-dev/veldt/pkg/store"
)

func TestBuilder_Build(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	user, err := store.NewUser("alice", "secret")
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, user))

	account := store.NewAccount("alice", true, false)
	require.NoError(t, s.CreateAccount(ctx, account))
	require.NoError(t, s.AttachAccountToUser(ctx, account.ID, user.ID, store.AccessOwner))

	registry := extension.NewRegistry(extension.NewCore(extension.DefaultCoreLimits()))
	base, err := url.Parse("https://jmap.example.com")
	require.NoError(t, err)

	doc, err := session.NewBuilder(s, registry, base).Build(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", doc.Username)
	assert.Contains(t, doc.Capabilities, extension.CoreURI)

	require.Len(t, doc.Accounts, 1)
	got := doc.Accounts[jmap.Id(account.ID.String())]
	assert.Equal(t, "alice", got.Name)
	assert.True(t, got.IsPersonal)
	assert.False(t, got.IsReadOnly)

	// Attaching the account bumped the counter once.
	assert.Equal(t, jmap.SessionState("1"), doc.State)

	assert.Equal(t, "https://jmap.example.com/api/", doc.APIURL)
	assert.Equal(t, "https://jmap.example.com/upload/{accountId}/", doc.UploadURL)
	assert.Contains(t, doc.DownloadURL, "{blobId}")
	assert.Contains(t, doc.EventSourceURL, "{types}")
}

func TestBuilder_UnknownUser(t *testing.T) {
	s := memory.New()
	registry := extension.NewRegistry(extension.NewCore(extension.DefaultCoreLimits()))
	base, err := url.Parse("https://jmap.example.com")
	require.NoError(t, err)

	_, err = session.NewBuilder(s, registry, base).Build(context.Background(), "nobody")
	assert.Error(t, err)
}
