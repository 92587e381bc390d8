// Package session builds the read-only JMAP session resource served from
// /.well-known/jmap (RFC 8620 section 2): the advertised capabilities, the
// accounts visible to the authenticated user, the endpoint URL templates
// and the session state token.
package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/veldt-dev/veldt/pkg/extension"
	"github.com/veldt-dev/veldt/pkg/jmap"
	"github.com/veldt-dev/veldt/pkg/store"
)

// Session is the wire document.
type Session struct {
	Capabilities    map[string]any      `json:"capabilities"`
	Accounts        map[jmap.Id]Account `json:"accounts"`
	PrimaryAccounts map[string]jmap.Id  `json:"primaryAccounts"`
	Username        string              `json:"username"`
	APIURL          string              `json:"apiUrl"`
	DownloadURL     string              `json:"downloadUrl"`
	UploadURL       string              `json:"uploadUrl"`
	EventSourceURL  string              `json:"eventSourceUrl"`
	State           jmap.SessionState   `json:"state"`
}

// Account is the per-account entry of the session document.
type Account struct {
	Name                string         `json:"name"`
	IsPersonal          bool           `json:"isPersonal"`
	IsReadOnly          bool           `json:"isReadOnly"`
	AccountCapabilities map[string]any `json:"accountCapabilities"`
}

// Builder assembles session documents. The endpoint URLs derive from an
// immutable base URL captured at construction, so multiple configurations
// can coexist in one process.
type Builder struct {
	store    store.Store
	registry *extension.Registry

	apiURL         string
	downloadURL    string
	uploadURL      string
	eventSourceURL string
}

// NewBuilder precomputes the endpoint URL templates from the base URL.
func NewBuilder(s store.Store, registry *extension.Registry, baseURL *url.URL) *Builder {
	base := strings.TrimSuffix(baseURL.String(), "/")
	return &Builder{
		store:          s,
		registry:       registry,
		apiURL:         base + "/api/",
		downloadURL:    base + "/download/{accountId}/{blobId}/{name}?accept={type}",
		uploadURL:      base + "/upload/{accountId}/",
		eventSourceURL: base + "/eventsource/?types={types}&closeafter={closeafter}&ping={ping}",
	}
}

// Build produces the session document for an authenticated user.
func (b *Builder) Build(ctx context.Context, username string) (*Session, error) {
	user, err := b.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("no user record for %q", username)
	}

	accounts, err := b.store.GetAccountsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	seq, err := b.store.FetchSeqNumber(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching session state: %w", err)
	}

	doc := &Session{
		Capabilities:    b.registry.SessionCapabilities(user.ID),
		Accounts:        make(map[jmap.Id]Account, len(accounts)),
		PrimaryAccounts: map[string]jmap.Id{},
		Username:        user.Username,
		APIURL:          b.apiURL,
		DownloadURL:     b.downloadURL,
		UploadURL:       b.uploadURL,
		EventSourceURL:  b.eventSourceURL,
		State:           jmap.SessionStateFromSeq(seq),
	}

	for _, account := range accounts {
		doc.Accounts[jmap.Id(account.ID.String())] = Account{
			Name:                account.Name,
			IsPersonal:          account.IsPersonal,
			IsReadOnly:          account.IsReadOnly,
			AccountCapabilities: b.registry.AccountCapabilities(user.ID, account.ID),
		}
	}

	return doc, nil
}
