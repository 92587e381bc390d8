package pipeline_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt-dev/veldt/internal/logging"
	"github.com/veldt-dev/veldt/pkg/adapters/memory"
	"github.com/veldt-dev/veldt/pkg/extension"
	"github.com/veldt-dev/veldt/pkg/jmap"
	"github.com/veldt-dev/veldt/pkg/pipeline"
	"github.com/veldt-dev/veldt/pkg/store"
)

func newTestPipeline(t *testing.T, exts ...extension.Extension) (*pipeline.Pipeline, store.Store, store.User) {
	t.Helper()
	s := memory.New()
	user, err := store.NewUser("alice", "secret")
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(context.Background(), user))

	if len(exts) == 0 {
		exts = []extension.Extension{extension.NewCore(extension.DefaultCoreLimits())}
	}
	return pipeline.New(s, extension.NewRegistry(exts...), logging.NewNop()), s, user
}

func decodeRequest(t *testing.T, body string) *jmap.Request {
	t.Helper()
	req, problem := jmap.DecodeRequest([]byte(body))
	require.Nil(t, problem)
	return req
}

func TestProcess_EchoRoundTrip(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	req := decodeRequest(t, `{
		"using": ["urn:ietf:params:jmap:core"],
		"methodCalls": [["Core/echo", {"foo": "bar"}, "c1"]]
	}`)

	resp, err := p.Process(context.Background(), "alice", req)
	require.NoError(t, err)

	require.Len(t, resp.MethodResponses, 1)
	out := resp.MethodResponses[0]
	assert.Equal(t, "Core/echo", out.Name)
	assert.Equal(t, "c1", out.CallID)
	assert.JSONEq(t, `"bar"`, string(out.Arguments["foo"].Value))
}

func TestProcess_ResponseMatchesCallOrder(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	req := decodeRequest(t, `{
		"using": ["urn:ietf:params:jmap:core"],
		"methodCalls": [
			["Core/echo", {"n": 1}, "c1"],
			["Nope/op", {}, "c2"],
			["Core/echo", {"n": 3}, "c3"]
		]
	}`)

	resp, err := p.Process(context.Background(), "alice", req)
	require.NoError(t, err)

	require.Len(t, resp.MethodResponses, len(req.MethodCalls))
	for i, call := range req.MethodCalls {
		assert.Equal(t, call.CallID, resp.MethodResponses[i].CallID)
	}

	// The failed middle call is isolated; its neighbours succeed.
	assert.Equal(t, "Core/echo", resp.MethodResponses[0].Name)
	assert.Equal(t, "error", resp.MethodResponses[1].Name)
	assert.JSONEq(t, `"unknownMethod"`, string(resp.MethodResponses[1].Arguments["type"].Value))
	assert.Equal(t, "Core/echo", resp.MethodResponses[2].Name)
}

func TestProcess_BackwardReferenceResolves(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	req := decodeRequest(t, `{
		"using": ["urn:ietf:params:jmap:core"],
		"methodCalls": [
			["Core/echo", {"ids": [{"id": "a"}, {"id": "b"}]}, "c1"],
			["Core/echo", {"#got": {"resultOf": "c1", "name": "Core/echo", "path": "ids/*/id"}}, "c2"]
		]
	}`)

	resp, err := p.Process(context.Background(), "alice", req)
	require.NoError(t, err)

	require.Len(t, resp.MethodResponses, 2)
	second := resp.MethodResponses[1]
	assert.Equal(t, "Core/echo", second.Name)
	assert.JSONEq(t, `["a", "b"]`, string(second.Arguments["got"].Value))
}

func TestProcess_ForwardReferenceFails(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	req := decodeRequest(t, `{
		"using": ["urn:ietf:params:jmap:core"],
		"methodCalls": [
			["Core/echo", {"#got": {"resultOf": "c2", "name": "Core/echo", "path": "/foo"}}, "c1"],
			["Core/echo", {"foo": "bar"}, "c2"]
		]
	}`)

	resp, err := p.Process(context.Background(), "alice", req)
	require.NoError(t, err)

	require.Len(t, resp.MethodResponses, 2)
	first := resp.MethodResponses[0]
	assert.Equal(t, "error", first.Name)
	assert.Equal(t, "c1", first.CallID)
	assert.JSONEq(t, `"invalidResultReference"`, string(first.Arguments["type"].Value))

	// The call it pointed at still ran normally.
	assert.Equal(t, "Core/echo", resp.MethodResponses[1].Name)
}

func TestProcess_SessionStateReflectsCounter(t *testing.T) {
	p, s, user := newTestPipeline(t)
	ctx := context.Background()

	req := decodeRequest(t, `{
		"using": ["urn:ietf:params:jmap:core"],
		"methodCalls": [["Nope/op", {}, "c1"]]
	}`)

	resp, err := p.Process(ctx, "alice", req)
	require.NoError(t, err)
	assert.Equal(t, jmap.SessionState("0"), resp.SessionState)

	require.NoError(t, s.IncrementSeqNumber(ctx, user.ID))
	require.NoError(t, s.IncrementSeqNumber(ctx, user.ID))

	resp, err = p.Process(ctx, "alice", req)
	require.NoError(t, err)
	assert.Equal(t, jmap.SessionState("2"), resp.SessionState)
}

func TestProcess_StateMutatingCallReflectedInToken(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	user, err := store.NewUser("alice", "secret")
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, user))

	// An extension whose handler mutates account-relevant data.
	bump := &bumpExtension{store: s, user: user.ID}
	p := pipeline.New(s, extension.NewRegistry(extension.NewCore(extension.DefaultCoreLimits()), bump), logging.NewNop())

	req := decodeRequest(t, `{
		"using": ["urn:ietf:params:jmap:core"],
		"methodCalls": [["Bump/do", {}, "c1"]]
	}`)

	resp, err := p.Process(ctx, "alice", req)
	require.NoError(t, err)
	assert.Equal(t, jmap.SessionState("1"), resp.SessionState)
}

func TestProcess_UnknownPrincipal(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	req := decodeRequest(t, `{"using": [], "methodCalls": []}`)

	_, err := p.Process(context.Background(), "mallory", req)
	assert.ErrorIs(t, err, pipeline.ErrUnknownUser)
}

func TestProcess_CreatedIDsEchoed(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	req := decodeRequest(t, `{
		"using": ["urn:ietf:params:jmap:core"],
		"methodCalls": [],
		"createdIds": {"tmp1": "real1"}
	}`)

	resp, err := p.Process(context.Background(), "alice", req)
	require.NoError(t, err)
	assert.Equal(t, map[jmap.Id]jmap.Id{"tmp1": "real1"}, resp.CreatedIDs)
}

type bumpExtension struct {
	store store.Store
	user  uuid.UUID
}

func (b *bumpExtension) URI() string       { return "urn:example:bump" }
func (b *bumpExtension) Namespace() string { return "Bump" }

func (b *bumpExtension) Endpoints() map[string]extension.Handler {
	return map[string]extension.Handler{
		"do": extension.HandlerFunc(func(ctx context.Context, _ jmap.ResolvedArguments) (map[string]any, error) {
			account := store.NewAccount("extra", false, false)
			if err := b.store.CreateAccount(ctx, account); err != nil {
				return nil, err
			}
			if err := b.store.AttachAccountToUser(ctx, account.ID, b.user, store.AccessOwner); err != nil {
				return nil, err
			}
			return map[string]any{"done": true}, nil
		}),
	}
}
