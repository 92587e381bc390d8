// Package pipeline executes a decoded JMAP request for an authenticated
// user: strictly sequential method calls, per-call argument resolution
// against earlier responses, dispatch through the extension registry, and
// per-call error isolation. Method calls commit independently; a failed
// call never aborts the batch or rolls back prior calls.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veldt-dev/veldt/pkg/extension"
	"github.com/veldt-dev/veldt/pkg/jmap"
	"github.com/veldt-dev/veldt/pkg/store"
)

// ErrUnknownUser is returned when the authenticated principal has no user
// record. The transport treats it as an authentication failure.
var ErrUnknownUser = fmt.Errorf("authenticated user not found")

// Pipeline wires the resolver, the registry and the store together.
type Pipeline struct {
	store    store.Store
	registry *extension.Registry
	logger   *slog.Logger
}

// New creates a pipeline.
func New(s store.Store, registry *extension.Registry, logger *slog.Logger) *Pipeline {
	return &Pipeline{store: s, registry: registry, logger: logger}
}

// Process runs every method call of the request in order and assembles the
// response. Only storage failures around the session state itself are
// returned as errors; everything per-call lands inside the response.
func (p *Pipeline) Process(ctx context.Context, username string, req *jmap.Request) (*jmap.Response, error) {
	user, err := p.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if user == nil {
		return nil, ErrUnknownUser
	}

	resp := &jmap.Response{
		MethodResponses: make([]jmap.Invocation, 0, len(req.MethodCalls)),
		CreatedIDs:      req.CreatedIDs,
	}

	for _, call := range req.MethodCalls {
		resp.MethodResponses = append(resp.MethodResponses, p.processCall(ctx, call, resp.MethodResponses))
	}

	// Read the counter after the batch so state-mutating calls are
	// reflected in the token handed back.
	seq, err := p.store.FetchSeqNumber(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("fetching session state: %w", err)
	}
	resp.SessionState = jmap.SessionStateFromSeq(seq)

	return resp, nil
}

// processCall resolves and dispatches one invocation. prior holds only the
// responses produced so far, which is what makes forward references
// structurally unresolvable.
func (p *Pipeline) processCall(ctx context.Context, call jmap.Invocation, prior []jmap.Invocation) jmap.Invocation {
	resolved, methodErr := jmap.ResolveArguments(prior, call.Arguments)
	if methodErr != nil {
		p.logger.Warn("argument resolution failed",
			"method", call.Name, "callId", call.CallID, "err", methodErr.Error())
		return methodErr.Invocation(call.CallID)
	}

	result, methodErr := p.registry.Dispatch(ctx, call.Name, resolved)
	if methodErr != nil {
		p.logger.Warn("method call failed",
			"method", call.Name, "callId", call.CallID, "err", methodErr.Error())
		return methodErr.Invocation(call.CallID)
	}

	args, err := jmap.AbsoluteArguments(result)
	if err != nil {
		p.logger.Error("handler result not serializable",
			"method", call.Name, "callId", call.CallID, "err", err)
		serverFail := &jmap.MethodError{Kind: jmap.ErrServerFail}
		return serverFail.Invocation(call.CallID)
	}

	return jmap.Invocation{Name: call.Name, Arguments: args, CallID: call.CallID}
}
