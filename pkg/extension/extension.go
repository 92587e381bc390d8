// Package extension implements the pluggable capability mechanism: a fixed
// registry of extensions, each contributing session/account capability
// metadata and a set of method handlers reachable as "Namespace/endpoint"
// names.
package extension

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/veldt-dev/veldt/pkg/jmap"
)

// Handler executes one endpoint. Its only side channel is whatever stores
// the extension captured at construction; the dispatch mechanism itself is
// stateless.
type Handler interface {
	Handle(ctx context.Context, args jmap.ResolvedArguments) (map[string]any, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, args jmap.ResolvedArguments) (map[string]any, error)

func (f HandlerFunc) Handle(ctx context.Context, args jmap.ResolvedArguments) (map[string]any, error) {
	return f(ctx, args)
}

// Extension is a pluggable unit: a capability URI, a routing namespace and
// the endpoints served under it. Extensions are constructed once at startup
// and must be immutable afterwards.
type Extension interface {
	// URI names the capability this extension provides
	// (eg. "urn:ietf:params:jmap:contacts").
	URI() string
	// Namespace is the method-name prefix this extension routes
	// (eg. "Core" for "Core/echo").
	Namespace() string
	// Endpoints maps endpoint names to their handlers.
	Endpoints() map[string]Handler
}

// SessionCapability is implemented by extensions that advertise metadata in
// the session resource's capabilities object.
type SessionCapability interface {
	SessionCapability(userID uuid.UUID) any
}

// AccountCapability is implemented by extensions that advertise per-account
// metadata in the session resource.
type AccountCapability interface {
	AccountCapability(userID, accountID uuid.UUID) any
}

// Registry holds the fixed set of extensions registered at startup and
// routes method names to their handlers.
type Registry struct {
	byNamespace map[string]Extension
	byURI       map[string]Extension
}

// NewRegistry builds a registry. Later extensions win namespace and URI
// collisions, mirroring last-registration-wins routing.
func NewRegistry(exts ...Extension) *Registry {
	r := &Registry{
		byNamespace: make(map[string]Extension, len(exts)),
		byURI:       make(map[string]Extension, len(exts)),
	}
	for _, ext := range exts {
		r.byNamespace[ext.Namespace()] = ext
		r.byURI[ext.URI()] = ext
	}
	return r
}

// Supports reports whether a capability URI is provided by a registered
// extension. Backs validation of a request's "using" property.
func (r *Registry) Supports(uri string) bool {
	_, ok := r.byURI[uri]
	return ok
}

// Dispatch routes a method name to its handler and executes it. Unknown
// namespaces and endpoints yield unknownMethod; handler failures map onto
// the method error taxonomy.
func (r *Registry) Dispatch(ctx context.Context, method string, args jmap.ResolvedArguments) (map[string]any, *jmap.MethodError) {
	namespace, endpoint, found := strings.Cut(method, "/")
	if !found {
		return nil, &jmap.MethodError{Kind: jmap.ErrUnknownMethod}
	}

	ext, ok := r.byNamespace[namespace]
	if !ok {
		return nil, &jmap.MethodError{Kind: jmap.ErrUnknownMethod}
	}
	handler, ok := ext.Endpoints()[endpoint]
	if !ok {
		return nil, &jmap.MethodError{Kind: jmap.ErrUnknownMethod}
	}

	result, err := handler.Handle(ctx, args)
	if err != nil {
		var methodErr *jmap.MethodError
		if errors.As(err, &methodErr) {
			return nil, methodErr
		}
		return nil, &jmap.MethodError{Kind: jmap.ErrServerFail, Description: err.Error()}
	}
	return result, nil
}

// SessionCapabilities collects {capability URI -> metadata} for every
// registered extension that declares session metadata. Independent of any
// particular request; cacheable per user while the registry is immutable.
func (r *Registry) SessionCapabilities(userID uuid.UUID) map[string]any {
	out := make(map[string]any)
	for uri, ext := range r.byURI {
		if sc, ok := ext.(SessionCapability); ok {
			out[uri] = sc.SessionCapability(userID)
		}
	}
	return out
}

// AccountCapabilities collects per-account capability metadata.
func (r *Registry) AccountCapabilities(userID, accountID uuid.UUID) map[string]any {
	out := make(map[string]any)
	for uri, ext := range r.byURI {
		if ac, ok := ext.(AccountCapability); ok {
			out[uri] = ac.AccountCapability(userID, accountID)
		}
	}
	return out
}
