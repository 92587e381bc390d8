package extension

import (
	"context"

	"github.com/google/uuid"

	"github.com/veldt-dev/veldt/pkg/jmap"
)

// CoreURI is the capability URI every JMAP server must advertise.
const CoreURI = "urn:ietf:params:jmap:core"

// CoreLimits are the server limits advertised in the core capability and
// enforced at the transport. Zero values are replaced by the RFC 8620
// suggested minimums via DefaultCoreLimits.
type CoreLimits struct {
	MaxSizeUpload         jmap.UnsignedInt `json:"maxSizeUpload" yaml:"max_size_upload"`
	MaxConcurrentUpload   jmap.UnsignedInt `json:"maxConcurrentUpload" yaml:"max_concurrent_upload"`
	MaxSizeRequest        jmap.UnsignedInt `json:"maxSizeRequest" yaml:"max_size_request"`
	MaxConcurrentRequests jmap.UnsignedInt `json:"maxConcurrentRequests" yaml:"max_concurrent_requests"`
	MaxCallsInRequest     jmap.UnsignedInt `json:"maxCallsInRequest" yaml:"max_calls_in_request"`
	MaxObjectsInGet       jmap.UnsignedInt `json:"maxObjectsInGet" yaml:"max_objects_in_get"`
	MaxObjectsInSet       jmap.UnsignedInt `json:"maxObjectsInSet" yaml:"max_objects_in_set"`
}

// DefaultCoreLimits returns the RFC 8620 suggested minimums.
func DefaultCoreLimits() CoreLimits {
	return CoreLimits{
		MaxSizeUpload:         50_000_000,
		MaxConcurrentUpload:   4,
		MaxSizeRequest:        10_000_000,
		MaxConcurrentRequests: 4,
		MaxCallsInRequest:     16,
		MaxObjectsInGet:       500,
		MaxObjectsInSet:       500,
	}
}

// coreCapability is the session-capability metadata for the core extension.
type coreCapability struct {
	CoreLimits
	CollationAlgorithms []string `json:"collationAlgorithms"`
}

// Core is the mandatory core extension: the Core/echo endpoint plus the
// advertised server limits.
type Core struct {
	limits CoreLimits
}

// NewCore builds the core extension with the given limits.
func NewCore(limits CoreLimits) *Core {
	return &Core{limits: limits}
}

// Limits returns the configured server limits.
func (c *Core) Limits() CoreLimits { return c.limits }

func (c *Core) URI() string       { return CoreURI }
func (c *Core) Namespace() string { return "Core" }

func (c *Core) Endpoints() map[string]Handler {
	return map[string]Handler{
		"echo": HandlerFunc(echo),
	}
}

// SessionCapability advertises the configured limits. The metadata does not
// vary per user.
func (c *Core) SessionCapability(_ uuid.UUID) any {
	return coreCapability{CoreLimits: c.limits, CollationAlgorithms: []string{}}
}

// echo returns its arguments verbatim (RFC 8620 section 4).
func echo(_ context.Context, args jmap.ResolvedArguments) (map[string]any, error) {
	return map[string]any(args), nil
}
