package providers

import (
	"context"
	"encoding/json"
	"time"
)

// Capability identifies a kind of request an upstream provider can serve.
type Capability string

const (
	// CapabilityRPC marks a provider that serves plain Ethereum JSON-RPC calls.
	CapabilityRPC Capability = "rpc"

	// CapabilityUserOp marks a relay that sponsors single UserOperations.
	CapabilityUserOp Capability = "userOp"

	// CapabilityBundle marks a relay that accepts UserOperation bundles.
	CapabilityBundle Capability = "bundle"
)

// Adapter is the minimal surface the router needs from a backend provider.
// The router is agnostic to what sits behind it: an RPC node and a
// paymaster relay implement the same two operations.
type Adapter interface {
	// Name returns the provider name the adapter was configured with.
	Name() string

	// Probe performs a cheap idempotent call and returns its round-trip time.
	// Used by the health checker; callers bound it with a context deadline.
	Probe(ctx context.Context) (time.Duration, error)

	// Call forwards a request payload to the provider and returns the raw
	// result. Payload and result are JSON; the adapter owns the wire format.
	Call(ctx context.Context, payload []byte) ([]byte, error)
}

// Request is the payload shape shared by both adapter families: a JSON-RPC
// method with raw params. Adapters wrap it into their own envelope.
type Request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params,omitempty"`
}
