// Package ethrpc adapts an Ethereum JSON-RPC node to the provider surface.
package ethrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/nodegate/nodegate/services/providers"
)

// Adapter wraps a go-ethereum RPC client for one node endpoint.
type Adapter struct {
	name   string
	client *gethrpc.Client
	logger *zap.Logger
}

// New dials the endpoint and returns the adapter. HTTP endpoints dial
// lazily, so this performs no network I/O.
func New(name, endpoint string, logger *zap.Logger) (*Adapter, error) {
	client, err := gethrpc.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}
	return &Adapter{
		name:   name,
		client: client,
		logger: logger,
	}, nil
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.name
}

// Probe fetches the current block height, the cheapest idempotent call an
// execution client serves, and returns the round-trip time.
func (a *Adapter) Probe(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var blockNumber hexutil.Uint64
	err := a.client.CallContext(ctx, &blockNumber, "eth_blockNumber")
	return time.Since(start), err
}

// Call forwards a JSON-RPC request to the node and returns the raw result.
func (a *Adapter) Call(ctx context.Context, payload []byte) ([]byte, error) {
	var req providers.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("payload has no method")
	}

	params := make([]interface{}, len(req.Params))
	for i, p := range req.Params {
		params[i] = p
	}

	var result json.RawMessage
	if err := a.client.CallContext(ctx, &result, req.Method, params...); err != nil {
		return nil, err
	}
	return result, nil
}

// Close releases the underlying client
func (a *Adapter) Close() {
	a.client.Close()
}
