// Package relay adapts a gas-sponsorship paymaster relay (ERC-4337 bundler
// API) to the provider surface.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/nodegate/nodegate/services/providers"
)

const probeMethod = "pm_supportedEntryPoints"

// Adapter speaks JSON-RPC over HTTP to one relay endpoint.
type Adapter struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
	requestID  atomic.Uint64
}

// New creates a relay adapter. The client timeout is a safety net; callers
// bound each call with a context deadline.
func New(name, endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *Adapter {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name returns the provider name
func (a *Adapter) Name() string {
	return a.name
}

// Probe asks the relay for its supported entry points, a cheap idempotent
// call every bundler API serves, and returns the round-trip time.
func (a *Adapter) Probe(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := a.do(ctx, probeMethod, nil)
	return time.Since(start), err
}

// Call forwards a JSON-RPC request to the relay and returns the raw result.
func (a *Adapter) Call(ctx context.Context, payload []byte) ([]byte, error) {
	var req providers.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("payload has no method")
	}
	return a.do(ctx, req.Method, req.Params)
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      uint64            `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("relay error %d: %s", e.Code, e.Message)
}

func (a *Adapter) do(ctx context.Context, method string, params []json.RawMessage) ([]byte, error) {
	if params == nil {
		params = []json.RawMessage{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      a.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned status %d: %s", httpResp.StatusCode, truncate(respBody, 200))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
