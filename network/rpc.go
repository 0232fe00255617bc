package network

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// Client is a JSON-RPC client for a single ElectrumX server. The
// protocol is line-delimited: one JSON request per line over TCP or TLS,
// one JSON response per line back. Each Call dials a fresh connection,
// which keeps the client stateless and lets the pool fail over cleanly.
// All high-level blockchain methods are built on top of the Call method.
type Client struct {
	server Server
	cfg    ClientConfig
	nextID atomic.Int64
}

// rpcRequest represents a JSON-RPC request payload.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC response payload. Server-initiated
// notifications carry a method instead of an id and are skipped.
type rpcResponse struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error returned by the JSON-RPC server itself, as
// opposed to a transport failure. Callers match it with errors.As to
// map server-side rejections onto domain errors.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("network: rpc error %d: %s", e.Code, e.Message)
}

// NewClient creates a JSON-RPC client for one server.
func NewClient(server Server, cfg ClientConfig) *Client {
	return &Client{server: server, cfg: cfg}
}

// Server returns the endpoint this client talks to.
func (c *Client) Server() Server {
	return c.server
}

// Call invokes a JSON-RPC method on the server. It dials, sends the
// newline-terminated request, and reads response lines until one
// answers this request's id, skipping any subscription notifications
// the server interleaves.
//
// If params is nil, an empty params array is sent. If result is nil,
// the response result is discarded.
//
// Call returns ErrConnectionFailed if the dial or exchange fails, and
// ErrInvalidResponse if the response cannot be decoded. RPC-level
// errors are returned as plain errors with the server's message.
func (c *Client) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("network: marshal request: %w", err)
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrConnectionFailed, c.server.Addr(), err)
	}
	defer func() { _ = conn.Close() }()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.cfg.callTimeout())
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	if _, err := conn.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("%w: write: %w", ErrConnectionFailed, err)
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("%w: read: %w", ErrConnectionFailed, err)
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(line, &rpcResp); err != nil {
			return fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
		}

		// Notifications (headers.subscribe pushes) have no id.
		if rpcResp.ID == nil {
			continue
		}
		if *rpcResp.ID != reqBody.ID {
			return fmt.Errorf("%w: response ID mismatch: expected %d, got %d",
				ErrInvalidResponse, reqBody.ID, *rpcResp.ID)
		}

		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("%w: unmarshal result: %w", ErrInvalidResponse, err)
			}
		}
		return nil
	}
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: c.cfg.dialTimeout()}
	if !c.server.UseTLS {
		return dialer.DialContext(ctx, "tcp", c.server.Addr())
	}

	tlsDialer := &tls.Dialer{
		NetDialer: dialer,
		Config: &tls.Config{
			ServerName:         c.server.Host,
			InsecureSkipVerify: c.cfg.InsecureSkipVerify,
		},
	}
	return tlsDialer.DialContext(ctx, "tcp", c.server.Addr())
}
