package network

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeElectrum is a minimal line-delimited JSON-RPC server for tests.
// handle maps a method name to its canned result or error.
type fakeElectrum struct {
	ln     net.Listener
	handle func(method string, params []json.RawMessage) (interface{}, *RPCError)

	// notifyFirst injects a subscription notification line before the
	// real response, exercising the client's skip logic.
	notifyFirst bool
}

func startFakeElectrum(t *testing.T, handle func(string, []json.RawMessage) (interface{}, *RPCError)) *fakeElectrum {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeElectrum{ln: ln, handle: handle}
	go f.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return f
}

func (f *fakeElectrum) serve() {
	for {
		conn, err := f.ln.Accept()
		if err != nil {
			return
		}
		go f.serveConn(conn)
	}
}

func (f *fakeElectrum) serveConn(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var req struct {
			ID     int64             `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}

		if f.notifyFirst {
			notification := map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "blockchain.headers.subscribe",
				"params":  []interface{}{map[string]interface{}{"height": 1}},
			}
			raw, _ := json.Marshal(notification)
			conn.Write(append(raw, '\n'))
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		result, rpcErr := f.handle(req.Method, req.Params)
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		raw, _ := json.Marshal(resp)
		if _, err := conn.Write(append(raw, '\n')); err != nil {
			return
		}
	}
}

// client returns a Client pointed at the fake server.
func (f *fakeElectrum) client(t *testing.T) *Client {
	t.Helper()
	_, portStr, err := net.SplitHostPort(f.ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)

	return NewClient(
		Server{Host: "127.0.0.1", Port: uint16(port), UseTLS: false},
		ClientConfig{DialTimeout: 2 * time.Second, CallTimeout: 2 * time.Second},
	)
}

func TestCall_Success(t *testing.T) {
	f := startFakeElectrum(t, func(method string, params []json.RawMessage) (interface{}, *RPCError) {
		if method == "server.version" {
			return []string{"ElectrumX 1.16", "1.4"}, nil
		}
		return nil, &RPCError{Code: -32601, Message: "unknown method"}
	})

	var version []string
	err := f.client(t).Call(context.Background(), "server.version", nil, &version)
	require.NoError(t, err)
	assert.Equal(t, []string{"ElectrumX 1.16", "1.4"}, version)
}

func TestCall_RPCError(t *testing.T) {
	f := startFakeElectrum(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return nil, &RPCError{Code: 1, Message: "the server says no"}
	})

	err := f.client(t).Call(context.Background(), "anything", nil, nil)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 1, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "says no")
}

func TestCall_SkipsNotifications(t *testing.T) {
	f := startFakeElectrum(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return "ok", nil
	})
	f.notifyFirst = true

	var result string
	err := f.client(t).Call(context.Background(), "ping", nil, &result)
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestCall_ConnectionRefused(t *testing.T) {
	// A freshly closed listener guarantees nothing is accepting.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.ParseUint(portStr, 10, 16)
	c := NewClient(
		Server{Host: "127.0.0.1", Port: uint16(port), UseTLS: false},
		ClientConfig{DialTimeout: time.Second, CallTimeout: time.Second},
	)

	err = c.Call(context.Background(), "ping", nil, nil)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestCall_ContextCancelled(t *testing.T) {
	f := startFakeElectrum(t, func(string, []json.RawMessage) (interface{}, *RPCError) {
		return "ok", nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.client(t).Call(ctx, "ping", nil, nil)
	assert.Error(t, err)
}

func TestCall_ParamsEcho(t *testing.T) {
	f := startFakeElectrum(t, func(_ string, params []json.RawMessage) (interface{}, *RPCError) {
		parts := make([]string, len(params))
		for i, p := range params {
			parts[i] = string(p)
		}
		return strings.Join(parts, ","), nil
	})

	var echoed string
	err := f.client(t).Call(context.Background(), "echo",
		[]interface{}{"abc", 7, true}, &echoed)
	require.NoError(t, err)
	assert.Equal(t, `"abc",7,true`, echoed)
}

func TestCall_MalformedResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		reader := bufio.NewReader(conn)
		if _, err := reader.ReadBytes('\n'); err != nil {
			return
		}
		conn.Write([]byte("this is not json\n"))
	}()

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.ParseUint(portStr, 10, 16)
	c := NewClient(
		Server{Host: "127.0.0.1", Port: uint16(port), UseTLS: false},
		ClientConfig{DialTimeout: time.Second, CallTimeout: time.Second},
	)

	err = c.Call(context.Background(), "ping", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestRPCError_ErrorsAs(t *testing.T) {
	var err error = &RPCError{Code: 2, Message: "busy"}
	wrapped := errors.Join(err)
	var rpcErr *RPCError
	assert.True(t, errors.As(wrapped, &rpcErr))
}
