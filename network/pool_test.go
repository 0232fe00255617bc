package network

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deadServer reserves then releases a port, yielding an address that
// refuses connections.
func deadServer(t *testing.T) Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	port, err := strconv.ParseUint(portStr, 10, 16)
	require.NoError(t, err)
	return Server{Host: "127.0.0.1", Port: uint16(port), UseTLS: false}
}

func testPool(t *testing.T, servers ...Server) *Pool {
	t.Helper()
	p, err := NewPool(servers, ClientConfig{
		DialTimeout: time.Second,
		CallTimeout: time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestPool_FailsOver(t *testing.T) {
	f := startFakeElectrum(t, func(method string, _ []json.RawMessage) (interface{}, *RPCError) {
		return map[string]interface{}{"height": 123456}, nil
	})
	live := f.client(t).Server()

	p := testPool(t, deadServer(t), live)
	tip, err := p.TipHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(123456), tip)

	// The healthy server is remembered for the next call.
	assert.Equal(t, int32(1), p.preferred.Load())
}

func TestPool_ConcurrentCalls(t *testing.T) {
	handler := func(method string, _ []json.RawMessage) (interface{}, *RPCError) {
		return map[string]interface{}{"height": 700000}, nil
	}
	a := startFakeElectrum(t, handler)
	b := startFakeElectrum(t, handler)

	// Parallel callers read and write the preferred index concurrently;
	// this must stay clean under the race detector.
	p := testPool(t, a.client(t).Server(), b.client(t).Server())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tip, err := p.TipHeight(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, uint32(700000), tip)
		}()
	}
	wg.Wait()
}

func TestPool_AllServersFailed(t *testing.T) {
	p := testPool(t, deadServer(t), deadServer(t))
	_, err := p.TipHeight(context.Background())
	assert.ErrorIs(t, err, ErrAllServersFailed)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestPool_DomainErrorStopsRotation(t *testing.T) {
	var calls int
	f := startFakeElectrum(t, func(method string, _ []json.RawMessage) (interface{}, *RPCError) {
		calls++
		return nil, &RPCError{Code: 1, Message: "dust"}
	})
	live := f.client(t).Server()

	// A rejected broadcast must not be retried on the second server.
	p := testPool(t, live, deadServer(t))
	_, err := p.Broadcast(context.Background(), "00")
	assert.ErrorIs(t, err, ErrBroadcastRejected)
	assert.Equal(t, 1, calls)
}

func TestPool_NoServers(t *testing.T) {
	_, err := NewPool(nil, ClientConfig{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoServers)
}
