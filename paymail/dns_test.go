package paymail

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDNS is a DNSResolver test double keyed by query name.
type mockDNS struct {
	srv    map[string][]*net.SRV
	srvErr error
	txt    map[string][]string
}

func (m *mockDNS) LookupSRV(service, proto, name string) (string, []*net.SRV, error) {
	if m.srvErr != nil {
		return "", nil, m.srvErr
	}
	return "", m.srv[service+"."+name], nil
}

func (m *mockDNS) LookupTXT(name string) ([]string, error) {
	return m.txt[name], nil
}

func TestResolveEndpoints_SortsByPriorityThenWeight(t *testing.T) {
	resolver := &mockDNS{srv: map[string][]*net.SRV{
		"bsvalias.example.com": {
			{Target: "low.example.com.", Port: 443, Priority: 20, Weight: 100},
			{Target: "heavy.example.com.", Port: 443, Priority: 10, Weight: 80},
			{Target: "light.example.com.", Port: 8443, Priority: 10, Weight: 20},
		},
	}}

	endpoints, err := ResolveEndpoints("example.com", resolver)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"heavy.example.com:443",
		"light.example.com:8443",
		"low.example.com:443",
	}, endpoints)
}

func TestResolveEndpoints_Errors(t *testing.T) {
	_, err := ResolveEndpoints("", &mockDNS{})
	assert.ErrorIs(t, err, ErrDNSLookupFailed)

	_, err = ResolveEndpoints("example.com", &mockDNS{})
	assert.ErrorIs(t, err, ErrNoEndpoints)

	_, err = ResolveEndpoints("example.com", &mockDNS{srvErr: errors.New("timeout")})
	assert.ErrorIs(t, err, ErrDNSLookupFailed)
}

func TestDiscoverHost(t *testing.T) {
	resolver := &mockDNS{srv: map[string][]*net.SRV{
		"bsvalias.handcash.io": {
			{Target: "cloud.handcash.io.", Port: 443, Priority: 10, Weight: 10},
		},
	}}

	assert.Equal(t, "cloud.handcash.io:443", DiscoverHost("handcash.io", resolver))

	// Missing record falls back to the domain itself.
	assert.Equal(t, "other.example:443", DiscoverHost("other.example", resolver))
}

func TestNewDNSSECResolver_DefaultUpstream(t *testing.T) {
	r := NewDNSSECResolver("")
	assert.Equal(t, "8.8.8.8:53", r.Upstream)

	r = NewDNSSECResolver("1.1.1.1:53")
	assert.Equal(t, "1.1.1.1:53", r.Upstream)
}
