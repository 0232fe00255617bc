package network

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Server identifies one ElectrumX endpoint.
type Server struct {
	Host   string `json:"host"`
	Port   uint16 `json:"port"`
	UseTLS bool   `json:"use_tls"`
}

// Addr returns the host:port dial string.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s Server) String() string {
	if s.UseTLS {
		return s.Addr() + ":s"
	}
	return s.Addr() + ":t"
}

// ParseServer parses the Electrum server notation "host:port:s" (TLS) or
// "host:port:t" (plain TCP). The protocol suffix defaults to TLS when
// omitted.
func ParseServer(spec string) (Server, error) {
	parts := strings.Split(strings.TrimSpace(spec), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Server{}, fmt.Errorf("network: malformed server %q (want host:port[:s|:t])", spec)
	}

	port, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || port == 0 {
		return Server{}, fmt.Errorf("network: bad port in server %q", spec)
	}

	s := Server{Host: parts[0], Port: uint16(port), UseTLS: true}
	if len(parts) == 3 {
		switch parts[2] {
		case "s":
			s.UseTLS = true
		case "t":
			s.UseTLS = false
		default:
			return Server{}, fmt.Errorf("network: unknown protocol %q in server %q", parts[2], spec)
		}
	}
	return s, nil
}

// ParseServerList parses a comma-separated list of server specs.
func ParseServerList(specs string) ([]Server, error) {
	var servers []Server
	for _, spec := range strings.Split(specs, ",") {
		if strings.TrimSpace(spec) == "" {
			continue
		}
		s, err := ParseServer(spec)
		if err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	return servers, nil
}

// DefaultServers are long-running public ElectrumX endpoints for BSV
// mainnet, tried in order.
var DefaultServers = []Server{
	{Host: "sv.usebsv.com", Port: 50002, UseTLS: true},
	{Host: "sv.satoshi.io", Port: 50002, UseTLS: true},
	{Host: "sv.jochen-hoenicke.de", Port: 50002, UseTLS: true},
}

// ClientConfig tunes the transport behaviour of a Client.
type ClientConfig struct {
	// DialTimeout bounds connection establishment. Zero means 10s.
	DialTimeout time.Duration

	// CallTimeout bounds a full request/response exchange when the
	// caller's context carries no deadline. Zero means 30s.
	CallTimeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification. Most
	// public Electrum servers use self-signed certificates; the protocol
	// is integrity-checked at the SPV layer, not the transport layer.
	InsecureSkipVerify bool
}

const (
	defaultDialTimeout = 10 * time.Second
	defaultCallTimeout = 30 * time.Second
)

func (c ClientConfig) dialTimeout() time.Duration {
	if c.DialTimeout > 0 {
		return c.DialTimeout
	}
	return defaultDialTimeout
}

func (c ClientConfig) callTimeout() time.Duration {
	if c.CallTimeout > 0 {
		return c.CallTimeout
	}
	return defaultCallTimeout
}
