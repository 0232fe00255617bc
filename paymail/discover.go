package paymail

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxResponseSize bounds bsvalias response bodies.
const MaxResponseSize = 1 << 20

// Capabilities holds the discovered bsvalias capability URL templates.
type Capabilities struct {
	PKI                string
	PaymentDestination string
	VerifyPubKey       string
}

// HTTPClient defines the interface for HTTP requests.
// This allows tests to mock HTTP calls.
type HTTPClient interface {
	Get(url string) (*http.Response, error)
	Post(url, contentType string, body io.Reader) (*http.Response, error)
}

// DefaultHTTPClient is the production HTTP client.
var DefaultHTTPClient HTTPClient = &http.Client{Timeout: 30 * time.Second}

// wellKnownResponse represents the JSON structure of .well-known/bsvalias.
type wellKnownResponse struct {
	BSVAlias     string                 `json:"bsvalias"`
	Capabilities map[string]interface{} `json:"capabilities"`
}

// DiscoverCapabilities locates a domain's bsvalias host (SRV record,
// falling back to the domain on 443) and fetches its capability map
// from /.well-known/bsvalias.
func DiscoverCapabilities(domain string, client HTTPClient, resolver DNSResolver) (*Capabilities, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: empty domain", ErrDiscovery)
	}
	if client == nil {
		client = DefaultHTTPClient
	}

	host := DiscoverHost(domain, resolver)
	host = strings.TrimSuffix(host, ":443")

	url := "https://" + host + "/.well-known/bsvalias"
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrDiscovery, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned status %d", ErrDiscovery, url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrDiscovery, err)
	}

	var wk wellKnownResponse
	if err := json.Unmarshal(body, &wk); err != nil {
		return nil, fmt.Errorf("%w: parsing JSON: %w", ErrDiscovery, err)
	}

	caps := &Capabilities{}
	for key, val := range wk.Capabilities {
		urlStr, ok := val.(string)
		if !ok {
			continue
		}
		switch {
		case key == "pki" || key == BRFCPKI:
			caps.PKI = urlStr
		case key == "paymentDestination" || key == BRFCPaymentDestination || key == BRFCP2PDestination:
			// The p2p template only applies when no basic one is offered.
			if caps.PaymentDestination == "" || key != BRFCP2PDestination {
				caps.PaymentDestination = urlStr
			}
		case key == BRFCVerifyPubKey || strings.Contains(key, "verify-pubkey"):
			caps.VerifyPubKey = urlStr
		}
	}
	return caps, nil
}

// expandTemplate substitutes {alias} and {domain.tld} in a capability
// URL template.
func expandTemplate(template string, h Handle) string {
	expanded := strings.ReplaceAll(template, "{alias}", h.Alias)
	return strings.ReplaceAll(expanded, "{domain.tld}", h.Domain)
}
