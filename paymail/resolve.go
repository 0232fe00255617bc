package paymail

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeangaud/MonPortefeuilleBSV/tx"
)

// PKIResponse holds the response from a bsvalias PKI endpoint.
type PKIResponse struct {
	BSVAlias string `json:"bsvalias"`
	Handle   string `json:"handle"`
	PubKey   string `json:"pubkey"` // hex-encoded compressed public key
}

// DestinationRequest carries the sender metadata POSTed to the payment
// destination endpoint.
type DestinationRequest struct {
	SenderHandle string `json:"senderHandle"`
	SenderName   string `json:"senderName,omitempty"`
	DT           string `json:"dt"`
	Amount       uint64 `json:"amount,omitempty"`
	Purpose      string `json:"purpose,omitempty"`
}

// Resolution is a resolved payment destination: the raw locking script
// the receiver asked for, plus its P2PKH address when the script is one.
type Resolution struct {
	Handle   Handle
	Script   []byte
	Address  string
	Satoshis uint64
}

// destinationResponse accepts both response shapes: basic address
// resolution returns a single "output" script, p2p destination servers
// return an "outputs" array.
type destinationResponse struct {
	Output  string `json:"output"`
	Outputs []struct {
		Script   string `json:"script"`
		Satoshis uint64 `json:"satoshis"`
	} `json:"outputs"`
}

// Resolver resolves paymail handles to public keys and payment
// destinations.
type Resolver struct {
	client   HTTPClient
	resolver DNSResolver
}

// NewResolver builds a Resolver. nil arguments use the production
// HTTP client and DNS resolver.
func NewResolver(client HTTPClient, resolver DNSResolver) *Resolver {
	if client == nil {
		client = DefaultHTTPClient
	}
	if resolver == nil {
		resolver = DefaultDNSResolver
	}
	return &Resolver{client: client, resolver: resolver}
}

// ResolvePKI resolves a handle to its identity key: the compressed
// public key published by the receiver's PKI endpoint.
func (r *Resolver) ResolvePKI(handle string) ([]byte, error) {
	h, err := ParseHandle(handle)
	if err != nil {
		return nil, err
	}

	caps, err := DiscoverCapabilities(h.Domain, r.client, r.resolver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPKIResolution, err)
	}
	if caps.PKI == "" {
		return nil, fmt.Errorf("%w: no PKI capability for %s", ErrPKIResolution, h.Domain)
	}

	pkiURL := expandTemplate(caps.PKI, h)
	resp, err := r.client.Get(pkiURL)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrPKIResolution, pkiURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned status %d", ErrPKIResolution, pkiURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrPKIResolution, err)
	}

	var pki PKIResponse
	if err := json.Unmarshal(body, &pki); err != nil {
		return nil, fmt.Errorf("%w: parsing PKI response: %w", ErrPKIResolution, err)
	}
	if pki.PubKey == "" {
		return nil, fmt.Errorf("%w: empty public key in response", ErrPKIResolution)
	}

	pubKeyBytes, err := hex.DecodeString(pki.PubKey)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex public key: %w", ErrInvalidPubKey, err)
	}
	if err := validateCompressedPubKey(pubKeyBytes); err != nil {
		return nil, err
	}
	return pubKeyBytes, nil
}

// ResolveDestination asks the receiver's payment destination endpoint
// where to send amount satoshis. The returned Resolution carries the
// locking script and, for P2PKH scripts, the derived address.
func (r *Resolver) ResolveDestination(handle, senderHandle string, amount uint64, purpose string) (*Resolution, error) {
	h, err := ParseHandle(handle)
	if err != nil {
		return nil, err
	}

	caps, err := DiscoverCapabilities(h.Domain, r.client, r.resolver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDestinationResolution, err)
	}
	if caps.PaymentDestination == "" {
		return nil, fmt.Errorf("%w: no payment destination capability for %s", ErrDestinationResolution, h.Domain)
	}

	reqBody, err := json.Marshal(DestinationRequest{
		SenderHandle: senderHandle,
		DT:           time.Now().UTC().Format(time.RFC3339),
		Amount:       amount,
		Purpose:      purpose,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDestinationResolution, err)
	}

	destURL := expandTemplate(caps.PaymentDestination, h)
	resp, err := r.client.Post(destURL, "application/json", strings.NewReader(string(reqBody)))
	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %w", ErrDestinationResolution, destURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: POST %s returned status %d", ErrDestinationResolution, destURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrDestinationResolution, err)
	}

	var destResp destinationResponse
	if err := json.Unmarshal(body, &destResp); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %w", ErrDestinationResolution, err)
	}

	scriptHex := destResp.Output
	satoshis := amount
	if len(destResp.Outputs) > 0 {
		scriptHex = destResp.Outputs[0].Script
		if destResp.Outputs[0].Satoshis > 0 {
			satoshis = destResp.Outputs[0].Satoshis
		}
	}
	if scriptHex == "" {
		return nil, fmt.Errorf("%w: no output script in response", ErrDestinationResolution)
	}

	script, err := hex.DecodeString(scriptHex)
	if err != nil {
		return nil, fmt.Errorf("%w: output script is not hex: %w", ErrDestinationResolution, err)
	}

	resolution := &Resolution{
		Handle:   h,
		Script:   script,
		Satoshis: satoshis,
	}

	// Non-P2PKH scripts are passed through with no address; the caller
	// decides whether it can pay them.
	if hash, err := tx.PubKeyHashFromScript(script); err == nil {
		address, err := tx.EncodeAddress(tx.AddressVersion, hash)
		if err != nil {
			return nil, err
		}
		resolution.Address = address
	}
	return resolution, nil
}
