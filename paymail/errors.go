package paymail

import "errors"

var (
	// ErrInvalidHandle indicates the handle is not of the form alias@domain.
	ErrInvalidHandle = errors.New("paymail: invalid handle")

	// ErrDNSLookupFailed indicates a DNS SRV/TXT lookup failed.
	ErrDNSLookupFailed = errors.New("paymail: DNS lookup failed")

	// ErrDNSSECValidationFailed indicates the resolver could not authenticate the response.
	ErrDNSSECValidationFailed = errors.New("paymail: DNSSEC validation failed")

	// ErrDiscovery indicates .well-known/bsvalias fetch failed.
	ErrDiscovery = errors.New("paymail: capability discovery failed")

	// ErrPKIResolution indicates the PKI endpoint returned an error.
	ErrPKIResolution = errors.New("paymail: PKI resolution failed")

	// ErrNoEndpoints indicates no SRV records were found for the domain.
	ErrNoEndpoints = errors.New("paymail: no endpoints found")

	// ErrInvalidPubKey indicates a public key is not a valid compressed secp256k1 key.
	ErrInvalidPubKey = errors.New("paymail: invalid compressed public key")

	// ErrDestinationResolution indicates the payment destination endpoint failed.
	ErrDestinationResolution = errors.New("paymail: payment destination resolution failed")

	// ErrInvalidScript indicates a destination output script is not P2PKH.
	ErrInvalidScript = errors.New("paymail: destination script is not P2PKH")
)
