// Package paymail resolves human-readable payment handles
// (alias@domain) to BSV payment destinations via the bsvalias
// protocol: SRV host discovery, .well-known capability discovery,
// PKI lookup and payment destination requests.
package paymail

import (
	"fmt"
	"strings"
)

// Handle is a parsed paymail handle.
type Handle struct {
	Alias  string
	Domain string
}

func (h Handle) String() string {
	return h.Alias + "@" + h.Domain
}

// ParseHandle splits "alias@domain" and validates both parts are
// non-empty. Handles are compared case-insensitively per bsvalias, so
// both parts are lowercased.
func ParseHandle(handle string) (Handle, error) {
	trimmed := strings.TrimSpace(handle)
	parts := strings.Split(trimmed, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Handle{}, fmt.Errorf("%w: %q (want alias@domain)", ErrInvalidHandle, handle)
	}
	if strings.ContainsAny(parts[1], " /") || !strings.Contains(parts[1], ".") {
		return Handle{}, fmt.Errorf("%w: bad domain in %q", ErrInvalidHandle, handle)
	}
	return Handle{
		Alias:  strings.ToLower(parts[0]),
		Domain: strings.ToLower(parts[1]),
	}, nil
}

// IsHandle reports whether s looks like a paymail handle rather than a
// base58 address.
func IsHandle(s string) bool {
	_, err := ParseHandle(s)
	return err == nil
}

// validateCompressedPubKey checks that raw bytes represent a valid compressed
// public key: exactly 33 bytes with prefix 0x02 or 0x03.
func validateCompressedPubKey(pub []byte) error {
	if len(pub) != 33 {
		return fmt.Errorf("%w: expected 33 bytes, got %d", ErrInvalidPubKey, len(pub))
	}
	if pub[0] != 0x02 && pub[0] != 0x03 {
		return fmt.Errorf("%w: invalid prefix byte 0x%02x", ErrInvalidPubKey, pub[0])
	}
	return nil
}
