package paymail

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jeangaud/MonPortefeuilleBSV/digest"
)

// ComputeBRFCID computes a BRFC (Bitcoin Request for Comments) ID per the BRC
// standard. The ID is the first 12 hex characters of the byte-reversed
// double-SHA256 hash of the concatenation of title, author, and version.
//
//	ID = hex(reverse(SHA256d(title + author + version)))[:12]
//
// SHA256d denotes SHA256(SHA256(x)).
func ComputeBRFCID(title, author, version string) string {
	data := []byte(title + author + version)
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return hex.EncodeToString(digest.Reverse(second[:]))[:12]
}

// Published bsvalias capability IDs. Servers key their capability map
// either by these BRFC IDs or by the legacy literal names ("pki",
// "paymentDestination").
const (
	BRFCPKI                = "0c4339ef99c2"
	BRFCPaymentDestination = "759684b1a19a" // basic address resolution
	BRFCP2PDestination     = "2a40af698840" // p2p payment destination
	BRFCVerifyPubKey       = "a9f510c16bde"
)
