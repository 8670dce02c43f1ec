package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// Identity is a node's cryptographic identity record. The username signature
// is the node's unique handle on the network; the public key is carried
// opaquely (signature verification is owned by the consensus layer).
type Identity struct {
	Username          string `json:"username"`
	UsernameSignature string `json:"username_signature"`
	PublicKey         string `json:"public_key"`
}

// RID derives the pairwise relationship identifier between this identity and
// a counterpart's username signature. The derivation is symmetric: both
// sides compute the same value regardless of which one calls it, so it can
// be used to deduplicate a peer from either side's perspective without
// trusting host/port.
func (id *Identity) RID(counterpartSignature string) string {
	first, second := id.UsernameSignature, counterpartSignature
	if second < first {
		first, second = second, first
	}
	digest := sha256.Sum256([]byte(first + second))
	return hex.EncodeToString(digest[:])
}
