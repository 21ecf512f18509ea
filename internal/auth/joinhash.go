package auth

import (
	"crypto/sha1"
	"math/big"
)

// JoinHash computes the protocol's join hash: SHA-1 over
// "" || shared_secret || encoded_public_key, interpreted as a signed
// big-endian integer and formatted in base 16 with an optional leading
// minus sign and no zero padding (spec.md §4.6, P4).
func JoinHash(sharedSecret, publicKeyDER []byte) string {
	h := sha1.New()
	h.Write(sharedSecret)
	h.Write(publicKeyDER)
	digest := h.Sum(nil)
	return formatSignedHex(digest)
}

// formatSignedHex interprets digest as a two's-complement signed big-endian
// integer of the same bit width and renders it as base-16 text: a leading
// "-" for negative values, no padding, matching the Java BigInteger
// behavior the original join hash is defined in terms of.
func formatSignedHex(digest []byte) string {
	negative := digest[0]&0x80 != 0
	if !negative {
		return new(big.Int).SetBytes(digest).Text(16)
	}

	// Two's complement negation: invert bits then add one.
	inverted := make([]byte, len(digest))
	for i, b := range digest {
		inverted[i] = ^b
	}
	magnitude := new(big.Int).SetBytes(inverted)
	magnitude.Add(magnitude, big.NewInt(1))
	return "-" + magnitude.Text(16)
}
