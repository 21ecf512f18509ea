// Package cipher wraps AES-128 in 8-bit cipher-feedback mode (CFB8) into a
// pair of independent directional stream ciphers, installed once per
// connection right after the server validates the Encryption Response.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"errors"
)

// ErrBadSecretLength is returned when the shared secret is not exactly 16
// bytes, which the protocol requires since the same bytes serve as both the
// AES-128 key and the initial value.
var ErrBadSecretLength = errors.New("cipher: shared secret must be exactly 16 bytes")

// Stream holds the two independent CFB8 stream states for one connection:
// one for bytes read from the client, one for bytes written to it. Byte
// ordering within each direction is strictly sequential (io.Reader/Writer
// semantics), matching invariant I1: no plaintext crosses the boundary once
// installed.
type Stream struct {
	decrypt stdcipher.Stream
	encrypt stdcipher.Stream
}

// New builds a Stream from the 16-byte shared secret, used as both the
// AES-128 key and the CFB8 initial value in both directions.
func New(sharedSecret []byte) (*Stream, error) {
	if len(sharedSecret) != 16 {
		return nil, ErrBadSecretLength
	}
	block, err := aes.NewCipher(sharedSecret)
	if err != nil {
		return nil, err
	}
	return &Stream{
		decrypt: newCFB8Decrypter(block, sharedSecret),
		encrypt: newCFB8Encrypter(block, sharedSecret),
	}, nil
}

// DecryptInPlace runs inbound bytes through the read-direction cipher.
func (s *Stream) DecryptInPlace(b []byte) {
	s.decrypt.XORKeyStream(b, b)
}

// EncryptInPlace runs outbound bytes through the write-direction cipher.
func (s *Stream) EncryptInPlace(b []byte) {
	s.encrypt.XORKeyStream(b, b)
}
