// Package rsakeys owns the process-wide RSA key pair used for the
// encryption handshake: generated once at process start, 1024-bit modulus
// per spec.md §3, shared read-only by every connection for the life of the
// process.
package rsakeys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
)

const modulusBits = 1024

// KeyPair holds the server's RSA key pair plus its immutable,
// once-serialized public-key-info form, kept as a byte string for hashing
// (the join-hash computation needs the exact DER bytes sent on the wire).
type KeyPair struct {
	Private      *rsa.PrivateKey
	PublicKeyDER []byte
}

// Generate creates a fresh key pair. Called exactly once at process init.
func Generate() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, modulusBits)
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Private: priv, PublicKeyDER: der}, nil
}

// DecryptPKCS1v15 decrypts an RSA-PKCS#1-v1.5-padded blob, used for both
// the shared secret and the verify token in EncryptionResponse.
func (k *KeyPair) DecryptPKCS1v15(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rand.Reader, k.Private, ciphertext)
}
