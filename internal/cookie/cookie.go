// Package cookie implements the integrity-sealed authentication cookie and
// the unsealed session cookie (spec.md §4.7), using HMAC-SHA-256 over a
// deterministic payload serialization. Grounded on the teacher's
// cryptoops.DeriveID pattern (HMAC keyed with a process-wide secret) but
// applied to whole-payload sealing instead of identity derivation.
package cookie

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"net"
	"sort"
	"time"

	"github.com/gosuda/passage/internal/protocol"
)

const signatureSize = 32

var (
	ErrTooShort        = errors.New("cookie: payload shorter than signature")
	ErrBadSignature    = errors.New("cookie: signature mismatch")
	ErrExpired         = errors.New("cookie: expired")
	ErrPeerMismatch    = errors.New("cookie: observed peer does not match payload")
	ErrMalformedPayload = errors.New("cookie: malformed payload")
)

// AuthPayload is the authentication cookie contents (spec.md §3).
type AuthPayload struct {
	Timestamp         uint64
	ClientAddr        string
	UserName          string
	UserID            [16]byte
	Target            string
	ProfileProperties []protocol.ProfileProperty
	Extra             map[string]string
}

// Signer seals and verifies cookies with a process-wide secret, immutable
// after init (spec.md §5, §9).
type Signer struct {
	secret []byte
	expiry time.Duration
}

// NewSigner builds a Signer. expiry is the configured authentication-cookie
// validity window (default 6h per spec.md §4.7).
func NewSigner(secret []byte, expiry time.Duration) *Signer {
	return &Signer{secret: secret, expiry: expiry}
}

// Seal serializes p deterministically and prepends an HMAC-SHA-256 over the
// serialized bytes: signature(32) || payload_bytes.
func (s *Signer) Seal(p AuthPayload) []byte {
	body := encodeAuthPayload(p)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	sig := mac.Sum(nil)
	out := make([]byte, 0, len(sig)+len(body))
	out = append(out, sig...)
	out = append(out, body...)
	return out
}

// Verify checks length, recomputes the MAC in constant time, then enforces
// expiry and peer-address matching (invariant I2, P5, P6).
func (s *Signer) Verify(wire []byte, observedPeer string, now time.Time) (AuthPayload, error) {
	if len(wire) < signatureSize {
		return AuthPayload{}, ErrTooShort
	}
	sig, body := wire[:signatureSize], wire[signatureSize:]

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := mac.Sum(nil)
	if !hmac.Equal(sig, expected) {
		return AuthPayload{}, ErrBadSignature
	}

	payload, err := decodeAuthPayload(body)
	if err != nil {
		return AuthPayload{}, err
	}

	age := now.Sub(time.Unix(int64(payload.Timestamp), 0))
	if age > s.expiry {
		return AuthPayload{}, ErrExpired
	}

	if stripPort(payload.ClientAddr) != stripPort(observedPeer) {
		return AuthPayload{}, ErrPeerMismatch
	}

	return payload, nil
}

// Reseal re-issues the cookie with an updated timestamp and target, keeping
// every other field verbatim (spec.md §4.7, P9).
func (s *Signer) Reseal(p AuthPayload, now time.Time, target string) []byte {
	p.Timestamp = uint64(now.Unix())
	p.Target = target
	return s.Seal(p)
}

func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// encodeAuthPayload is the canonical, deterministic serialization the
// signature is computed over.
func encodeAuthPayload(p AuthPayload) []byte {
	var buf bytes.Buffer
	writeU64(&buf, p.Timestamp)
	writeString(&buf, p.ClientAddr)
	writeString(&buf, p.UserName)
	buf.Write(p.UserID[:])
	writeString(&buf, p.Target)

	writeU32(&buf, uint32(len(p.ProfileProperties)))
	for _, prop := range p.ProfileProperties {
		writeString(&buf, prop.Name)
		writeString(&buf, prop.Value)
		if prop.HasSig {
			buf.WriteByte(1)
			writeString(&buf, prop.Signature)
		} else {
			buf.WriteByte(0)
		}
	}

	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeU32(&buf, uint32(len(keys)))
	for _, k := range keys {
		writeString(&buf, k)
		writeString(&buf, p.Extra[k])
	}

	return buf.Bytes()
}

func decodeAuthPayload(body []byte) (AuthPayload, error) {
	r := bytes.NewReader(body)
	var p AuthPayload

	ts, err := readU64(r)
	if err != nil {
		return p, ErrMalformedPayload
	}
	p.Timestamp = ts

	if p.ClientAddr, err = readString(r); err != nil {
		return p, ErrMalformedPayload
	}
	if p.UserName, err = readString(r); err != nil {
		return p, ErrMalformedPayload
	}
	if _, err := r.Read(p.UserID[:]); err != nil {
		return p, ErrMalformedPayload
	}
	if p.Target, err = readString(r); err != nil {
		return p, ErrMalformedPayload
	}

	propCount, err := readU32(r)
	if err != nil {
		return p, ErrMalformedPayload
	}
	p.ProfileProperties = make([]protocol.ProfileProperty, 0, propCount)
	for i := uint32(0); i < propCount; i++ {
		var prop protocol.ProfileProperty
		if prop.Name, err = readString(r); err != nil {
			return p, ErrMalformedPayload
		}
		if prop.Value, err = readString(r); err != nil {
			return p, ErrMalformedPayload
		}
		hasSig, err := r.ReadByte()
		if err != nil {
			return p, ErrMalformedPayload
		}
		if hasSig == 1 {
			prop.HasSig = true
			if prop.Signature, err = readString(r); err != nil {
				return p, ErrMalformedPayload
			}
		}
		p.ProfileProperties = append(p.ProfileProperties, prop)
	}

	extraCount, err := readU32(r)
	if err != nil {
		return p, ErrMalformedPayload
	}
	p.Extra = make(map[string]string, extraCount)
	for i := uint32(0); i < extraCount; i++ {
		k, err := readString(r)
		if err != nil {
			return p, ErrMalformedPayload
		}
		v, err := readString(r)
		if err != nil {
			return p, ErrMalformedPayload
		}
		p.Extra[k] = v
	}

	return p, nil
}

func writeString(buf *bytes.Buffer, s string) {
	writeU32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := r.Read(b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
