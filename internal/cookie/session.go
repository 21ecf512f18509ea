package cookie

import (
	"bytes"
	"encoding/binary"

	"github.com/google/uuid"
)

// SessionPayload is never signed (spec.md §4.7: no sensitive content);
// any well-formed payload from the client is accepted as-is.
type SessionPayload struct {
	ID            uuid.UUID
	ServerAddress string
	ServerPort    uint16
}

// NewSession mints a fresh session cookie for a connection that presented
// none.
func NewSession(serverAddress string, serverPort uint16) SessionPayload {
	return SessionPayload{
		ID:            uuid.New(),
		ServerAddress: serverAddress,
		ServerPort:    serverPort,
	}
}

func EncodeSession(p SessionPayload) []byte {
	var buf bytes.Buffer
	idBytes := p.ID
	buf.Write(idBytes[:])
	writeString(&buf, p.ServerAddress)
	var portBuf [2]byte
	binary.BigEndian.PutUint16(portBuf[:], p.ServerPort)
	buf.Write(portBuf[:])
	return buf.Bytes()
}

func DecodeSession(body []byte) (SessionPayload, error) {
	r := bytes.NewReader(body)
	var p SessionPayload
	var idBytes [16]byte
	if _, err := r.Read(idBytes[:]); err != nil {
		return p, ErrMalformedPayload
	}
	id, err := uuid.FromBytes(idBytes[:])
	if err != nil {
		return p, ErrMalformedPayload
	}
	p.ID = id

	addr, err := readString(r)
	if err != nil {
		return p, ErrMalformedPayload
	}
	p.ServerAddress = addr

	var portBuf [2]byte
	if _, err := r.Read(portBuf[:]); err != nil {
		return p, ErrMalformedPayload
	}
	p.ServerPort = binary.BigEndian.Uint16(portBuf[:])
	return p, nil
}
