package session

import (
	"encoding/binary"
	"unicode/utf16"
)

// writeLegacyKick sends the pre-Netty legacy server-list-ping response: a
// 0xFF kick packet carrying a UTF-16BE string (spec.md §4.2 "Legacy").
func writeLegacyKick(fc *frameConn, reason string) error {
	units := utf16.Encode([]rune(reason))
	buf := make([]byte, 0, 3+len(units)*2)
	buf = append(buf, 0xFF)

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(units)))
	buf = append(buf, lenBuf[:]...)

	for _, u := range units {
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], u)
		buf = append(buf, b[:]...)
	}

	_, err := fc.Write(buf)
	return err
}
