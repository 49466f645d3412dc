// Package wire defines the fixed-header binary framing SocketTransport uses
// to carry requests and responses over a Unix domain socket. It is this
// daemon's replacement for the kernel packet framing a Redox scheme socket
// would otherwise provide: a request header, an optional payload, nothing
// fancier.
package wire

import (
	"encoding/binary"
	"io"
)

// RequestHeader is 32 bytes, little-endian, one per request on the wire.
// For VerbOpen, BufLen/the trailing payload carry the path string instead
// of write data; for VerbDup they carry the dup literal name.
type RequestHeader struct {
	ID       uint64
	Verb     uint32
	HandleID uint64
	Flags    int32
	Cmd      int32
	BufLen   uint32
}

const RequestHeaderSize = 8 + 4 + 8 + 4 + 4 + 4

// CancelMarker is a reserved Verb value meaning "this header carries a
// cancellation for ID, not a call".
const CancelMarker uint32 = 0xffffffff

func (h RequestHeader) Encode() []byte {
	buf := make([]byte, RequestHeaderSize)
	binary.LittleEndian.PutUint64(buf[0:], h.ID)
	binary.LittleEndian.PutUint32(buf[8:], h.Verb)
	binary.LittleEndian.PutUint64(buf[12:], h.HandleID)
	binary.LittleEndian.PutUint32(buf[20:], uint32(h.Flags))
	binary.LittleEndian.PutUint32(buf[24:], uint32(h.Cmd))
	binary.LittleEndian.PutUint32(buf[28:], h.BufLen)
	return buf
}

func DecodeRequestHeader(buf []byte) RequestHeader {
	return RequestHeader{
		ID:       binary.LittleEndian.Uint64(buf[0:]),
		Verb:     binary.LittleEndian.Uint32(buf[8:]),
		HandleID: binary.LittleEndian.Uint64(buf[12:]),
		Flags:    int32(binary.LittleEndian.Uint32(buf[20:])),
		Cmd:      int32(binary.LittleEndian.Uint32(buf[24:])),
		BufLen:   binary.LittleEndian.Uint32(buf[28:]),
	}
}

// ResponseHeader is 20 bytes, little-endian, one per response on the wire.
type ResponseHeader struct {
	ID     uint64
	Result int32 // 0 on success, negative errno otherwise
	N      int32
	BufLen uint32
}

const ResponseHeaderSize = 8 + 4 + 4 + 4

func (h ResponseHeader) Encode() []byte {
	buf := make([]byte, ResponseHeaderSize)
	binary.LittleEndian.PutUint64(buf[0:], h.ID)
	binary.LittleEndian.PutUint32(buf[8:], uint32(h.Result))
	binary.LittleEndian.PutUint32(buf[12:], uint32(h.N))
	binary.LittleEndian.PutUint32(buf[16:], h.BufLen)
	return buf
}

func DecodeResponseHeader(buf []byte) ResponseHeader {
	return ResponseHeader{
		ID:     binary.LittleEndian.Uint64(buf[0:]),
		Result: int32(binary.LittleEndian.Uint32(buf[8:])),
		N:      int32(binary.LittleEndian.Uint32(buf[12:])),
		BufLen: binary.LittleEndian.Uint32(buf[16:]),
	}
}

// ReadFull reads exactly len(buf) bytes or returns an error, including
// io.EOF when the peer closes cleanly at a header boundary.
func ReadFull(r io.Reader, buf []byte) error {
	_, err := io.ReadFull(r, buf)
	return err
}
