package fecwire

import (
	"encoding/binary"
)

// Datagram flags.
const (
	// FlagMeta marks a datagram whose payload is the file header rather
	// than a coded symbol.
	FlagMeta uint8 = 1 << 0
)

// Header precedes every fountain datagram on the wire. A symbol datagram
// carries the coded block for row ID; a meta datagram (FlagMeta) carries the
// transfer file header as payload.
type Header struct {
	Version    uint8  // 1
	Flags      uint8
	Generation uint16 // transfer counter, echoed back by symbols
	BlockCount uint32 // K of the generation
	BlockBytes uint32 // B, bytes per coded block
	ID         uint32 // row id of the symbol payload
	PayloadLen uint32 // bytes following the header
}

const HeaderLen = 1 + 1 + 2 + 4 + 4 + 4 + 4

func (h *Header) MarshalBinary(b []byte) []byte {
	if len(b) < HeaderLen {
		b = make([]byte, HeaderLen)
	}
	b[0] = h.Version
	b[1] = h.Flags
	binary.LittleEndian.PutUint16(b[2:4], h.Generation)
	binary.LittleEndian.PutUint32(b[4:8], h.BlockCount)
	binary.LittleEndian.PutUint32(b[8:12], h.BlockBytes)
	binary.LittleEndian.PutUint32(b[12:16], h.ID)
	binary.LittleEndian.PutUint32(b[16:20], h.PayloadLen)
	return b[:HeaderLen]
}

func (h *Header) UnmarshalBinary(b []byte) bool {
	if len(b) < HeaderLen {
		return false
	}
	h.Version = b[0]
	h.Flags = b[1]
	h.Generation = binary.LittleEndian.Uint16(b[2:4])
	h.BlockCount = binary.LittleEndian.Uint32(b[4:8])
	h.BlockBytes = binary.LittleEndian.Uint32(b[8:12])
	h.ID = binary.LittleEndian.Uint32(b[12:16])
	h.PayloadLen = binary.LittleEndian.Uint32(b[16:20])
	return true
}
