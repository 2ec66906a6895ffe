package protocol

import (
	"encoding/binary"
	"fmt"
)

// Every frame is a 4-byte little-endian header followed by the scrambled
// payload. The header mixes the command id and the payload length; the
// payload length counts the header itself, so the body is length-4 bytes.
const (
	HeaderSize = 4

	// BufferSize is the frame size the retail client negotiates.
	BufferSize = 4092

	// MaxPayloadLength bounds the decoded length field. The header carries
	// 14 length bits; the server additionally rejects anything above
	// BufferSize.
	MaxPayloadLength = 0x3FFF
)

// InitialScramblerKey is the key every client starts with. SetCode rotates
// it for clientbound frames only.
var InitialScramblerKey = [4]byte{0xCB, 0x91, 0x01, 0xA2}

// EncodeHeader packs a command id and payload length into the frame header.
// The formulas are the compatibility contract with the client and must not
// be simplified, even where the bit mixing looks redundant.
func EncodeHeader(commandID uint16, payloadLength uint16, bufferSize uint16) uint32 {
	length := uint32(bufferSize)<<16 | uint32(payloadLength)
	val := length
	length = length&0x3FFF | length<<14
	magic := uint16(length&0xF|0xFF80)<<8 | uint16(val>>4&0xFF) | uint16(length&0xF000)

	encoded := uint32(magic)
	encoded |= uint32(magic^commandID) << 16
	return encoded
}

// DecodeHeader recovers the command id and payload length from a frame
// header. Headers without bit 15 set in the low half are invalid.
func DecodeHeader(header uint32) (commandID uint16, payloadLength uint16, err error) {
	if header&(1<<15) == 0 {
		return 0, 0, fmt.Errorf("%w: %#08x", ErrBadFrame, header)
	}
	section := header & 0x3FFF
	payloadLength = uint16(header&0xFF)<<4 | uint16(section>>8&0xF) | uint16(section&0xF000)

	low := uint16(header)
	high := uint16(header >> 16)
	commandID = ^((low ^ high) & 0xC000) & (low ^ high)
	return commandID, payloadLength, nil
}

// PutHeader writes the encoded header into the first four bytes of dst.
func PutHeader(dst []byte, commandID uint16, payloadLength uint16) {
	binary.LittleEndian.PutUint32(dst, EncodeHeader(commandID, payloadLength, BufferSize))
}

// Scrambler is the per-client rolling XOR key. The same transform encodes
// and decodes.
type Scrambler struct {
	key [4]byte
}

func NewScrambler() Scrambler {
	return Scrambler{key: InitialScramblerKey}
}

// SetKey replaces the rolling key, taking effect on the next Apply.
func (s *Scrambler) SetKey(key [4]byte) {
	s.key = key
}

func (s *Scrambler) Key() [4]byte {
	return s.key
}

// Apply scrambles buf in place.
func (s *Scrambler) Apply(buf []byte) {
	for i := range buf {
		buf[i] ^= s.key[i%4]
	}
}
