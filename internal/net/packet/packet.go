package packet

import (
	"encoding/binary"
	"errors"
	"math"
)

const (
	// Magic is the first header field of every packet.
	Magic uint16 = 0xA1B2
	// HeaderSize is the fixed wire size of the header in bytes.
	HeaderSize = 16
	// MaxBodySize caps the serialized body length.
	MaxBodySize = 64 * 1024
	// MaxStringSize caps a single length-prefixed string.
	MaxStringSize = 2048
	// MaxVectorSize caps a length-prefixed vector's element count.
	MaxVectorSize = 8192
)

var (
	ErrInvalidMagic   = errors.New("packet: invalid magic")
	ErrBodyTooLarge   = errors.New("packet: body too large")
	ErrStringTooLarge = errors.New("packet: string too large")
	ErrVectorTooLarge = errors.New("packet: vector too large")
	ErrOutOfBounds    = errors.New("packet: read out of bounds")
	ErrUnknownOpcode  = errors.New("packet: unknown opcode")
)

// Header is the 16-byte packet prefix. Integer fields travel big-endian;
// body payload fields are little-endian.
type Header struct {
	Magic      uint16
	SequenceID uint16
	BodySize   uint32
	AckID      uint16
	Op         OpCode
	Reserved   byte
	SessionID  uint32
}

// Packet is a header plus a mutable body buffer and a read cursor. Write*
// methods append to the body little-endian; Read* methods consume from the
// cursor and never advance it past a failed read.
type Packet struct {
	Header  Header
	body    []byte
	readPos int
}

func New(op OpCode) *Packet {
	return &Packet{Header: Header{Magic: Magic, Op: op}}
}

func (p *Packet) Body() []byte { return p.body }
func (p *Packet) BodyLen() int { return len(p.body) }

// Remaining returns the number of unread body bytes.
func (p *Packet) Remaining() int { return len(p.body) - p.readPos }

// ResetRead rewinds the read cursor to the start of the body.
func (p *Packet) ResetRead() { p.readPos = 0 }

func (p *Packet) grow(n int) ([]byte, error) {
	if len(p.body)+n > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	off := len(p.body)
	p.body = append(p.body, make([]byte, n)...)
	return p.body[off:], nil
}

func (p *Packet) WriteU8(v byte) error {
	b, err := p.grow(1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (p *Packet) WriteU16(v uint16) error {
	b, err := p.grow(2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, v)
	return nil
}

func (p *Packet) WriteU32(v uint32) error {
	b, err := p.grow(4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func (p *Packet) WriteU64(v uint64) error {
	b, err := p.grow(8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

func (p *Packet) WriteF32(v float32) error {
	return p.WriteU32(math.Float32bits(v))
}

// WriteString appends a 4-byte length prefix followed by the raw UTF-8 bytes.
func (p *Packet) WriteString(s string) error {
	if len(s) > MaxStringSize {
		return ErrStringTooLarge
	}
	if err := p.WriteU32(uint32(len(s))); err != nil {
		return err
	}
	b, err := p.grow(len(s))
	if err != nil {
		return err
	}
	copy(b, s)
	return nil
}

// WriteFixedString appends exactly size bytes: the string truncated to
// size-1 and null-padded, matching the packed char[size] wire fields.
func (p *Packet) WriteFixedString(s string, size int) error {
	b, err := p.grow(size)
	if err != nil {
		return err
	}
	if len(s) > size-1 {
		s = s[:size-1]
	}
	copy(b, s)
	return nil
}

func (p *Packet) take(n int) ([]byte, error) {
	if p.readPos+n > len(p.body) {
		return nil, ErrOutOfBounds
	}
	b := p.body[p.readPos : p.readPos+n]
	p.readPos += n
	return b, nil
}

func (p *Packet) ReadU8() (byte, error) {
	b, err := p.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (p *Packet) ReadU16() (uint16, error) {
	b, err := p.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (p *Packet) ReadU32() (uint32, error) {
	b, err := p.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (p *Packet) ReadU64() (uint64, error) {
	b, err := p.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (p *Packet) ReadF32() (float32, error) {
	v, err := p.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadString consumes a 4-byte length prefix and that many bytes. On any
// failure the cursor is restored to where the read started.
func (p *Packet) ReadString() (string, error) {
	start := p.readPos
	size, err := p.ReadU32()
	if err != nil {
		return "", err
	}
	if size > MaxStringSize {
		p.readPos = start
		return "", ErrStringTooLarge
	}
	b, err := p.take(int(size))
	if err != nil {
		p.readPos = start
		return "", err
	}
	return string(b), nil
}

// ReadFixedString consumes size bytes and returns everything before the
// first null byte.
func (p *Packet) ReadFixedString(size int) (string, error) {
	b, err := p.take(size)
	if err != nil {
		return "", err
	}
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), nil
		}
	}
	return string(b), nil
}

// Serialize emits the 16-byte big-endian header followed by the body bytes.
// BodySize is stamped from the current body length.
func (p *Packet) Serialize() []byte {
	out := make([]byte, HeaderSize+len(p.body))
	h := p.Header
	h.Magic = Magic
	h.BodySize = uint32(len(p.body))
	binary.BigEndian.PutUint16(out[0:2], h.Magic)
	binary.BigEndian.PutUint16(out[2:4], h.SequenceID)
	binary.BigEndian.PutUint32(out[4:8], h.BodySize)
	binary.BigEndian.PutUint16(out[8:10], h.AckID)
	out[10] = byte(h.Op)
	out[11] = h.Reserved
	binary.BigEndian.PutUint32(out[12:16], h.SessionID)
	copy(out[HeaderSize:], p.body)
	return out
}

// Deserialize parses a full packet from data, validating magic and body size.
// The body is copied so the caller may reuse data.
func Deserialize(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, ErrOutOfBounds
	}
	h := Header{
		Magic:      binary.BigEndian.Uint16(data[0:2]),
		SequenceID: binary.BigEndian.Uint16(data[2:4]),
		BodySize:   binary.BigEndian.Uint32(data[4:8]),
		AckID:      binary.BigEndian.Uint16(data[8:10]),
		Op:         OpCode(data[10]),
		Reserved:   data[11],
		SessionID:  binary.BigEndian.Uint32(data[12:16]),
	}
	if h.Magic != Magic {
		return nil, ErrInvalidMagic
	}
	if h.BodySize > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	if len(data)-HeaderSize < int(h.BodySize) {
		return nil, ErrOutOfBounds
	}
	body := make([]byte, h.BodySize)
	copy(body, data[HeaderSize:HeaderSize+int(h.BodySize)])
	return &Packet{Header: h, body: body}, nil
}

// Encoder is implemented by payloads that serialize into a packet body.
type Encoder interface {
	EncodeTo(p *Packet) error
}

// Decoder is implemented by payloads that parse from a packet body.
type Decoder interface {
	DecodeFrom(p *Packet) error
}

// WriteVector appends a 4-byte element count followed by each element.
func WriteVector[T any, PT interface {
	*T
	Encoder
}](p *Packet, items []T) error {
	if len(items) > MaxVectorSize {
		return ErrVectorTooLarge
	}
	if err := p.WriteU32(uint32(len(items))); err != nil {
		return err
	}
	for i := range items {
		if err := PT(&items[i]).EncodeTo(p); err != nil {
			return err
		}
	}
	return nil
}

// ReadVector consumes a 4-byte count then that many elements. The cursor is
// restored on failure.
func ReadVector[T any, PT interface {
	*T
	Decoder
}](p *Packet) ([]T, error) {
	start := p.readPos
	count, err := p.ReadU32()
	if err != nil {
		return nil, err
	}
	if count > MaxVectorSize {
		p.readPos = start
		return nil, ErrVectorTooLarge
	}
	out := make([]T, 0, count)
	for i := uint32(0); i < count; i++ {
		var v T
		if err := PT(&v).DecodeFrom(p); err != nil {
			p.readPos = start
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
