package fbclient

import (
	"encoding/binary"
)

// Buffer is a cursor over a tagged binary buffer in the engine's wire
// conventions: one-byte tags, little-endian integers, length-prefixed
// strings. It is used both to build parameter buffers and to walk info
// response buffers. The read side never advances past the end of the
// underlying bytes; any read that would is reported as ErrMalformedBuffer.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer wraps raw bytes for reading.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the accumulated buffer contents.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the total buffer length.
func (b *Buffer) Len() int { return len(b.data) }

// Avail returns the number of unread bytes.
func (b *Buffer) Avail() int { return len(b.data) - b.pos }

// EOF reports whether the cursor is at the buffer end or on the end
// sentinel tag.
func (b *Buffer) EOF() bool {
	return b.pos >= len(b.data) || b.data[b.pos] == infoEnd
}

// Truncated reports whether the cursor is positioned on the truncation
// marker the engine writes when the response buffer was too small.
func (b *Buffer) Truncated() bool {
	return b.pos < len(b.data) && b.data[b.pos] == infoTruncated
}

// Rewind resets the cursor to the buffer start.
func (b *Buffer) Rewind() { b.pos = 0 }

// Reset drops the contents entirely.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.pos = 0
}

func (b *Buffer) need(n int) error {
	if b.Avail() < n {
		return malformedErrf("need %d bytes at offset %d, have %d", n, b.pos, b.Avail())
	}
	return nil
}

// GetTag reads one tag byte.
func (b *Buffer) GetTag() (byte, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	t := b.data[b.pos]
	b.pos++
	return t, nil
}

// GetByte reads one unsigned byte.
func (b *Buffer) GetByte() (byte, error) {
	return b.GetTag()
}

// GetShort reads a 2-byte little-endian unsigned integer.
func (b *Buffer) GetShort() (uint16, error) {
	if err := b.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(b.data[b.pos:])
	b.pos += 2
	return v, nil
}

// GetInt reads a 4-byte little-endian signed integer.
func (b *Buffer) GetInt() (int32, error) {
	if err := b.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(b.data[b.pos:]))
	b.pos += 4
	return v, nil
}

// GetBigint reads an 8-byte little-endian signed integer.
func (b *Buffer) GetBigint() (int64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(b.data[b.pos:]))
	b.pos += 8
	return v, nil
}

// GetSizedInt reads a 2-byte length followed by an integer of that
// declared width (1, 2, 4 or 8 bytes). Numeric info items must be decoded
// at their declared width, not a guessed one.
func (b *Buffer) GetSizedInt() (int64, error) {
	size, err := b.GetShort()
	if err != nil {
		return 0, err
	}
	return b.getIntOfWidth(int(size))
}

func (b *Buffer) getIntOfWidth(size int) (int64, error) {
	if err := b.need(size); err != nil {
		return 0, err
	}
	var v int64
	switch size {
	case 0:
		v = 0
	case 1:
		v = int64(b.data[b.pos])
	case 2:
		v = int64(int16(binary.LittleEndian.Uint16(b.data[b.pos:])))
	case 4:
		v = int64(int32(binary.LittleEndian.Uint32(b.data[b.pos:])))
	case 8:
		v = int64(binary.LittleEndian.Uint64(b.data[b.pos:]))
	default:
		return 0, malformedErrf("unsupported integer width %d at offset %d", size, b.pos)
	}
	b.pos += size
	return v, nil
}

// GetBytes reads n raw bytes.
func (b *Buffer) GetBytes(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	v := b.data[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

// GetSizedBytes reads a 2-byte length followed by that many raw bytes.
func (b *Buffer) GetSizedBytes() ([]byte, error) {
	n, err := b.GetShort()
	if err != nil {
		return nil, err
	}
	return b.GetBytes(int(n))
}

// GetPascalString reads a 1-byte length followed by that many bytes.
func (b *Buffer) GetPascalString() ([]byte, error) {
	n, err := b.GetByte()
	if err != nil {
		return nil, err
	}
	return b.GetBytes(int(n))
}

// Skip advances the cursor by n bytes.
func (b *Buffer) Skip(n int) error {
	if err := b.need(n); err != nil {
		return err
	}
	b.pos += n
	return nil
}

// SeekLastData positions the cursor on the last non-zero byte, searching
// from the buffer end. Used to verify a response ends with the end
// sentinel regardless of trailing padding.
func (b *Buffer) SeekLastData() {
	i := len(b.data) - 1
	for i > 0 && b.data[i] == 0 {
		i--
	}
	b.pos = i
}

// Write-side primitives. The buffer grows as needed; writes never fail.

// PutTag appends one tag byte.
func (b *Buffer) PutTag(t byte) {
	b.data = append(b.data, t)
}

// PutByte appends one unsigned byte.
func (b *Buffer) PutByte(v byte) {
	b.data = append(b.data, v)
}

// PutShort appends a 2-byte little-endian unsigned integer.
func (b *Buffer) PutShort(v uint16) {
	b.data = binary.LittleEndian.AppendUint16(b.data, v)
}

// PutInt appends a 4-byte little-endian signed integer.
func (b *Buffer) PutInt(v int32) {
	b.data = binary.LittleEndian.AppendUint32(b.data, uint32(v))
}

// PutBigint appends an 8-byte little-endian signed integer.
func (b *Buffer) PutBigint(v int64) {
	b.data = binary.LittleEndian.AppendUint64(b.data, uint64(v))
}

// PutBytes appends raw bytes.
func (b *Buffer) PutBytes(p []byte) {
	b.data = append(b.data, p...)
}

// InfoItem is one decoded (tag, payload) item from an info response.
type InfoItem struct {
	Tag     byte
	Payload []byte
}

// Int decodes the payload as an integer at its carried width.
func (it InfoItem) Int() (int64, error) {
	sub := NewBuffer(it.Payload)
	return sub.getIntOfWidth(len(it.Payload))
}

// NextItem reads one item in the info response layout: a tag byte, a
// 2-byte little-endian payload length, then the payload. It returns
// io.EOF-like semantics through the done flag: done is true on the end
// sentinel or buffer exhaustion. A truncation marker is reported through
// ErrTruncated so callers can retry with a larger response buffer instead
// of mistaking it for end-of-data.
func (b *Buffer) NextItem() (item InfoItem, done bool, err error) {
	if b.pos >= len(b.data) {
		return InfoItem{}, true, nil
	}
	switch b.data[b.pos] {
	case infoEnd:
		return InfoItem{}, true, nil
	case infoTruncated:
		return InfoItem{}, false, ErrTruncated
	case infoError:
		return InfoItem{}, false, internalErrf("error marker in info response")
	}
	tag, err := b.GetTag()
	if err != nil {
		return InfoItem{}, false, err
	}
	payload, err := b.GetSizedBytes()
	if err != nil {
		return InfoItem{}, false, err
	}
	return InfoItem{Tag: tag, Payload: payload}, false, nil
}

// Items decodes the whole buffer into an ordered item list. Decoding a
// zero-length buffer yields an empty list, not an error.
func (b *Buffer) Items() ([]InfoItem, error) {
	b.Rewind()
	var items []InfoItem
	for {
		item, done, err := b.NextItem()
		if err != nil {
			return nil, err
		}
		if done {
			return items, nil
		}
		items = append(items, item)
	}
}

// ErrTruncated signals that the engine reported a too-small response
// buffer. It is distinct from "field absent": callers retry with a larger
// buffer.
var ErrTruncated = &truncatedError{}

type truncatedError struct{}

func (*truncatedError) Error() string { return "info response truncated" }
