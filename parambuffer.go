package fbclient

import (
	"github.com/gofirebird/fbclient/internal/charset"
)

// ItemShape describes the payload layout registered for a tag within one
// parameter buffer kind.
type ItemShape int

const (
	ShapeMarker ItemShape = iota // bare tag, no payload
	ShapeInt                     // length-prefixed 4-byte little-endian
	ShapeBigint                  // length-prefixed 8-byte little-endian
	ShapeString                  // length-prefixed text in the buffer encoding
	ShapeBytes                   // length-prefixed raw bytes
)

var dpbShapes = map[byte]ItemShape{
	byte(DPBPageSize):            ShapeInt,
	byte(DPBNumBuffers):          ShapeInt,
	byte(DPBDBKeyScope):          ShapeInt,
	byte(DPBNoGarbageCollect):    ShapeInt,
	byte(DPBSweepInterval):       ShapeInt,
	byte(DPBForceWrite):          ShapeInt,
	byte(DPBNoReserve):           ShapeInt,
	byte(DPBUserName):            ShapeString,
	byte(DPBPassword):            ShapeString,
	byte(DPBLcCtype):             ShapeString,
	byte(DPBOverwrite):           ShapeInt,
	byte(DPBConnectTimeout):      ShapeInt,
	byte(DPBDummyPacketInterval): ShapeInt,
	byte(DPBSQLRoleName):         ShapeString,
	byte(DPBSetPageBuffers):      ShapeInt,
	byte(DPBSQLDialect):          ShapeInt,
	byte(DPBSetDBReadonly):       ShapeInt,
	byte(DPBSetDBSQLDialect):     ShapeInt,
	byte(DPBSetDBCharset):        ShapeString,
	byte(DPBNoDBTriggers):        ShapeInt,
	byte(DPBTrustedAuth):         ShapeMarker,
	byte(DPBProcessName):         ShapeString,
	byte(DPBTrustedRole):         ShapeString,
	byte(DPBUTF8Filename):        ShapeInt,
	byte(DPBClientVersion):       ShapeString,
	byte(DPBHostName):            ShapeString,
	byte(DPBOSUser):              ShapeString,
	byte(DPBAuthPluginList):      ShapeString,
	byte(DPBAuthPluginName):      ShapeString,
	byte(DPBConfig):              ShapeString,
	byte(DPBNoLinger):            ShapeInt,
	byte(DPBSessionTimeZone):     ShapeString,
	byte(DPBSetDBReplica):        ShapeInt,
	byte(DPBSetBind):             ShapeString,
	byte(DPBDecfloatRound):       ShapeString,
	byte(DPBDecfloatTraps):       ShapeString,
	byte(DPBParallelWorkers):     ShapeInt,
}

var tpbShapes = map[byte]ItemShape{
	byte(TPBConsistency):      ShapeMarker,
	byte(TPBConcurrency):      ShapeMarker,
	byte(TPBShared):           ShapeMarker,
	byte(TPBProtected):        ShapeMarker,
	byte(TPBExclusive):        ShapeMarker,
	byte(TPBWait):             ShapeMarker,
	byte(TPBNoWait):           ShapeMarker,
	byte(TPBRead):             ShapeMarker,
	byte(TPBWrite):            ShapeMarker,
	byte(TPBLockRead):         ShapeString,
	byte(TPBLockWrite):        ShapeString,
	byte(TPBIgnoreLimbo):      ShapeMarker,
	byte(TPBReadCommitted):    ShapeMarker,
	byte(TPBAutocommit):       ShapeMarker,
	byte(TPBRecVersion):       ShapeMarker,
	byte(TPBNoRecVersion):     ShapeMarker,
	byte(TPBNoAutoUndo):       ShapeMarker,
	byte(TPBLockTimeout):      ShapeInt,
	byte(TPBReadConsistency):  ShapeMarker,
	byte(TPBAtSnapshotNumber): ShapeBigint,
}

var spbShapes = map[byte]ItemShape{
	byte(SPBUserName):       ShapeString,
	byte(SPBPassword):       ShapeString,
	byte(SPBConnectTimeout): ShapeInt,
	byte(SPBSQLRoleName):    ShapeString,
	byte(SPBCommandLine):    ShapeString,
	byte(SPBDBName):         ShapeString,
	byte(SPBVerbose):        ShapeMarker,
	byte(SPBOptions):        ShapeInt,
	byte(SPBTrustedAuth):    ShapeMarker,
	byte(SPBTrustedRole):    ShapeMarker,
	byte(SPBVerbint):        ShapeInt,
	byte(SPBAuthPluginName): ShapeString,
	byte(SPBAuthPluginList): ShapeString,
	byte(SPBUTF8Filename):   ShapeMarker,
	byte(SPBConfig):         ShapeString,
	byte(SPBExpectedDB):     ShapeString,
}

var bpbShapes = map[byte]ItemShape{
	byte(BPBSourceType):      ShapeInt,
	byte(BPBTargetType):      ShapeInt,
	byte(BPBType):            ShapeInt,
	byte(BPBSourceInterp):    ShapeInt,
	byte(BPBTargetInterp):    ShapeInt,
	byte(BPBFilterParameter): ShapeBytes,
	byte(BPBStorage):         ShapeInt,
}

func shapesFor(kind BufferKind) (map[byte]ItemShape, byte) {
	switch kind {
	case KindDPB:
		return dpbShapes, dpbVersion2
	case KindTPB:
		return tpbShapes, tpbVersion3
	case KindSPBAttach:
		return spbShapes, spbVersion2
	case KindBPB:
		return bpbShapes, bpbVersion1
	default:
		return nil, 0
	}
}

// ParamItem is one buffer item: a tag plus its typed value. Int carries
// ShapeInt/ShapeBigint payloads, Str carries ShapeString payloads, Raw
// carries ShapeBytes payloads.
type ParamItem struct {
	Tag   byte
	Shape ItemShape
	Int   int64
	Str   string
	Raw   []byte
}

// ParamBuffer builds a parameter buffer of one kind with tag validation.
// Items render in insertion order; parsing a rendered buffer reconstructs
// the same ordered item list.
type ParamBuffer struct {
	kind     BufferKind
	encoding string
	items    []ParamItem
}

// NewParamBuffer creates an empty builder. encoding names the charset
// used for string payloads.
func NewParamBuffer(kind BufferKind, encoding string) *ParamBuffer {
	return &ParamBuffer{kind: kind, encoding: encoding}
}

// Kind returns the buffer kind this builder validates against.
func (p *ParamBuffer) Kind() BufferKind { return p.kind }

// Items returns the ordered item list for diagnostics.
func (p *ParamBuffer) Items() []ParamItem { return p.items }

// Clear removes all items.
func (p *ParamBuffer) Clear() { p.items = nil }

func (p *ParamBuffer) shapeOf(tag byte, want ItemShape) error {
	shapes, _ := shapesFor(p.kind)
	shape, ok := shapes[tag]
	if !ok {
		return programmingErrf("tag %d is not legal in a %s", tag, p.kind)
	}
	if shape != want {
		return programmingErrf("tag %d in a %s does not take this value type", tag, p.kind)
	}
	return nil
}

// AddMarker appends a bare tag.
func (p *ParamBuffer) AddMarker(tag byte) error {
	if err := p.shapeOf(tag, ShapeMarker); err != nil {
		return err
	}
	p.items = append(p.items, ParamItem{Tag: tag, Shape: ShapeMarker})
	return nil
}

// AddInt appends a 4-byte integer item.
func (p *ParamBuffer) AddInt(tag byte, v int32) error {
	if err := p.shapeOf(tag, ShapeInt); err != nil {
		return err
	}
	p.items = append(p.items, ParamItem{Tag: tag, Shape: ShapeInt, Int: int64(v)})
	return nil
}

// AddBigint appends an 8-byte integer item.
func (p *ParamBuffer) AddBigint(tag byte, v int64) error {
	if err := p.shapeOf(tag, ShapeBigint); err != nil {
		return err
	}
	p.items = append(p.items, ParamItem{Tag: tag, Shape: ShapeBigint, Int: v})
	return nil
}

// AddString appends a text item encoded in the buffer charset.
func (p *ParamBuffer) AddString(tag byte, s string) error {
	if err := p.shapeOf(tag, ShapeString); err != nil {
		return err
	}
	p.items = append(p.items, ParamItem{Tag: tag, Shape: ShapeString, Str: s})
	return nil
}

// AddBytes appends a raw byte item.
func (p *ParamBuffer) AddBytes(tag byte, raw []byte) error {
	if err := p.shapeOf(tag, ShapeBytes); err != nil {
		return err
	}
	p.items = append(p.items, ParamItem{Tag: tag, Shape: ShapeBytes, Raw: raw})
	return nil
}

// Render produces the wire bytes. An empty builder renders a zero-length
// buffer: the driver never injects defaults, in particular an empty TPB
// means "engine default isolation" and must stay empty.
func (p *ParamBuffer) Render() ([]byte, error) {
	if len(p.items) == 0 {
		return []byte{}, nil
	}
	_, version := shapesFor(p.kind)
	buf := &Buffer{}
	buf.PutByte(version)
	for _, item := range p.items {
		buf.PutTag(item.Tag)
		switch item.Shape {
		case ShapeMarker:
		case ShapeInt:
			buf.PutByte(4)
			buf.PutInt(int32(item.Int))
		case ShapeBigint:
			buf.PutByte(8)
			buf.PutBigint(item.Int)
		case ShapeString:
			enc, err := charset.Encode(p.encoding, item.Str)
			if err != nil {
				return nil, dataErrf("tag %d: %v", item.Tag, err)
			}
			if len(enc) > 255 {
				return nil, dataErrf("tag %d: string payload %d bytes exceeds the 255-byte item limit", item.Tag, len(enc))
			}
			buf.PutByte(byte(len(enc)))
			buf.PutBytes(enc)
		case ShapeBytes:
			if len(item.Raw) > 255 {
				return nil, dataErrf("tag %d: byte payload %d bytes exceeds the 255-byte item limit", item.Tag, len(item.Raw))
			}
			buf.PutByte(byte(len(item.Raw)))
			buf.PutBytes(item.Raw)
		}
	}
	return buf.Bytes(), nil
}

// ParseParamBuffer decodes a rendered parameter buffer back into an
// ordered item list. Unknown tags are skipped over using the
// length-prefixed clumplet convention so a parser can walk past content
// it does not interpret; a declared length running past the buffer end is
// a malformed buffer.
func ParseParamBuffer(kind BufferKind, encoding string, data []byte) (*ParamBuffer, error) {
	p := NewParamBuffer(kind, encoding)
	if len(data) == 0 {
		return p, nil
	}
	shapes, version := shapesFor(kind)
	buf := NewBuffer(data)
	first, err := buf.GetByte()
	if err != nil {
		return nil, err
	}
	if first != version {
		return nil, malformedErrf("%s version marker is %d, want %d", kind, first, version)
	}
	for buf.Avail() > 0 {
		tag, err := buf.GetTag()
		if err != nil {
			return nil, err
		}
		shape, known := shapes[tag]
		if !known {
			// Unknown tags are assumed length-prefixed.
			payload, err := buf.GetPascalString()
			if err != nil {
				return nil, err
			}
			p.items = append(p.items, ParamItem{Tag: tag, Shape: ShapeBytes, Raw: payload})
			continue
		}
		switch shape {
		case ShapeMarker:
			p.items = append(p.items, ParamItem{Tag: tag, Shape: ShapeMarker})
		case ShapeInt, ShapeBigint:
			n, err := buf.GetByte()
			if err != nil {
				return nil, err
			}
			raw, err := buf.GetBytes(int(n))
			if err != nil {
				return nil, err
			}
			v, err := NewBuffer(raw).getIntOfWidth(len(raw))
			if err != nil {
				return nil, err
			}
			p.items = append(p.items, ParamItem{Tag: tag, Shape: shape, Int: v})
		case ShapeString:
			raw, err := buf.GetPascalString()
			if err != nil {
				return nil, err
			}
			s, err := charset.Decode(encoding, raw)
			if err != nil {
				return nil, dataErrf("tag %d: %v", tag, err)
			}
			p.items = append(p.items, ParamItem{Tag: tag, Shape: ShapeString, Str: s})
		case ShapeBytes:
			raw, err := buf.GetPascalString()
			if err != nil {
				return nil, err
			}
			p.items = append(p.items, ParamItem{Tag: tag, Shape: ShapeBytes, Raw: raw})
		}
	}
	return p, nil
}
