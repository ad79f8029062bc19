package fbclient

import (
	"encoding/binary"

	"github.com/gofirebird/fbclient/internal/charset"
)

// SPB is a typed service attach parameter buffer builder.
type SPB struct {
	User           string
	Password       string
	Role           string
	TrustedAuth    bool
	AuthPlugin     string
	Config         string
	ConnectTimeout int32
	ExpectedDB     string
	Encoding       string // charset for string payloads, empty means UTF8
}

// NewSPB returns an SPB with the given credentials.
func NewSPB(user, password string) *SPB {
	return &SPB{User: user, Password: password}
}

func (s *SPB) encoding() string {
	if s.Encoding == "" {
		return "UTF8"
	}
	return s.Encoding
}

// Render produces the service attach parameter buffer bytes.
func (s *SPB) Render() ([]byte, error) {
	p := NewParamBuffer(KindSPBAttach, s.encoding())
	if s.TrustedAuth {
		p.AddMarker(byte(SPBTrustedAuth))
	} else {
		if s.User != "" {
			p.AddString(byte(SPBUserName), s.User)
		}
		if s.Password != "" {
			p.AddString(byte(SPBPassword), s.Password)
		}
	}
	if s.Role != "" {
		p.AddString(byte(SPBSQLRoleName), s.Role)
	}
	if s.AuthPlugin != "" {
		p.AddString(byte(SPBAuthPluginName), s.AuthPlugin)
	}
	if s.Config != "" {
		p.AddString(byte(SPBConfig), s.Config)
	}
	if s.ConnectTimeout != 0 {
		p.AddInt(byte(SPBConnectTimeout), s.ConnectTimeout)
	}
	if s.ExpectedDB != "" {
		p.AddString(byte(SPBExpectedDB), s.ExpectedDB)
	}
	return p.Render()
}

// ParseSPB decodes rendered service attach bytes into the ordered item
// list for diagnostics.
func ParseSPB(data []byte) (*ParamBuffer, error) {
	return ParseParamBuffer(KindSPBAttach, "UTF8", data)
}

// SPBStart builds a service start request. Start requests use a layout
// of their own: a leading action byte, then items where strings carry a
// 2-byte little-endian length, integers are written as bare 4-byte
// little-endian values, and single-byte items carry one raw byte.
type SPBStart struct {
	action   ServerAction
	encoding string
	data     []byte
	err      error
}

// NewSPBStart begins a start request for the given service action.
// encoding names the charset for string payloads; empty means UTF8.
func NewSPBStart(action ServerAction, encoding string) *SPBStart {
	if encoding == "" {
		encoding = "UTF8"
	}
	return &SPBStart{action: action, encoding: encoding, data: []byte{byte(action)}}
}

// Action returns the service action this request starts.
func (s *SPBStart) Action() ServerAction { return s.action }

// AddString appends a tag with a 2-byte length-prefixed string payload.
func (s *SPBStart) AddString(tag byte, v string) *SPBStart {
	if s.err != nil {
		return s
	}
	enc, err := charset.Encode(s.encoding, v)
	if err != nil {
		s.err = dataErrf("tag %d: %v", tag, err)
		return s
	}
	if len(enc) > 0xFFFF {
		s.err = dataErrf("tag %d: string payload %d bytes exceeds the 65535-byte item limit", tag, len(enc))
		return s
	}
	s.data = append(s.data, tag)
	s.data = binary.LittleEndian.AppendUint16(s.data, uint16(len(enc)))
	s.data = append(s.data, enc...)
	return s
}

// AddInt appends a tag with a bare 4-byte little-endian payload.
func (s *SPBStart) AddInt(tag byte, v int32) *SPBStart {
	if s.err != nil {
		return s
	}
	s.data = append(s.data, tag)
	s.data = binary.LittleEndian.AppendUint32(s.data, uint32(v))
	return s
}

// AddByte appends a tag with a single raw byte payload.
func (s *SPBStart) AddByte(tag, v byte) *SPBStart {
	if s.err != nil {
		return s
	}
	s.data = append(s.data, tag, v)
	return s
}

// AddMarker appends a bare tag.
func (s *SPBStart) AddMarker(tag byte) *SPBStart {
	if s.err != nil {
		return s
	}
	s.data = append(s.data, tag)
	return s
}

// Render returns the start request bytes, or the first error recorded
// while building.
func (s *SPBStart) Render() ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.data, nil
}
