// Package charset resolves Firebird character set names to text
// encodings and performs strict conversions for parameter buffer and info
// buffer string payloads. Unencodable characters are an error, never a
// silent substitution.
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// encodings maps Firebird charset names to x/text encodings. UTF8, NONE,
// OCTETS and ASCII are handled separately as identity transforms.
var encodings = map[string]encoding.Encoding{
	"ISO8859_1":  charmap.ISO8859_1,
	"ISO8859_2":  charmap.ISO8859_2,
	"ISO8859_3":  charmap.ISO8859_3,
	"ISO8859_4":  charmap.ISO8859_4,
	"ISO8859_5":  charmap.ISO8859_5,
	"ISO8859_6":  charmap.ISO8859_6,
	"ISO8859_7":  charmap.ISO8859_7,
	"ISO8859_8":  charmap.ISO8859_8,
	"ISO8859_9":  charmap.ISO8859_9,
	"ISO8859_13": charmap.ISO8859_13,
	"WIN1250":    charmap.Windows1250,
	"WIN1251":    charmap.Windows1251,
	"WIN1252":    charmap.Windows1252,
	"WIN1253":    charmap.Windows1253,
	"WIN1254":    charmap.Windows1254,
	"WIN1255":    charmap.Windows1255,
	"WIN1256":    charmap.Windows1256,
	"WIN1257":    charmap.Windows1257,
	"WIN1258":    charmap.Windows1258,
	"DOS437":     charmap.CodePage437,
	"DOS850":     charmap.CodePage850,
	"DOS852":     charmap.CodePage852,
	"DOS855":     charmap.CodePage855,
	"DOS858":     charmap.CodePage858,
	"DOS860":     charmap.CodePage860,
	"DOS862":     charmap.CodePage862,
	"DOS863":     charmap.CodePage863,
	"DOS865":     charmap.CodePage865,
	"DOS866":     charmap.CodePage866,
	"KOI8R":      charmap.KOI8R,
	"KOI8U":      charmap.KOI8U,
	"SJIS_0208":  japanese.ShiftJIS,
	"EUCJ_0208":  japanese.EUCJP,
	"KSC_5601":   korean.EUCKR,
	"GB_2312":    simplifiedchinese.HZGB2312,
	"GBK":        simplifiedchinese.GBK,
	"GB18030":    simplifiedchinese.GB18030,
	"BIG_5":      traditionalchinese.Big5,
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// Supported reports whether the charset name is known to the driver.
func Supported(name string) bool {
	switch normalize(name) {
	case "", "NONE", "OCTETS", "ASCII", "UTF8", "UNICODE_FSS":
		return true
	}
	_, ok := encodings[normalize(name)]
	return ok
}

// Encode converts s into the byte representation of the named charset.
func Encode(name, s string) ([]byte, error) {
	switch normalize(name) {
	case "", "NONE", "OCTETS", "UTF8", "UNICODE_FSS":
		return []byte(s), nil
	case "ASCII":
		for i := 0; i < len(s); i++ {
			if s[i] > 0x7f {
				return nil, fmt.Errorf("character %q not representable in ASCII", s[i:i+1])
			}
		}
		return []byte(s), nil
	}
	enc, ok := encodings[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unknown character set %q", name)
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode to %s: %w", normalize(name), err)
	}
	return out, nil
}

// Decode converts bytes in the named charset into a string.
func Decode(name string, b []byte) (string, error) {
	switch normalize(name) {
	case "", "NONE", "OCTETS", "ASCII", "UTF8", "UNICODE_FSS":
		return string(b), nil
	}
	enc, ok := encodings[normalize(name)]
	if !ok {
		return "", fmt.Errorf("unknown character set %q", name)
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode from %s: %w", normalize(name), err)
	}
	return string(out), nil
}
