package fbclient

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// infoSource is anything that answers tagged info requests: attachments,
// transactions, statements, and blobs all expose the same call shape.
type infoSource interface {
	GetInfo(ctx context.Context, request, response []byte) error
}

const (
	infoBufInitial = 256
	infoBufMax     = 64 * 1024
)

// fetchInfoItems submits an info request and decodes the response into
// an ordered item list. On a truncation marker it retries with a doubled
// response buffer up to infoBufMax.
func fetchInfoItems(ctx context.Context, src infoSource, request []byte) ([]InfoItem, error) {
	for size := infoBufInitial; ; size *= 2 {
		response := make([]byte, size)
		if err := src.GetInfo(ctx, request, response); err != nil {
			return nil, err
		}
		items, err := NewBuffer(response).Items()
		if errors.Is(err, ErrTruncated) {
			if size >= infoBufMax {
				return nil, operationalErrf("info response still truncated at %d bytes", size)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		return items, nil
	}
}

// firstItem returns the first item carrying tag, or ok=false when the
// response does not contain it.
func firstItem(items []InfoItem, tag byte) (InfoItem, bool) {
	for _, it := range items {
		if it.Tag == tag {
			return it, true
		}
	}
	return InfoItem{}, false
}

// itemInt decodes the first item with tag as a sized integer. Absence is
// reported as ok=false, not an error.
func itemInt(items []InfoItem, tag byte) (int64, bool, error) {
	it, ok := firstItem(items, tag)
	if !ok {
		return 0, false, nil
	}
	v, err := it.Int()
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// itemString decodes the first item with tag as raw text.
func itemString(items []InfoItem, tag byte) (string, bool) {
	it, ok := firstItem(items, tag)
	if !ok {
		return "", false
	}
	return string(it.Payload), true
}

// parseVersionStrings decodes an isc_info_firebird_version payload: a
// 1-byte string count followed by that many length-prefixed strings.
// Multiple strings concatenate with newlines.
func parseVersionStrings(payload []byte) (string, error) {
	buf := NewBuffer(payload)
	count, err := buf.GetByte()
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		s, err := buf.GetPascalString()
		if err != nil {
			return "", err
		}
		parts = append(parts, string(s))
	}
	return strings.Join(parts, "\n"), nil
}

// EngineVersion is the engine version parsed out of the version banner.
type EngineVersion struct {
	Major int
	Minor int
	Patch int
	Build int
}

func (v EngineVersion) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor) + "." +
		strconv.Itoa(v.Patch) + "." + strconv.Itoa(v.Build)
}

// AtLeast reports whether the version is major.minor or newer.
func (v EngineVersion) AtLeast(major, minor int) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// parseEngineVersion extracts the engine version from a banner like
// "LI-V3.0.10.33601 Firebird 3.0". The version number follows the first
// "V" in the platform prefix.
func parseEngineVersion(banner string) (EngineVersion, error) {
	line := banner
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	idx := strings.IndexByte(line, 'V')
	if idx < 0 || idx+1 >= len(line) {
		return EngineVersion{}, malformedErrf("no version marker in banner %q", line)
	}
	rest := line[idx+1:]
	if i := strings.IndexByte(rest, ' '); i >= 0 {
		rest = rest[:i]
	}
	fields := strings.Split(rest, ".")
	if len(fields) < 2 {
		return EngineVersion{}, malformedErrf("unparsable version %q in banner %q", rest, line)
	}
	var v EngineVersion
	dst := []*int{&v.Major, &v.Minor, &v.Patch, &v.Build}
	for i, f := range fields {
		if i >= len(dst) {
			break
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return EngineVersion{}, malformedErrf("unparsable version %q in banner %q", rest, line)
		}
		*dst[i] = n
	}
	return v, nil
}
