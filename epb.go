package fbclient

// RenderEPB builds an event parameter buffer for the given event names
// with their current count baselines. Each entry is a 1-byte name
// length, the name bytes, and a 4-byte little-endian count.
func RenderEPB(counts map[string]uint32, order []string) ([]byte, error) {
	if len(order) == 0 {
		return nil, programmingErrf("event buffer needs at least one event name")
	}
	buf := &Buffer{}
	buf.PutByte(epbVersion1)
	for _, name := range order {
		if name == "" {
			return nil, programmingErrf("event name must not be empty")
		}
		if len(name) > 255 {
			return nil, dataErrf("event name %q exceeds 255 bytes", name)
		}
		buf.PutByte(byte(len(name)))
		buf.PutBytes([]byte(name))
		buf.PutInt(int32(counts[name]))
	}
	return buf.Bytes(), nil
}

// ParseEPB decodes an event parameter buffer, as delivered back by the
// engine, into per-event counts.
func ParseEPB(data []byte) (map[string]uint32, error) {
	buf := NewBuffer(data)
	version, err := buf.GetByte()
	if err != nil {
		return nil, err
	}
	if version != epbVersion1 {
		return nil, malformedErrf("EPB version marker is %d, want %d", version, epbVersion1)
	}
	counts := make(map[string]uint32)
	for buf.Avail() > 0 {
		name, err := buf.GetPascalString()
		if err != nil {
			return nil, err
		}
		n, err := buf.GetInt()
		if err != nil {
			return nil, err
		}
		counts[string(name)] = uint32(n)
	}
	return counts, nil
}
