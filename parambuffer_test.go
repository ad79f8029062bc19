package fbclient

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParamBufferEmptyRendersZeroLength(t *testing.T) {
	p := NewParamBuffer(KindTPB, "UTF8")
	out, err := p.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("empty builder rendered %d bytes, want 0", len(out))
	}
}

func TestParamBufferRejectsForeignTag(t *testing.T) {
	p := NewParamBuffer(KindDPB, "UTF8")
	err := p.AddMarker(byte(TPBConcurrency))
	if !errors.Is(err, ErrProgramming) {
		t.Fatalf("foreign tag: got %v, want ErrProgramming", err)
	}
	if err := p.AddInt(byte(DPBUserName), 1); !errors.Is(err, ErrProgramming) {
		t.Fatalf("wrong value type: got %v, want ErrProgramming", err)
	}
	if got, _ := p.Render(); len(got) != 0 {
		t.Fatalf("rejected items leaked into render: % x", got)
	}
}

func TestParamBufferRoundTrip(t *testing.T) {
	p := NewParamBuffer(KindDPB, "UTF8")
	if err := p.AddString(byte(DPBUserName), "SYSDBA"); err != nil {
		t.Fatalf("AddString: %v", err)
	}
	if err := p.AddString(byte(DPBPassword), "masterkey"); err != nil {
		t.Fatalf("AddString: %v", err)
	}
	if err := p.AddInt(byte(DPBPageSize), 8192); err != nil {
		t.Fatalf("AddInt: %v", err)
	}
	if err := p.AddMarker(byte(DPBTrustedAuth)); err != nil {
		t.Fatalf("AddMarker: %v", err)
	}
	out, err := p.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out[0] != dpbVersion2 {
		t.Fatalf("version marker = %d, want %d", out[0], dpbVersion2)
	}

	back, err := ParseParamBuffer(KindDPB, "UTF8", out)
	if err != nil {
		t.Fatalf("ParseParamBuffer: %v", err)
	}
	items := back.Items()
	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}
	if items[0].Str != "SYSDBA" || items[1].Str != "masterkey" {
		t.Fatalf("strings = %q, %q", items[0].Str, items[1].Str)
	}
	if items[2].Int != 8192 {
		t.Fatalf("page size = %d", items[2].Int)
	}
	if items[3].Tag != byte(DPBTrustedAuth) || items[3].Shape != ShapeMarker {
		t.Fatalf("marker item = %+v", items[3])
	}
}

func TestParamBufferVersionMarkerChecked(t *testing.T) {
	_, err := ParseParamBuffer(KindDPB, "UTF8", []byte{99, byte(DPBPageSize), 4, 0, 32, 0, 0})
	if !errors.Is(err, ErrMalformedBuffer) {
		t.Fatalf("wrong version marker: got %v, want ErrMalformedBuffer", err)
	}
}

func TestParamBufferUnknownTagSkipped(t *testing.T) {
	raw := []byte{spbVersion2, 250, 3, 'x', 'y', 'z', byte(SPBUserName), 3, 'b', 'o', 'b'}
	p, err := ParseParamBuffer(KindSPBAttach, "UTF8", raw)
	if err != nil {
		t.Fatalf("ParseParamBuffer: %v", err)
	}
	items := p.Items()
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Tag != 250 || !bytes.Equal(items[0].Raw, []byte("xyz")) {
		t.Fatalf("unknown item = %+v", items[0])
	}
	if items[1].Str != "bob" {
		t.Fatalf("user = %q", items[1].Str)
	}
}

func TestParamBufferTruncatedPayload(t *testing.T) {
	raw := []byte{dpbVersion2, byte(DPBUserName), 10, 'a', 'b'}
	if _, err := ParseParamBuffer(KindDPB, "UTF8", raw); !errors.Is(err, ErrMalformedBuffer) {
		t.Fatalf("length past end: got %v, want ErrMalformedBuffer", err)
	}
}

func TestParamBufferStringTooLong(t *testing.T) {
	p := NewParamBuffer(KindDPB, "UTF8")
	if err := p.AddString(byte(DPBUserName), strings.Repeat("a", 300)); err != nil {
		t.Fatalf("AddString: %v", err)
	}
	if _, err := p.Render(); !errors.Is(err, ErrData) {
		t.Fatalf("oversize string: got %v, want ErrData", err)
	}
}
