package fbclient

import (
	"bytes"
	"testing"
)

func TestSPBAttachRoundTrip(t *testing.T) {
	spb := NewSPB("SYSDBA", "masterkey")
	spb.Role = "BACKUP_OPERATOR"
	spb.ConnectTimeout = 30

	out, err := spb.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	back, err := ParseSPB(out)
	if err != nil {
		t.Fatalf("ParseSPB: %v", err)
	}
	got := itemsByTag(back)
	if got[byte(SPBUserName)].Str != "SYSDBA" {
		t.Fatalf("user = %q", got[byte(SPBUserName)].Str)
	}
	if got[byte(SPBSQLRoleName)].Str != "BACKUP_OPERATOR" {
		t.Fatalf("role = %q", got[byte(SPBSQLRoleName)].Str)
	}
	if got[byte(SPBConnectTimeout)].Int != 30 {
		t.Fatalf("timeout = %d", got[byte(SPBConnectTimeout)].Int)
	}
}

func TestSPBStartLayout(t *testing.T) {
	req, err := NewSPBStart(ActionBackup, "").
		AddString(byte(SPBDBName), "/db/orders.fdb").
		AddInt(byte(SPBOptions), int32(BackupIgnoreChecksums)).
		AddMarker(byte(SPBVerbose)).
		Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if req[0] != byte(ActionBackup) {
		t.Fatalf("action byte = %d", req[0])
	}
	// String items carry a 2-byte little-endian length.
	name := "/db/orders.fdb"
	wantStr := append([]byte{byte(SPBDBName), byte(len(name)), 0}, []byte(name)...)
	if !bytes.Contains(req, wantStr) {
		t.Fatalf("db name item missing: % x", req)
	}
	// Integer items are bare 4-byte values with no length prefix.
	wantInt := []byte{byte(SPBOptions), byte(BackupIgnoreChecksums), 0, 0, 0}
	if !bytes.Contains(req, wantInt) {
		t.Fatalf("options item missing: % x", req)
	}
	if req[len(req)-1] != byte(SPBVerbose) {
		t.Fatalf("trailing marker = %d", req[len(req)-1])
	}
}

func TestSPBStartLatchesError(t *testing.T) {
	req := NewSPBStart(ActionBackup, "ASCII").
		AddString(byte(SPBDBName), "нет").
		AddInt(byte(SPBOptions), 1)
	if _, err := req.Render(); err == nil {
		t.Fatalf("expected the encode error to surface from Render")
	}
}
