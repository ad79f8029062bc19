package fbclient

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func newTestServer(t *testing.T) (*Server, *mockEngine) {
	t.Helper()
	eng := newMockEngine()
	srv, err := ConnectServer(context.Background(), eng, "srv1:service_mgr", NewSPB("SYSDBA", "masterkey"))
	if err != nil {
		t.Fatalf("ConnectServer: %v", err)
	}
	return srv, eng
}

func lineResponse(line string) []byte {
	return infoResponse(InfoItem{Tag: byte(SrvInfoLine), Payload: []byte(line)})
}

func TestConnectServerRendersSPB(t *testing.T) {
	_, eng := newTestServer(t)
	back, err := ParseSPB(eng.svc.spb)
	if err != nil {
		t.Fatalf("ParseSPB: %v", err)
	}
	if itemsByTag(back)[byte(SPBUserName)].Str != "SYSDBA" {
		t.Fatalf("user missing from attach spb")
	}
}

func TestServerInfoStrings(t *testing.T) {
	srv, eng := newTestServer(t)
	ctx := context.Background()

	eng.svc.push(infoResponse(InfoItem{Tag: byte(SrvInfoServerVersion), Payload: []byte("LI-V3.0.10.33601 Firebird 3.0")}))
	v, err := srv.Info().Version(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != "LI-V3.0.10.33601 Firebird 3.0" {
		t.Fatalf("version = %q", v)
	}

	eng.svc.push(infoResponse(InfoItem{Tag: byte(SrvInfoCapabilities), Payload: intPayload(4, 0x2C)}))
	caps, err := srv.Info().Capabilities(ctx)
	if err != nil || caps != 0x2C {
		t.Fatalf("Capabilities = %d, %v", caps, err)
	}
}

func TestServerAttachedDatabases(t *testing.T) {
	srv, eng := newTestServer(t)

	resp := &Buffer{}
	resp.PutTag(byte(SrvInfoSrvDBInfo))
	resp.PutTag(srvDBInfoAtt)
	resp.PutInt(3)
	resp.PutTag(srvDBInfoDB)
	resp.PutInt(2)
	for _, db := range []string{"/db/orders.fdb", "/db/ledger.fdb"} {
		resp.PutTag(byte(SPBDBName))
		resp.PutShort(uint16(len(db)))
		resp.PutBytes([]byte(db))
	}
	resp.PutTag(infoFlagEnd)
	eng.svc.push(resp.Bytes())

	atts, dbs, err := srv.Info().AttachedDatabases(context.Background())
	if err != nil {
		t.Fatalf("AttachedDatabases: %v", err)
	}
	if atts != 3 {
		t.Fatalf("attachments = %d", atts)
	}
	if len(dbs) != 2 || dbs[0] != "/db/orders.fdb" || dbs[1] != "/db/ledger.fdb" {
		t.Fatalf("databases = %v", dbs)
	}
}

func TestBackupStreamsVerboseLines(t *testing.T) {
	srv, eng := newTestServer(t)
	ctx := context.Background()

	eng.svc.push(lineResponse("gbak:readied database"))
	eng.svc.push(lineResponse("gbak:closing file, committing"))
	eng.svc.push(lineResponse("")) // empty line ends the stream

	var lines []string
	err := srv.Backup(ctx, BackupOptions{
		Database:    "/db/orders.fdb",
		BackupFiles: []string{"/backup/orders.fbk"},
		Flags:       BackupIgnoreChecksums,
	}, func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
	}

	if len(eng.svc.started) != 1 {
		t.Fatalf("started %d tasks", len(eng.svc.started))
	}
	req := eng.svc.started[0]
	if req[0] != byte(ActionBackup) {
		t.Fatalf("action = %d", req[0])
	}
	if !bytes.Contains(req, []byte("/backup/orders.fbk")) {
		t.Fatalf("backup file missing from request: % x", req)
	}
	if req[len(req)-1] != byte(SPBVerbose) {
		t.Fatalf("verbose marker missing")
	}
}

func TestBackupWithoutCallbackReturnsImmediately(t *testing.T) {
	srv, eng := newTestServer(t)
	err := srv.Backup(context.Background(), BackupOptions{
		Database:    "/db/orders.fdb",
		BackupFiles: []string{"/backup/orders.fbk"},
	}, nil)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if eng.svc.queryN != 0 {
		t.Fatalf("silent backup queried %d times, want 0", eng.svc.queryN)
	}
	want, err := NewSPBStart(ActionBackup, "").
		AddString(byte(SPBDBName), "/db/orders.fdb").
		AddString(spbBkpFile, "/backup/orders.fbk").
		Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(eng.svc.started[0], want) {
		t.Fatalf("silent backup request = % x, want % x", eng.svc.started[0], want)
	}
}

func TestRestoreDefaultsToCreate(t *testing.T) {
	srv, eng := newTestServer(t)
	err := srv.Restore(context.Background(), RestoreOptions{
		BackupFiles: []string{"/backup/orders.fbk"},
		Database:    "/db/orders2.fdb",
	}, nil)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	req := eng.svc.started[0]
	if req[0] != byte(ActionRestore) {
		t.Fatalf("action = %d", req[0])
	}
	var want [5]byte
	want[0] = byte(SPBOptions)
	want[1] = byte(RestoreCreate & 0xFF)
	want[2] = byte(RestoreCreate >> 8)
	if !bytes.Contains(req, want[:]) {
		t.Fatalf("create flag missing from options: % x", req)
	}
}

func TestGetLogStreamsToWriter(t *testing.T) {
	srv, eng := newTestServer(t)

	eng.svc.push(infoResponse(InfoItem{Tag: byte(SrvInfoToEOF), Payload: []byte("log line one\n")}))
	eng.svc.push(infoResponse(InfoItem{Tag: byte(SrvInfoToEOF), Payload: []byte("log line two\n")}))
	eng.svc.push(infoResponse(InfoItem{Tag: byte(SrvInfoToEOF), Payload: nil}))

	var out bytes.Buffer
	if err := srv.GetLog(context.Background(), &out); err != nil {
		t.Fatalf("GetLog: %v", err)
	}
	if out.String() != "log line one\nlog line two\n" {
		t.Fatalf("log = %q", out.String())
	}
}

func TestStreamRetriesOnDataNotReady(t *testing.T) {
	srv, eng := newTestServer(t)

	eng.svc.push([]byte{infoDataNotReady})
	eng.svc.push(lineResponse("gstat:analyzing"))
	eng.svc.push(lineResponse(""))

	var lines []string
	err := srv.GetStatistics(context.Background(), "/db/orders.fdb", StatDataPages,
		func(line string) { lines = append(lines, line) })
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if len(lines) != 1 || lines[0] != "gstat:analyzing" {
		t.Fatalf("lines = %v", lines)
	}
	if eng.svc.queryN != 3 {
		t.Fatalf("queried %d times, want 3 (retry + line + end)", eng.svc.queryN)
	}
}

func TestServerCloseIdempotent(t *testing.T) {
	srv, eng := newTestServer(t)
	ctx := context.Background()
	if err := srv.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := srv.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if eng.svc.detachN != 1 {
		t.Fatalf("detached %d times, want 1", eng.svc.detachN)
	}
	_, err := srv.Info().Version(ctx)
	if !errors.Is(err, ErrInterface) {
		t.Fatalf("info after close: got %v, want ErrInterface", err)
	}
	err = srv.Backup(ctx, BackupOptions{Database: "x", BackupFiles: []string{"y"}}, nil)
	if !errors.Is(err, ErrInterface) {
		t.Fatalf("backup after close: got %v, want ErrInterface", err)
	}
}
