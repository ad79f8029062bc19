package fbclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofirebird/fbclient/bind"
)

func newTestConnection(t *testing.T) (*Connection, *mockEngine) {
	t.Helper()
	eng := newMockEngine()
	conn, err := Connect(context.Background(), eng, "srv1:/db/orders.fdb", nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return conn, eng
}

func TestConnectDetectsVersion(t *testing.T) {
	conn, eng := newTestConnection(t)
	if eng.attachN != 1 {
		t.Fatalf("attach called %d times", eng.attachN)
	}
	want := EngineVersion{Major: 3, Minor: 0, Patch: 10, Build: 33601}
	if conn.Version() != want {
		t.Fatalf("version = %v, want %v", conn.Version(), want)
	}
	if conn.Target() != "srv1:/db/orders.fdb" {
		t.Fatalf("target = %q", conn.Target())
	}
}

func TestConnectFailurePropagates(t *testing.T) {
	eng := newMockEngine()
	eng.failAttach = bind.Statusf(335544721, "network unreachable")
	_, err := Connect(context.Background(), eng, "srv1:/db/orders.fdb", nil)
	if err == nil {
		t.Fatalf("expected attach failure")
	}
	var se *bind.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("status detail lost: %v", err)
	}
}

func TestConnectRendersDPB(t *testing.T) {
	eng := newMockEngine()
	opts := &Options{DPB: NewDPB("SYSDBA", "masterkey", "UTF8")}
	conn, err := Connect(context.Background(), eng, "srv1:/db/orders.fdb", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	back, err := ParseDPB(eng.att.dpb)
	if err != nil {
		t.Fatalf("ParseDPB: %v", err)
	}
	if itemsByTag(back)[byte(DPBUserName)].Str != "SYSDBA" {
		t.Fatalf("user not in rendered dpb")
	}
	if conn.Charset() != "UTF8" {
		t.Fatalf("charset = %q", conn.Charset())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	conn, eng := newTestConnection(t)
	ctx := context.Background()
	if err := conn.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := conn.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if n := eng.att.callCount("Detach"); n != 1 {
		t.Fatalf("Detach called %d times, want 1", n)
	}
}

func TestCloseCascadesToChildren(t *testing.T) {
	conn, eng := newTestConnection(t)
	ctx := context.Background()

	tm, err := conn.Begin(ctx, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	eng.att.nextStmt = newMockStatement(StmtInsert, nil)
	st, err := conn.Prepare(ctx, tm, "INSERT INTO T VALUES (1)")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if err := conn.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	tra := eng.att.lastTra
	if n := tra.callCount("Commit"); n != 1 {
		t.Fatalf("forced close committed %d times, want 1 (default action)", n)
	}
	if n := eng.att.nextStmt.callCount("Free"); n != 1 {
		t.Fatalf("statement freed %d times, want 1", n)
	}
	if tm.Active() {
		t.Fatalf("transaction still active after connection close")
	}

	// Handles must not be touched through closed facades.
	if _, err := st.Execute(ctx, tm); !errors.Is(err, ErrInterface) {
		t.Fatalf("execute after close: got %v, want ErrInterface", err)
	}
	if n := eng.att.nextStmt.callCount("Execute"); n != 0 {
		t.Fatalf("engine execute reached %d times after close", n)
	}
}

func TestUseAfterCloseFails(t *testing.T) {
	conn, _ := newTestConnection(t)
	ctx := context.Background()
	if err := conn.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := conn.Begin(ctx, nil); !errors.Is(err, ErrInterface) {
		t.Fatalf("Begin after close: got %v, want ErrInterface", err)
	}
	if err := conn.Ping(ctx); !errors.Is(err, ErrInterface) {
		t.Fatalf("Ping after close: got %v, want ErrInterface", err)
	}
}

func TestBeginRawEmptyBufferPassesVerbatim(t *testing.T) {
	conn, eng := newTestConnection(t)
	ctx := context.Background()
	tm, err := conn.BeginRaw(ctx, []byte{})
	if err != nil {
		t.Fatalf("BeginRaw: %v", err)
	}
	if len(eng.att.tpbs) != 1 || len(eng.att.tpbs[0]) != 0 {
		t.Fatalf("tpb sent = % x, want zero-length", eng.att.tpbs[0])
	}
	if err := tm.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestBeginUsesConnectionDefaultTPB(t *testing.T) {
	eng := newMockEngine()
	def := NewTPB()
	def.AccessMode = AccessRead
	conn, err := Connect(context.Background(), eng, "t", &Options{DefaultTPB: def})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := conn.Begin(context.Background(), nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	back, err := ParseTPB(eng.att.tpbs[0])
	if err != nil {
		t.Fatalf("ParseTPB: %v", err)
	}
	if back.AccessMode != AccessRead {
		t.Fatalf("default TPB not applied: %+v", back)
	}
}

func TestWarningsDrainOnce(t *testing.T) {
	conn, eng := newTestConnection(t)
	ctx := context.Background()
	eng.att.warnings = []*bind.StatusError{bind.Statusf(335544842, "sweep lagging")}
	tm, err := conn.Begin(ctx, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	defer tm.Commit(ctx)

	warns := conn.Warnings()
	if len(warns) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warns))
	}
	if again := conn.Warnings(); len(again) != 0 {
		t.Fatalf("warnings not drained: %v", again)
	}
}

func TestDropDatabaseClosesConnection(t *testing.T) {
	conn, eng := newTestConnection(t)
	ctx := context.Background()
	if err := conn.DropDatabase(ctx); err != nil {
		t.Fatalf("DropDatabase: %v", err)
	}
	if n := eng.att.callCount("DropDatabase"); n != 1 {
		t.Fatalf("DropDatabase called %d times", n)
	}
	if _, err := conn.Begin(ctx, nil); !errors.Is(err, ErrInterface) {
		t.Fatalf("Begin after drop: got %v, want ErrInterface", err)
	}
}

func TestCancelledCallMarksStatement(t *testing.T) {
	conn, eng := newTestConnection(t)
	ctx := context.Background()

	tm, err := conn.Begin(ctx, nil)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	stmt := newMockStatement(StmtInsert, nil)
	eng.att.nextStmt = stmt
	st, err := conn.Prepare(ctx, tm, "INSERT INTO T VALUES (1)")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	blocked := make(chan struct{})
	stmt.execErr = nil
	stmt.block = blocked // Execute blocks until cancel fires

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := st.Execute(cctx, tm)
		done <- err
	}()
	cancel()
	// Release the engine call only after the cancel primitive fired, so
	// the cancelled branch is the one observed.
	for eng.att.callCount("CancelOperation") == 0 {
		time.Sleep(time.Millisecond)
	}
	close(blocked)
	err = <-done
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("cancelled execute: got %v, want ErrCancelled", err)
	}
	if n := eng.att.callCount("CancelOperation"); n == 0 {
		t.Fatalf("engine cancel primitive never fired")
	}

	// Cancelled statements refuse execution until revalidated.
	if _, err := st.Execute(ctx, tm); !errors.Is(err, ErrInterface) {
		t.Fatalf("execute before revalidation: got %v, want ErrInterface", err)
	}
	if err := st.Revalidate(ctx); err != nil {
		t.Fatalf("Revalidate: %v", err)
	}
	if _, err := st.Execute(ctx, tm); err != nil {
		t.Fatalf("execute after revalidation: %v", err)
	}
}
