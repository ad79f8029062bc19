package fbclient

import (
	"bytes"
	"errors"
	"testing"
)

func TestTPBDefaultsRender(t *testing.T) {
	out, err := NewTPB().Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []byte{tpbVersion3, byte(TPBConcurrency), byte(TPBWrite), byte(TPBWait)}
	if !bytes.Equal(out, want) {
		t.Fatalf("defaults rendered % x, want % x", out, want)
	}
}

func TestTPBLockTimeoutForms(t *testing.T) {
	tpb := NewTPB()
	tpb.LockTimeout = 0
	out, err := tpb.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.Contains(out, []byte{byte(TPBNoWait)}) {
		t.Fatalf("no-wait marker missing: % x", out)
	}

	tpb.LockTimeout = 10
	out, err = tpb.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := []byte{byte(TPBWait), byte(TPBLockTimeout), 4, 10, 0, 0, 0}
	if !bytes.Contains(out, want) {
		t.Fatalf("bounded wait encoding missing: % x", out)
	}
}

func TestTPBRoundTrip(t *testing.T) {
	tpb := NewTPB()
	tpb.Isolation = IsolationReadCommittedReadConsistency
	tpb.AccessMode = AccessRead
	tpb.LockTimeout = 5
	tpb.NoAutoUndo = true
	tpb.AtSnapshotNumber = 1 << 33
	tpb.Reservations = []TableReservation{
		{Table: "ORDERS", Share: ShareProtected, Access: TableLockWrite},
		{Table: "ITEMS", Share: ShareShared, Access: TableLockRead},
	}
	out, err := tpb.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	back, err := ParseTPB(out)
	if err != nil {
		t.Fatalf("ParseTPB: %v", err)
	}
	if back.Isolation != IsolationReadCommittedReadConsistency {
		t.Fatalf("isolation = %d", back.Isolation)
	}
	if back.AccessMode != AccessRead {
		t.Fatalf("access = %d", back.AccessMode)
	}
	if back.LockTimeout != 5 {
		t.Fatalf("lock timeout = %d", back.LockTimeout)
	}
	if !back.NoAutoUndo {
		t.Fatalf("no-auto-undo lost")
	}
	if back.AtSnapshotNumber != 1<<33 {
		t.Fatalf("snapshot number = %d", back.AtSnapshotNumber)
	}
	if len(back.Reservations) != 2 {
		t.Fatalf("got %d reservations, want 2", len(back.Reservations))
	}
	if r := back.Reservations[0]; r.Table != "ORDERS" || r.Share != ShareProtected || r.Access != TableLockWrite {
		t.Fatalf("reservation 0 = %+v", r)
	}
	if r := back.Reservations[1]; r.Table != "ITEMS" || r.Share != ShareShared || r.Access != TableLockRead {
		t.Fatalf("reservation 1 = %+v", r)
	}
}

func TestParseTPBEmptyMeansEngineDefault(t *testing.T) {
	tpb, err := ParseTPB(nil)
	if err != nil {
		t.Fatalf("ParseTPB: %v", err)
	}
	if tpb != nil {
		t.Fatalf("zero-length buffer parsed to %+v, want nil", tpb)
	}
}

func TestParseTPBShareWithoutReservation(t *testing.T) {
	raw := []byte{tpbVersion3, byte(TPBConcurrency), byte(TPBProtected)}
	if _, err := ParseTPB(raw); !errors.Is(err, ErrMalformedBuffer) {
		t.Fatalf("dangling share tag: got %v, want ErrMalformedBuffer", err)
	}
}
