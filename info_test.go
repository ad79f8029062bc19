package fbclient

import (
	"context"
	"errors"
	"testing"
	"time"
)

// infoFunc adapts a response script to the info call shape.
type infoFunc func(request, response []byte) error

func (f infoFunc) GetInfo(ctx context.Context, request, response []byte) error {
	return f(request, response)
}

func respondWith(items ...InfoItem) infoFunc {
	return func(request, response []byte) error {
		copy(response, infoResponse(items...))
		return nil
	}
}

func TestParseEngineVersion(t *testing.T) {
	for _, tc := range []struct {
		banner string
		want   EngineVersion
	}{
		{"LI-V3.0.10.33601 Firebird 3.0", EngineVersion{3, 0, 10, 33601}},
		{"WI-V4.0.2.2816 Firebird 4.0", EngineVersion{4, 0, 2, 2816}},
		{"LI-V5.0.1.1469 Firebird 5.0\nLI-V5.0.1.1469 Firebird 5.0/tcp", EngineVersion{5, 0, 1, 1469}},
	} {
		got, err := parseEngineVersion(tc.banner)
		if err != nil {
			t.Fatalf("%q: %v", tc.banner, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %v, want %v", tc.banner, got, tc.want)
		}
	}
	if _, err := parseEngineVersion("garbage"); !errors.Is(err, ErrMalformedBuffer) {
		t.Fatalf("garbage banner: got %v, want ErrMalformedBuffer", err)
	}
}

func TestEngineVersionAtLeast(t *testing.T) {
	v4 := EngineVersion{Major: 4, Minor: 0}
	if !v4.AtLeast(3, 0) || !v4.AtLeast(4, 0) {
		t.Fatalf("4.0 should satisfy 3.0 and 4.0")
	}
	if v4.AtLeast(5, 0) || v4.AtLeast(4, 1) {
		t.Fatalf("4.0 should not satisfy 5.0 or 4.1")
	}
}

func TestFetchInfoItemsRetriesOnTruncation(t *testing.T) {
	full := infoResponse(InfoItem{Tag: byte(DbInfoPageSize), Payload: intPayload(4, 8192)})
	calls := 0
	src := infoFunc(func(request, response []byte) error {
		calls++
		if len(response) < 1024 {
			response[0] = infoTruncated
			return nil
		}
		copy(response, full)
		return nil
	})
	items, err := fetchInfoItems(context.Background(), src, []byte{byte(DbInfoPageSize), infoEnd})
	if err != nil {
		t.Fatalf("fetchInfoItems: %v", err)
	}
	if calls != 3 {
		t.Fatalf("got %d calls, want 3 (256, 512, 1024)", calls)
	}
	if v, _, _ := itemInt(items, byte(DbInfoPageSize)); v != 8192 {
		t.Fatalf("page size = %d", v)
	}
}

func TestFetchInfoItemsGivesUpAtMax(t *testing.T) {
	src := infoFunc(func(request, response []byte) error {
		response[0] = infoTruncated
		return nil
	})
	_, err := fetchInfoItems(context.Background(), src, []byte{byte(DbInfoDBID), infoEnd})
	if !errors.Is(err, ErrOperational) {
		t.Fatalf("persistent truncation: got %v, want ErrOperational", err)
	}
}

func TestDatabaseInfoCapabilityGating(t *testing.T) {
	calls := 0
	src := infoFunc(func(request, response []byte) error {
		calls++
		return nil
	})
	d := newDatabaseInfo(src, EngineVersion{Major: 3})
	if d.Supports(DbInfoDBGUID) {
		t.Fatalf("v3 should not support the GUID code")
	}
	_, err := d.Get(context.Background(), DbInfoDBGUID)
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("unsupported code: got %v, want ErrNotSupported", err)
	}
	if calls != 0 {
		t.Fatalf("unsupported request hit the engine %d times", calls)
	}

	d5 := newDatabaseInfo(src, EngineVersion{Major: 5})
	if !d5.Supports(DbInfoDBGUID) || !d5.Supports(DbInfoSQLRole) {
		t.Fatalf("v5 capability table missing newer codes")
	}
}

func TestDatabaseInfoTypedGetters(t *testing.T) {
	dbid := &Buffer{}
	dbid.PutByte(2)
	dbid.PutByte(byte(len("/db/orders.fdb")))
	dbid.PutBytes([]byte("/db/orders.fdb"))
	dbid.PutByte(byte(len("srv1")))
	dbid.PutBytes([]byte("srv1"))

	src := respondWith(
		InfoItem{Tag: byte(DbInfoPageSize), Payload: intPayload(4, 8192)},
		InfoItem{Tag: byte(DbInfoDBID), Payload: dbid.Bytes()},
		InfoItem{Tag: byte(DbInfoFirebirdVersion), Payload: versionBannerPayload("LI-V3.0.10.33601 Firebird 3.0", "via tcp")},
		InfoItem{Tag: byte(DbInfoForcedWrites), Payload: intPayload(1, 1)},
	)
	d := newDatabaseInfo(src, EngineVersion{Major: 3})
	ctx := context.Background()

	ps, err := d.PageSize(ctx)
	if err != nil || ps != 8192 {
		t.Fatalf("PageSize = %d, %v", ps, err)
	}
	db, site, err := d.Name(ctx)
	if err != nil || db != "/db/orders.fdb" || site != "srv1" {
		t.Fatalf("Name = %q, %q, %v", db, site, err)
	}
	banner, err := d.FirebirdVersion(ctx)
	if err != nil || banner != "LI-V3.0.10.33601 Firebird 3.0\nvia tcp" {
		t.Fatalf("FirebirdVersion = %q, %v", banner, err)
	}
	fw, err := d.ForcedWrites(ctx)
	if err != nil || !fw {
		t.Fatalf("ForcedWrites = %v, %v", fw, err)
	}
}

func TestDatabaseInfoUserNamesCounts(t *testing.T) {
	user := func(name string) []byte {
		b := &Buffer{}
		b.PutByte(byte(len(name)))
		b.PutBytes([]byte(name))
		return b.Bytes()
	}
	src := respondWith(
		InfoItem{Tag: byte(DbInfoUserNames), Payload: user("SYSDBA")},
		InfoItem{Tag: byte(DbInfoUserNames), Payload: user("REPORTS")},
		InfoItem{Tag: byte(DbInfoUserNames), Payload: user("SYSDBA")},
	)
	d := newDatabaseInfo(src, EngineVersion{Major: 3})
	users, err := d.UserNames(context.Background())
	if err != nil {
		t.Fatalf("UserNames: %v", err)
	}
	if users["SYSDBA"] != 2 || users["REPORTS"] != 1 {
		t.Fatalf("users = %v", users)
	}
}

func TestDatabaseInfoActiveTransactionWidths(t *testing.T) {
	src := respondWith(
		InfoItem{Tag: byte(DbInfoActiveTrans), Payload: intPayload(4, 101)},
		InfoItem{Tag: byte(DbInfoActiveTrans), Payload: intPayload(8, 1<<35)},
	)
	d := newDatabaseInfo(src, EngineVersion{Major: 3})
	ids, err := d.ActiveTransactions(context.Background())
	if err != nil {
		t.Fatalf("ActiveTransactions: %v", err)
	}
	if len(ids) != 2 || ids[0] != 101 || ids[1] != 1<<35 {
		t.Fatalf("ids = %v", ids)
	}
}

func TestDatabaseInfoCreationDate(t *testing.T) {
	payload := &Buffer{}
	payload.PutInt(60000) // days since 1858-11-17
	payload.PutInt(10 * 10000)
	src := respondWith(InfoItem{Tag: byte(DbInfoCreationDate), Payload: payload.Bytes()})
	d := newDatabaseInfo(src, EngineVersion{Major: 3})
	got, err := d.CreationDate(context.Background())
	if err != nil {
		t.Fatalf("CreationDate: %v", err)
	}
	want := time.Date(1858, time.November, 17, 0, 0, 10, 0, time.UTC).AddDate(0, 0, 60000)
	if !got.Equal(want) {
		t.Fatalf("CreationDate = %v, want %v", got, want)
	}
}

func TestTransactionInfoIsolation(t *testing.T) {
	for _, tc := range []struct {
		payload []byte
		want    Isolation
	}{
		{[]byte{TraReportedConsistency}, IsolationSerializable},
		{[]byte{TraReportedConcurrency}, IsolationSnapshot},
		{[]byte{TraReportedReadCommitted, 0}, IsolationReadCommittedNoRecVersion},
		{[]byte{TraReportedReadCommitted, 1}, IsolationReadCommittedRecVersion},
		{[]byte{TraReportedReadCommitted, 2}, IsolationReadCommittedReadConsistency},
	} {
		src := respondWith(InfoItem{Tag: byte(TraInfoIsolation), Payload: tc.payload})
		ti := newTransactionInfo(src, EngineVersion{Major: 4})
		got, err := ti.Isolation(context.Background())
		if err != nil {
			t.Fatalf("payload % x: %v", tc.payload, err)
		}
		if got != tc.want {
			t.Fatalf("payload % x: got %d, want %d", tc.payload, got, tc.want)
		}
	}
}

func TestTransactionInfoSnapshotNumberGated(t *testing.T) {
	src := respondWith(InfoItem{Tag: byte(TraInfoSnapshotNumber), Payload: intPayload(8, 555)})
	ti := newTransactionInfo(src, EngineVersion{Major: 3})
	if _, err := ti.SnapshotNumber(context.Background()); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("v3 snapshot number: got %v, want ErrNotSupported", err)
	}
	ti4 := newTransactionInfo(src, EngineVersion{Major: 4})
	n, err := ti4.SnapshotNumber(context.Background())
	if err != nil || n != 555 {
		t.Fatalf("v4 snapshot number = %d, %v", n, err)
	}
}

func TestStatementInfoAffectedRecords(t *testing.T) {
	records := &Buffer{}
	records.PutTag(reqUpdateCount)
	records.PutShort(4)
	records.PutInt(7)
	records.PutTag(reqInsertCount)
	records.PutShort(4)
	records.PutInt(2)
	records.PutTag(infoEnd)

	src := respondWith(InfoItem{Tag: byte(StmtInfoRecords), Payload: records.Bytes()})
	si := newStatementInfo(src, EngineVersion{Major: 3})
	ctx := context.Background()

	n, err := si.AffectedRecords(ctx, StmtUpdate)
	if err != nil || n != 7 {
		t.Fatalf("update count = %d, %v", n, err)
	}
	n, err = si.AffectedRecords(ctx, StmtInsert)
	if err != nil || n != 2 {
		t.Fatalf("insert count = %d, %v", n, err)
	}
	// DDL sums every verb counter.
	n, err = si.AffectedRecords(ctx, StmtDDL)
	if err != nil || n != 9 {
		t.Fatalf("ddl count = %d, %v", n, err)
	}
}

func TestStatementInfoAffectedRecordsAbsent(t *testing.T) {
	src := respondWith()
	si := newStatementInfo(src, EngineVersion{Major: 3})
	n, err := si.AffectedRecords(context.Background(), StmtSelect)
	if err != nil {
		t.Fatalf("AffectedRecords: %v", err)
	}
	if n != -1 {
		t.Fatalf("absent cluster = %d, want -1", n)
	}
}

func TestStatementInfoPlan(t *testing.T) {
	src := respondWith(InfoItem{Tag: byte(StmtInfoGetPlan), Payload: []byte("\nPLAN (ORDERS NATURAL)")})
	si := newStatementInfo(src, EngineVersion{Major: 3})
	plan, err := si.Plan(context.Background(), false)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan != "PLAN (ORDERS NATURAL)" {
		t.Fatalf("plan = %q", plan)
	}
}
