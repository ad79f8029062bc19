package fbclient

import (
	"context"
	"time"
)

// Info codes understood by every supported engine version.
var dbInfoBaseline = []DbInfoCode{
	DbInfoDBID, DbInfoReads, DbInfoWrites, DbInfoFetches, DbInfoMarks,
	DbInfoImplementationOld, DbInfoVersion, DbInfoBaseLevel, DbInfoPageSize,
	DbInfoNumBuffers, DbInfoLimbo, DbInfoCurrentMemory, DbInfoMaxMemory,
	DbInfoAllocation, DbInfoAttachmentID, DbInfoReadSeqCount,
	DbInfoReadIdxCount, DbInfoInsertCount, DbInfoUpdateCount,
	DbInfoDeleteCount, DbInfoBackoutCount, DbInfoPurgeCount,
	DbInfoExpungeCount, DbInfoSweepInterval, DbInfoODSVersion,
	DbInfoODSMinorVersion, DbInfoNoReserve, DbInfoForcedWrites,
	DbInfoUserNames, DbInfoSetPageBuffers, DbInfoDBSQLDialect,
	DbInfoDBReadOnly, DbInfoDBSizeInPages, DbInfoAttCharset, DbInfoDBClass,
	DbInfoFirebirdVersion, DbInfoOldestTransaction, DbInfoOldestActive,
	DbInfoOldestSnapshot, DbInfoNextTransaction, DbInfoDBProvider,
	DbInfoActiveTrans, DbInfoActiveTranCount, DbInfoCreationDate,
	DbInfoPageContents, DbInfoImplementation, DbInfoPagesUsed,
	DbInfoPagesFree, DbInfoCryptState,
}

var dbInfoV4 = []DbInfoCode{
	DbInfoSesIdleTimeoutDB, DbInfoSesIdleTimeoutAtt, DbInfoConnFlags,
	DbInfoStmtTimeoutDB, DbInfoStmtTimeoutAtt, DbInfoProtocolVersion,
	DbInfoCryptPlugin, DbInfoWireCrypt, DbInfoFeatures,
	DbInfoNextAttachment, DbInfoNextStatement, DbInfoDBGUID,
	DbInfoDBFileID, DbInfoReplicaMode,
}

var dbInfoV5 = []DbInfoCode{
	DbInfoUserName, DbInfoSQLRole,
}

// dbInfoCapability maps engine major version to the supported code set.
// Dispatch is by table lookup, never by driver subtypes.
func dbInfoCapability(version EngineVersion) map[DbInfoCode]bool {
	caps := make(map[DbInfoCode]bool, len(dbInfoBaseline)+len(dbInfoV4)+len(dbInfoV5))
	for _, c := range dbInfoBaseline {
		caps[c] = true
	}
	if version.AtLeast(4, 0) {
		for _, c := range dbInfoV4 {
			caps[c] = true
		}
	}
	if version.AtLeast(5, 0) {
		for _, c := range dbInfoV5 {
			caps[c] = true
		}
	}
	return caps
}

// DatabaseInfo answers typed queries about one attachment. Obtain it
// from Connection.Info; the capability set is fixed by the engine
// version detected at attach time.
type DatabaseInfo struct {
	src     infoSource
	version EngineVersion
	caps    map[DbInfoCode]bool
}

func newDatabaseInfo(src infoSource, version EngineVersion) *DatabaseInfo {
	return &DatabaseInfo{src: src, version: version, caps: dbInfoCapability(version)}
}

// Supports reports whether the attached engine understands the code.
func (d *DatabaseInfo) Supports(code DbInfoCode) bool { return d.caps[code] }

// Get submits a raw request for the given codes and returns the decoded
// items. Requesting a code the engine does not understand fails before
// anything hits the wire.
func (d *DatabaseInfo) Get(ctx context.Context, codes ...DbInfoCode) ([]InfoItem, error) {
	request := make([]byte, 0, len(codes)+1)
	for _, c := range codes {
		if !d.caps[c] {
			return nil, notSupportedErrf("info code %d needs a newer engine than %s", c, d.version)
		}
		request = append(request, byte(c))
	}
	request = append(request, infoEnd)
	return fetchInfoItems(ctx, d.src, request)
}

func (d *DatabaseInfo) getInt(ctx context.Context, code DbInfoCode) (int64, error) {
	items, err := d.Get(ctx, code)
	if err != nil {
		return 0, err
	}
	v, ok, err := itemInt(items, byte(code))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, operationalErrf("engine returned no data for info code %d", code)
	}
	return v, nil
}

// PageSize returns the database page size in bytes.
func (d *DatabaseInfo) PageSize(ctx context.Context) (int, error) {
	v, err := d.getInt(ctx, DbInfoPageSize)
	return int(v), err
}

// ODSVersion returns the on-disk structure version as major and minor.
func (d *DatabaseInfo) ODSVersion(ctx context.Context) (major, minor int, err error) {
	items, err := d.Get(ctx, DbInfoODSVersion, DbInfoODSMinorVersion)
	if err != nil {
		return 0, 0, err
	}
	ma, _, err := itemInt(items, byte(DbInfoODSVersion))
	if err != nil {
		return 0, 0, err
	}
	mi, _, err := itemInt(items, byte(DbInfoODSMinorVersion))
	if err != nil {
		return 0, 0, err
	}
	return int(ma), int(mi), nil
}

// Name returns the database file name and the server site name from the
// attachment id cluster.
func (d *DatabaseInfo) Name(ctx context.Context) (database, site string, err error) {
	items, err := d.Get(ctx, DbInfoDBID)
	if err != nil {
		return "", "", err
	}
	it, ok := firstItem(items, byte(DbInfoDBID))
	if !ok {
		return "", "", operationalErrf("engine returned no data for info code %d", DbInfoDBID)
	}
	buf := NewBuffer(it.Payload)
	if _, err := buf.GetByte(); err != nil { // cluster entry count
		return "", "", err
	}
	db, err := buf.GetPascalString()
	if err != nil {
		return "", "", err
	}
	st, err := buf.GetPascalString()
	if err != nil {
		return "", "", err
	}
	return string(db), string(st), nil
}

// FirebirdVersion returns the engine version banner. Banners spanning
// multiple strings are joined with newlines.
func (d *DatabaseInfo) FirebirdVersion(ctx context.Context) (string, error) {
	items, err := d.Get(ctx, DbInfoFirebirdVersion)
	if err != nil {
		return "", err
	}
	it, ok := firstItem(items, byte(DbInfoFirebirdVersion))
	if !ok {
		return "", operationalErrf("engine returned no data for info code %d", DbInfoFirebirdVersion)
	}
	return parseVersionStrings(it.Payload)
}

// AttachmentID returns the server-side id of this attachment.
func (d *DatabaseInfo) AttachmentID(ctx context.Context) (int64, error) {
	return d.getInt(ctx, DbInfoAttachmentID)
}

// IOStats returns the page read, write, fetch and mark counters.
func (d *DatabaseInfo) IOStats(ctx context.Context) (reads, writes, fetches, marks int64, err error) {
	items, err := d.Get(ctx, DbInfoReads, DbInfoWrites, DbInfoFetches, DbInfoMarks)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	for _, p := range []struct {
		code DbInfoCode
		dst  *int64
	}{
		{DbInfoReads, &reads},
		{DbInfoWrites, &writes},
		{DbInfoFetches, &fetches},
		{DbInfoMarks, &marks},
	} {
		v, _, err := itemInt(items, byte(p.code))
		if err != nil {
			return 0, 0, 0, 0, err
		}
		*p.dst = v
	}
	return reads, writes, fetches, marks, nil
}

// TransactionBounds returns the oldest interesting, oldest active,
// oldest snapshot and next transaction ids.
func (d *DatabaseInfo) TransactionBounds(ctx context.Context) (oldest, oldestActive, oldestSnapshot, next int64, err error) {
	items, err := d.Get(ctx, DbInfoOldestTransaction, DbInfoOldestActive,
		DbInfoOldestSnapshot, DbInfoNextTransaction)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	for _, p := range []struct {
		code DbInfoCode
		dst  *int64
	}{
		{DbInfoOldestTransaction, &oldest},
		{DbInfoOldestActive, &oldestActive},
		{DbInfoOldestSnapshot, &oldestSnapshot},
		{DbInfoNextTransaction, &next},
	} {
		v, _, err := itemInt(items, byte(p.code))
		if err != nil {
			return 0, 0, 0, 0, err
		}
		*p.dst = v
	}
	return oldest, oldestActive, oldestSnapshot, next, nil
}

// ForcedWrites reports whether the database runs with synchronous writes.
func (d *DatabaseInfo) ForcedWrites(ctx context.Context) (bool, error) {
	v, err := d.getInt(ctx, DbInfoForcedWrites)
	return v != 0, err
}

// ReadOnly reports whether the database is attached read-only.
func (d *DatabaseInfo) ReadOnly(ctx context.Context) (bool, error) {
	v, err := d.getInt(ctx, DbInfoDBReadOnly)
	return v != 0, err
}

// SQLDialect returns the database SQL dialect.
func (d *DatabaseInfo) SQLDialect(ctx context.Context) (int, error) {
	v, err := d.getInt(ctx, DbInfoDBSQLDialect)
	return int(v), err
}

// SweepInterval returns the automatic sweep interval.
func (d *DatabaseInfo) SweepInterval(ctx context.Context) (int64, error) {
	return d.getInt(ctx, DbInfoSweepInterval)
}

// SizeInPages returns the allocated database size in pages.
func (d *DatabaseInfo) SizeInPages(ctx context.Context) (int64, error) {
	return d.getInt(ctx, DbInfoDBSizeInPages)
}

// UserNames returns attached user names with their attachment counts.
// The engine reports one item per attachment, so a user attached three
// times appears with count 3.
func (d *DatabaseInfo) UserNames(ctx context.Context) (map[string]int, error) {
	items, err := d.Get(ctx, DbInfoUserNames)
	if err != nil {
		return nil, err
	}
	users := make(map[string]int)
	for _, it := range items {
		if it.Tag != byte(DbInfoUserNames) {
			continue
		}
		name, err := NewBuffer(it.Payload).GetPascalString()
		if err != nil {
			return nil, err
		}
		users[string(name)]++
	}
	return users, nil
}

// ActiveTransactions returns the ids of transactions currently active
// in the database. Engines report ids at 4 or 8 bytes depending on
// version; both widths decode.
func (d *DatabaseInfo) ActiveTransactions(ctx context.Context) ([]int64, error) {
	items, err := d.Get(ctx, DbInfoActiveTrans)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, it := range items {
		if it.Tag != byte(DbInfoActiveTrans) {
			continue
		}
		id, err := it.Int()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ActiveTransactionCount returns the number of active transactions.
func (d *DatabaseInfo) ActiveTransactionCount(ctx context.Context) (int64, error) {
	return d.getInt(ctx, DbInfoActiveTranCount)
}

// CreationDate returns the database creation timestamp in UTC.
func (d *DatabaseInfo) CreationDate(ctx context.Context) (time.Time, error) {
	items, err := d.Get(ctx, DbInfoCreationDate)
	if err != nil {
		return time.Time{}, err
	}
	it, ok := firstItem(items, byte(DbInfoCreationDate))
	if !ok {
		return time.Time{}, operationalErrf("engine returned no data for info code %d", DbInfoCreationDate)
	}
	buf := NewBuffer(it.Payload)
	days, err := buf.GetInt()
	if err != nil {
		return time.Time{}, err
	}
	tenths, err := buf.GetInt()
	if err != nil {
		return time.Time{}, err
	}
	return decodeTimestamp(days, tenths), nil
}

// CryptState returns the database encryption state flags.
func (d *DatabaseInfo) CryptState(ctx context.Context) (int64, error) {
	return d.getInt(ctx, DbInfoCryptState)
}

// GUID returns the database GUID. Needs Firebird 4.
func (d *DatabaseInfo) GUID(ctx context.Context) (string, error) {
	items, err := d.Get(ctx, DbInfoDBGUID)
	if err != nil {
		return "", err
	}
	s, ok := itemString(items, byte(DbInfoDBGUID))
	if !ok {
		return "", operationalErrf("engine returned no data for info code %d", DbInfoDBGUID)
	}
	return s, nil
}

// ReplicaMode returns the replica mode. Needs Firebird 4.
func (d *DatabaseInfo) ReplicaMode(ctx context.Context) (int64, error) {
	return d.getInt(ctx, DbInfoReplicaMode)
}

// IdleTimeouts returns the session idle timeouts configured at database
// and attachment level, in seconds. Needs Firebird 4.
func (d *DatabaseInfo) IdleTimeouts(ctx context.Context) (database, attachment int64, err error) {
	items, err := d.Get(ctx, DbInfoSesIdleTimeoutDB, DbInfoSesIdleTimeoutAtt)
	if err != nil {
		return 0, 0, err
	}
	db, _, err := itemInt(items, byte(DbInfoSesIdleTimeoutDB))
	if err != nil {
		return 0, 0, err
	}
	att, _, err := itemInt(items, byte(DbInfoSesIdleTimeoutAtt))
	if err != nil {
		return 0, 0, err
	}
	return db, att, nil
}

// engine timestamps: a day count from the Modified Julian Day epoch plus
// a time of day in 100 microsecond units
var iscEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

func decodeTimestamp(days, tenths int32) time.Time {
	return iscEpoch.AddDate(0, 0, int(days)).
		Add(time.Duration(tenths) * 100 * time.Microsecond)
}
