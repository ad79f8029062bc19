package fbclient

import "context"

// TransactionInfo answers typed queries about one active transaction.
// Obtain it from TransactionManager.Info.
type TransactionInfo struct {
	src     infoSource
	version EngineVersion
}

func newTransactionInfo(src infoSource, version EngineVersion) *TransactionInfo {
	return &TransactionInfo{src: src, version: version}
}

// Get submits a raw request for the given codes.
func (t *TransactionInfo) Get(ctx context.Context, codes ...TraInfoCode) ([]InfoItem, error) {
	request := make([]byte, 0, len(codes)+1)
	for _, c := range codes {
		if c == TraInfoSnapshotNumber && !t.version.AtLeast(4, 0) {
			return nil, notSupportedErrf("snapshot numbers need Firebird 4, engine is %s", t.version)
		}
		request = append(request, byte(c))
	}
	request = append(request, infoEnd)
	return fetchInfoItems(ctx, t.src, request)
}

func (t *TransactionInfo) getInt(ctx context.Context, code TraInfoCode) (int64, error) {
	items, err := t.Get(ctx, code)
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

// ID returns the server-side transaction id.
func (t *TransactionInfo) ID(ctx context.Context) (int64, error) {
	return t.getInt(ctx, TraInfoID)
}

// Isolation returns the effective isolation. The engine reports read
// committed with a second payload byte selecting the record version
// variant.
func (t *TransactionInfo) Isolation(ctx context.Context) (Isolation, error) {
	items, err := t.Get(ctx, TraInfoIsolation)
	if err != nil {
		return 0, err
	}
	it, ok := firstItem(items, byte(TraInfoIsolation))
	if !ok || len(it.Payload) == 0 {
		return 0, operationalErrf("engine returned no data for info code %d", TraInfoIsolation)
	}
	switch it.Payload[0] {
	case TraReportedConsistency:
		return IsolationSerializable, nil
	case TraReportedConcurrency:
		return IsolationSnapshot, nil
	case TraReportedReadCommitted:
		if len(it.Payload) < 2 {
			return 0, malformedErrf("read committed isolation payload missing the variant byte")
		}
		switch it.Payload[1] {
		case 0:
			return IsolationReadCommittedNoRecVersion, nil
		case 1:
			return IsolationReadCommittedRecVersion, nil
		case 2:
			return IsolationReadCommittedReadConsistency, nil
		default:
			return 0, malformedErrf("unknown read committed variant %d", it.Payload[1])
		}
	default:
		return 0, malformedErrf("unknown reported isolation %d", it.Payload[0])
	}
}

// Access returns the transaction access mode.
func (t *TransactionInfo) Access(ctx context.Context) (AccessMode, error) {
	v, err := t.getInt(ctx, TraInfoAccess)
	if err != nil {
		return 0, err
	}
	switch v {
	case TraReportedReadOnly:
		return AccessRead, nil
	case TraReportedReadWrite:
		return AccessWrite, nil
	default:
		return 0, malformedErrf("unknown reported access mode %d", v)
	}
}

// LockTimeout returns the lock resolution timeout: -1 for infinite
// wait, 0 for no wait, otherwise seconds.
func (t *TransactionInfo) LockTimeout(ctx context.Context) (int32, error) {
	v, err := t.getInt(ctx, TraInfoLockTimeout)
	return int32(v), err
}

// DatabasePath returns the path of the database the transaction runs
// against.
func (t *TransactionInfo) DatabasePath(ctx context.Context) (string, error) {
	items, err := t.Get(ctx, TraInfoDBPath)
	if err != nil {
		return "", err
	}
	s, ok := itemString(items, byte(TraInfoDBPath))
	if !ok {
		return "", operationalErrf("engine returned no data for info code %d", TraInfoDBPath)
	}
	return s, nil
}

// SnapshotNumber returns the commit order number of the snapshot the
// transaction sees. Needs Firebird 4.
func (t *TransactionInfo) SnapshotNumber(ctx context.Context) (int64, error) {
	return t.getInt(ctx, TraInfoSnapshotNumber)
}

// OldestInteresting returns the oldest interesting transaction id as
// seen at transaction start.
func (t *TransactionInfo) OldestInteresting(ctx context.Context) (int64, error) {
	return t.getInt(ctx, TraInfoOldestInteresting)
}

// OldestActive returns the oldest active transaction id as seen at
// transaction start.
func (t *TransactionInfo) OldestActive(ctx context.Context) (int64, error) {
	return t.getInt(ctx, TraInfoOldestActive)
}
