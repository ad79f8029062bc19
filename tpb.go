package fbclient

// TableReservation reserves one table at transaction start.
type TableReservation struct {
	Table  string
	Share  TableShareMode
	Access TableAccessMode
}

// TPB is a typed transaction parameter buffer builder. The zero value
// describes the driver default: snapshot isolation, read-write access,
// infinite lock wait.
//
// LockTimeout follows the engine convention: -1 waits without limit,
// 0 fails immediately on a lock conflict, a positive value waits up to
// that many seconds.
type TPB struct {
	AccessMode       AccessMode
	Isolation        Isolation
	LockTimeout      int32
	NoAutoUndo       bool
	AutoCommit       bool
	IgnoreLimbo      bool
	AtSnapshotNumber int64 // Firebird 4, 0 means unset
	Reservations     []TableReservation

	// Encoding names the charset for table names in reservations.
	// Empty means UTF8.
	Encoding string
}

// NewTPB returns a TPB with the driver defaults.
func NewTPB() *TPB {
	return &TPB{LockTimeout: -1}
}

func (t *TPB) encoding() string {
	if t.Encoding == "" {
		return "UTF8"
	}
	return t.Encoding
}

// Render produces the transaction parameter buffer bytes.
func (t *TPB) Render() ([]byte, error) {
	p := NewParamBuffer(KindTPB, t.encoding())
	switch t.Isolation {
	case IsolationSnapshot:
		p.AddMarker(byte(TPBConcurrency))
	case IsolationSerializable:
		p.AddMarker(byte(TPBConsistency))
	case IsolationReadCommittedRecVersion:
		p.AddMarker(byte(TPBReadCommitted))
		p.AddMarker(byte(TPBRecVersion))
	case IsolationReadCommittedNoRecVersion:
		p.AddMarker(byte(TPBReadCommitted))
		p.AddMarker(byte(TPBNoRecVersion))
	case IsolationReadCommittedReadConsistency:
		p.AddMarker(byte(TPBReadCommitted))
		p.AddMarker(byte(TPBReadConsistency))
	default:
		return nil, programmingErrf("unknown isolation %d", t.Isolation)
	}
	switch t.AccessMode {
	case AccessWrite:
		p.AddMarker(byte(TPBWrite))
	case AccessRead:
		p.AddMarker(byte(TPBRead))
	default:
		return nil, programmingErrf("unknown access mode %d", t.AccessMode)
	}
	switch {
	case t.LockTimeout < 0:
		p.AddMarker(byte(TPBWait))
	case t.LockTimeout == 0:
		p.AddMarker(byte(TPBNoWait))
	default:
		p.AddMarker(byte(TPBWait))
		if err := p.AddInt(byte(TPBLockTimeout), t.LockTimeout); err != nil {
			return nil, err
		}
	}
	if t.NoAutoUndo {
		p.AddMarker(byte(TPBNoAutoUndo))
	}
	if t.AutoCommit {
		p.AddMarker(byte(TPBAutocommit))
	}
	if t.IgnoreLimbo {
		p.AddMarker(byte(TPBIgnoreLimbo))
	}
	if t.AtSnapshotNumber != 0 {
		if err := p.AddBigint(byte(TPBAtSnapshotNumber), t.AtSnapshotNumber); err != nil {
			return nil, err
		}
	}
	for _, r := range t.Reservations {
		var lock TPBItem
		switch r.Access {
		case TableLockRead:
			lock = TPBLockRead
		case TableLockWrite:
			lock = TPBLockWrite
		default:
			return nil, programmingErrf("unknown table access mode %d", r.Access)
		}
		if err := p.AddString(byte(lock), r.Table); err != nil {
			return nil, err
		}
		switch r.Share {
		case ShareShared:
			p.AddMarker(byte(TPBShared))
		case ShareProtected:
			p.AddMarker(byte(TPBProtected))
		case ShareExclusive:
			p.AddMarker(byte(TPBExclusive))
		default:
			return nil, programmingErrf("unknown table share mode %d", r.Share)
		}
	}
	return p.Render()
}

// ParseTPB reconstructs a TPB from rendered bytes. A zero-length
// buffer parses to nil, meaning "engine default".
func ParseTPB(data []byte) (*TPB, error) {
	if len(data) == 0 {
		return nil, nil
	}
	p, err := ParseParamBuffer(KindTPB, "UTF8", data)
	if err != nil {
		return nil, err
	}
	t := NewTPB()
	var pendingTable *TableReservation
	flush := func() {
		if pendingTable != nil {
			t.Reservations = append(t.Reservations, *pendingTable)
			pendingTable = nil
		}
	}
	for _, item := range p.Items() {
		switch TPBItem(item.Tag) {
		case TPBConcurrency:
			t.Isolation = IsolationSnapshot
		case TPBConsistency:
			t.Isolation = IsolationSerializable
		case TPBReadCommitted:
			t.Isolation = IsolationReadCommittedRecVersion
		case TPBRecVersion:
			t.Isolation = IsolationReadCommittedRecVersion
		case TPBNoRecVersion:
			t.Isolation = IsolationReadCommittedNoRecVersion
		case TPBReadConsistency:
			t.Isolation = IsolationReadCommittedReadConsistency
		case TPBWrite:
			t.AccessMode = AccessWrite
		case TPBRead:
			t.AccessMode = AccessRead
		case TPBWait:
			t.LockTimeout = -1
		case TPBNoWait:
			t.LockTimeout = 0
		case TPBLockTimeout:
			t.LockTimeout = int32(item.Int)
		case TPBNoAutoUndo:
			t.NoAutoUndo = true
		case TPBAutocommit:
			t.AutoCommit = true
		case TPBIgnoreLimbo:
			t.IgnoreLimbo = true
		case TPBAtSnapshotNumber:
			t.AtSnapshotNumber = item.Int
		case TPBLockRead:
			flush()
			pendingTable = &TableReservation{Table: item.Str, Access: TableLockRead}
		case TPBLockWrite:
			flush()
			pendingTable = &TableReservation{Table: item.Str, Access: TableLockWrite}
		case TPBShared, TPBProtected, TPBExclusive:
			if pendingTable == nil {
				return nil, malformedErrf("table share tag %d without a preceding reservation", item.Tag)
			}
			switch TPBItem(item.Tag) {
			case TPBShared:
				pendingTable.Share = ShareShared
			case TPBProtected:
				pendingTable.Share = ShareProtected
			case TPBExclusive:
				pendingTable.Share = ShareExclusive
			}
			flush()
		}
	}
	flush()
	return t, nil
}
