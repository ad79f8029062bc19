package fbclient

// DPB is a typed database parameter buffer builder covering attach and
// create options. Create-only fields are rendered only when Render is
// called with forCreate set; attach renders ignore them.
type DPB struct {
	User       string
	Password   string
	Role       string
	Charset    string // connection charset (lc_ctype)
	AuthPlugin string

	Config              string
	TrustedAuth         bool
	ConnectTimeout      int32 // seconds, 0 means engine default
	DummyPacketInterval int32
	DBKeyScope          int32
	NoGarbageCollect    bool
	NoDBTriggers        bool
	NoLinger            bool
	UTF8Filename        bool
	ProcessName         string
	SessionTimeZone     string
	SetBind             string
	DecfloatRound       string
	DecfloatTraps       string
	ParallelWorkers     int32

	// Create-only options.
	PageSize      int32
	Overwrite     bool
	DBCharset     string
	PageBuffers   int32
	SweepInterval int32
	NoReserve     bool
	ForceWrite    *bool // nil leaves the engine default
	ReadOnly      bool
	SQLDialect    int32
}

// NewDPB returns a DPB with the given credentials and connection charset.
func NewDPB(user, password, charset string) *DPB {
	return &DPB{User: user, Password: password, Charset: charset}
}

func (d *DPB) encoding() string {
	if d.Charset == "" {
		return "UTF8"
	}
	return d.Charset
}

// Render produces the database parameter buffer bytes. forCreate
// additionally renders the database creation options.
func (d *DPB) Render(forCreate bool) ([]byte, error) {
	p := NewParamBuffer(KindDPB, d.encoding())
	addString := func(tag DPBItem, v string) {
		if v != "" {
			p.AddString(byte(tag), v)
		}
	}
	addInt := func(tag DPBItem, v int32) {
		if v != 0 {
			p.AddInt(byte(tag), v)
		}
	}
	addFlag := func(tag DPBItem, v bool) {
		if v {
			p.AddInt(byte(tag), 1)
		}
	}
	addString(DPBConfig, d.Config)
	if d.TrustedAuth {
		p.AddMarker(byte(DPBTrustedAuth))
	} else {
		addString(DPBUserName, d.User)
		addString(DPBPassword, d.Password)
	}
	addString(DPBSQLRoleName, d.Role)
	addString(DPBLcCtype, d.Charset)
	addString(DPBAuthPluginName, d.AuthPlugin)
	addInt(DPBConnectTimeout, d.ConnectTimeout)
	addInt(DPBDummyPacketInterval, d.DummyPacketInterval)
	addInt(DPBDBKeyScope, d.DBKeyScope)
	addFlag(DPBNoGarbageCollect, d.NoGarbageCollect)
	addFlag(DPBNoDBTriggers, d.NoDBTriggers)
	addFlag(DPBNoLinger, d.NoLinger)
	addFlag(DPBUTF8Filename, d.UTF8Filename)
	addString(DPBProcessName, d.ProcessName)
	addString(DPBSessionTimeZone, d.SessionTimeZone)
	addString(DPBSetBind, d.SetBind)
	addString(DPBDecfloatRound, d.DecfloatRound)
	addString(DPBDecfloatTraps, d.DecfloatTraps)
	addInt(DPBParallelWorkers, d.ParallelWorkers)
	if forCreate {
		addInt(DPBPageSize, d.PageSize)
		addFlag(DPBOverwrite, d.Overwrite)
		addString(DPBSetDBCharset, d.DBCharset)
		addInt(DPBSetPageBuffers, d.PageBuffers)
		addInt(DPBSweepInterval, d.SweepInterval)
		addFlag(DPBNoReserve, d.NoReserve)
		if d.ForceWrite != nil {
			v := int32(0)
			if *d.ForceWrite {
				v = 1
			}
			p.AddInt(byte(DPBForceWrite), v)
		}
		addFlag(DPBSetDBReadonly, d.ReadOnly)
		addInt(DPBSQLDialect, d.SQLDialect)
	}
	return p.Render()
}

// ParseDPB decodes rendered DPB bytes into the ordered item list for
// diagnostics. Credential payloads come back as written; callers that
// log the result should redact the password item.
func ParseDPB(data []byte) (*ParamBuffer, error) {
	return ParseParamBuffer(KindDPB, "UTF8", data)
}
