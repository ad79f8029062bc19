package fbclient

// Engine-defined tag and code enumerations. Values come from the client
// library headers (isc_dpb_*, isc_tpb_*, isc_spb_*, isc_info_*); they are
// wire constants and must not be renumbered.

// Sentinel tags shared by every tagged info buffer.
const (
	infoEnd          = 1 // isc_info_end
	infoTruncated    = 2 // isc_info_truncated
	infoError        = 3 // isc_info_error
	infoDataNotReady = 4 // isc_info_data_not_ready
	infoFlagEnd      = 127
)

// BufferKind identifies which parameter buffer a tag set belongs to.
type BufferKind int

const (
	KindDPB BufferKind = iota + 1
	KindTPB
	KindSPBAttach
	KindSPBStart
	KindBPB
	KindEPB
)

func (k BufferKind) String() string {
	switch k {
	case KindDPB:
		return "DPB"
	case KindTPB:
		return "TPB"
	case KindSPBAttach:
		return "SPB"
	case KindSPBStart:
		return "SPB-start"
	case KindBPB:
		return "BPB"
	case KindEPB:
		return "EPB"
	default:
		return "?"
	}
}

// Parameter buffer version markers.
const (
	dpbVersion2 = 2 // isc_dpb_version2
	tpbVersion3 = 3 // isc_tpb_version3
	spbVersion2 = 2 // isc_spb_current_version
	bpbVersion1 = 1 // isc_bpb_version1
	epbVersion1 = 1 // EPB_version1
)

// DPBItem is a database parameter buffer tag (isc_dpb_*).
type DPBItem byte

const (
	DPBPageSize            DPBItem = 4  // int
	DPBNumBuffers          DPBItem = 5  // int
	DPBDBKeyScope          DPBItem = 13 // int
	DPBNoGarbageCollect    DPBItem = 16 // int flag
	DPBSweepInterval       DPBItem = 22 // int
	DPBForceWrite          DPBItem = 24 // int flag
	DPBNoReserve           DPBItem = 27 // int flag
	DPBUserName            DPBItem = 28 // string
	DPBPassword            DPBItem = 29 // string
	DPBLcCtype             DPBItem = 48 // string (connection charset)
	DPBOverwrite           DPBItem = 54 // int flag
	DPBConnectTimeout      DPBItem = 57 // int
	DPBDummyPacketInterval DPBItem = 58 // int
	DPBSQLRoleName         DPBItem = 60 // string
	DPBSetPageBuffers      DPBItem = 61 // int
	DPBSQLDialect          DPBItem = 63 // int
	DPBSetDBReadonly       DPBItem = 64 // int flag
	DPBSetDBSQLDialect     DPBItem = 65 // int
	DPBSetDBCharset        DPBItem = 68 // string
	DPBNoDBTriggers        DPBItem = 72 // int flag
	DPBTrustedAuth         DPBItem = 73 // marker
	DPBProcessName         DPBItem = 74 // string
	DPBTrustedRole         DPBItem = 75 // string
	DPBUTF8Filename        DPBItem = 77 // int flag
	DPBClientVersion       DPBItem = 80 // string
	DPBHostName            DPBItem = 82 // string
	DPBOSUser              DPBItem = 83 // string
	DPBAuthPluginList      DPBItem = 85 // string
	DPBAuthPluginName      DPBItem = 86 // string
	DPBConfig              DPBItem = 87 // string
	DPBNoLinger            DPBItem = 88 // int flag
	// Firebird 4
	DPBSessionTimeZone DPBItem = 91 // string
	DPBSetDBReplica    DPBItem = 92 // int
	DPBSetBind         DPBItem = 93 // string
	DPBDecfloatRound   DPBItem = 94 // string
	DPBDecfloatTraps   DPBItem = 95 // string
	// Firebird 5
	DPBParallelWorkers DPBItem = 100 // int
)

// TPBItem is a transaction parameter buffer tag (isc_tpb_*). Most TPB
// tags are bare markers; LOCK_TIMEOUT and AT_SNAPSHOT_NUMBER carry
// integer payloads, table reservation tags carry a table name.
type TPBItem byte

const (
	TPBConsistency      TPBItem = 1
	TPBConcurrency      TPBItem = 2
	TPBShared           TPBItem = 3
	TPBProtected        TPBItem = 4
	TPBExclusive        TPBItem = 5
	TPBWait             TPBItem = 6
	TPBNoWait           TPBItem = 7
	TPBRead             TPBItem = 8
	TPBWrite            TPBItem = 9
	TPBLockRead         TPBItem = 10 // string (table name)
	TPBLockWrite        TPBItem = 11 // string (table name)
	TPBIgnoreLimbo      TPBItem = 14
	TPBReadCommitted    TPBItem = 15
	TPBAutocommit       TPBItem = 16
	TPBRecVersion       TPBItem = 17
	TPBNoRecVersion     TPBItem = 18
	TPBNoAutoUndo       TPBItem = 20
	TPBLockTimeout      TPBItem = 21 // int
	TPBReadConsistency  TPBItem = 22 // Firebird 4
	TPBAtSnapshotNumber TPBItem = 23 // bigint, Firebird 4
)

// SPBItem is a service attach parameter buffer tag (isc_spb_*).
type SPBItem byte

const (
	SPBUserName       SPBItem = 28  // string
	SPBPassword       SPBItem = 29  // string
	SPBConnectTimeout SPBItem = 57  // int
	SPBSQLRoleName    SPBItem = 60  // string
	SPBCommandLine    SPBItem = 105 // string
	SPBDBName         SPBItem = 106 // string
	SPBVerbose        SPBItem = 107 // marker
	SPBOptions        SPBItem = 108 // int (bit mask)
	SPBTrustedAuth    SPBItem = 111 // marker
	SPBTrustedRole    SPBItem = 113 // marker
	SPBVerbint        SPBItem = 114 // int
	SPBAuthPluginName SPBItem = 116 // string
	SPBAuthPluginList SPBItem = 117 // string
	SPBUTF8Filename   SPBItem = 118 // marker
	SPBConfig         SPBItem = 123 // string
	SPBExpectedDB     SPBItem = 124 // string
)

// BPBItem is a blob parameter buffer tag (isc_bpb_*).
type BPBItem byte

const (
	BPBSourceType      BPBItem = 1 // int
	BPBTargetType      BPBItem = 2 // int
	BPBType            BPBItem = 3 // int
	BPBSourceInterp    BPBItem = 4 // int
	BPBTargetInterp    BPBItem = 5 // int
	BPBFilterParameter BPBItem = 6 // bytes
	BPBStorage         BPBItem = 7 // int
)

// Blob type and storage values for BPBType / BPBStorage.
const (
	BlobSegmented = 0x0
	BlobStream    = 0x1
	BlobMain      = 0x0
	BlobTemp      = 0x2
)

// DbInfoCode is a database info request code (isc_info_*).
type DbInfoCode byte

const (
	DbInfoDBID              DbInfoCode = 4
	DbInfoReads             DbInfoCode = 5
	DbInfoWrites            DbInfoCode = 6
	DbInfoFetches           DbInfoCode = 7
	DbInfoMarks             DbInfoCode = 8
	DbInfoImplementationOld DbInfoCode = 11
	DbInfoVersion           DbInfoCode = 12
	DbInfoBaseLevel         DbInfoCode = 13
	DbInfoPageSize          DbInfoCode = 14
	DbInfoNumBuffers        DbInfoCode = 15
	DbInfoLimbo             DbInfoCode = 16
	DbInfoCurrentMemory     DbInfoCode = 17
	DbInfoMaxMemory         DbInfoCode = 18
	DbInfoAllocation        DbInfoCode = 21
	DbInfoAttachmentID      DbInfoCode = 22
	DbInfoReadSeqCount      DbInfoCode = 23
	DbInfoReadIdxCount      DbInfoCode = 24
	DbInfoInsertCount       DbInfoCode = 25
	DbInfoUpdateCount       DbInfoCode = 26
	DbInfoDeleteCount       DbInfoCode = 27
	DbInfoBackoutCount      DbInfoCode = 28
	DbInfoPurgeCount        DbInfoCode = 29
	DbInfoExpungeCount      DbInfoCode = 30
	DbInfoSweepInterval     DbInfoCode = 31
	DbInfoODSVersion        DbInfoCode = 32
	DbInfoODSMinorVersion   DbInfoCode = 33
	DbInfoNoReserve         DbInfoCode = 34
	DbInfoForcedWrites      DbInfoCode = 52
	DbInfoUserNames         DbInfoCode = 53
	DbInfoSetPageBuffers    DbInfoCode = 61
	DbInfoDBSQLDialect      DbInfoCode = 62
	DbInfoDBReadOnly        DbInfoCode = 63
	DbInfoDBSizeInPages     DbInfoCode = 64
	DbInfoAttCharset        DbInfoCode = 101
	DbInfoDBClass           DbInfoCode = 102
	DbInfoFirebirdVersion   DbInfoCode = 103
	DbInfoOldestTransaction DbInfoCode = 104
	DbInfoOldestActive      DbInfoCode = 105
	DbInfoOldestSnapshot    DbInfoCode = 106
	DbInfoNextTransaction   DbInfoCode = 107
	DbInfoDBProvider        DbInfoCode = 108
	DbInfoActiveTrans       DbInfoCode = 109
	DbInfoActiveTranCount   DbInfoCode = 110
	DbInfoCreationDate      DbInfoCode = 111
	DbInfoPageContents      DbInfoCode = 113
	DbInfoImplementation    DbInfoCode = 114
	DbInfoPagesUsed         DbInfoCode = 124
	DbInfoPagesFree         DbInfoCode = 125
	DbInfoCryptState        DbInfoCode = 134
	// Firebird 4
	DbInfoSesIdleTimeoutDB  DbInfoCode = 129
	DbInfoSesIdleTimeoutAtt DbInfoCode = 130
	DbInfoConnFlags         DbInfoCode = 132
	DbInfoStmtTimeoutDB     DbInfoCode = 135
	DbInfoStmtTimeoutAtt    DbInfoCode = 136
	DbInfoProtocolVersion   DbInfoCode = 137
	DbInfoCryptPlugin       DbInfoCode = 138
	DbInfoWireCrypt         DbInfoCode = 140
	DbInfoFeatures          DbInfoCode = 141
	DbInfoNextAttachment    DbInfoCode = 142
	DbInfoNextStatement     DbInfoCode = 143
	DbInfoDBGUID            DbInfoCode = 144
	DbInfoDBFileID          DbInfoCode = 145
	DbInfoReplicaMode       DbInfoCode = 146
	DbInfoUserName          DbInfoCode = 147
	DbInfoSQLRole           DbInfoCode = 148
)

// TraInfoCode is a transaction info request code (isc_info_tra_*).
type TraInfoCode byte

const (
	TraInfoID                TraInfoCode = 4
	TraInfoOldestInteresting TraInfoCode = 5
	TraInfoOldestSnapshot    TraInfoCode = 6
	TraInfoOldestActive      TraInfoCode = 7
	TraInfoIsolation         TraInfoCode = 8
	TraInfoAccess            TraInfoCode = 9
	TraInfoLockTimeout       TraInfoCode = 10
	TraInfoDBPath            TraInfoCode = 11
	TraInfoSnapshotNumber    TraInfoCode = 12 // Firebird 4
)

// Transaction isolation as reported by TraInfoIsolation.
const (
	TraReportedConsistency   = 1
	TraReportedConcurrency   = 2
	TraReportedReadCommitted = 3
)

// Transaction access as reported by TraInfoAccess.
const (
	TraReportedReadOnly  = 0
	TraReportedReadWrite = 1
)

// StmtInfoCode is a statement info request code (isc_info_sql_*).
type StmtInfoCode byte

const (
	StmtInfoStmtType    StmtInfoCode = 21
	StmtInfoGetPlan     StmtInfoCode = 22
	StmtInfoRecords     StmtInfoCode = 23
	StmtInfoExplainPlan StmtInfoCode = 26
	StmtInfoFlags       StmtInfoCode = 27
	// Firebird 4
	StmtInfoTimeoutUser StmtInfoCode = 28
	StmtInfoTimeoutRun  StmtInfoCode = 29
	StmtInfoBlobAlign   StmtInfoCode = 30
	// Firebird 5
	StmtInfoExecPathBLRBytes StmtInfoCode = 31
	StmtInfoExecPathBLRText  StmtInfoCode = 32
)

// Per-verb record count tags inside a StmtInfoRecords cluster
// (isc_info_req_*).
const (
	reqSelectCount = 13
	reqInsertCount = 14
	reqUpdateCount = 15
	reqDeleteCount = 16
)

// SrvInfoCode is a service info request code (isc_info_svc_*).
type SrvInfoCode byte

const (
	SrvInfoSrvDBInfo      SrvInfoCode = 50
	SrvInfoGetConfig      SrvInfoCode = 53
	SrvInfoVersion        SrvInfoCode = 54
	SrvInfoServerVersion  SrvInfoCode = 55
	SrvInfoImplementation SrvInfoCode = 56
	SrvInfoCapabilities   SrvInfoCode = 57
	SrvInfoUserDBPath     SrvInfoCode = 58
	SrvInfoGetEnv         SrvInfoCode = 59
	SrvInfoGetEnvLock     SrvInfoCode = 60
	SrvInfoGetEnvMsg      SrvInfoCode = 61
	SrvInfoLine           SrvInfoCode = 62
	SrvInfoToEOF          SrvInfoCode = 63
	SrvInfoTimeout        SrvInfoCode = 64
	SrvInfoLimboTrans     SrvInfoCode = 66
	SrvInfoRunning        SrvInfoCode = 67
	SrvInfoGetUsers       SrvInfoCode = 68
	SrvInfoStdin          SrvInfoCode = 78
)

// Tags inside a SrvInfoSrvDBInfo cluster.
const (
	srvDBInfoAtt = 5
	srvDBInfoDB  = 6
)

// BlobInfoCode is a blob info request code (isc_info_blob_*).
type BlobInfoCode byte

const (
	BlobInfoNumSegments BlobInfoCode = 4
	BlobInfoMaxSegment  BlobInfoCode = 5
	BlobInfoTotalLength BlobInfoCode = 6
	BlobInfoType        BlobInfoCode = 7
)

// ServerAction is a service task code (isc_action_svc_*).
type ServerAction byte

const (
	ActionBackup      ServerAction = 1
	ActionRestore     ServerAction = 2
	ActionRepair      ServerAction = 3
	ActionAddUser     ServerAction = 4
	ActionDeleteUser  ServerAction = 5
	ActionModifyUser  ServerAction = 6
	ActionDisplayUser ServerAction = 7
	ActionProperties  ServerAction = 8
	ActionDBStats     ServerAction = 11
	ActionGetFBLog    ServerAction = 12
	ActionNBak        ServerAction = 20
	ActionNRest       ServerAction = 21
	ActionTraceStart  ServerAction = 22
	ActionTraceStop   ServerAction = 23
	ActionValidate    ServerAction = 30
)

// Service task item tags used by backup/restore/statistics requests.
const (
	spbBkpFile         = 5   // isc_spb_bkp_file (string)
	spbBkpFactor       = 6   // isc_spb_bkp_factor (int)
	spbBkpLength       = 7   // isc_spb_bkp_length (int)
	spbResBuffers      = 9   // isc_spb_res_buffers (int)
	spbResPageSize     = 10  // isc_spb_res_page_size (int)
	spbResLength       = 11  // isc_spb_res_length (int)
	spbResAccessMode   = 12  // isc_spb_res_access_mode (byte)
	spbStsTable        = 64  // isc_spb_sts_table (string)
	spbResStdin        = 127 // isc_spb_verbose replacement for stdin restore
)

// Backup option flags (isc_spb_bkp_*).
type BackupFlag uint32

const (
	BackupIgnoreChecksums   BackupFlag = 0x01
	BackupIgnoreLimbo       BackupFlag = 0x02
	BackupMetadataOnly      BackupFlag = 0x04
	BackupNoGarbageCollect  BackupFlag = 0x08
	BackupOldDescriptions   BackupFlag = 0x10
	BackupNonTransportable  BackupFlag = 0x20
	BackupConvert           BackupFlag = 0x40
	BackupExpand            BackupFlag = 0x80
	BackupNoDBTriggers      BackupFlag = 0x8000
	BackupZip               BackupFlag = 0x010000
	BackupDirectIO          BackupFlag = 0x40000
)

// Restore option flags (isc_spb_res_*).
type RestoreFlag uint32

const (
	RestoreDeactivateIdx  RestoreFlag = 0x0100
	RestoreNoShadow       RestoreFlag = 0x0200
	RestoreNoValidity     RestoreFlag = 0x0400
	RestoreOneAtATime     RestoreFlag = 0x0800
	RestoreReplace        RestoreFlag = 0x1000
	RestoreCreate         RestoreFlag = 0x2000
	RestoreUseAllSpace    RestoreFlag = 0x4000
	RestoreFixFSSData     RestoreFlag = 0x20000
	RestoreFixFSSMetadata RestoreFlag = 0x40000
)

// Statistics option flags (isc_spb_sts_*).
type StatFlag uint32

const (
	StatDataPages       StatFlag = 0x01
	StatDBLog           StatFlag = 0x02
	StatHeaderPages     StatFlag = 0x04
	StatIndexPages      StatFlag = 0x08
	StatSystemRelations StatFlag = 0x10
	StatRecordVersions  StatFlag = 0x20
	StatNocreation      StatFlag = 0x80
	StatEncryption      StatFlag = 0x100
)

// StatementType classifies a prepared statement (isc_info_sql_stmt_*).
type StatementType int

const (
	StmtSelect        StatementType = 1
	StmtInsert        StatementType = 2
	StmtUpdate        StatementType = 3
	StmtDelete        StatementType = 4
	StmtDDL           StatementType = 5
	StmtGetSegment    StatementType = 6
	StmtPutSegment    StatementType = 7
	StmtExecProcedure StatementType = 8
	StmtStartTrans    StatementType = 9
	StmtCommit        StatementType = 10
	StmtRollback      StatementType = 11
	StmtSelectForUpd  StatementType = 12
	StmtSetGenerator  StatementType = 13
	StmtSavepoint     StatementType = 14
)

// HasCursor reports whether statements of this type open a result set.
func (t StatementType) HasCursor() bool {
	return t == StmtSelect || t == StmtSelectForUpd || t == StmtExecProcedure
}

// SQLDataType is an engine SQL type code as found in field metadata.
type SQLDataType uint16

const (
	SQLText        SQLDataType = 452
	SQLVarying     SQLDataType = 448
	SQLShort       SQLDataType = 500
	SQLLong        SQLDataType = 496
	SQLFloat       SQLDataType = 482
	SQLDouble      SQLDataType = 480
	SQLTimestamp   SQLDataType = 510
	SQLBlob        SQLDataType = 520
	SQLArray       SQLDataType = 540
	SQLQuad        SQLDataType = 550
	SQLTime        SQLDataType = 560
	SQLDate        SQLDataType = 570
	SQLInt64       SQLDataType = 580
	SQLTimestampTZ SQLDataType = 32754
	SQLTimeTZ      SQLDataType = 32756
	SQLInt128      SQLDataType = 32752
	SQLDec16       SQLDataType = 32760
	SQLDec34       SQLDataType = 32762
	SQLBoolean     SQLDataType = 32764
	SQLNull        SQLDataType = 32766
)

// Isolation selects the transaction isolation level for TPB construction.
type Isolation int

const (
	IsolationSnapshot Isolation = iota
	IsolationSerializable
	IsolationReadCommittedRecVersion
	IsolationReadCommittedNoRecVersion
	IsolationReadCommittedReadConsistency // Firebird 4
)

// AccessMode selects read-write or read-only transactions.
type AccessMode int

const (
	AccessWrite AccessMode = iota
	AccessRead
)

// TableShareMode and TableAccessMode describe table reservation entries.
type TableShareMode int

const (
	ShareShared TableShareMode = iota
	ShareProtected
	ShareExclusive
)

type TableAccessMode int

const (
	TableLockRead TableAccessMode = iota
	TableLockWrite
)

// DefaultAction is what a transaction manager does with an active
// transaction when it is closed without an explicit commit or rollback.
type DefaultAction int

const (
	ActionCommit DefaultAction = iota
	ActionRollback
)
