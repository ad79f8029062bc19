package fbclient

import "context"

// StatementInfo answers typed queries about one prepared statement.
// Obtain it from Statement.Info.
type StatementInfo struct {
	src     infoSource
	version EngineVersion
}

func newStatementInfo(src infoSource, version EngineVersion) *StatementInfo {
	return &StatementInfo{src: src, version: version}
}

// Get submits a raw request for the given codes.
func (s *StatementInfo) Get(ctx context.Context, codes ...StmtInfoCode) ([]InfoItem, error) {
	request := make([]byte, 0, len(codes)+1)
	for _, c := range codes {
		switch {
		case c >= StmtInfoTimeoutUser && c <= StmtInfoBlobAlign && !s.version.AtLeast(4, 0):
			return nil, notSupportedErrf("info code %d needs Firebird 4, engine is %s", c, s.version)
		case c >= StmtInfoExecPathBLRBytes && !s.version.AtLeast(5, 0):
			return nil, notSupportedErrf("info code %d needs Firebird 5, engine is %s", c, s.version)
		}
		request = append(request, byte(c))
	}
	request = append(request, infoEnd)
	return fetchInfoItems(ctx, s.src, request)
}

// Type returns the statement type classified at prepare time.
func (s *StatementInfo) Type(ctx context.Context) (StatementType, error) {
	items, err := s.Get(ctx, StmtInfoStmtType)
	if err != nil {
		return 0, err
	}
	v, ok, err := itemInt(items, byte(StmtInfoStmtType))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, operationalErrf("engine returned no data for info code %d", StmtInfoStmtType)
	}
	return StatementType(v), nil
}

// Plan returns the access plan. With explained set the detailed
// explain form is requested instead of the legacy one-line plan.
func (s *StatementInfo) Plan(ctx context.Context, explained bool) (string, error) {
	code := StmtInfoGetPlan
	if explained {
		code = StmtInfoExplainPlan
	}
	items, err := s.Get(ctx, code)
	if err != nil {
		return "", err
	}
	plan, ok := itemString(items, byte(code))
	if !ok {
		return "", nil
	}
	// The engine prefixes the plan with a newline.
	if len(plan) > 0 && plan[0] == '\n' {
		plan = plan[1:]
	}
	return plan, nil
}

// recordCounts is the decoded per-verb content of a records cluster.
type recordCounts struct {
	selected int64
	inserted int64
	updated  int64
	deleted  int64
}

// parseRecordsCluster decodes a StmtInfoRecords payload: a nested run
// of per-verb items each with its own 2-byte length.
func parseRecordsCluster(payload []byte) (recordCounts, error) {
	var rc recordCounts
	buf := NewBuffer(payload)
	for buf.Avail() > 0 {
		tag, err := buf.GetTag()
		if err != nil {
			return rc, err
		}
		if tag == infoEnd {
			break
		}
		v, err := buf.GetSizedInt()
		if err != nil {
			return rc, err
		}
		switch tag {
		case reqSelectCount:
			rc.selected = v
		case reqInsertCount:
			rc.inserted = v
		case reqUpdateCount:
			rc.updated = v
		case reqDeleteCount:
			rc.deleted = v
		}
	}
	return rc, nil
}

// AffectedRecords returns the record count the statement touched,
// picked by statement type. Types that report no counts yield -1.
func (s *StatementInfo) AffectedRecords(ctx context.Context, stmtType StatementType) (int64, error) {
	items, err := s.Get(ctx, StmtInfoRecords)
	if err != nil {
		return -1, err
	}
	it, ok := firstItem(items, byte(StmtInfoRecords))
	if !ok {
		return -1, nil
	}
	rc, err := parseRecordsCluster(it.Payload)
	if err != nil {
		return -1, err
	}
	switch stmtType {
	case StmtSelect, StmtSelectForUpd:
		return rc.selected, nil
	case StmtInsert:
		return rc.inserted, nil
	case StmtUpdate:
		return rc.updated, nil
	case StmtDelete:
		return rc.deleted, nil
	case StmtExecProcedure, StmtDDL:
		return rc.inserted + rc.updated + rc.deleted, nil
	default:
		return -1, nil
	}
}

// Timeouts returns the statement timeout requested by the user and the
// effective one the engine runs with, in milliseconds. Needs Firebird 4.
func (s *StatementInfo) Timeouts(ctx context.Context) (user, run int64, err error) {
	items, err := s.Get(ctx, StmtInfoTimeoutUser, StmtInfoTimeoutRun)
	if err != nil {
		return 0, 0, err
	}
	user, _, err = itemInt(items, byte(StmtInfoTimeoutUser))
	if err != nil {
		return 0, 0, err
	}
	run, _, err = itemInt(items, byte(StmtInfoTimeoutRun))
	if err != nil {
		return 0, 0, err
	}
	return user, run, nil
}

// ExecutionPath returns the compiled execution path as text. Needs
// Firebird 5.
func (s *StatementInfo) ExecutionPath(ctx context.Context) (string, error) {
	items, err := s.Get(ctx, StmtInfoExecPathBLRText)
	if err != nil {
		return "", err
	}
	path, _ := itemString(items, byte(StmtInfoExecPathBLRText))
	return path, nil
}
