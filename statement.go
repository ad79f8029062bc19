package fbclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gofirebird/fbclient/bind"
	"github.com/gofirebird/fbclient/internal/metrics"
)

// Statement is one prepared statement. Field metadata is captured once
// at prepare time and is immutable afterwards. A statement whose engine
// call was cancelled enters a needs-revalidation state and rejects
// execution until Revalidate succeeds.
type Statement struct {
	mu   sync.Mutex
	id   string
	conn *Connection

	handle    bind.Statement
	sql       string
	stmtType  StatementType
	inFields  []bind.FieldDesc
	outFields []bind.FieldDesc

	closed            bool
	executed          bool
	affected          int64
	needsRevalidation bool
}

func newStatement(ctx context.Context, c *Connection, handle bind.Statement, sql string) (*Statement, error) {
	st := &Statement{
		id:       uuid.NewString()[:8],
		conn:     c,
		handle:   handle,
		sql:      sql,
		affected: -1,
	}
	stmtType, err := newStatementInfo(handle, c.version).Type(ctx)
	if err != nil {
		return nil, wrapStatus("statement type", err)
	}
	st.stmtType = stmtType
	st.inFields, st.outFields = handle.Fields()
	return st, nil
}

// SQL returns the statement text as prepared.
func (st *Statement) SQL() string { return st.sql }

// Type returns the statement type classified at prepare time.
func (st *Statement) Type() StatementType { return st.stmtType }

// Fields returns the input and output field metadata captured at
// prepare time. The returned slices must not be mutated.
func (st *Statement) Fields() (in, out []bind.FieldDesc) {
	return st.inFields, st.outFields
}

// Info returns the statement info provider.
func (st *Statement) Info() *StatementInfo {
	metrics.RecordInfoRequest("statement")
	return newStatementInfo(st.handle, st.conn.version)
}

// Plan returns the access plan chosen by the optimizer.
func (st *Statement) Plan(ctx context.Context) (string, error) {
	return st.Info().Plan(ctx, false)
}

// DetailedPlan returns the explained access plan.
func (st *Statement) DetailedPlan(ctx context.Context) (string, error) {
	return st.Info().Plan(ctx, true)
}

// AffectedRows returns the record count of the last execution, -1
// before the first one. For cursor statements the count is refined as
// rows are fetched; it is exact only once the cursor is drained.
func (st *Statement) AffectedRows() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.affected
}

// preflight runs the fail-fast checks shared by Execute and OpenCursor.
// It never touches the engine.
func (st *Statement) preflight(tm *TransactionManager) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return interfaceErrf("statement is closed")
	}
	if st.needsRevalidation {
		return interfaceErrf("statement was cancelled and needs revalidation")
	}
	if !tm.Active() {
		return programmingErrf("transaction is not active")
	}
	return nil
}

func (st *Statement) noteCancelled(err error) {
	if errors.Is(err, ErrCancelled) {
		st.mu.Lock()
		st.needsRevalidation = true
		st.mu.Unlock()
		st.conn.log.Warn("statement cancelled", "stmt", st.id)
	}
}

// Execute runs a statement that yields no result set and returns the
// affected record count. Statements that open a cursor must go through
// OpenCursor instead.
func (st *Statement) Execute(ctx context.Context, tm *TransactionManager, params ...any) (int64, error) {
	ctx, span := tracer().Start(ctx, "fbclient.Execute")
	defer span.End()

	if st.stmtType.HasCursor() && st.stmtType != StmtExecProcedure {
		return -1, programmingErrf("statement opens a result set, use OpenCursor")
	}
	if err := st.preflight(tm); err != nil {
		return -1, err
	}

	started := time.Now()
	err := st.conn.call(ctx, func() error {
		return st.handle.Execute(ctx, tm.tra, params)
	})
	if err != nil {
		st.noteCancelled(err)
		err = wrapStatus("execute", err)
		span.RecordError(err)
		metrics.RecordStatement(st.stmtType.label(), 0, false)
		return -1, err
	}

	affected, err := st.Info().AffectedRecords(ctx, st.stmtType)
	if err != nil {
		affected = -1
	}
	st.mu.Lock()
	st.executed = true
	st.affected = affected
	st.mu.Unlock()

	st.conn.mu.Lock()
	st.conn.drainEngineWarnings("execute")
	st.conn.mu.Unlock()
	metrics.RecordStatement(st.stmtType.label(), time.Since(started).Milliseconds(), true)
	return affected, nil
}

// OpenCursor runs a statement that yields a result set and returns the
// cursor over its rows. The cursor is bound to tm: ending the
// transaction closes it, the retaining variants keep it fetchable.
func (st *Statement) OpenCursor(ctx context.Context, tm *TransactionManager, params ...any) (*Cursor, error) {
	ctx, span := tracer().Start(ctx, "fbclient.OpenCursor")
	defer span.End()

	if !st.stmtType.HasCursor() {
		return nil, programmingErrf("statement does not open a result set")
	}
	if err := st.preflight(tm); err != nil {
		return nil, err
	}

	started := time.Now()
	var rs bind.ResultSet
	err := st.conn.call(ctx, func() error {
		var err error
		rs, err = st.handle.OpenCursor(ctx, tm.tra, params)
		return err
	})
	if err != nil {
		st.noteCancelled(err)
		err = wrapStatus("open cursor", err)
		span.RecordError(err)
		metrics.RecordStatement(st.stmtType.label(), 0, false)
		return nil, err
	}

	st.mu.Lock()
	st.executed = true
	st.affected = 0
	st.mu.Unlock()

	cur := &Cursor{st: st, tm: tm, rs: rs}
	tm.registerCursor(cur)
	metrics.RecordStatement(st.stmtType.label(), time.Since(started).Milliseconds(), true)
	return cur, nil
}

// Revalidate probes the engine statement handle and clears the
// needs-revalidation state on success.
func (st *Statement) Revalidate(ctx context.Context) error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return interfaceErrf("statement is closed")
	}
	st.mu.Unlock()
	if _, err := st.Info().Type(ctx); err != nil {
		return wrapStatus("revalidate", err)
	}
	st.mu.Lock()
	st.needsRevalidation = false
	st.mu.Unlock()
	return nil
}

// Close frees the statement handle. Closing twice is a no-op.
func (st *Statement) Close(ctx context.Context) error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil
	}
	st.closed = true
	st.mu.Unlock()

	st.conn.removeStatement(st)
	err := st.handle.Free(ctx)
	st.conn.log.Debug("statement closed", "stmt", st.id)
	return wrapStatus("free statement", err)
}

func (t StatementType) label() string {
	switch t {
	case StmtSelect, StmtSelectForUpd:
		return "select"
	case StmtInsert:
		return "insert"
	case StmtUpdate:
		return "update"
	case StmtDelete:
		return "delete"
	case StmtDDL:
		return "ddl"
	case StmtExecProcedure:
		return "procedure"
	default:
		return "other"
	}
}
