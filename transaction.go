package fbclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gofirebird/fbclient/bind"
	"github.com/gofirebird/fbclient/internal/metrics"
)

// TransactionManager owns one native transaction handle while active.
// Savepoints are tracked client-side: rolling back to a savepoint that
// was never established, or was consumed by an earlier rollback, fails
// before anything reaches the engine.
type TransactionManager struct {
	mu   sync.Mutex
	id   string
	conn *Connection
	tra  bind.Transaction

	active        bool
	defaultAction DefaultAction
	savepoints    []string
	cursors       map[*Cursor]struct{}
}

func newTransactionManager(c *Connection, tra bind.Transaction) *TransactionManager {
	return &TransactionManager{
		id:            uuid.NewString()[:8],
		conn:          c,
		tra:           tra,
		active:        true,
		defaultAction: ActionCommit,
		cursors:       make(map[*Cursor]struct{}),
	}
}

// Active reports whether the transaction is in the ACTIVE state.
func (tm *TransactionManager) Active() bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.active
}

// SetDefaultAction selects what a forced close does with this
// transaction: commit (the default) or rollback.
func (tm *TransactionManager) SetDefaultAction(a DefaultAction) {
	tm.mu.Lock()
	tm.defaultAction = a
	tm.mu.Unlock()
}

// Info returns the transaction info provider. The transaction must be
// active for its queries to succeed.
func (tm *TransactionManager) Info() *TransactionInfo {
	metrics.RecordInfoRequest("transaction")
	return newTransactionInfo(tm.tra, tm.conn.version)
}

// ID returns the server-side transaction id.
func (tm *TransactionManager) ID(ctx context.Context) (int64, error) {
	if err := tm.ensureActive(); err != nil {
		return 0, err
	}
	return tm.Info().ID(ctx)
}

func (tm *TransactionManager) ensureActive() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if !tm.active {
		return programmingErrf("transaction is not active")
	}
	return nil
}

// ExecuteImmediate runs sql that returns no data under this transaction.
func (tm *TransactionManager) ExecuteImmediate(ctx context.Context, sql string) error {
	return tm.conn.ExecuteImmediate(ctx, tm, sql)
}

func (tm *TransactionManager) registerCursor(cur *Cursor) {
	tm.mu.Lock()
	tm.cursors[cur] = struct{}{}
	tm.mu.Unlock()
}

func (tm *TransactionManager) removeCursor(cur *Cursor) {
	tm.mu.Lock()
	delete(tm.cursors, cur)
	tm.mu.Unlock()
}

// end resolves the transaction. Retaining variants keep the manager
// active under a fresh physical transaction and preserve open cursors;
// terminal variants close open cursors first.
func (tm *TransactionManager) end(ctx context.Context, action DefaultAction, retaining bool) error {
	tm.mu.Lock()
	if !tm.active {
		tm.mu.Unlock()
		return interfaceErrf("transaction already ended")
	}
	var open []*Cursor
	if !retaining {
		for cur := range tm.cursors {
			open = append(open, cur)
		}
	}
	tm.mu.Unlock()

	for _, cur := range open {
		if err := cur.Close(ctx); err != nil {
			tm.conn.addWarning(fmt.Errorf("force-close cursor: %w", err))
		}
	}

	var op, outcome string
	var err error
	switch {
	case action == ActionCommit && retaining:
		op, outcome = "commit retaining", "commit_retaining"
		err = tm.tra.CommitRetaining(ctx)
	case action == ActionCommit:
		op, outcome = "commit", "commit"
		err = tm.tra.Commit(ctx)
	case retaining:
		op, outcome = "rollback retaining", "rollback_retaining"
		err = tm.tra.RollbackRetaining(ctx)
	default:
		op, outcome = "rollback", "rollback"
		err = tm.tra.Rollback(ctx)
	}

	tm.mu.Lock()
	tm.savepoints = nil
	if !retaining {
		tm.active = false
	}
	tm.mu.Unlock()
	if !retaining {
		tm.conn.removeTransaction(tm)
	}
	if err == nil {
		metrics.RecordTransactionEnd(outcome)
		tm.conn.log.Debug("transaction ended", "tra", tm.id, "outcome", outcome)
	}
	return wrapStatus(op, err)
}

// Commit resolves the transaction permanently. The manager becomes
// INACTIVE and open cursors are closed.
func (tm *TransactionManager) Commit(ctx context.Context) error {
	return tm.end(ctx, ActionCommit, false)
}

// CommitRetaining commits the work while keeping the manager ACTIVE
// and cursors open under a fresh physical transaction.
func (tm *TransactionManager) CommitRetaining(ctx context.Context) error {
	return tm.end(ctx, ActionCommit, true)
}

// Rollback undoes the transaction. The manager becomes INACTIVE and
// open cursors are closed.
func (tm *TransactionManager) Rollback(ctx context.Context) error {
	return tm.end(ctx, ActionRollback, false)
}

// RollbackRetaining undoes the work while keeping the manager ACTIVE.
func (tm *TransactionManager) RollbackRetaining(ctx context.Context) error {
	return tm.end(ctx, ActionRollback, true)
}

// Close resolves a still-active transaction with its default action.
// Closing an already ended transaction is a no-op.
func (tm *TransactionManager) Close(ctx context.Context) error {
	tm.mu.Lock()
	if !tm.active {
		tm.mu.Unlock()
		return nil
	}
	action := tm.defaultAction
	tm.mu.Unlock()
	return tm.end(ctx, action, false)
}

func validSavepointName(name string) bool {
	if name == "" || len(name) > 63 {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Savepoint establishes a named savepoint. Re-establishing an existing
// name supersedes the earlier one.
func (tm *TransactionManager) Savepoint(ctx context.Context, name string) error {
	if !validSavepointName(name) {
		return programmingErrf("invalid savepoint name %q", name)
	}
	if err := tm.ensureActive(); err != nil {
		return err
	}
	if err := tm.conn.ExecuteImmediate(ctx, tm, "SAVEPOINT "+name); err != nil {
		return err
	}
	tm.mu.Lock()
	for i, sp := range tm.savepoints {
		if sp == name {
			tm.savepoints = append(tm.savepoints[:i], tm.savepoints[i+1:]...)
			break
		}
	}
	tm.savepoints = append(tm.savepoints, name)
	tm.mu.Unlock()
	return nil
}

// RollbackToSavepoint undoes work back to the named savepoint, leaving
// the transaction ACTIVE. The savepoint and every later one are
// consumed: rolling back to the same name again without re-establishing
// it is a programming error, caught before any engine call.
func (tm *TransactionManager) RollbackToSavepoint(ctx context.Context, name string) error {
	if !validSavepointName(name) {
		return programmingErrf("invalid savepoint name %q", name)
	}
	if err := tm.ensureActive(); err != nil {
		return err
	}
	tm.mu.Lock()
	idx := -1
	for i, sp := range tm.savepoints {
		if sp == name {
			idx = i
			break
		}
	}
	tm.mu.Unlock()
	if idx < 0 {
		return programmingErrf("savepoint %q was never established or is already consumed", name)
	}
	if err := tm.conn.ExecuteImmediate(ctx, tm, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return err
	}
	tm.mu.Lock()
	tm.savepoints = tm.savepoints[:idx]
	tm.mu.Unlock()
	return nil
}

// ReleaseSavepoint drops the named savepoint and every later one
// without undoing any work.
func (tm *TransactionManager) ReleaseSavepoint(ctx context.Context, name string) error {
	if !validSavepointName(name) {
		return programmingErrf("invalid savepoint name %q", name)
	}
	if err := tm.ensureActive(); err != nil {
		return err
	}
	tm.mu.Lock()
	idx := -1
	for i, sp := range tm.savepoints {
		if sp == name {
			idx = i
			break
		}
	}
	tm.mu.Unlock()
	if idx < 0 {
		return programmingErrf("savepoint %q was never established or is already consumed", name)
	}
	if err := tm.conn.ExecuteImmediate(ctx, tm, "RELEASE SAVEPOINT "+name); err != nil {
		return err
	}
	tm.mu.Lock()
	tm.savepoints = tm.savepoints[:idx]
	tm.mu.Unlock()
	return nil
}
