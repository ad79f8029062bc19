package fbclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// DistributedTransactionManager spans one logical transaction over
// several attachments. Commit is coordinated by the driver: every
// branch runs the prepare phase first, and only when all branches
// prepared does any branch commit. A prepare failure rolls back every
// branch and surfaces one aggregated error naming the failed branches.
type DistributedTransactionManager struct {
	mu       sync.Mutex
	branches []*TransactionManager
	active   bool
}

// BeginDistributed starts one transaction branch per connection. A nil
// tpb selects each connection's default TPB. If any branch fails to
// start, branches already started are rolled back.
func BeginDistributed(ctx context.Context, tpb *TPB, conns ...*Connection) (*DistributedTransactionManager, error) {
	if len(conns) < 2 {
		return nil, programmingErrf("a distributed transaction needs at least two connections, got %d", len(conns))
	}
	dtm := &DistributedTransactionManager{active: true}
	for _, c := range conns {
		tm, err := c.Begin(ctx, tpb)
		if err != nil {
			dtm.rollbackAll(ctx)
			return nil, fmt.Errorf("begin branch on %s: %w", c.Target(), err)
		}
		dtm.branches = append(dtm.branches, tm)
	}
	return dtm, nil
}

// Branches returns the per-connection transaction managers. Resolving a
// branch individually breaks the distributed guarantee; use the manager
// level Commit and Rollback instead.
func (d *DistributedTransactionManager) Branches() []*TransactionManager {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*TransactionManager(nil), d.branches...)
}

// Active reports whether the distributed transaction is still open.
func (d *DistributedTransactionManager) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *DistributedTransactionManager) ensureActive() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return interfaceErrf("distributed transaction already ended")
	}
	return nil
}

func (d *DistributedTransactionManager) rollbackAll(ctx context.Context) []error {
	var errs []error
	for _, tm := range d.branches {
		if !tm.Active() {
			continue
		}
		if err := tm.Rollback(ctx); err != nil {
			errs = append(errs, fmt.Errorf("rollback branch on %s: %w", tm.conn.Target(), err))
		}
	}
	return errs
}

// Commit resolves all branches atomically from the caller's point of
// view: phase one prepares every branch, phase two commits them. When
// any prepare fails, every branch rolls back and the caller observes a
// single aggregated failure, never a partial commit.
func (d *DistributedTransactionManager) Commit(ctx context.Context) error {
	if err := d.ensureActive(); err != nil {
		return err
	}
	d.mu.Lock()
	d.active = false
	branches := d.branches
	d.mu.Unlock()

	var prepErrs []error
	var failed []string
	for _, tm := range branches {
		if err := tm.tra.Prepare2PC(ctx); err != nil {
			prepErrs = append(prepErrs, fmt.Errorf("prepare branch on %s: %w", tm.conn.Target(), wrapStatus("prepare", err)))
			failed = append(failed, tm.conn.Target())
		}
	}
	if len(prepErrs) > 0 {
		rbErrs := d.rollbackAll(ctx)
		head := operationalErrf("distributed commit aborted, all branches rolled back (prepare failed on %s)",
			strings.Join(failed, ", "))
		return errors.Join(append(append([]error{head}, prepErrs...), rbErrs...)...)
	}

	var commitErrs []error
	for _, tm := range branches {
		if err := tm.Commit(ctx); err != nil {
			commitErrs = append(commitErrs, fmt.Errorf("commit branch on %s: %w", tm.conn.Target(), err))
		}
	}
	if len(commitErrs) > 0 {
		head := operationalErrf("distributed commit incomplete after successful prepare, branches may be in limbo")
		return errors.Join(append([]error{head}, commitErrs...)...)
	}
	return nil
}

// Rollback undoes every branch.
func (d *DistributedTransactionManager) Rollback(ctx context.Context) error {
	if err := d.ensureActive(); err != nil {
		return err
	}
	d.mu.Lock()
	d.active = false
	d.mu.Unlock()
	if errs := d.rollbackAll(ctx); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Close rolls back a still-active distributed transaction. Closing an
// already ended one is a no-op.
func (d *DistributedTransactionManager) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return nil
	}
	d.active = false
	d.mu.Unlock()
	if errs := d.rollbackAll(ctx); len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
