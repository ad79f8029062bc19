package fbclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gofirebird/fbclient/bind"
	"github.com/gofirebird/fbclient/internal/logging"
	"github.com/gofirebird/fbclient/internal/metrics"
)

// ErrCancelled reports an engine call interrupted through the engine's
// cancel primitive after context cancellation.
var ErrCancelled = fmt.Errorf("%w: operation cancelled", ErrOperational)

func tracer() trace.Tracer {
	return otel.Tracer("github.com/gofirebird/fbclient")
}

// Options configures Connect and CreateDatabase.
type Options struct {
	// DPB holds the attach parameters. nil attaches with an empty buffer.
	DPB *DPB

	// Dialect is the SQL dialect for prepares. 0 selects dialect 3.
	Dialect uint

	// DefaultTPB is used by Begin when no explicit TPB is given.
	// nil selects the driver default (snapshot, read-write, wait).
	DefaultTPB *TPB
}

func (o *Options) dialect() uint {
	if o == nil || o.Dialect == 0 {
		return 3
	}
	return o.Dialect
}

// Connection owns one native database attachment and all driver objects
// created from it. It is not safe for concurrent use; callers serialize
// access or keep one connection per goroutine.
type Connection struct {
	mu  sync.Mutex
	id  string
	log *slog.Logger

	att     bind.Attachment
	target  string
	dialect uint
	charset string
	version EngineVersion
	info    *DatabaseInfo

	defaultTPB *TPB
	closed     bool

	transactions map[*TransactionManager]struct{}
	statements   map[*Statement]struct{}
	events       map[*EventCollector]struct{}

	warnings []error
}

// Connect attaches to an existing database through the given engine
// binding. The engine version is detected and cached before Connect
// returns; it fixes the info capability set for the whole session.
func Connect(ctx context.Context, engine bind.Engine, target string, opts *Options) (*Connection, error) {
	return attach(ctx, engine, target, opts, false)
}

// CreateDatabase creates a new database and returns a connection
// attached to it.
func CreateDatabase(ctx context.Context, engine bind.Engine, target string, opts *Options) (*Connection, error) {
	return attach(ctx, engine, target, opts, true)
}

func attach(ctx context.Context, engine bind.Engine, target string, opts *Options, create bool) (*Connection, error) {
	op := "attach"
	if create {
		op = "create database"
	}
	ctx, span := tracer().Start(ctx, "fbclient.Connect")
	defer span.End()

	var dpbBytes []byte
	charset := "UTF8"
	if opts != nil && opts.DPB != nil {
		var err error
		dpbBytes, err = opts.DPB.Render(create)
		if err != nil {
			return nil, err
		}
		charset = opts.DPB.encoding()
	}

	started := time.Now()
	var att bind.Attachment
	var err error
	if create {
		att, err = engine.Create(ctx, target, dpbBytes)
	} else {
		att, err = engine.Attach(ctx, target, dpbBytes)
	}
	if err != nil {
		metrics.RecordAttach(false, 0)
		err = wrapStatus(op, err)
		span.RecordError(err)
		return nil, err
	}

	c := &Connection{
		id:           uuid.NewString()[:8],
		att:          att,
		target:       target,
		dialect:      opts.dialect(),
		charset:      charset,
		transactions: make(map[*TransactionManager]struct{}),
		statements:   make(map[*Statement]struct{}),
		events:       make(map[*EventCollector]struct{}),
	}
	if opts != nil && opts.DefaultTPB != nil {
		c.defaultTPB = opts.DefaultTPB
	} else {
		c.defaultTPB = NewTPB()
	}
	c.log = logging.Driver().With("conn", c.id)

	// Version strings decode with a baseline capability set; everything
	// else waits for the detected version.
	probe := newDatabaseInfo(att, EngineVersion{Major: 3})
	banner, err := probe.FirebirdVersion(ctx)
	if err != nil {
		att.Detach(context.WithoutCancel(ctx))
		metrics.RecordAttach(false, 0)
		return nil, wrapStatus("version probe", err)
	}
	c.version, err = parseEngineVersion(banner)
	if err != nil {
		att.Detach(context.WithoutCancel(ctx))
		metrics.RecordAttach(false, 0)
		return nil, err
	}
	c.info = newDatabaseInfo(att, c.version)

	metrics.RecordAttach(true, time.Since(started).Milliseconds())
	c.log.Debug("attached", "target", target, "engine", c.version.String(), "create", create)
	return c, nil
}

// Target returns the attach target string.
func (c *Connection) Target() string { return c.target }

// Version returns the engine version detected at attach.
func (c *Connection) Version() EngineVersion { return c.version }

// Charset returns the connection charset.
func (c *Connection) Charset() string { return c.charset }

// Info returns the database info provider for this attachment.
func (c *Connection) Info() *DatabaseInfo {
	metrics.RecordInfoRequest("database")
	return c.info
}

// call runs one blocking engine call. When ctx can be cancelled, the
// call runs on its own goroutine and cancellation fires the engine's
// cancel primitive, then waits for the engine call to unwind.
func (c *Connection) call(ctx context.Context, fn func() error) error {
	if ctx.Done() == nil {
		return fn()
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		c.att.CancelOperation(context.WithoutCancel(ctx), bind.CancelRaise)
		<-done
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

func (c *Connection) ensureOpen() error {
	if c.closed {
		return interfaceErrf("connection is closed")
	}
	return nil
}

// drainEngineWarnings moves engine warnings into the side channel.
func (c *Connection) drainEngineWarnings(op string) {
	for _, w := range c.att.TakeWarnings() {
		c.warnings = append(c.warnings, fmt.Errorf("%s: %w", op, w))
		c.log.Warn("engine warning", "op", op, "warning", w.Error())
	}
}

func (c *Connection) addWarning(err error) {
	c.mu.Lock()
	c.warnings = append(c.warnings, err)
	c.mu.Unlock()
	c.log.Warn("forced child close failed", "warning", err.Error())
}

// Warnings drains the warning side channel: engine-reported non-fatal
// conditions and failures downgraded during forced child closes.
func (c *Connection) Warnings() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.warnings
	c.warnings = nil
	return w
}

// Begin starts a transaction. A nil tpb selects the connection's
// default TPB. Use BeginRaw to pass an explicit buffer verbatim.
func (c *Connection) Begin(ctx context.Context, tpb *TPB) (*TransactionManager, error) {
	if tpb == nil {
		tpb = c.defaultTPB
	}
	rendered, err := tpb.Render()
	if err != nil {
		return nil, err
	}
	return c.BeginRaw(ctx, rendered)
}

// BeginRaw starts a transaction from rendered TPB bytes. A zero-length
// buffer is passed to the engine as-is, selecting the engine default
// isolation; the driver never injects its own.
func (c *Connection) BeginRaw(ctx context.Context, tpb []byte) (*TransactionManager, error) {
	ctx, span := tracer().Start(ctx, "fbclient.Begin")
	defer span.End()

	c.mu.Lock()
	if err := c.ensureOpen(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	var tra bind.Transaction
	err := c.call(ctx, func() error {
		var err error
		tra, err = c.att.StartTransaction(ctx, tpb)
		return err
	})
	if err != nil {
		err = wrapStatus("start transaction", err)
		span.RecordError(err)
		return nil, err
	}

	tm := newTransactionManager(c, tra)
	c.mu.Lock()
	c.transactions[tm] = struct{}{}
	c.drainEngineWarnings("start transaction")
	c.mu.Unlock()
	metrics.RecordTransactionStart()
	c.log.Debug("transaction started", "tra", tm.id)
	return tm, nil
}

// Prepare compiles sql for execution under the given transaction.
func (c *Connection) Prepare(ctx context.Context, tm *TransactionManager, sql string) (*Statement, error) {
	ctx, span := tracer().Start(ctx, "fbclient.Prepare")
	defer span.End()

	c.mu.Lock()
	if err := c.ensureOpen(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()
	if err := tm.ensureActive(); err != nil {
		return nil, err
	}

	var handle bind.Statement
	err := c.call(ctx, func() error {
		var err error
		handle, err = c.att.Prepare(ctx, tm.tra, sql, c.dialect)
		return err
	})
	if err != nil {
		err = wrapStatus("prepare", err)
		span.RecordError(err)
		return nil, err
	}

	st, err := newStatement(ctx, c, handle, sql)
	if err != nil {
		handle.Free(context.WithoutCancel(ctx))
		return nil, err
	}
	c.mu.Lock()
	c.statements[st] = struct{}{}
	c.drainEngineWarnings("prepare")
	c.mu.Unlock()
	c.log.Debug("statement prepared", "stmt", st.id, "type", int(st.stmtType))
	return st, nil
}

// ExecuteImmediate runs sql that returns no data, without a prepared
// statement, under the given transaction.
func (c *Connection) ExecuteImmediate(ctx context.Context, tm *TransactionManager, sql string) error {
	c.mu.Lock()
	if err := c.ensureOpen(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	if err := tm.ensureActive(); err != nil {
		return err
	}
	err := c.call(ctx, func() error {
		return c.att.ExecuteImmediate(ctx, tm.tra, sql, c.dialect)
	})
	c.mu.Lock()
	c.drainEngineWarnings("execute immediate")
	c.mu.Unlock()
	return wrapStatus("execute immediate", err)
}

// Ping verifies the attachment is alive with a one-item info request.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.Lock()
	if err := c.ensureOpen(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()
	err := c.call(ctx, func() error {
		_, err := c.info.AttachmentID(ctx)
		return err
	})
	return wrapStatus("ping", err)
}

// closeChildren force-closes everything still open, collecting failures
// into the warning side channel. Callers hold no locks.
func (c *Connection) closeChildren(ctx context.Context) {
	c.mu.Lock()
	events := make([]*EventCollector, 0, len(c.events))
	for ev := range c.events {
		events = append(events, ev)
	}
	statements := make([]*Statement, 0, len(c.statements))
	for st := range c.statements {
		statements = append(statements, st)
	}
	transactions := make([]*TransactionManager, 0, len(c.transactions))
	for tm := range c.transactions {
		transactions = append(transactions, tm)
	}
	c.mu.Unlock()

	var warns []error
	for _, ev := range events {
		if err := ev.Close(ctx); err != nil {
			warns = append(warns, fmt.Errorf("force-close event collector: %w", err))
		}
	}
	for _, st := range statements {
		if err := st.Close(ctx); err != nil {
			warns = append(warns, fmt.Errorf("force-close statement: %w", err))
		}
	}
	for _, tm := range transactions {
		if err := tm.Close(ctx); err != nil {
			warns = append(warns, fmt.Errorf("force-close transaction: %w", err))
		}
	}

	c.mu.Lock()
	for _, w := range warns {
		c.log.Warn("forced child close failed", "warning", w.Error())
	}
	c.warnings = append(c.warnings, warns...)
	c.drainEngineWarnings("close")
	c.mu.Unlock()
}

// Close detaches from the database. Open children are force-closed
// first; their failures go to the warning side channel and never abort
// the close. Closing an already closed connection is a no-op.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.closeChildren(ctx)
	err := c.att.Detach(ctx)
	metrics.RecordDetach()
	c.log.Debug("detached", "target", c.target)
	return wrapStatus("detach", err)
}

// DropDatabase deletes the attached database. The connection is closed
// regardless of the outcome.
func (c *Connection) DropDatabase(ctx context.Context) error {
	c.mu.Lock()
	if err := c.ensureOpen(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.closed = true
	c.mu.Unlock()

	c.closeChildren(ctx)
	err := c.att.DropDatabase(ctx)
	metrics.RecordDetach()
	c.log.Debug("database dropped", "target", c.target)
	return wrapStatus("drop database", err)
}

func (c *Connection) removeTransaction(tm *TransactionManager) {
	c.mu.Lock()
	delete(c.transactions, tm)
	c.mu.Unlock()
}

func (c *Connection) removeStatement(st *Statement) {
	c.mu.Lock()
	delete(c.statements, st)
	c.mu.Unlock()
}

func (c *Connection) removeEvents(ev *EventCollector) {
	c.mu.Lock()
	delete(c.events, ev)
	c.mu.Unlock()
}
