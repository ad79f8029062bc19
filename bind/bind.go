// Package bind defines the contract between the fbclient driver and the
// engine's native client library. The driver consumes these interfaces and
// never talks to the engine another way; native adapters (cgo bindings to
// the client library) and test doubles implement them.
//
// All calls are synchronous: a call blocks the calling goroutine until the
// engine responds. Cancellation is cooperative through the engine's own
// cancel primitive (Attachment.CancelOperation), never by abandoning the
// call. Engine failures are reported as *StatusError so the driver can
// preserve the full status vector chain.
package bind

import "context"

// Engine is the entry point of a binding: it can attach to databases,
// create databases, and attach to the service manager.
type Engine interface {
	// Attach connects to an existing database. dpb is a rendered database
	// parameter buffer; it may be empty.
	Attach(ctx context.Context, target string, dpb []byte) (Attachment, error)

	// Create creates a new database and returns an attachment to it.
	Create(ctx context.Context, target string, dpb []byte) (Attachment, error)

	// AttachService connects to the service manager. spb is a rendered
	// service attach parameter buffer.
	AttachService(ctx context.Context, target string, spb []byte) (Service, error)
}

// Attachment is one open database attachment handle.
type Attachment interface {
	// GetInfo submits an info request and fills response with the raw
	// tagged response buffer. The engine writes a truncation marker when
	// response is too small; it never writes past len(response).
	GetInfo(ctx context.Context, request, response []byte) error

	// StartTransaction starts a transaction on this attachment. A
	// zero-length tpb is legal and selects the engine's default isolation.
	StartTransaction(ctx context.Context, tpb []byte) (Transaction, error)

	// Prepare compiles sql within the given transaction and returns the
	// statement handle with its input/output metadata already populated.
	Prepare(ctx context.Context, tra Transaction, sql string, dialect uint) (Statement, error)

	// ExecuteImmediate executes a statement that returns no data.
	ExecuteImmediate(ctx context.Context, tra Transaction, sql string, dialect uint) error

	// OpenBlob opens an existing blob for reading within a transaction.
	OpenBlob(ctx context.Context, tra Transaction, id BlobID, bpb []byte) (Blob, error)

	// CreateBlob creates a new blob for writing and returns its id.
	CreateBlob(ctx context.Context, tra Transaction, bpb []byte) (Blob, BlobID, error)

	// QueueEvents registers interest in the events named by the event
	// parameter buffer. The callback runs on an engine-owned thread with
	// the updated result buffer each time a delivery fires; the
	// subscription must be re-armed after every delivery.
	QueueEvents(ctx context.Context, epb []byte, cb EventCallback) (EventSubscription, error)

	// CancelOperation invokes the engine's cancellation primitive for the
	// call currently blocked on this attachment.
	CancelOperation(ctx context.Context, kind CancelKind) error

	// TakeWarnings drains engine warnings accumulated since the last
	// drain. Warnings are non-fatal by contract.
	TakeWarnings() []*StatusError

	// Detach releases the attachment handle.
	Detach(ctx context.Context) error

	// DropDatabase deletes the attached database and releases the handle.
	DropDatabase(ctx context.Context) error
}

// Transaction is one native transaction handle. The handle is valid from
// a successful start until Commit or Rollback returns; the retaining
// variants keep the handle valid under a fresh physical transaction.
type Transaction interface {
	GetInfo(ctx context.Context, request, response []byte) error
	Commit(ctx context.Context) error
	CommitRetaining(ctx context.Context) error
	Rollback(ctx context.Context) error
	RollbackRetaining(ctx context.Context) error

	// Prepare2PC runs the first phase of a two-phase commit on this
	// transaction branch.
	Prepare2PC(ctx context.Context) error
}

// FieldDesc describes one input parameter or output column of a prepared
// statement, as reported by the engine at prepare time.
type FieldDesc struct {
	Field    string
	Relation string
	Owner    string
	Alias    string
	Type     uint16
	SubType  int16
	Length   uint16
	Scale    int16
	CharSet  uint16
	Nullable bool
}

// Statement is one prepared statement handle.
type Statement interface {
	GetInfo(ctx context.Context, request, response []byte) error

	// Fields returns the input and output metadata captured at prepare
	// time. The returned slices must not be mutated.
	Fields() (in, out []FieldDesc)

	// Execute runs a statement that yields no result set.
	Execute(ctx context.Context, tra Transaction, params []any) error

	// OpenCursor runs a statement that yields a result set.
	OpenCursor(ctx context.Context, tra Transaction, params []any) (ResultSet, error)

	// Free releases the statement handle.
	Free(ctx context.Context) error
}

// ResultSet is one open cursor handle: a finite, forward-only row stream.
type ResultSet interface {
	// FetchNext returns the next row, or io.EOF after the last row.
	FetchNext(ctx context.Context) ([]any, error)

	Close(ctx context.Context) error
}

// Blob is one open blob handle, valid for a single read or write session.
type Blob interface {
	// GetSegment reads up to len(p) bytes of blob content into p and
	// returns io.EOF once the blob is exhausted.
	GetSegment(ctx context.Context, p []byte) (int, error)

	// PutSegment appends one segment to a blob opened for writing.
	PutSegment(ctx context.Context, p []byte) error

	GetInfo(ctx context.Context, request, response []byte) error

	// Close ends the session, materializing a written blob.
	Close(ctx context.Context) error

	// Cancel discards a partially written blob.
	Cancel(ctx context.Context) error
}

// BlobID is the engine's 8-byte blob identifier (ISC_QUAD), packed.
type BlobID uint64

// Service is one service manager attachment handle.
type Service interface {
	// Query submits an info/receive request. sendItems carries
	// send-clumplets (timeouts, stdin data) and may be nil.
	Query(ctx context.Context, sendItems, request, response []byte) error

	// Start launches a service task described by a rendered start buffer.
	Start(ctx context.Context, request []byte) error

	Detach(ctx context.Context) error
}

// EventCallback receives the raw updated event result buffer. It runs on
// an engine-owned thread and must not block.
type EventCallback func(result []byte)

// EventSubscription is one standing event registration.
type EventSubscription interface {
	// Requeue re-arms the subscription after a delivery.
	Requeue(ctx context.Context) error

	// Cancel stops the subscription. After Cancel returns, no further
	// callbacks are delivered for it.
	Cancel(ctx context.Context) error
}

// CancelKind selects the behavior of Attachment.CancelOperation,
// mirroring fb_cancel_* operation codes.
type CancelKind int

const (
	CancelDisable CancelKind = 1
	CancelEnable  CancelKind = 2
	CancelRaise   CancelKind = 3
	CancelAbort   CancelKind = 4
)
