package fbclient

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/gofirebird/fbclient/bind"
	"github.com/gofirebird/fbclient/internal/metrics"
)

// BPB is a typed blob parameter buffer builder.
type BPB struct {
	Type       int32 // BlobSegmented or BlobStream
	SourceType int32
	TargetType int32
	Storage    int32 // BlobMain or BlobTemp
}

// Render produces the blob parameter buffer bytes. A zero-value BPB
// renders a zero-length buffer.
func (b *BPB) Render() ([]byte, error) {
	p := NewParamBuffer(KindBPB, "NONE")
	if b.Type != 0 {
		p.AddInt(byte(BPBType), b.Type)
	}
	if b.SourceType != 0 {
		p.AddInt(byte(BPBSourceType), b.SourceType)
	}
	if b.TargetType != 0 {
		p.AddInt(byte(BPBTargetType), b.TargetType)
	}
	if b.Storage != 0 {
		p.AddInt(byte(BPBStorage), b.Storage)
	}
	return p.Render()
}

// BlobInfo is the decoded blob info record.
type BlobInfo struct {
	NumSegments int64
	MaxSegment  int64
	TotalLength int64
	Type        int64
}

func fetchBlobInfo(ctx context.Context, src infoSource) (BlobInfo, error) {
	metrics.RecordInfoRequest("blob")
	request := []byte{
		byte(BlobInfoNumSegments), byte(BlobInfoMaxSegment),
		byte(BlobInfoTotalLength), byte(BlobInfoType), infoEnd,
	}
	items, err := fetchInfoItems(ctx, src, request)
	if err != nil {
		return BlobInfo{}, err
	}
	var bi BlobInfo
	for _, p := range []struct {
		code BlobInfoCode
		dst  *int64
	}{
		{BlobInfoNumSegments, &bi.NumSegments},
		{BlobInfoMaxSegment, &bi.MaxSegment},
		{BlobInfoTotalLength, &bi.TotalLength},
		{BlobInfoType, &bi.Type},
	} {
		v, _, err := itemInt(items, byte(p.code))
		if err != nil {
			return BlobInfo{}, err
		}
		*p.dst = v
	}
	return bi, nil
}

// OpenBlob opens an existing blob for reading under this transaction.
// The reader streams forward only.
func (tm *TransactionManager) OpenBlob(ctx context.Context, id bind.BlobID, bpb *BPB) (*BlobReader, error) {
	if err := tm.ensureActive(); err != nil {
		return nil, err
	}
	var bpbBytes []byte
	if bpb != nil {
		var err error
		bpbBytes, err = bpb.Render()
		if err != nil {
			return nil, err
		}
	}
	var handle bind.Blob
	err := tm.conn.call(ctx, func() error {
		var err error
		handle, err = tm.conn.att.OpenBlob(ctx, tm.tra, id, bpbBytes)
		return err
	})
	if err != nil {
		return nil, wrapStatus("open blob", err)
	}
	metrics.RecordBlob("read")
	return &BlobReader{blob: handle, ctx: ctx}, nil
}

// CreateBlob creates a new blob for writing under this transaction.
// The blob id becomes usable as a field value once the writer closes.
func (tm *TransactionManager) CreateBlob(ctx context.Context, bpb *BPB) (*BlobWriter, error) {
	if err := tm.ensureActive(); err != nil {
		return nil, err
	}
	var bpbBytes []byte
	if bpb != nil {
		var err error
		bpbBytes, err = bpb.Render()
		if err != nil {
			return nil, err
		}
	}
	var handle bind.Blob
	var id bind.BlobID
	err := tm.conn.call(ctx, func() error {
		var err error
		handle, id, err = tm.conn.att.CreateBlob(ctx, tm.tra, bpbBytes)
		return err
	})
	if err != nil {
		return nil, wrapStatus("create blob", err)
	}
	metrics.RecordBlob("write")
	return &BlobWriter{blob: handle, id: id, ctx: ctx}, nil
}

// BlobReader streams blob content forward. It implements io.Reader;
// Read uses the context captured at open.
type BlobReader struct {
	mu     sync.Mutex
	blob   bind.Blob
	ctx    context.Context
	closed bool
	eof    bool
}

func (r *BlobReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, interfaceErrf("blob reader is closed")
	}
	if r.eof {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := r.blob.GetSegment(r.ctx, p)
	if errors.Is(err, io.EOF) {
		r.eof = true
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	if err != nil {
		return n, wrapStatus("blob read", err)
	}
	return n, nil
}

// Info returns segment count, max segment size, total length and type.
func (r *BlobReader) Info(ctx context.Context) (BlobInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return BlobInfo{}, interfaceErrf("blob reader is closed")
	}
	return fetchBlobInfo(ctx, r.blob)
}

// Close releases the blob handle. Closing twice is a no-op.
func (r *BlobReader) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return wrapStatus("close blob", r.blob.Close(ctx))
}

// BlobWriter streams segments into a new blob. Blobs are write-once:
// there is no seek, and a closed writer cannot be reopened. Close
// materializes the blob; Cancel discards it.
type BlobWriter struct {
	mu     sync.Mutex
	blob   bind.Blob
	id     bind.BlobID
	ctx    context.Context
	closed bool
	n      int64
}

// ID returns the engine blob id. It identifies the blob in a field
// value after the writer closes.
func (w *BlobWriter) ID() bind.BlobID { return w.id }

func (w *BlobWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, interfaceErrf("blob writer is closed")
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := w.blob.PutSegment(w.ctx, p); err != nil {
		return 0, wrapStatus("blob write", err)
	}
	w.n += int64(len(p))
	return len(p), nil
}

// Written returns how many bytes the writer has accepted.
func (w *BlobWriter) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Close materializes the blob. Closing twice is a no-op.
func (w *BlobWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return wrapStatus("close blob", w.blob.Close(ctx))
}

// Cancel discards a partially written blob.
func (w *BlobWriter) Cancel(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return wrapStatus("cancel blob", w.blob.Cancel(ctx))
}
