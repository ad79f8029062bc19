package fbclient

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/gofirebird/fbclient/bind"
	"github.com/gofirebird/fbclient/internal/metrics"
)

// Cursor is a finite, forward-only, non-restartable row stream from one
// statement execution. It stays fetchable across retaining commits and
// rollbacks of its transaction; a terminal commit or rollback closes it.
type Cursor struct {
	mu sync.Mutex
	st *Statement
	tm *TransactionManager
	rs bind.ResultSet

	closed    bool
	exhausted bool
	fetched   int64
}

// FetchOne returns the next row, or io.EOF once the stream is drained.
func (c *Cursor) FetchOne(ctx context.Context) ([]any, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, interfaceErrf("cursor is closed")
	}
	if c.exhausted {
		c.mu.Unlock()
		return nil, io.EOF
	}
	c.mu.Unlock()

	var row []any
	err := c.st.conn.call(ctx, func() error {
		var err error
		row, err = c.rs.FetchNext(ctx)
		return err
	})
	if errors.Is(err, io.EOF) {
		c.mu.Lock()
		c.exhausted = true
		c.mu.Unlock()
		return nil, io.EOF
	}
	if err != nil {
		c.st.noteCancelled(err)
		return nil, wrapStatus("fetch", err)
	}

	c.mu.Lock()
	c.fetched++
	fetched := c.fetched
	c.mu.Unlock()

	// Best-effort refinement: the true row count of a select is only
	// known once the cursor drains.
	c.st.mu.Lock()
	if fetched > c.st.affected {
		c.st.affected = fetched
	}
	c.st.mu.Unlock()

	metrics.RecordRowsFetched(1)
	return row, nil
}

// FetchMany returns up to n rows. Fewer rows mean the stream drained;
// a drained cursor yields an empty slice, not an error.
func (c *Cursor) FetchMany(ctx context.Context, n int) ([][]any, error) {
	if n <= 0 {
		return nil, programmingErrf("fetch size must be positive, got %d", n)
	}
	rows := make([][]any, 0, n)
	for len(rows) < n {
		row, err := c.FetchOne(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FetchAll drains the cursor and returns the remaining rows.
func (c *Cursor) FetchAll(ctx context.Context) ([][]any, error) {
	var rows [][]any
	for {
		row, err := c.FetchOne(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}

// Fetched returns how many rows this cursor has produced so far.
func (c *Cursor) Fetched() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetched
}

// Close releases the result set. Closing twice is a no-op.
func (c *Cursor) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.tm.removeCursor(c)
	return wrapStatus("close cursor", c.rs.Close(ctx))
}
