// Package fbclient is a client driver for the Firebird relational database
// engine, layered over the engine's native client library through the
// binding contract in the bind subpackage.
//
// The package covers three concerns:
//
//   - the tagged buffer protocol: encoding parameter buffers (DPB, TPB,
//     SPB, BPB, EPB) and decoding tagged info responses returned by the
//     engine,
//   - typed info providers for databases, transactions, statements and
//     servers, version-gated by the engine version detected at attach,
//   - the object lifecycle: Connection, TransactionManager (including the
//     distributed two-phase variant), Statement, Cursor, blob readers and
//     writers, event collectors and the service manager, each enforcing
//     legal state transitions and owning its native handle.
//
// Connections and their children are not safe for concurrent use from
// multiple goroutines without external synchronization; buffers and
// builders are plain value objects that are safe to share once rendered.
package fbclient
