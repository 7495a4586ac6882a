// Package snapshot persists captured engine state.
//
// A Snapshot records a document's rendered HTML together with its client
// state at one point in time. Snapshots are encoded with msgpack and stored
// under a caller-chosen key in one of several backends:
//
//   - MemoryStore: in-process, for tests and single runs
//   - RedisStore: shared across processes, with optional expiry
//   - S3Store: durable object storage
//
// All stores are safe for concurrent use.
package snapshot
