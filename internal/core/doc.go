// Package core runs journal file imports: it accepts uploads, processes
// them into journal entries in the background and answers status queries.
//
// It depends only on the Store and BlobStore interfaces, so the HTTP layer,
// the process-pending command and the tests all drive the same code against
// PostgreSQL or the in-memory store.
//
// # Lifecycle
//
// An upload moves pending → processing → completed | failed:
//
//  1. [Service.Submit] validates the file, stores its bytes, records a
//     pending upload and queues it on the [Dispatcher].
//  2. A worker claims the upload atomically ([Store.ClaimUpload]) and runs
//     a processing session ([Processor.Process]).
//  3. The session decodes the file, parses every line or row, persists the
//     entries and writes an anomaly log of info, warning and error events.
//  4. The session ends with exactly one save carrying the terminal status
//     and the number of entries created.
//
// Row and line problems are warnings and never stop a session. Anything
// that prevents reading the file at all fails the upload.
//
// Uploads that stay pending because the queue was full, or because the
// process stopped, are picked up by the [Sweeper] on its cron schedule or
// by [Service.ProcessPending].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages by [MapError]. Each
// category carries a code for support reference:
//
//   - FILE001-FILE005: file errors (size, type, empty, missing)
//   - UPL001-UPL006: upload errors (not found, busy, cancelled, timeout)
//   - REQ001-REQ002: malformed requests
//   - DB001-DB003: database connectivity
package core
