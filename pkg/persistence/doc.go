// Package persistence keeps a stateful.Service value in sync with a document
// on a byte-stream file system.
//
// FSPersistence restores the value on startup (LoadFromStore) and writes it
// back after every accepted update through an update handler it registers on
// construction. A missing, unmounted or corrupt store never fails startup:
// the factory defaults are applied instead and stay authoritative in memory.
// If a write fails, the handler unregisters itself so later updates are not
// slowed down by a broken medium; the in-memory value is not rolled back.
//
// Documents are JSON by default. CBORCodec stores the same object as CBOR.
package persistence
