// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package persist keeps parley's one durable key, the active
// conversation id, across process restarts.
//
// [Store] is the collaborator boundary: get, set, and clear of a single
// string. [MemoryStore] serves tests and sessions configured without a
// state path. [FileStore] writes a small CBOR record carrying a format
// version, the id, the save time, and a BLAKE3 checksum over the other
// fields. Writes go to a temporary file that is renamed into place, so
// a crash leaves either the old record or the new one. A file that
// fails to decode, fails its checksum, or carries an unknown version
// reads as no session.
package persist
