// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the bearer token parley presents to the chat
// stream, the work-item feed, and the platform API.
//
// The token comes from the login flow, either as a file or an
// environment variable. Once read it lives in a [Buffer]: an anonymous
// mapping excluded from core dumps and, where the process is allowed,
// locked against swap. The token leaves the mapping only through
// [Buffer.BearerHeader] at the request boundary. Printing or logging a
// Buffer shows a BLAKE3 fingerprint instead.
package secret
