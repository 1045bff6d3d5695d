// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"log/slog"
)

// DiscardLogger is the logger for components whose output the test
// does not inspect.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
