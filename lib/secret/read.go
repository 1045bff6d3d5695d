// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"os"
)

// ReadFromPath loads the token file the login flow writes. Trailing
// newlines and surrounding blanks are ignored. A file readable by
// group or other is refused.
func ReadFromPath(path string) (*Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("secret: %s has mode %04o, want 0600 or stricter", path, mode)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	defer Zero(data)

	token := bytes.TrimSpace(data)
	if len(token) == 0 {
		return nil, fmt.Errorf("secret: %s holds no token", path)
	}
	return NewFromBytes(token)
}

// FromEnvironment loads the token from the named variable and removes
// it from the environment. An unset or blank variable yields nil, nil.
func FromEnvironment(name string) (*Buffer, error) {
	token := bytes.TrimSpace([]byte(os.Getenv(name)))
	if len(token) == 0 {
		return nil, nil
	}
	if err := os.Unsetenv(name); err != nil {
		return nil, fmt.Errorf("secret: clearing %s: %w", name, err)
	}
	return NewFromBytes(token)
}
