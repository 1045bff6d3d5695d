// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package persist

import (
	"github.com/fxamacker/cbor/v2"
)

var (
	stateEncMode cbor.EncMode
	stateDecMode cbor.DecMode
)

func init() {
	var err error

	// Core deterministic encoding makes the checksum input stable
	// across releases.
	stateEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("persist: CBOR encoder initialization failed: " + err.Error())
	}

	// A state file is small and written only by this package, so
	// anything unusual in it is treated as corruption.
	stateDecMode, err = cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxMapPairs:     16,
		MaxNestedLevels: 4,
	}.DecMode()
	if err != nil {
		panic("persist: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeRecord(record stateRecord) ([]byte, error) {
	return stateEncMode.Marshal(record)
}

func decodeRecord(data []byte) (stateRecord, error) {
	var record stateRecord
	err := stateDecMode.Unmarshal(data, &record)
	return record, err
}
