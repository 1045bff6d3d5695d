// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports which parley build is running. Release
// builds stamp Commit and Built with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/parley/lib/version.Commit=$(git rev-parse --short HEAD)" ./cmd/parley
//
// Builds without the stamp fall back to the VCS settings the Go
// toolchain records in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Version is the release number, bumped by hand.
const Version = "0.3.0-dev"

// Set with -ldflags -X.
var (
	Commit = ""
	Built  = ""
)

type buildStamp struct {
	commit   string
	built    string
	modified bool
}

var readStamp = sync.OnceValue(func() buildStamp {
	return stampFrom(debug.ReadBuildInfo())
})

// stampFrom merges the -ldflags values over the toolchain's vcs.*
// settings. Missing values read as "unknown".
func stampFrom(info *debug.BuildInfo, ok bool) buildStamp {
	stamp := buildStamp{commit: Commit, built: Built}
	if ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if stamp.commit == "" {
					stamp.commit = setting.Value
					if len(stamp.commit) > 12 {
						stamp.commit = stamp.commit[:12]
					}
				}
			case "vcs.time":
				if stamp.built == "" {
					stamp.built = setting.Value
				}
			case "vcs.modified":
				stamp.modified = setting.Value == "true"
			}
		}
	}
	if stamp.commit == "" {
		stamp.commit = "unknown"
	}
	if stamp.built == "" {
		stamp.built = "unknown"
	}
	return stamp
}

func (stamp buildStamp) String() string {
	dirty := ""
	if stamp.modified {
		dirty = "+dirty"
	}
	return fmt.Sprintf("%s (%s%s, built %s)", Version, stamp.commit, dirty, stamp.built)
}

// Info is the one-line form shown by --version.
func Info() string { return readStamp().String() }

// Full adds the Go toolchain and target platform to Info.
func Full() string {
	return fmt.Sprintf("%s\n  %s %s/%s", Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent is sent on every platform request and both stream
// handshakes.
func UserAgent() string {
	return "parley/" + Version + " (" + runtime.GOOS + ")"
}
