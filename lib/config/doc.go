// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for parley.
//
// Configuration is loaded from a single file specified by:
//   - PARLEY_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. The file is YAML;
// files ending in .json or .jsonc are accepted too, with comments and
// trailing commas stripped before parsing.
//
// Path fields support ${VAR} and ${VAR:-default} expansion. ${PARLEY_ROOT}
// resolves to paths.root, so the default state file lands under the
// configured root:
//
//	paths:
//	  root: ${HOME}/.local/state/parley
//	server:
//	  base_url: https://agents.example.com
//	auth:
//	  token_file: ${PARLEY_ROOT}/token
//
// Durations use Go syntax ("3s", "500ms").
package config
