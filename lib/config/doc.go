// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the dsk configuration file.
//
// Configuration comes from exactly one YAML file, named by the
// DSK_CONFIG environment variable or the --config flag. There is no
// search path and no per-field environment override: what the file
// says (on top of [Default]) is what runs. Path fields support
// ${VAR} and ${VAR:-default} expansion so one file works across
// machines.
//
// The bearer token is deliberately not a config field. Only the path of
// a token file is; the token itself is read into a secret.Buffer by the
// command.
package config
