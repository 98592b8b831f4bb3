// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the
// indextemplate tool.
//
// Configuration is loaded from a single file specified by either the
// INDEXTEMPLATE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no automatic file search.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults to JSON logs.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${INDEXTEMPLATE_ROOT}, and ${VAR:-default} patterns are
// expanded. Unknown keys in the file are errors.
package config
