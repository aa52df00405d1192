// Package appfs embeds the files the binaries need at runtime:
// SQL migrations, email & site templates and seed data.
package appfs

import "embed"

//go:embed migrations all:templates seed
var FS embed.FS
