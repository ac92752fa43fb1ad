// Package appfs embeds the files the binaries ship with.
package appfs

import "embed"

//go:embed migrations/*.sql
var FS embed.FS
