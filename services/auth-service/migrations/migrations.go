// Package migrations embarque les fichiers SQL goose du service.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
