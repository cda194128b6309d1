// Package templates provides the embedded description templates for tasks
// the lifecycle creates.
package templates

import "embed"

// Tasks contains one text/template file per generated task kind.
//
//go:embed tasks/*.md
var Tasks embed.FS
