package operations

import "embed"

// Assets holds the HTML templates of the operator surface.
//
//go:embed assets
var Assets embed.FS
