// ABOUTME: Embeds HTML templates and static assets into the binary using go:embed
// ABOUTME: Provides templateFS and staticFS for loading at runtime

package webadmin

import "embed"

//go:embed templates/*.html templates/partials/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS
