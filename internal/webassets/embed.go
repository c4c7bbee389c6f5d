// Package webassets embeds the built single-page app and the fallback pages
// served when it is missing.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed site fallback
var embedded embed.FS

// FallbackFS holds maintenance.html and 404.html.
func FallbackFS() fs.FS {
	sub, err := fs.Sub(embedded, "fallback")
	if err != nil {
		panic(fmt.Errorf("webassets: fallback subfs: %w", err))
	}
	return sub
}

// SiteFS returns the app build, and false if it has no index.html.
func SiteFS() (fs.FS, bool) {
	sub, err := fs.Sub(embedded, "site")
	if err != nil {
		return nil, false
	}
	if _, err := fs.Stat(sub, "index.html"); err != nil {
		return nil, false
	}
	return sub, true
}
