package sitehandler

import (
	"errors"
	"fmt"
	"io/fs"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

type Options struct {
	// Site is the built single-page app. Nil serves the maintenance page.
	Site fs.FS
	// FallbackFS holds the maintenance page and a plain 404 page.
	FallbackFS fs.FS

	IndexFile       string // default: "index.html", read from Site
	MaintenanceFile string // default: "maintenance.html", read from FallbackFS
	Fallback404File string // default: "404.html", read from FallbackFS

	// Cache policies applied by file extension.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=31536000, immutable"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.IndexFile == "" {
		o.IndexFile = "index.html"
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.Fallback404File == "" {
		o.Fallback404File = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.FallbackFS == nil {
		return fmt.Errorf("%w: FallbackFS is nil", ErrInvalidOptions)
	}
	// fail at boot if the binary was packaged without it
	if _, err := fs.Stat(o.FallbackFS, o.MaintenanceFile); err != nil {
		return fmt.Errorf("%w: missing %q in fallback FS: %v", ErrInvalidOptions, o.MaintenanceFile, err)
	}
	return nil
}
