package sitehandler

import (
	"path"
	"strings"
)

// cacheControlForFile picks a policy by file name. Only fingerprinted
// static files (app-3f9c2a1b.js) may be cached forever; the same name
// without a fingerprint can change on the next deploy.
func cacheControlForFile(name string, o *Options) string {
	ext := strings.ToLower(path.Ext(name))
	switch ext {
	case ".html", "":
		return o.HTMLCacheControl
	}
	if isStatic(ext) && fingerprinted(path.Base(name), ext) {
		return o.AssetCacheControl
	}
	return o.OtherCacheControl
}

func isStatic(ext string) bool {
	switch ext {
	case ".css", ".js", ".mjs", ".map",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf":
		return true
	}
	return false
}

// fingerprinted reports whether base ends in a [-.]<hash> segment of at
// least 8 hex digits or bundler-style base36 before the extension.
func fingerprinted(base, ext string) bool {
	stem := base[:len(base)-len(ext)]
	i := strings.LastIndexAny(stem, "-.")
	if i < 0 {
		return false
	}
	hash := stem[i+1:]
	if len(hash) < 8 {
		return false
	}
	digits := 0
	for _, c := range hash {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		default:
			return false
		}
	}
	// "-component" or "-settings" are words, not hashes
	return digits > 0
}
