package sitehandler

import (
	"io/fs"
	"path"
	"strings"
)

// resolution says how a request path maps onto the site FS.
type resolution int

const (
	// resolvedFile: serve the named file.
	resolvedFile resolution = iota
	// resolvedIndex: client-side route, serve the app shell.
	resolvedIndex
	// resolvedNotFound: a missing asset or an unsafe path.
	resolvedNotFound
)

// resolvePath maps a URL path to a file within fsys. Paths with an
// extension must name a real file; extensionless paths that are not files
// belong to the client router and get the index.
func resolvePath(urlPath string, fsys fs.FS, index string) (string, resolution) {
	p := urlPath
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	if strings.ContainsAny(p, "\x00\\") || hasDotSegments(p) {
		return "", resolvedNotFound
	}

	clean := path.Clean(p)
	if clean == "/" || strings.HasSuffix(p, "/") {
		name := strings.TrimPrefix(clean, "/")
		if name != "" {
			name += "/"
		}
		name += index
		if existsFile(fsys, name) {
			return name, resolvedFile
		}
		return index, resolvedIndex
	}

	name := strings.TrimPrefix(clean, "/")
	if existsFile(fsys, name) {
		return name, resolvedFile
	}
	if path.Ext(clean) != "" {
		return "", resolvedNotFound
	}
	return index, resolvedIndex
}

// hasDotSegments reports whether any path segment is "." or "..".
func hasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

func existsFile(fsys fs.FS, name string) bool {
	if fsys == nil || name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
