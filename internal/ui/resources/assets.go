// Package resources provides the page shell and static assets for the UI server.
package resources

import (
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// ShellFile is the page shell the application is mounted into.
const ShellFile = "index.html"

// DirHandler serves assets from a directory on disk, typically the output
// of "magic8ball build". It is used instead of Handler when an assets
// directory is configured.
func DirHandler(dir string) http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(os.DirFS(dir))))
}

// Overlay returns a filesystem that reads from dir first and falls back to
// base. An empty dir returns base unchanged.
func Overlay(dir string, base fs.FS) fs.FS {
	if dir == "" {
		return base
	}
	return overlayFS{top: os.DirFS(dir), base: base}
}

type overlayFS struct {
	top  fs.FS
	base fs.FS
}

func (o overlayFS) Open(name string) (fs.File, error) {
	if f, err := o.top.Open(name); err == nil {
		return f, nil
	}
	return o.base.Open(name)
}

// StaticPath returns the URL path for a static asset under base.
func StaticPath(base, path string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "static/" + strings.TrimPrefix(path, "/")
}
