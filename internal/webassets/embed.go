// Package webassets holds the site's HTML templates and static files.
//
// Both trees are embedded into the binary. In development the templates
// can instead be read from a directory on disk and reloaded on change,
// see Watcher.
package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed templates static
var embedded embed.FS

// TemplatesFS returns the embedded templates/ tree rooted at its top.
func TemplatesFS() fs.FS {
	return mustSub("templates")
}

// StaticFS returns the embedded static/ tree rooted at its top.
func StaticFS() fs.FS {
	return mustSub("static")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return sub
}
