package sitehandler

import (
	"io/fs"
	"strings"

	"github.com/heriman22/blog-main/internal/pathutil"
)

// resolvePath maps a request path onto a regular file in Static.
// Directories and anything outside Prefix or RootFiles are not found.
func resolvePath(urlPath string, o *Options) (file string, ok bool) {
	if name, ok := o.RootFiles[urlPath]; ok {
		return name, existsFile(o.Static, name)
	}
	rest, ok := strings.CutPrefix(urlPath, o.Prefix)
	// FSName trims one leading slash, so an empty segment right after the
	// prefix has to be caught here
	if !ok || strings.HasPrefix(rest, "/") {
		return "", false
	}
	name, ok := pathutil.FSName(rest)
	if !ok {
		return "", false
	}
	if !existsFile(o.Static, name) {
		return "", false
	}
	return name, true
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
