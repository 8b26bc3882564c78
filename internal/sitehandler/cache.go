package sitehandler

import (
	"path"
	"strings"
)

func cacheControlForFile(name string, o *Options) string {
	ext := strings.ToLower(path.Ext(name))

	switch ext {
	case ".html":
		return o.HTMLCacheControl

	case ".css", ".js", ".mjs",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf",
		".map":
		return o.AssetCacheControl

	default:
		return o.OtherCacheControl
	}
}
