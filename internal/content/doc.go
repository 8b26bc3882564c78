// Package content is the read side of the blog: the post document model
// and the Fetcher that queries the content store through a time-bounded
// cache.
//
// The core pieces are:
//   - [Post]: one blog post as returned by the store
//   - [Fetcher]: cached queries plus the typed post lookups used by pages
//   - [RetrievalError]: every store or decode failure, tagged with its operation
package content
