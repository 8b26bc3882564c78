// Package cryptoutil holds the hashing and comparison helpers shared by the
// query cache and the revalidation webhook.
package cryptoutil
