// Package secrets resolves the webhook shared secret. A literal value from
// config is used as is; otherwise it is read once at startup from an SSM
// SecureString parameter.
package secrets
