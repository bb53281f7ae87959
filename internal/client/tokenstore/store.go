// Package tokenstore persists the client's bearer token between runs.
// Storage is an injected port, not an ambient singleton: the CLI wires a
// sqlite store, tests use the in-memory one.
package tokenstore

import "context"

// Store reads and writes the cached bearer token. Get returns "" when no
// token has been saved yet.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}
