// Package delivery defines the contract every transport server implements.
package delivery

import "context"

// Delivery is a long-running server (HTTP, worker) started by the application
// runner. Serve blocks until the server stops or the context is canceled.
type Delivery interface {
	Serve(ctx context.Context) error
}
