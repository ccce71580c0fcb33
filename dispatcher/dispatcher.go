// Package dispatcher publishes payloads to an ntfy server.
//
// A dispatcher is built once from a Builder and is then read-only: concurrent
// Send calls share nothing mutable and need no locking. Every call makes one
// request and surfaces every failure immediately; there is no retry, backoff,
// batching or queuing.
package dispatcher

import (
	"context"

	"github.com/shaharia-lab/ntfy-go/payload"
)

// Dispatcher is the blocking send strategy.
type Dispatcher struct {
	client *client
}

// URL returns the endpoint messages are posted to.
func (d *Dispatcher) URL() string { return d.client.url }

// Send posts p and blocks until the response is classified. The only
// cancellation is ctx and whatever timeout the http.Client carries.
func (d *Dispatcher) Send(ctx context.Context, p *payload.Payload) error {
	return d.client.send(ctx, p)
}

// Async returns a non-blocking dispatcher sharing this dispatcher's configuration.
func (d *Dispatcher) Async() *AsyncDispatcher {
	return &AsyncDispatcher{client: d.client}
}
