package dispatcher

import (
	"context"
	"sync"

	"github.com/shaharia-lab/ntfy-go/payload"
)

// AsyncDispatcher is the non-blocking send strategy. Each Send runs the same
// request path as Dispatcher.Send on its own goroutine.
type AsyncDispatcher struct {
	client *client
}

// URL returns the endpoint messages are posted to.
func (d *AsyncDispatcher) URL() string { return d.client.url }

// Send starts publishing p and returns immediately. ctx bounds the request,
// not the lifetime of the Future.
func (d *AsyncDispatcher) Send(ctx context.Context, p *payload.Payload) *Future {
	f := newFuture()
	go func() {
		f.complete(d.client.send(ctx, p))
	}()
	return f
}

// Future holds the outcome of one asynchronous send. It is completed exactly once.
type Future struct {
	ch   chan struct{}
	once sync.Once
	err  error
}

func newFuture() *Future {
	return &Future{ch: make(chan struct{})}
}

func (f *Future) complete(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.ch)
	})
}

// Done is closed when the send has finished.
func (f *Future) Done() <-chan struct{} {
	return f.ch
}

// Wait blocks until the send finishes and returns its error, or returns
// ctx.Err() if ctx ends first. The send keeps running in that case.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.ch:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Result reports the outcome without blocking. done is false while the send
// is still in flight.
func (f *Future) Result() (done bool, err error) {
	select {
	case <-f.ch:
		return true, f.err
	default:
		return false, nil
	}
}

// OnDone runs cb on a new goroutine once the send has finished.
func (f *Future) OnDone(cb func(error)) {
	go func() {
		<-f.ch
		cb(f.err)
	}()
}
