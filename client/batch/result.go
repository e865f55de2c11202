package batch

import (
	"context"

	"github.com/adamwoolhether/httpwire/response"
)

// Result represents an in-flight or completed async request.
type Result struct {
	done   chan struct{}
	resp   *response.Response
	err    error
	cancel context.CancelFunc
	queue  *Queue
}

// Done returns a channel that is closed when the request completes.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err blocks until the request completes and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Response blocks until the request completes and returns its outcome.
func (r *Result) Response() (*response.Response, error) {
	<-r.done
	return r.resp, r.err
}

// Wait blocks until all work in the queue completes.
// Returns all errors joined.
func (r *Result) Wait() error {
	return r.queue.Wait()
}

// Queue returns the queue the request runs in, so more work can join it.
func (r *Result) Queue() *Queue { return r.queue }

// Cancel cancels this request's context.
func (r *Result) Cancel() {
	r.cancel()
}
