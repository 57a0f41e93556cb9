// Package remote models the feed's backend endpoints as an injectable
// asynchronous collaborator.
package remote

import (
	"context"
	stderrors "errors"
	"time"
)

// Endpoint names a remote operation.
type Endpoint string

const (
	EndpointCreatePost  Endpoint = "create-post"
	EndpointReactToPost Endpoint = "react-to-post"
	EndpointSavePost    Endpoint = "save-post"
	EndpointCreateStory Endpoint = "create-story"
)

// ErrNetwork is returned by remotes when the request did not go through.
var ErrNetwork = stderrors.New("network error")

// Request is a call to a remote endpoint.
type Request struct {
	Endpoint Endpoint
	// RecordID identifies the local record the request confirms.
	RecordID string
	Payload  any
}

// Ack confirms a request.
type Ack struct {
	Endpoint Endpoint  `json:"endpoint"`
	RecordID string    `json:"record_id"`
	At       time.Time `json:"at"`
}

// Client performs remote requests. Do must call done exactly once, from any
// goroutine; callers marshal the result back onto their own scheduler.
type Client interface {
	Do(ctx context.Context, req Request, done func(Ack, error))
}

// Func adapts a blocking call into a Client by running it on its own
// goroutine.
type Func func(ctx context.Context, req Request) (Ack, error)

// Do implements Client.
func (f Func) Do(ctx context.Context, req Request, done func(Ack, error)) {
	go func() {
		done(f(ctx, req))
	}()
}
