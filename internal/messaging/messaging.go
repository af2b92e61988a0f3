// Package messaging is the client side of the messaging backend: it exchanges
// a push subscription for a messaging token and streams foreground messages.
package messaging

import (
	"context"
	"errors"
	
	"github.com/katatrina/feedpush/internal/platform"
)

var (
	ErrNoRegistration = errors.New("a service worker registration is required to get a token")
	ErrUnknownToken   = errors.New("messaging token is not registered")
)

type TokenOptions struct {
	// VAPIDKey is the application server key the backend signs pushes with.
	VAPIDKey     string
	Registration platform.Registration
}

// Handler receives messages that arrive while the page is in the foreground.
type Handler func(payload Payload)

type Messaging interface {
	// GetToken returns the token identifying the registration's push
	// subscription to the backend, subscribing first when needed.
	GetToken(ctx context.Context, opts TokenOptions) (string, error)
	// OnMessage binds handler to the foreground-message stream. Calling the
	// returned func unbinds it.
	OnMessage(handler Handler) (unsubscribe func())
}
