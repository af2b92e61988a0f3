// Package delivery sends messages to push services.
package delivery

import (
	"context"
	"errors"
	
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/katatrina/feedpush/internal/registry"
)

// ErrSubscriptionGone means the push service no longer knows the target and
// it should be forgotten.
var ErrSubscriptionGone = errors.New("push subscription is gone")

// Target is where a message goes. Web push needs the subscription, FCM only
// the token.
type Target struct {
	Token        string
	Subscription *registry.Subscription
}

type IDeliveryProvider interface {
	Deliver(ctx context.Context, target Target, payload messaging.Payload) error
}
