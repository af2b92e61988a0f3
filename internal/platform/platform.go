// Package platform describes the host capabilities that the page context and
// the service-worker context rely on. Nothing here is ambient: every component
// gets the capability it needs injected.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrSubscriptionKeyMismatch is returned by PushManager.Subscribe when the
// registration already has a subscription made with another key.
var ErrSubscriptionKeyMismatch = errors.New("a subscription with a different application server key already exists")

// Permission mirrors the notification permission states of a browser profile.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Navigator reports which capabilities the host exposes.
type Navigator interface {
	// ServiceWorker returns the service-worker container, or false when the
	// host has no service-worker support.
	ServiceWorker() (ServiceWorkerContainer, bool)
}

type RegistrationOptions struct {
	Scope string
}

// ServiceWorkerContainer is the page-side handle on service workers. Events
// dispatched in the worker are forwarded to the handlers bound here.
type ServiceWorkerContainer interface {
	Register(ctx context.Context, scriptURL string, opts RegistrationOptions) (Registration, error)
	OnPush(handler PushHandler)
	OnNotificationClick(handler NotificationClickHandler)
}

// Registration ties a worker script to a scope.
type Registration interface {
	Scope() string
	ScriptURL() string
	State() WorkerState
	PushManager() PushManager
	ShowNotification(ctx context.Context, title string, opts NotificationOptions) error
}

type PushSubscriptionOptions struct {
	UserVisibleOnly      bool
	ApplicationServerKey []byte
}

type PushSubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is the handle a push service hands out for one registration
// and one application server key.
type PushSubscription struct {
	Endpoint       string                  `json:"endpoint"`
	ExpirationTime *time.Time              `json:"expiration_time,omitempty"`
	Keys           PushSubscriptionKeys    `json:"keys"`
	Options        PushSubscriptionOptions `json:"-"`
}

type PushManager interface {
	Subscribe(ctx context.Context, opts PushSubscriptionOptions) (*PushSubscription, error)
	// GetSubscription returns nil when the registration is not subscribed.
	GetSubscription(ctx context.Context) (*PushSubscription, error)
	Unsubscribe(ctx context.Context) error
}

type NotificationOptions struct {
	Body string
	Icon string
	Tag  string
	Data any
}

// Notification is a notification currently displayed by the host.
type Notification interface {
	Title() string
	Options() NotificationOptions
	Close()
}

// NotificationCenter is the page-side Notification API.
type NotificationCenter interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	New(title string, opts NotificationOptions) (Notification, error)
}
