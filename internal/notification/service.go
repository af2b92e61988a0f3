// Package notification runs in the page context. It registers the service
// worker, exchanges the push subscription for a messaging token, stores the
// token for the signed-in user and bridges incoming messages to the app.
package notification

import (
	"context"
	"errors"
	"sync"
	"time"
	
	"github.com/katatrina/feedpush/internal/auth"
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/katatrina/feedpush/internal/tokenstore"
)

const (
	DefaultScriptURL = "/service-worker.js"
	DefaultScope     = "/"
	NotificationIcon = "/favicon.ico"
)

var ErrNoRegistration = errors.New("service worker is not registered")

type Config struct {
	// PublicVAPIDKey is the application server key used for the push subscription.
	PublicVAPIDKey string
	// VAPIDKey is the key handed to the messaging backend for token exchange.
	VAPIDKey string
	
	ScriptURL string
	Scope     string
	
	// AwaitPushSubscription makes RegisterServiceWorker wait for the push
	// subscription. By default it is fired and forgotten, and callers must not
	// assume the subscription exists when the registration is returned.
	AwaitPushSubscription bool
}

// TokenWriter appends stored token records.
type TokenWriter interface {
	Add(ctx context.Context, record tokenstore.Record) (string, error)
}

// Callback receives notification data on click and raw payloads from the
// foreground-message stream. A message can reach it through both paths.
type Callback func(data any)

type Service struct {
	config        Config
	navigator     platform.Navigator
	notifications platform.NotificationCenter
	messaging     messaging.Messaging
	authProvider  auth.Provider
	tokens        TokenWriter
	now           func() time.Time
	
	mu           sync.Mutex
	registration platform.Registration
	pending      sync.WaitGroup
}

func NewService(
	config Config,
	navigator platform.Navigator,
	notifications platform.NotificationCenter,
	messagingClient messaging.Messaging,
	authProvider auth.Provider,
	tokens TokenWriter,
) *Service {
	if config.ScriptURL == "" {
		config.ScriptURL = DefaultScriptURL
	}
	if config.Scope == "" {
		config.Scope = DefaultScope
	}
	
	return &Service{
		config:        config,
		navigator:     navigator,
		notifications: notifications,
		messaging:     messagingClient,
		authProvider:  authProvider,
		tokens:        tokens,
		now:           time.Now,
	}
}

// Registration returns the registration from the last successful
// RegisterServiceWorker call.
func (s *Service) Registration() platform.Registration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registration
}

// Wait blocks until every fire-and-forget push subscription has settled.
func (s *Service) Wait() {
	s.pending.Wait()
}

// NotificationPermission returns the current notification permission.
func (s *Service) NotificationPermission() platform.Permission {
	return s.notifications.Permission()
}
