// Package serviceworker is the script behind /service-worker.js. It runs in
// the worker context and only talks to the page through platform events.
package serviceworker

import (
	"context"
	"fmt"
	"net/url"
	
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/rs/zerolog/log"
)

const (
	ScriptURL        = "/service-worker.js"
	NotificationIcon = "/icon.png"
	RootPath         = "/"
)

type Worker struct {
	scope    platform.WorkerScope
	icon     string
	rootPath string
}

type Option func(*Worker)

func WithIcon(icon string) Option {
	return func(w *Worker) {
		w.icon = icon
	}
}

// WithRootPath changes the path focused or opened on notification click.
func WithRootPath(path string) Option {
	return func(w *Worker) {
		w.rootPath = path
	}
}

func New(scope platform.WorkerScope, opts ...Option) *Worker {
	w := &Worker{
		scope:    scope,
		icon:     NotificationIcon,
		rootPath: RootPath,
	}
	
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Factory returns a platform.WorkerFactory building a Worker per install.
func Factory(opts ...Option) platform.WorkerFactory {
	return func(scope platform.WorkerScope) platform.WorkerScript {
		return New(scope, opts...)
	}
}

// Install skips the waiting phase so a new worker takes over immediately.
func (w *Worker) Install(ctx context.Context) error {
	log.Info().Msg("service worker installed")
	return w.scope.SkipWaiting(ctx)
}

// Activate claims every open client without waiting for a reload.
func (w *Worker) Activate(ctx context.Context) error {
	log.Info().Msg("service worker activated")
	return w.scope.Clients().Claim(ctx)
}

// NotificationClick focuses the first window showing the root path, or opens
// one when none does.
func (w *Worker) NotificationClick(ctx context.Context, event *platform.NotificationEvent) error {
	log.Info().Str("title", event.Notification.Title()).Str("action", event.Action).Msg("notification clicked")
	event.Notification.Close()
	
	clients := w.scope.Clients()
	clientList, err := clients.MatchAll(ctx, platform.ClientQueryOptions{
		Type:                "window",
		IncludeUncontrolled: true,
	})
	if err != nil {
		return fmt.Errorf("failed to match clients: %w", err)
	}
	
	for _, client := range clientList {
		if !w.showsRoot(client.URL()) {
			continue
		}
		if focuser, ok := client.(platform.Focuser); ok {
			return focuser.Focus(ctx)
		}
	}
	
	if opener, ok := clients.(platform.WindowOpener); ok {
		if _, err = opener.OpenWindow(ctx, w.rootPath); err != nil {
			return fmt.Errorf("failed to open window: %w", err)
		}
	}
	return nil
}

// Push shows the notification carried by the push message. A payload that is
// not JSON fails the event.
func (w *Worker) Push(ctx context.Context, event *platform.PushEvent) error {
	var payload messaging.Payload
	if err := event.JSON(&payload); err != nil {
		return fmt.Errorf("failed to parse push payload: %w", err)
	}
	log.Info().Str("message_id", payload.MessageID).Str("title", payload.Title).Msg("push received")
	
	return w.scope.Registration().ShowNotification(ctx, payload.Title, platform.NotificationOptions{
		Body: payload.Body,
		Icon: w.icon,
		Data: payload,
	})
}

func (w *Worker) showsRoot(clientURL string) bool {
	u, err := url.Parse(clientURL)
	if err != nil {
		return false
	}
	
	path := u.Path
	if path == "" {
		path = "/"
	}
	return path == w.rootPath
}
