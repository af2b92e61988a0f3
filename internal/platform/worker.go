package platform

import (
	"context"
	"fmt"
)

// WorkerState is the lifecycle state of a service worker.
type WorkerState string

const (
	WorkerParsed     WorkerState = "parsed"
	WorkerInstalling WorkerState = "installing"
	WorkerInstalled  WorkerState = "installed"
	WorkerActivating WorkerState = "activating"
	WorkerActivated  WorkerState = "activated"
	WorkerRedundant  WorkerState = "redundant"
)

var workerTransitions = map[WorkerState][]WorkerState{
	WorkerParsed:     {WorkerInstalling, WorkerRedundant},
	WorkerInstalling: {WorkerInstalled, WorkerRedundant},
	WorkerInstalled:  {WorkerActivating, WorkerRedundant},
	WorkerActivating: {WorkerActivated, WorkerRedundant},
	WorkerActivated:  {WorkerRedundant},
}

// CanTransition reports whether a worker may move from s to next.
func (s WorkerState) CanTransition(next WorkerState) bool {
	for _, allowed := range workerTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next, or an error when the move skips a lifecycle step.
func (s WorkerState) Transition(next WorkerState) (WorkerState, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("invalid worker state transition from %s to %s", s, next)
	}
	return next, nil
}

type ClientQueryOptions struct {
	Type                string
	IncludeUncontrolled bool
}

// Client is a window (or worker) controlled by, or visible to, a service worker.
type Client interface {
	ID() string
	URL() string
}

// Focuser is implemented by clients that can be brought to the foreground.
type Focuser interface {
	Focus(ctx context.Context) error
}

// Clients is the worker-side view of open clients.
type Clients interface {
	Claim(ctx context.Context) error
	MatchAll(ctx context.Context, opts ClientQueryOptions) ([]Client, error)
}

// WindowOpener is implemented by Clients that can open new windows.
type WindowOpener interface {
	OpenWindow(ctx context.Context, url string) (Client, error)
}

// WorkerScope is the global scope a worker script runs in.
type WorkerScope interface {
	SkipWaiting(ctx context.Context) error
	Clients() Clients
	Registration() Registration
}

// WorkerScript is the code behind a registered script URL. Handlers run on the
// worker's event loop; a returned error is fatal to that event only.
type WorkerScript interface {
	Install(ctx context.Context) error
	Activate(ctx context.Context) error
	Push(ctx context.Context, event *PushEvent) error
	NotificationClick(ctx context.Context, event *NotificationEvent) error
}

// WorkerFactory builds a script instance bound to its scope.
type WorkerFactory func(scope WorkerScope) WorkerScript
