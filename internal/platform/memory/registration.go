package memory

import (
	"context"
	"fmt"
	"sync"
	
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/rs/zerolog/log"
)

type workerInstance struct {
	scriptURL   string
	script      platform.WorkerScript
	state       platform.WorkerState
	skipWaiting bool
}

// Registration is a service-worker registration for one scope.
type Registration struct {
	browser     *Browser
	scope       string
	pushManager *PushManager
	
	// jobs serializes install/update jobs for the scope.
	jobs sync.Mutex
	
	mu        sync.Mutex
	scriptURL string
	active    *workerInstance
	waiting   *workerInstance
}

func newRegistration(browser *Browser, scope, scriptURL string) *Registration {
	reg := &Registration{
		browser:   browser,
		scope:     scope,
		scriptURL: scriptURL,
	}
	reg.pushManager = &PushManager{registration: reg}
	return reg
}

func (r *Registration) Scope() string {
	return r.scope
}

func (r *Registration) ScriptURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scriptURL
}

// State reports the state of the newest worker of the registration.
func (r *Registration) State() platform.WorkerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	
	switch {
	case r.waiting != nil:
		return r.waiting.state
	case r.active != nil:
		return r.active.state
	default:
		return platform.WorkerParsed
	}
}

// ActiveState is the state of the worker currently controlling the scope.
func (r *Registration) ActiveState() (platform.WorkerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	
	if r.active == nil {
		return "", false
	}
	return r.active.state, true
}

// HasWaiting reports whether an installed worker is waiting to take over.
func (r *Registration) HasWaiting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waiting != nil
}

func (r *Registration) PushManager() platform.PushManager {
	return r.pushManager
}

// ShowNotification displays a notification owned by this registration.
func (r *Registration) ShowNotification(ctx context.Context, title string, opts platform.NotificationOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	
	n, err := r.browser.display("worker", title, opts)
	if err != nil {
		return err
	}
	n.registration = r
	return nil
}

func (r *Registration) activeScript() platform.WorkerScript {
	r.mu.Lock()
	defer r.mu.Unlock()
	
	if r.active == nil || r.active.state != platform.WorkerActivated {
		return nil
	}
	return r.active.script
}

func (r *Registration) setState(inst *workerInstance, next platform.WorkerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	
	state, err := inst.state.Transition(next)
	if err != nil {
		return err
	}
	inst.state = state
	return nil
}

// update runs the install job for scriptURL. Registering the script that is
// already active is a no-op.
func (r *Registration) update(ctx context.Context, scriptURL string, factory platform.WorkerFactory) error {
	r.jobs.Lock()
	defer r.jobs.Unlock()
	
	r.mu.Lock()
	if r.active != nil && r.active.scriptURL == scriptURL && r.waiting == nil {
		r.mu.Unlock()
		return nil
	}
	inst := &workerInstance{scriptURL: scriptURL, state: platform.WorkerParsed}
	r.mu.Unlock()
	
	inst.script = factory(&workerScope{registration: r, instance: inst})
	
	return r.browser.worker.do(ctx, func(ctx context.Context) error {
		return r.install(ctx, inst)
	})
}

func (r *Registration) install(ctx context.Context, inst *workerInstance) error {
	if err := r.setState(inst, platform.WorkerInstalling); err != nil {
		return err
	}
	
	if err := inst.script.Install(ctx); err != nil {
		_ = r.setState(inst, platform.WorkerRedundant)
		return fmt.Errorf("service worker install failed: %w", err)
	}
	
	if err := r.setState(inst, platform.WorkerInstalled); err != nil {
		return err
	}
	
	r.mu.Lock()
	previous := r.active
	if previous != nil && !inst.skipWaiting {
		if r.waiting != nil {
			r.waiting.state = platform.WorkerRedundant
		}
		r.waiting = inst
		r.mu.Unlock()
		log.Info().Str("scope", r.scope).Str("script", inst.scriptURL).Msg("service worker installed and waiting")
		return nil
	}
	r.mu.Unlock()
	
	return r.activate(ctx, inst, previous)
}

func (r *Registration) activate(ctx context.Context, inst, previous *workerInstance) error {
	if err := r.setState(inst, platform.WorkerActivating); err != nil {
		return err
	}
	
	r.mu.Lock()
	if previous != nil {
		previous.state = platform.WorkerRedundant
	}
	if r.waiting == inst {
		r.waiting = nil
	}
	r.active = inst
	r.scriptURL = inst.scriptURL
	r.mu.Unlock()
	
	// A failing activate handler does not stop the worker from activating.
	activateErr := inst.script.Activate(ctx)
	if err := r.setState(inst, platform.WorkerActivated); err != nil {
		return err
	}
	if activateErr != nil {
		log.Error().Err(activateErr).Str("scope", r.scope).Msg("uncaught error in activate handler")
	}
	
	log.Info().Str("scope", r.scope).Str("script", inst.scriptURL).Msg("service worker activated")
	return nil
}

type workerScope struct {
	registration *Registration
	instance     *workerInstance
}

// SkipWaiting lets the worker activate as soon as it is installed. Called on
// a waiting worker it promotes it straight away.
func (s *workerScope) SkipWaiting(ctx context.Context) error {
	r := s.registration
	
	r.mu.Lock()
	s.instance.skipWaiting = true
	waiting := r.waiting == s.instance && s.instance.state == platform.WorkerInstalled
	previous := r.active
	r.mu.Unlock()
	
	if waiting {
		return r.activate(ctx, s.instance, previous)
	}
	return nil
}

func (s *workerScope) Clients() platform.Clients {
	return &clients{browser: s.registration.browser, registration: s.registration}
}

func (s *workerScope) Registration() platform.Registration {
	return s.registration
}
