// Package memory is a headless, in-process browser profile. It implements the
// platform interfaces for one origin with a page context and a worker context,
// each on its own event loop.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/rs/zerolog/log"
)

const (
	DefaultOrigin         = "https://feed.local"
	DefaultPushServiceURL = "https://push.feed.local/wpush"
)

var (
	ErrNotAllowed     = errors.New("no notification permission has been granted for this origin")
	ErrScriptNotFound = errors.New("failed to fetch service worker script")
	ErrInvalidScope   = errors.New("scope is outside of the origin")
)

// PromptFunc decides how a user answers a permission prompt.
type PromptFunc func(ctx context.Context) platform.Permission

type Option func(*Browser)

func WithOrigin(origin string) Option {
	return func(b *Browser) {
		b.origin = strings.TrimSuffix(origin, "/")
	}
}

func WithPushService(url string) Option {
	return func(b *Browser) {
		b.pushServiceURL = strings.TrimSuffix(url, "/")
	}
}

func WithPermission(permission platform.Permission) Option {
	return func(b *Browser) {
		b.permission = permission
	}
}

// WithPrompt sets the answer used when a permission prompt is shown. Without it
// the prompt is dismissed and the permission stays "default".
func WithPrompt(prompt PromptFunc) Option {
	return func(b *Browser) {
		b.prompt = prompt
	}
}

// WithoutServiceWorker simulates a host with no service-worker support.
func WithoutServiceWorker() Option {
	return func(b *Browser) {
		b.serviceWorkerSupport = false
	}
}

// WithScript makes scriptURL fetchable, backed by factory.
func WithScript(scriptURL string, factory platform.WorkerFactory) Option {
	return func(b *Browser) {
		b.scripts[scriptURL] = factory
	}
}

type Browser struct {
	mu                   sync.Mutex
	origin               string
	pushServiceURL       string
	permission           platform.Permission
	prompt               PromptFunc
	serviceWorkerSupport bool
	scripts              map[string]platform.WorkerFactory
	registrations        map[string]*Registration
	pushHandlers         []platform.PushHandler
	clickHandlers        []platform.NotificationClickHandler
	windows              []*Window
	tray                 []*Notification
	nextWindowID         int
	
	page   *eventLoop
	worker *eventLoop
}

func NewBrowser(opts ...Option) *Browser {
	b := &Browser{
		origin:               DefaultOrigin,
		pushServiceURL:       DefaultPushServiceURL,
		permission:           platform.PermissionDefault,
		serviceWorkerSupport: true,
		scripts:              make(map[string]platform.WorkerFactory),
		registrations:        make(map[string]*Registration),
		page:                 newEventLoop("page"),
		worker:               newEventLoop("worker"),
	}
	
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close stops both event loops. Pending dispatches fail with ErrBrowserClosed.
func (b *Browser) Close() {
	b.page.stop()
	b.worker.stop()
}

func (b *Browser) Origin() string {
	return b.origin
}

// ServiceWorker implements platform.Navigator.
func (b *Browser) ServiceWorker() (platform.ServiceWorkerContainer, bool) {
	if !b.serviceWorkerSupport {
		return nil, false
	}
	return &container{browser: b}, true
}

// Permission implements platform.NotificationCenter.
func (b *Browser) Permission() platform.Permission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.permission
}

// SetPermission changes the permission the way a user would from site settings.
func (b *Browser) SetPermission(permission platform.Permission) {
	b.mu.Lock()
	b.permission = permission
	b.mu.Unlock()
}

// RequestPermission shows the prompt only while the permission is "default".
func (b *Browser) RequestPermission(ctx context.Context) (platform.Permission, error) {
	current := b.Permission()
	if current != platform.PermissionDefault || b.prompt == nil {
		return current, nil
	}
	
	answer := b.prompt(ctx)
	if err := ctx.Err(); err != nil {
		return current, err
	}
	
	b.SetPermission(answer)
	return answer, nil
}

// New implements platform.NotificationCenter by constructing a page notification.
func (b *Browser) New(title string, opts platform.NotificationOptions) (platform.Notification, error) {
	return b.display("page", title, opts)
}

func (b *Browser) display(source, title string, opts platform.NotificationOptions) (*Notification, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	
	if b.permission != platform.PermissionGranted {
		return nil, ErrNotAllowed
	}
	
	n := &Notification{title: title, options: opts, source: source}
	b.tray = append(b.tray, n)
	return n, nil
}

// Notifications lists every notification displayed so far, closed ones included.
func (b *Browser) Notifications() []*Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	
	tray := make([]*Notification, len(b.tray))
	copy(tray, b.tray)
	return tray
}

// Registration returns the registration for scope, if any.
func (b *Browser) Registration(scope string) (*Registration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	
	reg, ok := b.registrations[scope]
	return reg, ok
}

// Push delivers a push message: the active worker of every registration handles
// it, then it is forwarded to the page context. A handler error is logged and
// returned; it never stops the other context from seeing the event.
func (b *Browser) Push(ctx context.Context, data []byte) error {
	var errs []error
	
	for _, reg := range b.registrationList() {
		script := reg.activeScript()
		if script == nil {
			continue
		}
		
		err := b.worker.do(ctx, func(ctx context.Context) error {
			return script.Push(ctx, &platform.PushEvent{Data: data})
		})
		if err != nil {
			log.Error().Err(err).Str("scope", reg.Scope()).Msg("uncaught error in worker push handler")
			errs = append(errs, err)
		}
	}
	
	b.mu.Lock()
	handlers := append([]platform.PushHandler(nil), b.pushHandlers...)
	b.mu.Unlock()
	
	for _, handler := range handlers {
		err := b.page.do(ctx, func(ctx context.Context) error {
			return handler(ctx, &platform.PushEvent{Data: data})
		})
		if err != nil {
			log.Error().Err(err).Msg("uncaught error in page push listener")
			errs = append(errs, err)
		}
	}
	
	return errors.Join(errs...)
}

// Click simulates the user clicking n.
func (b *Browser) Click(ctx context.Context, n *Notification, action string) error {
	var errs []error
	
	if n.source == "worker" && n.registration != nil {
		if script := n.registration.activeScript(); script != nil {
			err := b.worker.do(ctx, func(ctx context.Context) error {
				return script.NotificationClick(ctx, &platform.NotificationEvent{Notification: n, Action: action})
			})
			if err != nil {
				log.Error().Err(err).Msg("uncaught error in worker notificationclick handler")
				errs = append(errs, err)
			}
		}
	}
	
	b.mu.Lock()
	handlers := append([]platform.NotificationClickHandler(nil), b.clickHandlers...)
	b.mu.Unlock()
	
	for _, handler := range handlers {
		err := b.page.do(ctx, func(ctx context.Context) error {
			return handler(ctx, &platform.NotificationEvent{Notification: n, Action: action})
		})
		if err != nil {
			log.Error().Err(err).Msg("uncaught error in page notificationclick listener")
			errs = append(errs, err)
		}
	}
	
	return errors.Join(errs...)
}

func (b *Browser) registrationList() []*Registration {
	b.mu.Lock()
	defer b.mu.Unlock()
	
	regs := make([]*Registration, 0, len(b.registrations))
	for _, reg := range b.registrations {
		regs = append(regs, reg)
	}
	return regs
}

func (b *Browser) register(ctx context.Context, scriptURL string, opts platform.RegistrationOptions) (*Registration, error) {
	scope := opts.Scope
	if scope == "" {
		scope = "/"
	}
	if !strings.HasPrefix(scope, "/") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidScope, scope)
	}
	
	b.mu.Lock()
	factory, ok := b.scripts[scriptURL]
	if !ok {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, scriptURL)
	}
	
	reg, exists := b.registrations[scope]
	if !exists {
		reg = newRegistration(b, scope, scriptURL)
		b.registrations[scope] = reg
	}
	b.mu.Unlock()
	
	if err := reg.update(ctx, scriptURL, factory); err != nil {
		return nil, err
	}
	return reg, nil
}

type container struct {
	browser *Browser
}

func (c *container) Register(ctx context.Context, scriptURL string, opts platform.RegistrationOptions) (platform.Registration, error) {
	return c.browser.register(ctx, scriptURL, opts)
}

func (c *container) OnPush(handler platform.PushHandler) {
	c.browser.mu.Lock()
	c.browser.pushHandlers = append(c.browser.pushHandlers, handler)
	c.browser.mu.Unlock()
}

func (c *container) OnNotificationClick(handler platform.NotificationClickHandler) {
	c.browser.mu.Lock()
	c.browser.clickHandlers = append(c.browser.clickHandlers, handler)
	c.browser.mu.Unlock()
}

// Notification is a displayed notification.
type Notification struct {
	mu           sync.Mutex
	title        string
	options      platform.NotificationOptions
	source       string
	registration *Registration
	closed       bool
}

func (n *Notification) Title() string {
	return n.title
}

func (n *Notification) Options() platform.NotificationOptions {
	return n.options
}

func (n *Notification) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
}

func (n *Notification) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// Source is "page" for notifications built with the Notification API and
// "worker" for ones shown through a registration.
func (n *Notification) Source() string {
	return n.source
}
