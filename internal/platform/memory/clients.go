package memory

import (
	"context"
	"fmt"
	"sync"
	
	"github.com/katatrina/feedpush/internal/platform"
)

// Window is an open tab of the origin.
type Window struct {
	mu         sync.Mutex
	id         string
	url        string
	focused    bool
	controlled bool
	focusCount int
}

func (w *Window) ID() string {
	return w.id
}

func (w *Window) URL() string {
	return w.url
}

func (w *Window) Focus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	
	w.mu.Lock()
	w.focused = true
	w.focusCount++
	w.mu.Unlock()
	return nil
}

func (w *Window) Focused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

// FocusCount reports how many times a worker focused the window.
func (w *Window) FocusCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focusCount
}

func (w *Window) Controlled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.controlled
}

// OpenWindow opens a tab at path the way a user would. It is not controlled
// until a worker claims it.
func (b *Browser) OpenWindow(path string) *Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openWindowLocked(path)
}

func (b *Browser) openWindowLocked(path string) *Window {
	b.nextWindowID++
	w := &Window{
		id:  fmt.Sprintf("window-%d", b.nextWindowID),
		url: b.origin + path,
	}
	b.windows = append(b.windows, w)
	return w
}

// Windows lists open windows in the order they were opened.
func (b *Browser) Windows() []*Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	
	windows := make([]*Window, len(b.windows))
	copy(windows, b.windows)
	return windows
}

// clients is the worker-side view of the browser's windows.
type clients struct {
	browser      *Browser
	registration *Registration
}

// Claim makes the worker control every open window.
func (c *clients) Claim(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	
	for _, w := range c.browser.Windows() {
		w.mu.Lock()
		w.controlled = true
		w.mu.Unlock()
	}
	return nil
}

func (c *clients) MatchAll(ctx context.Context, opts platform.ClientQueryOptions) ([]platform.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Type != "" && opts.Type != "window" && opts.Type != "all" {
		return nil, nil
	}
	
	var matched []platform.Client
	for _, w := range c.browser.Windows() {
		if opts.IncludeUncontrolled || w.Controlled() {
			matched = append(matched, w)
		}
	}
	return matched, nil
}

// OpenWindow opens and focuses a new window controlled by the worker.
func (c *clients) OpenWindow(ctx context.Context, path string) (platform.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	
	c.browser.mu.Lock()
	w := c.browser.openWindowLocked(path)
	c.browser.mu.Unlock()
	
	w.mu.Lock()
	w.controlled = true
	w.focused = true
	w.mu.Unlock()
	return w, nil
}
