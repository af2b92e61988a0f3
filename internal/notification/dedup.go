package notification

import (
	"encoding/json"
	"sync"
	"time"
	
	"github.com/cespare/xxhash/v2"
	"github.com/katatrina/feedpush/internal/messaging"
)

const DefaultDedupWindow = 30 * time.Second

// Deduplicator drops a message seen again within the window. A message the
// backend streams more than once reaches a wrapped callback once.
type Deduplicator struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[uint64]time.Time
	now    func() time.Time
}

func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	
	return &Deduplicator{
		window: window,
		seen:   make(map[uint64]time.Time),
		now:    time.Now,
	}
}

// First reports whether key has not been seen within the window, and marks it.
func (d *Deduplicator) First(key uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	
	now := d.now()
	for k, at := range d.seen {
		if now.Sub(at) >= d.window {
			delete(d.seen, k)
		}
	}
	
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = now
	return true
}

// Wrap returns a callback that forwards data only the first time it is seen.
// Click data carries the payload it was shown for and has the same key, so
// wrap only the message callback of SetupPushNotificationHandlers: a click
// within the window of its message would be dropped otherwise.
func (d *Deduplicator) Wrap(callback Callback) Callback {
	return func(data any) {
		key, ok := MessageKey(data)
		if ok && !d.First(key) {
			return
		}
		callback(data)
	}
}

// MessageKey identifies a message by its id, or by a hash of its content when
// it has none. Notification data carrying a "messageId" field maps to the same
// key as the payload it came from.
func MessageKey(data any) (uint64, bool) {
	switch v := data.(type) {
	case messaging.Payload:
		if v.MessageID != "" {
			return idKey(v.MessageID), true
		}
	case map[string]any:
		if id, ok := v["messageId"].(string); ok && id != "" {
			return idKey(id), true
		}
	}
	
	raw, err := json.Marshal(data)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(raw), true
}

func idKey(id string) uint64 {
	return xxhash.Sum64String("messageId:" + id)
}
