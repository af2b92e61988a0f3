package notification

import (
	"testing"
	"time"
	
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicatorWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	d := NewDeduplicator(time.Minute)
	d.now = func() time.Time { return now }
	
	assert.True(t, d.First(1))
	assert.False(t, d.First(1))
	assert.True(t, d.First(2))
	
	now = now.Add(time.Minute)
	assert.True(t, d.First(1))
}

func TestMessageKey(t *testing.T) {
	byID, ok := MessageKey(messaging.Payload{MessageID: "m-1", Title: "T"})
	require.True(t, ok)
	
	fromData, ok := MessageKey(map[string]any{"messageId": "m-1", "title": "other"})
	require.True(t, ok)
	assert.Equal(t, byID, fromData)
	
	a, _ := MessageKey(messaging.Payload{Title: "T", Body: "B"})
	b, _ := MessageKey(messaging.Payload{Title: "T", Body: "B"})
	c, _ := MessageKey(messaging.Payload{Title: "T", Body: "C"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	
	_, ok = MessageKey(func() {})
	assert.False(t, ok)
}

func TestDeduplicatorWrap(t *testing.T) {
	d := NewDeduplicator(0)
	
	var got []any
	callback := d.Wrap(func(data any) { got = append(got, data) })
	
	callback(messaging.Payload{MessageID: "m-1", Title: "T"})
	callback(map[string]any{"messageId": "m-1"})
	callback(messaging.Payload{MessageID: "m-2", Title: "T"})
	
	require.Len(t, got, 2)
	assert.Equal(t, "m-2", got[1].(messaging.Payload).MessageID)
}
