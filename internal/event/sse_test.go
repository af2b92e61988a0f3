package event

import (
	"testing"
	"time"
	
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastToTopic(t *testing.T) {
	server := NewSSEServer()
	go server.Run()
	
	topic := RegistrationTopic("tok-1")
	first := make(chan Event, 1)
	second := make(chan Event, 1)
	other := make(chan Event, 1)
	server.Register(topic, first)
	server.Register(topic, second)
	server.Register(RegistrationTopic("tok-2"), other)
	assert.Equal(t, 2, server.Subscribers(topic))
	
	server.Broadcast(Event{Topic: topic, Type: EventTypeMessage, Data: "hello"})
	
	for _, client := range []chan Event{first, second} {
		select {
		case event := <-client:
			assert.Equal(t, "hello", event.Data)
			assert.Equal(t, EventTypeMessage, event.Type)
		case <-time.After(time.Second):
			t.Fatal("event was not delivered")
		}
	}
	
	select {
	case <-other:
		t.Fatal("event leaked to another topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowClientIsSkipped(t *testing.T) {
	server := NewSSEServer()
	server.sendTimeout = 10 * time.Millisecond
	go server.Run()
	
	topic := RegistrationTopic("tok-1")
	slow := make(chan Event)
	server.Register(topic, slow)
	
	server.Broadcast(Event{Topic: topic, Type: EventTypeMessage})
	server.Broadcast(Event{Topic: topic, Type: EventTypeMessage})
	
	require.Eventually(t, func() bool { return len(server.events) == 0 }, time.Second, 5*time.Millisecond)
	server.Unregister(topic, slow)
	
	_, open := <-slow
	assert.False(t, open)
	assert.Equal(t, 0, server.Subscribers(topic))
}

func TestUnregisterTwice(t *testing.T) {
	server := NewSSEServer()
	client := make(chan Event)
	
	server.Register("t", client)
	server.Unregister("t", client)
	assert.NotPanics(t, func() { server.Unregister("t", client) })
}
