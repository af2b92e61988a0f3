package event

import (
	"fmt"
)

// Event is something that happened on a topic.
type Event struct {
	Topic string // e.g. "registration:5ZqJt9..."
	Type  string // e.g. "message"
	Data  interface{}
}

const (
	EventTypeMessage = "message" // foreground message for a registration
)

// RegistrationTopic is the topic that carries foreground messages for token.
func RegistrationTopic(token string) string {
	return fmt.Sprintf("registration:%s", token)
}

// EventSender fans events out to the clients subscribed to their topic.
type EventSender interface {
	Register(topic string, client chan Event)
	Unregister(topic string, client chan Event)
	Broadcast(event Event)
	Run()
}
