package event

import (
	"sync"
	"time"
	
	"github.com/rs/zerolog/log"
)

const defaultSendTimeout = time.Second

type SSEServer struct {
	clients     map[string]map[chan Event]bool
	events      chan Event
	sendTimeout time.Duration
	mu          sync.RWMutex
}

func NewSSEServer() *SSEServer {
	return &SSEServer{
		clients:     make(map[string]map[chan Event]bool),
		events:      make(chan Event, 64),
		sendTimeout: defaultSendTimeout,
	}
}

// Register subscribes client to topic.
func (s *SSEServer) Register(topic string, client chan Event) {
	s.mu.Lock()
	if _, ok := s.clients[topic]; !ok {
		s.clients[topic] = make(map[chan Event]bool)
	}
	s.clients[topic][client] = true
	total := len(s.clients[topic])
	s.mu.Unlock()
	log.Info().Msgf("New client registered to topic %s. Total clients: %d", topic, total)
}

// Unregister removes client from topic and closes it.
func (s *SSEServer) Unregister(topic string, client chan Event) {
	s.mu.Lock()
	if clients, ok := s.clients[topic]; ok {
		if clients[client] {
			delete(clients, client)
			close(client)
		}
		if len(clients) == 0 {
			delete(s.clients, topic)
		}
	}
	remaining := len(s.clients[topic])
	s.mu.Unlock()
	log.Info().Msgf("Client unregistered from topic %s. Remaining clients: %d", topic, remaining)
}

// Subscribers returns how many clients listen on topic.
func (s *SSEServer) Subscribers(topic string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[topic])
}

// Broadcast queues event for every client of its topic.
func (s *SSEServer) Broadcast(event Event) {
	s.events <- event
}

// Run delivers queued events. A client that does not take an event within
// the send timeout misses it.
func (s *SSEServer) Run() {
	for event := range s.events {
		s.deliver(event)
	}
}

func (s *SSEServer) deliver(event Event) {
	// Held until every send settles so Unregister cannot close a channel mid-send.
	s.mu.RLock()
	defer s.mu.RUnlock()
	
	clients := s.clients[event.Topic]
	
	var wg sync.WaitGroup
	for client := range clients {
		wg.Add(1)
		go func(c chan Event) {
			defer wg.Done()
			
			select {
			case c <- event:
			case <-time.After(s.sendTimeout):
				log.Warn().Str("topic", event.Topic).Msg("dropped event for slow client")
			}
		}(client)
	}
	wg.Wait()
}
