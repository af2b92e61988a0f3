package messaging

// Payload is the notification body exchanged between the backend, the worker
// and the page: `{"messageId", "title", "body", "data"}`.
type Payload struct {
	MessageID string         `json:"messageId,omitempty"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
}
