package platform

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNoPushData = errors.New("push event carries no data")

// PushEvent carries the raw data of a push message.
type PushEvent struct {
	Data []byte
}

// JSON decodes the push data into v.
func (e *PushEvent) JSON(v any) error {
	if len(e.Data) == 0 {
		return ErrNoPushData
	}
	return json.Unmarshal(e.Data, v)
}

// Text returns the push data as a string.
func (e *PushEvent) Text() string {
	return string(e.Data)
}

type NotificationEvent struct {
	Notification Notification
	Action       string
}

type PushHandler func(ctx context.Context, event *PushEvent) error

type NotificationClickHandler func(ctx context.Context, event *NotificationEvent) error
