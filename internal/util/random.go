package util

import (
	"github.com/lithammer/shortuuid/v4"
)

// NewRegistrationToken returns an opaque messaging token.
func NewRegistrationToken() string {
	return shortuuid.New()
}

// NewMessageID returns an id for a published message. It doubles as the
// task id of the delivery job.
func NewMessageID() string {
	return "msg_" + shortuuid.New()[:12]
}
