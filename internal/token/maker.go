package token

import (
	"time"
)

// Maker issues and verifies the tokens publishers send with messages.
type Maker interface {
	CreateToken(subject string, duration time.Duration) (token string, payload *Payload, err error)
	VerifyToken(tokenString string) (payload *Payload, err error)
}
