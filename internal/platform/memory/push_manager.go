package memory

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	
	"github.com/google/uuid"
	"github.com/katatrina/feedpush/internal/platform"
)

var (
	ErrUserVisibleOnly         = errors.New("push subscriptions must be user visible")
	ErrInvalidServerKey        = errors.New("application server key is not a valid P-256 public key")
	ErrSubscriptionKeyMismatch = platform.ErrSubscriptionKeyMismatch
	ErrPermissionDenied        = errors.New("registration failed - permission denied")
)

// PushManager keeps at most one subscription per registration.
type PushManager struct {
	registration *Registration
	
	mu           sync.Mutex
	subscription *platform.PushSubscription
}

func (m *PushManager) Subscribe(ctx context.Context, opts platform.PushSubscriptionOptions) (*platform.PushSubscription, error) {
	if !opts.UserVisibleOnly {
		return nil, ErrUserVisibleOnly
	}
	if _, err := ecdh.P256().NewPublicKey(opts.ApplicationServerKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidServerKey, err)
	}
	
	browser := m.registration.browser
	permission, err := browser.RequestPermission(ctx)
	if err != nil {
		return nil, err
	}
	if permission != platform.PermissionGranted {
		return nil, ErrPermissionDenied
	}
	
	m.mu.Lock()
	defer m.mu.Unlock()
	
	if m.subscription != nil {
		if !bytes.Equal(m.subscription.Options.ApplicationServerKey, opts.ApplicationServerKey) {
			return nil, ErrSubscriptionKeyMismatch
		}
		sub := *m.subscription
		return &sub, nil
	}
	
	privateKey, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate subscription key: %w", err)
	}
	authSecret := make([]byte, 16)
	if _, err = rand.Read(authSecret); err != nil {
		return nil, fmt.Errorf("failed to generate auth secret: %w", err)
	}
	
	m.subscription = &platform.PushSubscription{
		Endpoint: fmt.Sprintf("%s/%s", browser.pushServiceURL, uuid.NewString()),
		Keys: platform.PushSubscriptionKeys{
			P256dh: base64.RawURLEncoding.EncodeToString(privateKey.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(authSecret),
		},
		Options: platform.PushSubscriptionOptions{
			UserVisibleOnly:      true,
			ApplicationServerKey: append([]byte(nil), opts.ApplicationServerKey...),
		},
	}
	
	sub := *m.subscription
	return &sub, nil
}

func (m *PushManager) GetSubscription(ctx context.Context) (*platform.PushSubscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	
	m.mu.Lock()
	defer m.mu.Unlock()
	
	if m.subscription == nil {
		return nil, nil
	}
	sub := *m.subscription
	return &sub, nil
}

func (m *PushManager) Unsubscribe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	
	m.mu.Lock()
	m.subscription = nil
	m.mu.Unlock()
	return nil
}
