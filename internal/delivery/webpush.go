package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	
	"github.com/SherClockHolmes/webpush-go"
	"github.com/katatrina/feedpush/internal/messaging"
)

var ErrNoSubscription = errors.New("target has no push subscription")

// WebPushService signs and encrypts messages for a browser push service.
type WebPushService struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        time.Duration
	HTTPClient webpush.HTTPClient
}

func NewWebPushService(publicKey, privateKey, subscriber string, ttl time.Duration) *WebPushService {
	return &WebPushService{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Subscriber: subscriber,
		TTL:        ttl,
	}
}

func (s *WebPushService) Deliver(ctx context.Context, target Target, payload messaging.Payload) error {
	if target.Subscription == nil {
		return ErrNoSubscription
	}
	
	message, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	
	subscription := &webpush.Subscription{
		Endpoint: target.Subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: target.Subscription.Keys.P256dh,
			Auth:   target.Subscription.Keys.Auth,
		},
	}
	
	resp, err := webpush.SendNotificationWithContext(ctx, message, subscription, &webpush.Options{
		HTTPClient:      s.HTTPClient,
		Subscriber:      s.Subscriber,
		VAPIDPublicKey:  s.PublicKey,
		VAPIDPrivateKey: s.PrivateKey,
		TTL:             int(s.TTL.Seconds()),
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("failed to send web push: %w", err)
	}
	defer resp.Body.Close()
	
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: status code %d", ErrSubscriptionGone, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("push service error: status code %d, body: %s", resp.StatusCode, string(body))
	}
	
	return nil
}
