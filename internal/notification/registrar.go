package notification

import (
	"context"
	"errors"
	
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/katatrina/feedpush/internal/vapid"
	"github.com/rs/zerolog/log"
)

// RegisterServiceWorker registers the worker script and asks its push manager
// for a subscription. It returns nil when the host has no service-worker
// support or when registration fails; failures are logged, never returned.
func (s *Service) RegisterServiceWorker(ctx context.Context) platform.Registration {
	container, ok := s.navigator.ServiceWorker()
	if !ok {
		return nil
	}
	
	registration, err := container.Register(ctx, s.config.ScriptURL, platform.RegistrationOptions{
		Scope: s.config.Scope,
	})
	if err != nil {
		log.Error().Err(err).Str("script", s.config.ScriptURL).Msg("failed to register service worker")
		return nil
	}
	
	applicationServerKey, err := vapid.DecodeApplicationServerKey(s.config.PublicVAPIDKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to register service worker")
		return nil
	}
	
	if s.config.AwaitPushSubscription {
		s.subscribe(ctx, registration, applicationServerKey)
	} else {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.subscribe(context.WithoutCancel(ctx), registration, applicationServerKey)
		}()
	}
	
	s.mu.Lock()
	s.registration = registration
	s.mu.Unlock()
	
	return registration
}

// subscribe keeps an existing subscription. The token exchange resubscribes
// with its own key when that key differs, so either one may already be there.
func (s *Service) subscribe(ctx context.Context, registration platform.Registration, applicationServerKey []byte) {
	pushManager := registration.PushManager()
	existing, err := pushManager.GetSubscription(ctx)
	if err != nil {
		log.Error().Err(err).Str("scope", registration.Scope()).Msg("failed to get push subscription")
		return
	}
	if existing != nil {
		log.Debug().Str("endpoint", existing.Endpoint).Msg("push subscription already exists")
		return
	}
	
	subscription, err := pushManager.Subscribe(ctx, platform.PushSubscriptionOptions{
		UserVisibleOnly:      true,
		ApplicationServerKey: applicationServerKey,
	})
	if errors.Is(err, platform.ErrSubscriptionKeyMismatch) {
		log.Debug().Str("scope", registration.Scope()).Msg("push subscription was created with the token key")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("scope", registration.Scope()).Msg("failed to subscribe to push manager")
		return
	}
	
	log.Info().Str("endpoint", subscription.Endpoint).Msg("push subscription created")
}
