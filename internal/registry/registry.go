// Package registry issues messaging tokens for push subscriptions and keeps
// them in Redis.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	
	"github.com/katatrina/feedpush/internal/util"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DefaultPrefix = "registration"
	DefaultTTL    = 60 * 24 * time.Hour
)

var ErrRegistrationNotFound = errors.New("registration not found")

type SubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type Subscription struct {
	Endpoint       string           `json:"endpoint"`
	ExpirationTime *time.Time       `json:"expiration_time,omitempty"`
	Keys           SubscriptionKeys `json:"keys"`
}

// Registration binds a messaging token to a push subscription.
type Registration struct {
	Token        string       `json:"token"`
	VAPIDKey     string       `json:"vapid_key"`
	Subscription Subscription `json:"subscription"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Store keeps registrations under "<prefix>:<token>" and an endpoint index
// under "<prefix>:endpoint:<endpoint>". Both keys share the same TTL.
type Store struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type StoreOption func(*Store)

// WithPrefix sets the key prefix, e.g. "registration".
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) {
		s.prefix = prefix
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewStore(redis *redis.Client, opts ...StoreOption) *Store {
	s := &Store{
		redis:  redis,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) tokenKey(token string) string {
	return fmt.Sprintf("%s:%s", s.prefix, token)
}

func (s *Store) endpointKey(endpoint string) string {
	return fmt.Sprintf("%s:endpoint:%s", s.prefix, endpoint)
}

// Issue returns the token for subscription. A subscription whose endpoint is
// already registered keeps its token; its keys and TTL are refreshed.
func (s *Store) Issue(ctx context.Context, vapidKey string, subscription Subscription) (Registration, error) {
	token, err := s.redis.Get(ctx, s.endpointKey(subscription.Endpoint)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return Registration{}, fmt.Errorf("failed to look up endpoint: %w", err)
	}
	
	registration := Registration{
		Token:        token,
		VAPIDKey:     vapidKey,
		Subscription: subscription,
		CreatedAt:    s.now().UTC(),
	}
	
	if token != "" {
		existing, err := s.Get(ctx, token)
		switch {
		case err == nil:
			registration.CreatedAt = existing.CreatedAt
		case errors.Is(err, ErrRegistrationNotFound):
			// Index outlived the registration.
			registration.Token = ""
		default:
			return Registration{}, err
		}
	}
	if registration.Token == "" {
		registration.Token = util.NewRegistrationToken()
	}
	
	if err = s.save(ctx, registration); err != nil {
		return Registration{}, err
	}
	
	log.Info().Str("token", registration.Token).Str("endpoint", subscription.Endpoint).Msg("registration issued")
	return registration, nil
}

func (s *Store) save(ctx context.Context, registration Registration) error {
	raw, err := json.Marshal(registration)
	if err != nil {
		return fmt.Errorf("failed to marshal registration: %w", err)
	}
	
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(registration.Token), raw, s.ttl)
		pipe.Set(ctx, s.endpointKey(registration.Subscription.Endpoint), registration.Token, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save registration: %w", err)
	}
	
	return nil
}

func (s *Store) Get(ctx context.Context, token string) (Registration, error) {
	raw, err := s.redis.Get(ctx, s.tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Registration{}, ErrRegistrationNotFound
		}
		return Registration{}, fmt.Errorf("failed to get registration: %w", err)
	}
	
	var registration Registration
	if err = json.Unmarshal(raw, &registration); err != nil {
		return Registration{}, fmt.Errorf("failed to unmarshal registration: %w", err)
	}
	
	return registration, nil
}

func (s *Store) Exists(ctx context.Context, token string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.tokenKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return n > 0, nil
}

// Delete removes the registration and its endpoint index.
func (s *Store) Delete(ctx context.Context, token string) error {
	registration, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.tokenKey(token))
		pipe.Del(ctx, s.endpointKey(registration.Subscription.Endpoint))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	
	log.Info().Str("token", token).Msg("registration deleted")
	return nil
}
