package notification

import (
	"context"
	"fmt"
	
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/katatrina/feedpush/internal/tokenstore"
	"github.com/rs/zerolog/log"
)

// Initialize sets up notifications for this page: register the worker, ask
// for permission, get a messaging token and store it for the current user.
// It returns the stored token, or "" when any step ends the flow. Nothing is
// stored for a token without a signed-in user. Failures are logged only.
func (s *Service) Initialize(ctx context.Context) (token string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Err(fmt.Errorf("%v", r)).Msg("failed to initialize notifications")
			token = ""
		}
	}()
	
	registration := s.RegisterServiceWorker(ctx)
	if registration == nil {
		return ""
	}
	
	user := s.authProvider.CurrentUser(ctx)
	
	permission, err := s.notifications.RequestPermission(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize notifications")
		return ""
	}
	if permission != platform.PermissionGranted {
		log.Info().Str("permission", string(permission)).Msg("notification permission refused")
		return ""
	}
	
	token, err = s.messaging.GetToken(ctx, messaging.TokenOptions{
		VAPIDKey:     s.config.VAPIDKey,
		Registration: registration,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize notifications")
		return ""
	}
	
	if token == "" || user == nil {
		return ""
	}
	
	_, err = s.tokens.Add(ctx, tokenstore.Record{
		Token:     token,
		UserID:    user.UID,
		CreatedAt: s.now(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize notifications")
		return ""
	}
	
	log.Info().Str("userId", user.UID).Msg("messaging token configured")
	return token
}
