package notification

import (
	"context"
	"fmt"
	
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/rs/zerolog/log"
)

// SetupPushNotificationHandler binds the page to push events forwarded by the
// worker and to the backend's foreground-message stream. Every call binds new
// listeners. The returned func unbinds the foreground stream listener.
func (s *Service) SetupPushNotificationHandler(callback Callback) (unsubscribe func()) {
	return s.SetupPushNotificationHandlers(callback, callback)
}

// SetupPushNotificationHandlers is SetupPushNotificationHandler with separate
// callbacks for notification clicks and foreground messages.
func (s *Service) SetupPushNotificationHandlers(onClick, onMessage Callback) (unsubscribe func()) {
	if container, ok := s.navigator.ServiceWorker(); ok {
		container.OnPush(s.showForwardedPush)
		container.OnNotificationClick(func(ctx context.Context, event *platform.NotificationEvent) error {
			event.Notification.Close()
			
			if data := event.Notification.Options().Data; data != nil {
				onClick(data)
			}
			return nil
		})
	}
	
	return s.messaging.OnMessage(func(payload messaging.Payload) {
		log.Info().Str("message_id", payload.MessageID).Str("title", payload.Title).Msg("foreground message received")
		onMessage(payload)
	})
}

func (s *Service) showForwardedPush(ctx context.Context, event *platform.PushEvent) error {
	var payload messaging.Payload
	if err := event.JSON(&payload); err != nil {
		return fmt.Errorf("failed to parse push payload: %w", err)
	}
	log.Info().Str("message_id", payload.MessageID).Str("title", payload.Title).Msg("push received")
	
	registration := s.Registration()
	if registration == nil {
		return ErrNoRegistration
	}
	
	var data any
	if payload.Data != nil {
		data = payload.Data
	}
	return registration.ShowNotification(ctx, payload.Title, platform.NotificationOptions{
		Body: payload.Body,
		Icon: NotificationIcon,
		Data: data,
	})
}

// ShowNotification displays a notification from the page. Without permission
// it only warns.
func (s *Service) ShowNotification(title string, opts platform.NotificationOptions) {
	if s.notifications.Permission() != platform.PermissionGranted {
		log.Warn().Msg("notifications are not allowed")
		return
	}
	
	opts.Icon = NotificationIcon
	if _, err := s.notifications.New(title, opts); err != nil {
		log.Error().Err(err).Str("title", title).Msg("failed to show notification")
	}
}
