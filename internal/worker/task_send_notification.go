package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	
	"github.com/hibiken/asynq"
	"github.com/katatrina/feedpush/internal/delivery"
	"github.com/katatrina/feedpush/internal/event"
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/katatrina/feedpush/internal/registry"
	"github.com/katatrina/feedpush/internal/tokenstore"
	"github.com/katatrina/feedpush/internal/util"
	"github.com/rs/zerolog/log"
)

// PayloadSendNotification contain all data of the task that we want to store in Redis.
// Exactly one of Token and UserID is set.
type PayloadSendNotification struct {
	MessageID string         `json:"message_id"`
	Token     string         `json:"token,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
}

func (payload *PayloadSendNotification) message() messaging.Payload {
	return messaging.Payload{
		MessageID: payload.MessageID,
		Title:     payload.Title,
		Body:      payload.Body,
		Data:      payload.Data,
	}
}

func (distributor *RedisTaskDistributor) DistributeTaskSendNotification(
	ctx context.Context,
	payload *PayloadSendNotification,
	opts ...asynq.Option,
) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}
	
	task := asynq.NewTask(TaskSendNotification, jsonPayload, opts...)
	info, err := distributor.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	
	log.Info().Str("type", task.Type()).Str("message_id", payload.MessageID).Str("queue", info.Queue).Int("max_retry", info.MaxRetry).Msg("task enqueued")
	
	return nil
}

func (processor *RedisTaskProcessor) ProcessTaskSendNotification(
	ctx context.Context,
	task *asynq.Task,
) error {
	var payload PayloadSendNotification
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}
	
	records, err := processor.resolveTargets(ctx, &payload)
	if err != nil {
		return err
	}
	tokens := tokenstore.UniqueTokens(records)
	if len(tokens) == 0 {
		log.Warn().Str("message_id", payload.MessageID).Str("user_id", payload.UserID).Msg("no tokens to notify")
		return nil
	}
	
	message := payload.message()
	
	var errs []error
	for _, token := range tokens {
		processor.eventSender.Broadcast(event.Event{
			Topic: event.RegistrationTopic(token),
			Type:  event.EventTypeMessage,
			Data:  message,
		})
		
		if err = processor.deliver(ctx, token, records, message); err != nil {
			log.Error().Err(err).Str("message_id", payload.MessageID).Str("token", token).Msg("failed to deliver message")
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	
	log.Info().Str("type", task.Type()).Str("message_id", payload.MessageID).
		Str("title", util.TruncateContent(payload.Title, 40)).Int("tokens", len(tokens)).Msg("task processed")
	
	return nil
}

func (processor *RedisTaskProcessor) resolveTargets(ctx context.Context, payload *PayloadSendNotification) ([]tokenstore.Record, error) {
	if payload.Token != "" {
		return []tokenstore.Record{{Token: payload.Token}}, nil
	}
	if payload.UserID == "" {
		return nil, fmt.Errorf("payload has no token or user id: %w", asynq.SkipRetry)
	}
	
	records, err := processor.tokens.ListByUser(ctx, payload.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens of user %s: %w", payload.UserID, err)
	}
	return records, nil
}

// deliver sends message to token through web push when the registry knows the
// token and through FCM otherwise. A target the push service reports as gone
// is forgotten and does not count as a failure.
func (processor *RedisTaskProcessor) deliver(ctx context.Context, token string, records []tokenstore.Record, message messaging.Payload) error {
	registration, err := processor.registrations.Get(ctx, token)
	switch {
	case err == nil:
		err = processor.webPush.Deliver(ctx, delivery.Target{
			Token:        token,
			Subscription: &registration.Subscription,
		}, message)
		if errors.Is(err, delivery.ErrSubscriptionGone) {
			log.Info().Str("token", token).Msg("push subscription expired, removing registration")
			if err = processor.registrations.Delete(ctx, token); err != nil && !errors.Is(err, registry.ErrRegistrationNotFound) {
				return err
			}
			return nil
		}
		return err
	
	case errors.Is(err, registry.ErrRegistrationNotFound):
		if processor.fcm == nil {
			log.Warn().Str("token", token).Msg("token is not registered, skipping")
			return nil
		}
		
		err = processor.fcm.Deliver(ctx, delivery.Target{Token: token}, message)
		if errors.Is(err, delivery.ErrSubscriptionGone) {
			log.Info().Str("token", token).Msg("FCM token is no longer registered, removing records")
			return processor.forget(ctx, token, records)
		}
		return err
	
	default:
		return err
	}
}

func (processor *RedisTaskProcessor) forget(ctx context.Context, token string, records []tokenstore.Record) error {
	for _, record := range records {
		if record.Token != token || record.ID == "" {
			continue
		}
		if err := processor.tokens.Delete(ctx, record.ID); err != nil {
			return fmt.Errorf("failed to delete token record %s: %w", record.ID, err)
		}
	}
	return nil
}
