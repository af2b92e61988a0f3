package worker

import (
	"context"
	
	"github.com/hibiken/asynq"
	"github.com/katatrina/feedpush/internal/delivery"
	"github.com/katatrina/feedpush/internal/event"
	"github.com/katatrina/feedpush/internal/registry"
	"github.com/katatrina/feedpush/internal/tokenstore"
	"github.com/rs/zerolog/log"
)

/*
 This file contains code that will pick up the tasks from the Redis queue and process them.
*/

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// TokenSource resolves the stored tokens of a user.
type TokenSource interface {
	ListByUser(ctx context.Context, userID string) ([]tokenstore.Record, error)
	Delete(ctx context.Context, id string) error
}

type RegistrationStore interface {
	Get(ctx context.Context, token string) (registry.Registration, error)
	Delete(ctx context.Context, token string) error
}

type RedisTaskProcessor struct {
	server        *asynq.Server
	tokens        TokenSource
	registrations RegistrationStore
	eventSender   event.EventSender
	webPush       delivery.IDeliveryProvider
	fcm           delivery.IDeliveryProvider
}

// NewRedisTaskProcessor builds the processor. fcm may be nil, in which case
// tokens unknown to the registry are skipped.
func NewRedisTaskProcessor(
	redisOpt asynq.RedisClientOpt,
	tokens TokenSource,
	registrations RegistrationStore,
	eventSender event.EventSender,
	webPush delivery.IDeliveryProvider,
	fcm delivery.IDeliveryProvider,
) *RedisTaskProcessor {
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				QueueCritical: 10,
				QueueDefault:  5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().Err(err).Str("type", task.Type()).
					Bytes("payload", task.Payload()).Msg("process task failed")
			}),
			Logger: NewLogger(),
		},
	)
	
	return &RedisTaskProcessor{
		server:        server,
		tokens:        tokens,
		registrations: registrations,
		eventSender:   eventSender,
		webPush:       webPush,
		fcm:           fcm,
	}
}

// Start registers the task handlers for the mux, attaches the mux to the asynq server, and starts the server.
func (processor *RedisTaskProcessor) Start() error {
	mux := asynq.NewServeMux()
	
	mux.HandleFunc(TaskSendNotification, processor.ProcessTaskSendNotification)
	
	return processor.server.Start(mux)
}

func (processor *RedisTaskProcessor) Shutdown() {
	processor.server.Shutdown()
}
