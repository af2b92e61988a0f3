package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	
	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/katatrina/feedpush/internal/delivery"
	"github.com/katatrina/feedpush/internal/event"
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/katatrina/feedpush/internal/registry"
	"github.com/katatrina/feedpush/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu     sync.Mutex
	events []event.Event
}

func (s *recordingSender) Register(topic string, client chan event.Event)   {}
func (s *recordingSender) Unregister(topic string, client chan event.Event) {}
func (s *recordingSender) Run()                                             {}

func (s *recordingSender) Broadcast(e event.Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

type fakeRegistrations struct {
	registrations map[string]registry.Registration
	deleted       []string
}

func (r *fakeRegistrations) Get(ctx context.Context, token string) (registry.Registration, error) {
	registration, ok := r.registrations[token]
	if !ok {
		return registry.Registration{}, registry.ErrRegistrationNotFound
	}
	return registration, nil
}

func (r *fakeRegistrations) Delete(ctx context.Context, token string) error {
	if _, ok := r.registrations[token]; !ok {
		return registry.ErrRegistrationNotFound
	}
	delete(r.registrations, token)
	r.deleted = append(r.deleted, token)
	return nil
}

type fakeProvider struct {
	targets  []delivery.Target
	payloads []messaging.Payload
	err      error
}

func (p *fakeProvider) Deliver(ctx context.Context, target delivery.Target, payload messaging.Payload) error {
	p.targets = append(p.targets, target)
	p.payloads = append(p.payloads, payload)
	return p.err
}

type processorFixture struct {
	processor     *RedisTaskProcessor
	tokens        *tokenstore.MemoryStore
	registrations *fakeRegistrations
	sender        *recordingSender
	webPush       *fakeProvider
	fcm           *fakeProvider
}

func newProcessorFixture(t *testing.T, withFCM bool) *processorFixture {
	t.Helper()
	
	mr := miniredis.RunT(t)
	f := &processorFixture{
		tokens: tokenstore.NewMemoryStore(),
		registrations: &fakeRegistrations{registrations: map[string]registry.Registration{
			"tok-web": {
				Token:        "tok-web",
				Subscription: registry.Subscription{Endpoint: "https://push.feed.local/wpush/1"},
			},
		}},
		sender:  &recordingSender{},
		webPush: &fakeProvider{},
	}
	
	var fcm delivery.IDeliveryProvider
	if withFCM {
		f.fcm = &fakeProvider{}
		fcm = f.fcm
	}
	
	f.processor = NewRedisTaskProcessor(asynq.RedisClientOpt{Addr: mr.Addr()}, f.tokens, f.registrations, f.sender, f.webPush, fcm)
	return f
}

func newSendTask(t *testing.T, payload PayloadSendNotification) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(TaskSendNotification, raw)
}

func TestSendNotificationToToken(t *testing.T) {
	f := newProcessorFixture(t, false)
	
	task := newSendTask(t, PayloadSendNotification{
		MessageID: "msg-1",
		Token:     "tok-web",
		Title:     "T",
		Body:      "B",
		Data:      map[string]any{"postId": "42"},
	})
	require.NoError(t, f.processor.ProcessTaskSendNotification(context.Background(), task))
	
	require.Len(t, f.webPush.targets, 1)
	assert.Equal(t, "tok-web", f.webPush.targets[0].Token)
	assert.Equal(t, "https://push.feed.local/wpush/1", f.webPush.targets[0].Subscription.Endpoint)
	assert.Equal(t, messaging.Payload{
		MessageID: "msg-1",
		Title:     "T",
		Body:      "B",
		Data:      map[string]any{"postId": "42"},
	}, f.webPush.payloads[0])
	
	require.Len(t, f.sender.events, 1)
	assert.Equal(t, event.RegistrationTopic("tok-web"), f.sender.events[0].Topic)
	assert.Equal(t, event.EventTypeMessage, f.sender.events[0].Type)
}

func TestSendNotificationToUser(t *testing.T) {
	f := newProcessorFixture(t, true)
	ctx := context.Background()
	
	for _, token := range []string{"tok-web", "tok-fcm", "tok-web"} {
		_, err := f.tokens.Add(ctx, tokenstore.Record{Token: token, UserID: "user-1"})
		require.NoError(t, err)
	}
	_, err := f.tokens.Add(ctx, tokenstore.Record{Token: "tok-other", UserID: "user-2"})
	require.NoError(t, err)
	
	task := newSendTask(t, PayloadSendNotification{MessageID: "msg-1", UserID: "user-1", Title: "T"})
	require.NoError(t, f.processor.ProcessTaskSendNotification(ctx, task))
	
	assert.Len(t, f.webPush.targets, 1)
	require.Len(t, f.fcm.targets, 1)
	assert.Equal(t, "tok-fcm", f.fcm.targets[0].Token)
	assert.Nil(t, f.fcm.targets[0].Subscription)
	assert.Len(t, f.sender.events, 2)
}

func TestSendNotificationSkipsUnknownTokenWithoutFCM(t *testing.T) {
	f := newProcessorFixture(t, false)
	
	task := newSendTask(t, PayloadSendNotification{MessageID: "msg-1", Token: "tok-unknown", Title: "T"})
	require.NoError(t, f.processor.ProcessTaskSendNotification(context.Background(), task))
	
	assert.Empty(t, f.webPush.targets)
	assert.Len(t, f.sender.events, 1)
}

func TestSendNotificationRemovesGoneRegistration(t *testing.T) {
	f := newProcessorFixture(t, false)
	f.webPush.err = delivery.ErrSubscriptionGone
	
	task := newSendTask(t, PayloadSendNotification{MessageID: "msg-1", Token: "tok-web", Title: "T"})
	require.NoError(t, f.processor.ProcessTaskSendNotification(context.Background(), task))
	
	assert.Equal(t, []string{"tok-web"}, f.registrations.deleted)
}

func TestSendNotificationRemovesGoneFCMRecords(t *testing.T) {
	f := newProcessorFixture(t, true)
	f.fcm.err = delivery.ErrSubscriptionGone
	ctx := context.Background()
	
	_, err := f.tokens.Add(ctx, tokenstore.Record{Token: "tok-fcm", UserID: "user-1"})
	require.NoError(t, err)
	_, err = f.tokens.Add(ctx, tokenstore.Record{Token: "tok-web", UserID: "user-1"})
	require.NoError(t, err)
	
	task := newSendTask(t, PayloadSendNotification{MessageID: "msg-1", UserID: "user-1", Title: "T"})
	require.NoError(t, f.processor.ProcessTaskSendNotification(ctx, task))
	
	records, err := f.tokens.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tok-web", records[0].Token)
}

func TestSendNotificationReturnsDeliveryError(t *testing.T) {
	f := newProcessorFixture(t, false)
	f.webPush.err = errors.New("push service unavailable")
	
	task := newSendTask(t, PayloadSendNotification{MessageID: "msg-1", Token: "tok-web", Title: "T"})
	err := f.processor.ProcessTaskSendNotification(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestSendNotificationSkipsRetryOnBadPayload(t *testing.T) {
	f := newProcessorFixture(t, false)
	
	err := f.processor.ProcessTaskSendNotification(context.Background(), asynq.NewTask(TaskSendNotification, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	
	task := newSendTask(t, PayloadSendNotification{MessageID: "msg-1", Title: "T"})
	err = f.processor.ProcessTaskSendNotification(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSendNotificationWithoutTokens(t *testing.T) {
	f := newProcessorFixture(t, false)
	
	task := newSendTask(t, PayloadSendNotification{MessageID: "msg-1", UserID: "nobody", Title: "T"})
	require.NoError(t, f.processor.ProcessTaskSendNotification(context.Background(), task))
	assert.Empty(t, f.sender.events)
}
