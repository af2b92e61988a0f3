package api

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	
	"github.com/katatrina/feedpush/internal/auth"
	"github.com/katatrina/feedpush/internal/event"
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/katatrina/feedpush/internal/notification"
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/katatrina/feedpush/internal/platform/memory"
	"github.com/katatrina/feedpush/internal/serviceworker"
	"github.com/katatrina/feedpush/internal/tokenstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageReceivesForegroundMessages(t *testing.T) {
	ts := newTestServer(t)
	httpServer := httptest.NewServer(ts.router)
	defer httpServer.Close()
	
	browser := memory.NewBrowser(
		memory.WithScript(notification.DefaultScriptURL, serviceworker.Factory()),
		memory.WithPermission(platform.PermissionGranted),
	)
	defer browser.Close()
	
	client := messaging.NewHTTPClient(httpServer.URL, messaging.WithReconnectDelay(10*time.Millisecond))
	defer client.Close()
	
	store := tokenstore.NewMemoryStore()
	service := notification.NewService(notification.Config{
		PublicVAPIDKey:        testPublicKey,
		VAPIDKey:              testPublicKey,
		AwaitPushSubscription: true,
	}, browser, browser, client, auth.NewSession(&auth.User{UID: "user-1"}), store)
	
	var (
		mu       sync.Mutex
		received []any
	)
	dedup := notification.NewDeduplicator(time.Minute)
	service.SetupPushNotificationHandler(dedup.Wrap(func(data any) {
		mu.Lock()
		received = append(received, data)
		mu.Unlock()
	}))
	
	token := service.Initialize(context.Background())
	require.NotEmpty(t, token)
	
	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, token, records[0].Token)
	assert.Equal(t, "user-1", records[0].UserID)
	
	registration, err := ts.registrations.Get(context.Background(), token)
	require.NoError(t, err)
	assert.Contains(t, registration.Subscription.Endpoint, memory.DefaultPushServiceURL)
	
	topic := event.RegistrationTopic(token)
	require.Eventually(t, func() bool { return ts.hub.Subscribers(topic) == 1 }, 2*time.Second, 10*time.Millisecond)
	
	message := messaging.Payload{MessageID: "msg-1", Title: "New post", Body: "B"}
	ts.hub.Broadcast(event.Event{Topic: topic, Type: event.EventTypeMessage, Data: message})
	ts.hub.Broadcast(event.Event{Topic: topic, Type: event.EventTypeMessage, Data: message})
	
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)
	
	mu.Lock()
	assert.Equal(t, message, received[0])
	mu.Unlock()
	
	// Same subscription, same token.
	assert.Equal(t, token, service.Initialize(context.Background()))
}
