package registry

import (
	"context"
	"testing"
	"time"
	
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...StoreOption) (*Store, *miniredis.Miniredis) {
	t.Helper()
	
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	
	return NewStore(client, opts...), mr
}

func testSubscription(endpoint string) Subscription {
	return Subscription{
		Endpoint: endpoint,
		Keys:     SubscriptionKeys{P256dh: "p256dh", Auth: "auth"},
	}
}

func TestIssueAndGet(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	
	registration, err := store.Issue(ctx, "vapid", testSubscription("https://push.feed.local/wpush/1"))
	require.NoError(t, err)
	require.NotEmpty(t, registration.Token)
	
	got, err := store.Get(ctx, registration.Token)
	require.NoError(t, err)
	assert.Equal(t, "vapid", got.VAPIDKey)
	assert.Equal(t, "https://push.feed.local/wpush/1", got.Subscription.Endpoint)
	assert.Equal(t, "auth", got.Subscription.Keys.Auth)
	
	assert.True(t, mr.Exists("registration:"+registration.Token))
	assert.True(t, mr.Exists("registration:endpoint:https://push.feed.local/wpush/1"))
	assert.Equal(t, DefaultTTL, mr.TTL("registration:"+registration.Token))
}

func TestIssueIsIdempotentPerEndpoint(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	
	first, err := store.Issue(ctx, "vapid", testSubscription("https://push.feed.local/wpush/1"))
	require.NoError(t, err)
	
	rotated := testSubscription("https://push.feed.local/wpush/1")
	rotated.Keys.Auth = "rotated"
	second, err := store.Issue(ctx, "vapid", rotated)
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	
	got, err := store.Get(ctx, first.Token)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.Subscription.Keys.Auth)
	
	other, err := store.Issue(ctx, "vapid", testSubscription("https://push.feed.local/wpush/2"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, other.Token)
}

func TestIssueWithStaleIndex(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	
	require.NoError(t, mr.Set("registration:endpoint:https://push.feed.local/wpush/1", "gone"))
	
	registration, err := store.Issue(ctx, "vapid", testSubscription("https://push.feed.local/wpush/1"))
	require.NoError(t, err)
	assert.NotEqual(t, "gone", registration.Token)
}

func TestRegistrationExpires(t *testing.T) {
	store, mr := newTestStore(t, WithTTL(time.Hour), WithPrefix("reg"))
	ctx := context.Background()
	
	registration, err := store.Issue(ctx, "vapid", testSubscription("https://push.feed.local/wpush/1"))
	require.NoError(t, err)
	assert.True(t, mr.Exists("reg:"+registration.Token))
	
	mr.FastForward(time.Hour)
	
	_, err = store.Get(ctx, registration.Token)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
	
	exists, err := store.Exists(ctx, registration.Token)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDelete(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	
	registration, err := store.Issue(ctx, "vapid", testSubscription("https://push.feed.local/wpush/1"))
	require.NoError(t, err)
	
	require.NoError(t, store.Delete(ctx, registration.Token))
	assert.False(t, mr.Exists("registration:"+registration.Token))
	assert.False(t, mr.Exists("registration:endpoint:https://push.feed.local/wpush/1"))
	
	assert.ErrorIs(t, store.Delete(ctx, registration.Token), ErrRegistrationNotFound)
}
