package tokenstore

import (
	"context"
	"os"
	"testing"
	"time"
	
	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueTokens(t *testing.T) {
	records := []Record{
		{Token: "a", UserID: "u"},
		{Token: "b", UserID: "u"},
		{Token: "a", UserID: "u"},
		{Token: "", UserID: "u"},
	}
	assert.Equal(t, []string{"a", "b"}, UniqueTokens(records))
	assert.Empty(t, UniqueTokens(nil))
}

func testStore(t *testing.T, store TokenStore) {
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	
	firstID, err := store.Add(ctx, Record{Token: "t-1", UserID: "user-1", CreatedAt: old})
	require.NoError(t, err)
	_, err = store.Add(ctx, Record{Token: "t-1", UserID: "user-1"})
	require.NoError(t, err)
	_, err = store.Add(ctx, Record{Token: "t-2", UserID: "user-2"})
	require.NoError(t, err)
	
	records, err := store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	
	stale, err := store.ListCreatedBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, firstID, stale[0].ID)
	
	require.NoError(t, store.Delete(ctx, firstID))
	records, err = store.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStore(t, store)
	assert.Len(t, store.Records(), 2)
}

func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	
	client, err := firestore.NewClient(context.Background(), "feedpush-test")
	require.NoError(t, err)
	store := NewFirestoreStoreFromClient(client)
	defer store.Close()
	
	testStore(t, store)
}
