package tokenstore

import (
	"context"
	"fmt"
	"time"
	
	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
)

type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore opens a Firestore client from the Firebase app. The store
// owns the client; call Close when done.
func NewFirestoreStore(ctx context.Context, firebaseApp *firebase.App) (*FirestoreStore, error) {
	firestoreClient, err := firebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	
	return &FirestoreStore{
		client: firestoreClient,
	}, nil
}

func NewFirestoreStoreFromClient(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Add(ctx context.Context, record Record) (string, error) {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	
	ref, _, err := s.client.Collection(CollectionName).Add(ctx, map[string]interface{}{
		"token":     record.Token,
		"userId":    record.UserID,
		"createdAt": record.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to store notification token: %w", err)
	}
	
	log.Info().Str("id", ref.ID).Str("userId", record.UserID).Msg("notification token stored")
	return ref.ID, nil
}

func (s *FirestoreStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	return s.list(ctx, s.client.Collection(CollectionName).Where("userId", "==", userID))
}

func (s *FirestoreStore) ListCreatedBefore(ctx context.Context, before time.Time) ([]Record, error) {
	return s.list(ctx, s.client.Collection(CollectionName).Where("createdAt", "<", before))
}

func (s *FirestoreStore) list(ctx context.Context, query firestore.Query) ([]Record, error) {
	snapshots, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query notification tokens: %w", err)
	}
	
	records := make([]Record, 0, len(snapshots))
	for _, snapshot := range snapshots {
		var record Record
		if err = snapshot.DataTo(&record); err != nil {
			log.Warn().Err(err).Str("id", snapshot.Ref.ID).Msg("skipping malformed token record")
			continue
		}
		record.ID = snapshot.Ref.ID
		records = append(records, record)
	}
	return records, nil
}

func (s *FirestoreStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Collection(CollectionName).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete notification token %s: %w", id, err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
