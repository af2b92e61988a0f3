// Package tokenstore keeps the messaging tokens issued to signed-in users.
// Records are only ever appended by clients; the backend reads and prunes them.
package tokenstore

import (
	"context"
	"time"
)

const CollectionName = "notificationTokens"

// Record is one stored token. A user may hold any number of records, the same
// token included.
type Record struct {
	ID        string    `firestore:"-"`
	Token     string    `firestore:"token"`
	UserID    string    `firestore:"userId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type TokenStore interface {
	// Add appends a record and returns its document ID.
	Add(ctx context.Context, record Record) (string, error)
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	ListCreatedBefore(ctx context.Context, before time.Time) ([]Record, error)
	Delete(ctx context.Context, id string) error
}

// UniqueTokens returns the distinct tokens of records in first-seen order.
func UniqueTokens(records []Record) []string {
	seen := make(map[string]struct{}, len(records))
	tokens := make([]string, 0, len(records))
	
	for _, record := range records {
		if record.Token == "" {
			continue
		}
		if _, ok := seen[record.Token]; ok {
			continue
		}
		seen[record.Token] = struct{}{}
		tokens = append(tokens, record.Token)
	}
	return tokens
}
