package tokenstore

import (
	"context"
	"sync"
	"time"
	
	"github.com/google/uuid"
)

// MemoryStore keeps records in process. It backs local runs without Firestore.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Add(ctx context.Context, record Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.ID = uuid.NewString()
	
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	return record.ID, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	return s.filter(func(r Record) bool { return r.UserID == userID }), nil
}

func (s *MemoryStore) ListCreatedBefore(ctx context.Context, before time.Time) ([]Record, error) {
	return s.filter(func(r Record) bool { return r.CreatedAt.Before(before) }), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	
	for i, record := range s.records {
		if record.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return nil
}

// Records returns every stored record.
func (s *MemoryStore) Records() []Record {
	return s.filter(func(Record) bool { return true })
}

func (s *MemoryStore) filter(keep func(Record) bool) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	
	var records []Record
	for _, record := range s.records {
		if keep(record) {
			records = append(records, record)
		}
	}
	return records
}
