package tokentracking

import (
	"context"
	
	"github.com/rs/zerolog/log"
)

// sweepStaleTokens deletes records older than minAge whose token is no longer
// registered. It returns how many records were deleted.
func (t *TokenTracker) sweepStaleTokens(ctx context.Context) int {
	records, err := t.tokens.ListCreatedBefore(ctx, t.now().Add(-t.minAge))
	if err != nil {
		log.Error().Err(err).Msg("failed to list token records")
		return 0
	}
	
	// Cache lookups since a token can be stored for several users.
	registered := make(map[string]bool)
	deleted := 0
	
	for _, record := range records {
		exists, ok := registered[record.Token]
		if !ok {
			exists, err = t.registrations.Exists(ctx, record.Token)
			if err != nil {
				log.Error().Err(err).Str("token", record.Token).Msg("failed to check registration")
				continue
			}
			registered[record.Token] = exists
		}
		if exists {
			continue
		}
		
		if err = t.tokens.Delete(ctx, record.ID); err != nil {
			log.Error().Err(err).Str("record_id", record.ID).Msg("failed to delete stale token record")
			continue
		}
		deleted++
	}
	
	log.Info().Int("checked", len(records)).Int("deleted", deleted).Msg("stale token sweep finished")
	return deleted
}
