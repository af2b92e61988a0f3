package tokentracking

import (
	"context"
	"time"
	
	"github.com/go-co-op/gocron/v2"
	"github.com/katatrina/feedpush/internal/tokenstore"
	"github.com/rs/zerolog/log"
)

// TokenSource lists and removes stored token records.
type TokenSource interface {
	ListCreatedBefore(ctx context.Context, before time.Time) ([]tokenstore.Record, error)
	Delete(ctx context.Context, id string) error
}

// RegistrationChecker reports whether a token still has a registration.
type RegistrationChecker interface {
	Exists(ctx context.Context, token string) (bool, error)
}

// TokenTracker periodically removes stored tokens whose registration is gone.
type TokenTracker struct {
	tokens        TokenSource
	registrations RegistrationChecker
	scheduler     gocron.Scheduler
	interval      time.Duration
	minAge        time.Duration
	now           func() time.Time
}

func NewTokenTracker(tokens TokenSource, registrations RegistrationChecker, interval, minAge time.Duration) (*TokenTracker, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	
	return &TokenTracker{
		tokens:        tokens,
		registrations: registrations,
		scheduler:     scheduler,
		interval:      interval,
		minAge:        minAge,
		now:           time.Now,
	}, nil
}

// Start schedules the sweep job.
func (t *TokenTracker) Start() error {
	_, err := t.scheduler.NewJob(
		gocron.DurationJob(t.interval),
		gocron.NewTask(
			func() {
				log.Info().
					Str("job", "sweep_stale_tokens").
					Time("start_time", time.Now()).
					Msg("Starting stale token sweep")
				
				t.sweepStaleTokens(context.Background())
			},
		),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}
	
	t.scheduler.Start()
	return nil
}

func (t *TokenTracker) Stop() error {
	return t.scheduler.Shutdown()
}
