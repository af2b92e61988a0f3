package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	
	"github.com/hibiken/asynq"
	"github.com/katatrina/feedpush/api"
	"github.com/katatrina/feedpush/internal/delivery"
	"github.com/katatrina/feedpush/internal/event"
	"github.com/katatrina/feedpush/internal/registry"
	"github.com/katatrina/feedpush/internal/serviceworker"
	tokentracking "github.com/katatrina/feedpush/internal/token_tracking"
	"github.com/katatrina/feedpush/internal/tokenstore"
	"github.com/katatrina/feedpush/internal/util"
	"github.com/katatrina/feedpush/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type tokenSource interface {
	worker.TokenSource
	tokentracking.TokenSource
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	
	// Load configurations
	config, err := util.LoadConfig("./app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}
	
	log.Info().Msg("configurations loaded successfully ✅")
	
	redisDb := redis.NewClient(&redis.Options{
		Addr:     config.RedisServerAddress,
		Password: "", // no password set
		DB:       0,  // use default DB
	})
	if err = redisDb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis 😣")
	}
	log.Info().Msg("connected to redis ✅")
	
	registrations := registry.NewStore(redisDb, registry.WithTTL(config.RegistrationTTL))
	
	var (
		tokens      tokenSource
		fcmProvider delivery.IDeliveryProvider
	)
	if config.FirebaseProjectID != "" {
		firebaseApp, err := util.NewFirebaseApp(ctx, config.FirebaseCredentialsFile, config.FirebaseProjectID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize firebase 😣")
		}
		
		firestoreStore, err := tokenstore.NewFirestoreStore(ctx, firebaseApp)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create firestore client 😣")
		}
		defer firestoreStore.Close()
		tokens = firestoreStore
		log.Info().Msg("Firestore token store created successfully ✅")
		
		if config.FCMEnabled {
			fcmService, err := delivery.NewFCMService(ctx, firebaseApp, serviceworker.NotificationIcon)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create FCM service 😣")
			}
			fcmProvider = fcmService
			log.Info().Msg("FCM service created successfully ✅")
		}
	} else {
		tokens = tokenstore.NewMemoryStore()
		log.Warn().Msg("FIREBASE_PROJECT_ID is not set, token records are kept in memory")
	}
	
	eventSender := event.NewSSEServer()
	go eventSender.Run()
	
	webPush := delivery.NewWebPushService(config.VAPIDPublicKey, config.VAPIDPrivateKey, config.VAPIDSubscriber, config.PushTTL)
	
	redisOpt := asynq.RedisClientOpt{
		Addr: config.RedisServerAddress,
	}
	taskDistributor := worker.NewTaskDistributor(redisOpt)
	taskInspector := worker.NewTaskInspector(redisOpt)
	
	processor := worker.NewRedisTaskProcessor(redisOpt, tokens, registrations, eventSender, webPush, fcmProvider)
	runTaskProcessor(processor)
	defer processor.Shutdown()
	
	// FCM tokens never have a registration, so the sweep would remove them.
	if fcmProvider == nil {
		tracker, err := tokentracking.NewTokenTracker(tokens, registrations, config.TokenSweepInterval, config.TokenSweepMinAge)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create token tracker 😣")
		}
		if err = tracker.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start token tracker 😣")
		}
		defer tracker.Stop()
		log.Info().Msg("token tracker started ✅")
	}
	
	runHTTPServer(ctx, &config, registrations, taskDistributor, taskInspector, eventSender)
}

func runTaskProcessor(processor *worker.RedisTaskProcessor) {
	log.Info().Msg("start task processor")
	if err := processor.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start task processor 😣")
	}
}

func runHTTPServer(
	ctx context.Context,
	config *util.Config,
	registrations api.RegistrationStore,
	taskDistributor worker.TaskDistributor,
	taskInspector worker.TaskInspector,
	eventSender event.EventSender,
) {
	server, err := api.NewServer(config, registrations, taskDistributor, taskInspector, eventSender)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create HTTP server 😣")
	}
	
	httpServer := &http.Server{
		Addr:    config.HTTPServerAddress,
		Handler: server.Handler(),
	}
	
	go func() {
		<-ctx.Done()
		
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shut down HTTP server")
		}
	}()
	
	log.Info().Str("address", config.HTTPServerAddress).Msg("start HTTP server")
	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("failed to start HTTP server 😣")
	}
	log.Info().Msg("HTTP server stopped")
}
