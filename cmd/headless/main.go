// Command headless runs a page client in an in-process browser: it registers
// the service worker, stores its messaging token and prints every message it
// receives until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	
	"github.com/katatrina/feedpush/internal/auth"
	"github.com/katatrina/feedpush/internal/guard"
	"github.com/katatrina/feedpush/internal/messaging"
	"github.com/katatrina/feedpush/internal/notification"
	"github.com/katatrina/feedpush/internal/platform"
	"github.com/katatrina/feedpush/internal/platform/memory"
	"github.com/katatrina/feedpush/internal/serviceworker"
	"github.com/katatrina/feedpush/internal/tokenstore"
	"github.com/katatrina/feedpush/internal/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	
	configPath := pflag.StringP("config", "c", "./client.env", "client config file")
	path := pflag.StringP("path", "p", "/feed", "route the page is opened on")
	pflag.Parse()
	
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	
	config, err := util.LoadClientConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}
	
	authProvider, tokens, closeStore := setupUserContext(ctx, config)
	defer closeStore()
	
	if !canOpen(ctx, authProvider, *path) {
		return
	}
	
	browser := memory.NewBrowser(
		memory.WithScript(config.ServiceWorkerScript, serviceworker.Factory()),
		memory.WithPrompt(func(ctx context.Context) platform.Permission {
			return platform.Permission(config.NotificationPermission)
		}),
	)
	defer browser.Close()
	
	client := messaging.NewHTTPClient(config.BackendURL)
	defer client.Close()
	
	service := notification.NewService(notification.Config{
		PublicVAPIDKey:        config.PublicVAPIDKey,
		VAPIDKey:              config.VAPIDKey,
		ScriptURL:             config.ServiceWorkerScript,
		Scope:                 config.ServiceWorkerScope,
		AwaitPushSubscription: config.AwaitPushSubscription,
	}, browser, browser, client, authProvider, tokens)
	
	dedup := notification.NewDeduplicator(notification.DefaultDedupWindow)
	onClick := func(data any) {
		log.Info().Interface("data", data).Msg("notification clicked")
	}
	onMessage := dedup.Wrap(func(data any) {
		log.Info().Interface("data", data).Msg("notification data received")
		
		if payload, ok := data.(messaging.Payload); ok {
			service.ShowNotification(payload.Title, platform.NotificationOptions{
				Body: payload.Body,
				Tag:  payload.MessageID,
				Data: payload.Data,
			})
		}
	})
	unsubscribe := service.SetupPushNotificationHandlers(onClick, onMessage)
	defer unsubscribe()
	
	token := service.Initialize(ctx)
	if token == "" {
		log.Warn().Str("permission", string(service.NotificationPermission())).Msg("notifications are not set up")
	} else {
		log.Info().Str("token", token).Msg("listening for messages")
	}
	
	<-ctx.Done()
	service.Wait()
	log.Info().Int("notifications", len(browser.Notifications())).Msg("headless client stopped")
}

// canOpen reports whether path opens for the current user. A protected path
// without one lands on the login page, which does not set up notifications.
func canOpen(ctx context.Context, provider auth.Provider, path string) bool {
	redirect, redirected := guard.New(provider).Redirect(ctx, path)
	if redirected {
		log.Warn().Str("path", path).Str("redirect", redirect).Msg("route requires a signed-in user")
		return false
	}
	return true
}

// setupUserContext signs the user in and picks the token store. With a
// Firebase project both come from Firebase, otherwise USER_ID signs in a
// local user and tokens stay in memory.
func setupUserContext(ctx context.Context, config util.ClientConfig) (auth.Provider, notification.TokenWriter, func()) {
	if config.FirebaseProjectID == "" {
		var user *auth.User
		if config.UserID != "" {
			user = &auth.User{UID: config.UserID}
		}
		return auth.NewSession(user), tokenstore.NewMemoryStore(), func() {}
	}
	
	firebaseApp, err := util.NewFirebaseApp(ctx, config.FirebaseCredentialsFile, config.FirebaseProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize firebase 😣")
	}
	
	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create auth client 😣")
	}
	
	provider := auth.NewFirebaseProvider(authClient)
	if config.FirebaseIDToken != "" {
		if _, err = provider.SignIn(ctx, config.FirebaseIDToken); err != nil {
			log.Error().Err(err).Msg("failed to sign in")
		}
	}
	
	store, err := tokenstore.NewFirestoreStore(ctx, firebaseApp)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create firestore client 😣")
	}
	
	return provider, store, func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close firestore client")
		}
	}
}
