// Command publisher-token mints a bearer token for POST /v1/messages.
package main

import (
	"fmt"
	"os"
	"time"
	
	"github.com/katatrina/feedpush/internal/token"
	"github.com/katatrina/feedpush/internal/util"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	
	configPath := pflag.StringP("config", "c", "./app.env", "backend config file")
	subject := pflag.StringP("subject", "s", "publisher", "name of the publishing service")
	duration := pflag.DurationP("duration", "d", 0, "token lifetime, defaults to PUBLISHER_TOKEN_DURATION")
	pflag.Parse()
	
	config, err := util.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}
	
	if *duration <= 0 {
		*duration = config.PublisherTokenDuration
	}
	
	maker, err := token.NewJWTMaker(config.TokenSecretKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token maker 😣")
	}
	
	accessToken, payload, err := maker.CreateToken(*subject, *duration)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token 😣")
	}
	
	log.Info().Str("subject", payload.Subject).Time("expires_at", payload.ExpiresAt.Time.Truncate(time.Second)).Msg("publisher token created")
	fmt.Println(accessToken)
}
