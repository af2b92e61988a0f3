package util

import (
	"fmt"
	"time"
	
	"github.com/spf13/viper"
)

// Config stores all configuration of the messaging backend.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AllowedOrigins          []string      `mapstructure:"ALLOWED_ORIGINS"`
	HTTPServerAddress       string        `mapstructure:"HTTP_SERVER_ADDRESS"`
	TokenSecretKey          string        `mapstructure:"TOKEN_SECRET_KEY"`
	PublisherTokenDuration  time.Duration `mapstructure:"PUBLISHER_TOKEN_DURATION"`
	RedisServerAddress      string        `mapstructure:"REDIS_SERVER_ADDRESS"`
	VAPIDPublicKey          string        `mapstructure:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey         string        `mapstructure:"VAPID_PRIVATE_KEY"`
	VAPIDSubscriber         string        `mapstructure:"VAPID_SUBSCRIBER"`
	PushTTL                 time.Duration `mapstructure:"PUSH_TTL"`
	RegistrationTTL         time.Duration `mapstructure:"REGISTRATION_TTL"`
	FirebaseCredentialsFile string        `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string        `mapstructure:"FIREBASE_PROJECT_ID"`
	FCMEnabled              bool          `mapstructure:"FCM_ENABLED"`
	TokenSweepInterval      time.Duration `mapstructure:"TOKEN_SWEEP_INTERVAL"`
	TokenSweepMinAge        time.Duration `mapstructure:"TOKEN_SWEEP_MIN_AGE"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	
	// Set defaults for non-sensitive config
	v.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	v.SetDefault("HTTP_SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("PUBLISHER_TOKEN_DURATION", "24h")
	v.SetDefault("REDIS_SERVER_ADDRESS", "0.0.0.0:6379")
	v.SetDefault("PUSH_TTL", "24h")
	v.SetDefault("REGISTRATION_TTL", "1440h")
	v.SetDefault("FCM_ENABLED", false)
	v.SetDefault("TOKEN_SWEEP_INTERVAL", "1h")
	v.SetDefault("TOKEN_SWEEP_MIN_AGE", "1440h")
	
	// Prefer environment variables over config file
	v.AutomaticEnv()
	
	// Load config file
	v.SetConfigFile(path)
	if err = v.ReadInConfig(); err != nil {
		return
	}
	
	// Unmarshal config into struct
	err = v.UnmarshalExact(&config)
	if err != nil {
		return
	}
	
	// Validate required configuration
	err = validateConfig(config)
	return
}

func validateConfig(config Config) error {
	if config.TokenSecretKey == "" {
		return fmt.Errorf("TOKEN_SECRET_KEY is required")
	}
	if config.RedisServerAddress == "" {
		return fmt.Errorf("REDIS_SERVER_ADDRESS is required")
	}
	if config.VAPIDPublicKey == "" {
		return fmt.Errorf("VAPID_PUBLIC_KEY is required")
	}
	if config.VAPIDPrivateKey == "" {
		return fmt.Errorf("VAPID_PRIVATE_KEY is required")
	}
	if config.VAPIDSubscriber == "" {
		return fmt.Errorf("VAPID_SUBSCRIBER is required")
	}
	if config.FCMEnabled && config.FirebaseProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required when FCM_ENABLED is set")
	}
	
	return nil
}
