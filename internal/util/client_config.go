package util

import (
	"fmt"
	
	"github.com/spf13/viper"
)

// ClientConfig stores the configuration of a page client.
type ClientConfig struct {
	BackendURL              string `mapstructure:"BACKEND_URL"`
	PublicVAPIDKey          string `mapstructure:"PUBLIC_VAPID_KEY"`
	VAPIDKey                string `mapstructure:"VAPID_KEY"`
	ServiceWorkerScript     string `mapstructure:"SERVICE_WORKER_SCRIPT"`
	ServiceWorkerScope      string `mapstructure:"SERVICE_WORKER_SCOPE"`
	AwaitPushSubscription   bool   `mapstructure:"AWAIT_PUSH_SUBSCRIPTION"`
	NotificationPermission  string `mapstructure:"NOTIFICATION_PERMISSION"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseIDToken         string `mapstructure:"FIREBASE_ID_TOKEN"`
	// UserID signs in a local user without Firebase Auth.
	UserID string `mapstructure:"USER_ID"`
}

// LoadClientConfig reads client configuration from file or environment variables.
func LoadClientConfig(path string) (config ClientConfig, err error) {
	v := viper.New()
	
	v.SetDefault("BACKEND_URL", "http://localhost:8080")
	v.SetDefault("SERVICE_WORKER_SCRIPT", "/service-worker.js")
	v.SetDefault("SERVICE_WORKER_SCOPE", "/")
	v.SetDefault("AWAIT_PUSH_SUBSCRIPTION", false)
	v.SetDefault("NOTIFICATION_PERMISSION", "granted")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_ID_TOKEN", "")
	v.SetDefault("USER_ID", "")
	
	v.AutomaticEnv()
	
	v.SetConfigFile(path)
	if err = v.ReadInConfig(); err != nil {
		return
	}
	
	err = v.UnmarshalExact(&config)
	if err != nil {
		return
	}
	
	err = validateClientConfig(config)
	return
}

func validateClientConfig(config ClientConfig) error {
	if config.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	if config.PublicVAPIDKey == "" {
		return fmt.Errorf("PUBLIC_VAPID_KEY is required")
	}
	if config.VAPIDKey == "" {
		return fmt.Errorf("VAPID_KEY is required")
	}
	switch config.NotificationPermission {
	case "granted", "denied", "default":
	default:
		return fmt.Errorf("NOTIFICATION_PERMISSION must be one of granted, denied or default")
	}
	
	return nil
}
