package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	
	firebase "firebase.google.com/go/v4"
	fcm "firebase.google.com/go/v4/messaging"
	"github.com/katatrina/feedpush/internal/messaging"
)

var ErrNoToken = errors.New("target has no token")

// FCMSender is satisfied by *messaging.Client from the Firebase SDK.
type FCMSender interface {
	Send(ctx context.Context, message *fcm.Message) (string, error)
}

// FCMService delivers to tokens issued by Firebase Cloud Messaging.
type FCMService struct {
	client FCMSender
	icon   string
}

func NewFCMService(ctx context.Context, app *firebase.App, icon string) (*FCMService, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	
	return NewFCMServiceFromSender(client, icon), nil
}

func NewFCMServiceFromSender(client FCMSender, icon string) *FCMService {
	return &FCMService{client: client, icon: icon}
}

func (s *FCMService) Deliver(ctx context.Context, target Target, payload messaging.Payload) error {
	if target.Token == "" {
		return ErrNoToken
	}
	
	data, err := stringData(payload)
	if err != nil {
		return err
	}
	
	_, err = s.client.Send(ctx, &fcm.Message{
		Token: target.Token,
		Notification: &fcm.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: data,
		Webpush: &fcm.WebpushConfig{
			Notification: &fcm.WebpushNotification{
				Title: payload.Title,
				Body:  payload.Body,
				Icon:  s.icon,
				Data:  payload,
			},
		},
	})
	if err != nil {
		if fcm.IsUnregistered(err) || fcm.IsRegistrationTokenNotRegistered(err) {
			return fmt.Errorf("%w: %v", ErrSubscriptionGone, err)
		}
		return fmt.Errorf("failed to send FCM message: %w", err)
	}
	
	return nil
}

// stringData flattens payload data to the string map FCM accepts. Non-string
// values are JSON encoded.
func stringData(payload messaging.Payload) (map[string]string, error) {
	data := make(map[string]string, len(payload.Data)+1)
	for key, value := range payload.Data {
		if s, ok := value.(string); ok {
			data[key] = s
			continue
		}
		
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode data field %q: %w", key, err)
		}
		data[key] = string(raw)
	}
	if payload.MessageID != "" {
		data["messageId"] = payload.MessageID
	}
	
	return data, nil
}
