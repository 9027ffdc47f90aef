package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender sends through Firebase Cloud Messaging
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender builds a messaging client from a service-account file. An empty
// credentialsFile falls back to application default credentials.
func NewFCMSender(ctx context.Context, projectID, credentialsFile string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}

	return &FCMSender{client: client}, nil
}

// Send implements Sender
func (s *FCMSender) Send(ctx context.Context, msg Message) (string, error) {
	id, err := s.client.Send(ctx, toFCMMessage(msg))
	if err != nil {
		if messaging.IsUnregistered(err) {
			return "", fmt.Errorf("%w: %v", ErrUnregistered, err)
		}
		return "", fmt.Errorf("fcm send: %w", err)
	}
	return id, nil
}

func toFCMMessage(msg Message) *messaging.Message {
	data := msg.Data
	if data == nil {
		data = map[string]string{}
	}

	return &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Icon:  "default",
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}
