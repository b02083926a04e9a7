package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FCMService struct {
	client *messaging.Client
}

// NewFCMService initializes the push client from the Base64 encoded
// FIREBASE_SERVICE_ACCOUNT_JSON environment variable, falling back to a
// local service account key file.
func NewFCMService(localFilePath string) (*FCMService, error) {
	opt, err := firebaseCredentials(localFilePath)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client}, nil
}

func firebaseCredentials(localFilePath string) (option.ClientOption, error) {
	encodedCreds := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
		}
		log.Println("Firebase: initializing from FIREBASE_SERVICE_ACCOUNT_JSON environment variable")
		return option.WithCredentialsJSON(decoded), nil
	}

	if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("local firebase key not found: %s, and FIREBASE_SERVICE_ACCOUNT_JSON is not set", localFilePath)
	}
	log.Printf("Firebase: initializing from local file: %s", localFilePath)
	return option.WithCredentialsFile(localFilePath), nil
}

// FirebaseCredentials exposes the credential bootstrap so the storage client
// can share the same service account.
func FirebaseCredentials(localFilePath string) (option.ClientOption, error) {
	return firebaseCredentials(localFilePath)
}

func (s *FCMService) SendPush(ctx context.Context, tokens []DeviceToken, title, body string, data map[string]any) error {
	if len(tokens) == 0 {
		return nil
	}

	stringData := make(map[string]string, len(data))
	for k, v := range data {
		stringData[k] = fmt.Sprintf("%v", v)
	}

	registration := make([]string, 0, len(tokens))
	for _, t := range tokens {
		registration = append(registration, t.Token)
	}

	msg := &messaging.MulticastMessage{
		Tokens: registration,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: stringData,
	}

	resp, err := s.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm multicast failed: %w", err)
	}
	if resp.FailureCount > 0 {
		log.Printf("FCM: %d of %d pushes failed", resp.FailureCount, len(registration))
	}
	return nil
}
