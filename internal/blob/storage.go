// Package blob stores cleanup photos in the Firebase Storage bucket. Objects
// are write-once: a photo reference is never mutated after upload.
package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"

	"sweepifyAPI/internal/notification"
)

type Storage struct {
	app    *firebase.App
	bucket string
}

func NewStorage(localKeyPath, bucket string) (*Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket name is required")
	}
	opt, err := notification.FirebaseCredentials(localKeyPath)
	if err != nil {
		return nil, err
	}
	app, err := firebase.NewApp(context.Background(), &firebase.Config{StorageBucket: bucket}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app for storage: %w", err)
	}
	return &Storage{app: app, bucket: bucket}, nil
}

// UploadPhoto writes the payload under submissions/<stage>-<uuid> and
// returns a retrievable URL for the object.
func (s *Storage) UploadPhoto(ctx context.Context, stage string, contentType string, r io.Reader) (string, error) {
	client, err := s.app.Storage(ctx)
	if err != nil {
		return "", fmt.Errorf("storage client: %w", err)
	}
	bucket, err := client.Bucket(s.bucket)
	if err != nil {
		return "", fmt.Errorf("storage bucket: %w", err)
	}

	object := fmt.Sprintf("submissions/%s-%s", stage, uuid.New())

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	w := bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("upload failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload close failed: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, object), nil
}
