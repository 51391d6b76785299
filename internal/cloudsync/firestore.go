package cloudsync

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirestoreStore is a DocumentStore backed by Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

var _ DocumentStore = (*FirestoreStore)(nil)

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

// OpenFirestore initializes a Firebase app for projectID and returns its
// Firestore client wrapped as a DocumentStore.
func OpenFirestore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firestore client: %w", err)
	}
	return NewFirestoreStore(client), nil
}

func (s *FirestoreStore) List(ctx context.Context, collection string) ([]Document, error) {
	iter := s.client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	out := make([]Document, 0)
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		out = append(out, Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return out, nil
}

func (s *FirestoreStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	if _, err := s.client.Collection(collection).Doc(id).Set(ctx, fields); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Add(ctx context.Context, collection string, fields map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("add to %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
