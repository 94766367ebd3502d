package template

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docproc/internal/common"
)

// FirestoreStore reads templates from documents in one collection. The
// "fields" attribute holds the blob as a string; a map value is accepted too
// but loses field order.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, name string) ([]byte, error) {
	snap, err := s.client.Collection(s.collection).Doc(name).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore get: %w", err)
	}
	raw, err := snap.DataAt("fields")
	if err != nil {
		return nil, fmt.Errorf("firestore document %s: %w", name, err)
	}
	return blobFromValue(raw)
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func blobFromValue(v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case map[string]any:
		return json.Marshal(x)
	default:
		return nil, fmt.Errorf("%w: unexpected fields value %T", common.ErrInvalidTemplate, v)
	}
}
