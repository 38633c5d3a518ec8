package remote

import (
	"context"
	"io"
)

// Service is the capability set the importer needs from the knowledge
// service. Implementations must be safe for concurrent use; each call is
// independent and carries no shared connection state the caller must
// coordinate.
type Service interface {
	// HealthCheck verifies that the service is reachable and the
	// credentials are accepted. It performs no mutation.
	HealthCheck(ctx context.Context) error

	// CreateKnowledgeBase creates a named knowledge base and returns the
	// identifier assigned by the service.
	CreateKnowledgeBase(ctx context.Context, name string) (string, error)

	// FindKnowledgeBase looks up a knowledge base by name. It returns the
	// remote id and true when one exists, or false when the name is free.
	FindKnowledgeBase(ctx context.Context, name string) (string, bool, error)

	// UploadFile uploads a single document and returns the remote file id.
	// The content is streamed; the caller owns closing the reader.
	UploadFile(ctx context.Context, filename string, content io.Reader) (string, error)

	// AddFileToKnowledgeBase attaches a previously uploaded file to a
	// knowledge base.
	AddFileToKnowledgeBase(ctx context.Context, kbID, fileID string) error
}
