package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader stores match evidence in an object store.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// EvidenceKey builds a unique object key for a match's evidence file. ext comes from
// the sniffed content type and includes the leading dot.
func EvidenceKey(pyramidID, matchID int, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("evidence/pyramid_%d/match_%d/%s%s", pyramidID, matchID, uuid.NewString(), ext)
}
