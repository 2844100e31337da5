package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

var ErrUnsupportedContentType = errors.New("unsupported evidence content type")

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

var evidenceExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// EvidenceKey builds a fresh object key for a screenshot attached to a match.
func EvidenceKey(tournamentID, matchID int, contentType string) (string, error) {
	ext, ok := evidenceExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	return fmt.Sprintf("evidence/tournament_%d/match_%d/%s%s", tournamentID, matchID, uuid.NewString(), ext), nil
}
