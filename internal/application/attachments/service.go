package attachments

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"showroom-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Resolver turns an opaque storage path into short-lived signed URLs.
type Resolver interface {
	SignedURL(ctx context.Context, objectPath string) (string, error)
	SignedUploadURL(ctx context.Context, objectPath string) (string, error)
}

// Service issues upload slots for payment request attachments and resolves stored paths.
type Service struct {
	Resolver Resolver
	Now      func() time.Time
}

// UploadResult is returned to the client: PUT the file to UploadURL, then send Path back.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	Path      string `json:"path"`
}

// NewUpload reserves a unique object path for fileName and signs an upload URL for it.
func (s *Service) NewUpload(ctx context.Context, fileName string) (*UploadResult, error) {
	name := path.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("%w: file_name is required", domain.ErrInvalidInput)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	objectPath := fmt.Sprintf("payment-requests/%d-%s-%s", now().UnixMilli(), uuid.NewString()[:8], name)
	url, err := s.Resolver.SignedUploadURL(ctx, objectPath)
	if err != nil {
		return nil, err
	}
	return &UploadResult{UploadURL: url, Path: objectPath}, nil
}

// URL resolves a stored path for display. Resolution failures are logged and yield "".
func (s *Service) URL(ctx context.Context, objectPath *string) string {
	if s == nil || s.Resolver == nil || objectPath == nil || *objectPath == "" {
		return ""
	}
	url, err := s.Resolver.SignedURL(ctx, *objectPath)
	if err != nil {
		log.Warn().Err(err).Str("path", *objectPath).Msg("attachment url resolution failed")
		return ""
	}
	return url
}
