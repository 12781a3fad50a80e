// Package cloudinary hosts series brochures (task files) on Cloudinary.
package cloudinary

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service stores brochures as raw assets.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the brochure under a stable public ID, replacing any previous version,
// and returns its secure URL.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	overwrite := true
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     PublicID(name),
		ResourceType: "raw",
		Overwrite:    &overwrite,
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload brochure: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload brochure: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("brochure uploaded to cloudinary")

	return result.SecureURL, nil
}

// Delete removes a previously uploaded brochure.
func (s *Service) Delete(ctx context.Context, name string) error {
	publicID := PublicID(name)
	if s.folder != "" {
		publicID = s.folder + "/" + publicID
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return fmt.Errorf("failed to delete brochure: %w", err)
	}

	s.logger.Info().Str("public_id", publicID).Str("result", result.Result).Msg("brochure removed from cloudinary")
	return nil
}

// PublicID turns a file name into a Cloudinary-safe identifier. Raw assets keep their extension.
func PublicID(name string) string {
	id := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' {
			return r
		}
		return '-'
	}, strings.TrimSpace(name))

	id = strings.Trim(id, "-.")
	if id == "" {
		return "brochure.pdf"
	}
	return id
}
