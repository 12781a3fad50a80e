package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/access"
	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/repository"
)

var (
	// ErrPageNotFound indicates no page is published under the URL.
	ErrPageNotFound = errors.New("page not found")
	// ErrLoginRequired indicates the page is restricted and the caller is anonymous.
	ErrLoginRequired = errors.New("login required")
)

// PageService serves group-restricted content pages.
type PageService interface {
	Get(ctx context.Context, url string, subject access.Subject) (dto.PageResponse, error)
}

type pageService struct {
	pages  repository.PageRepository
	logger zerolog.Logger
}

// NewPageService constructs the page service.
func NewPageService(pages repository.PageRepository, logger zerolog.Logger) PageService {
	return &pageService{
		pages:  pages,
		logger: logger.With().Str("component", "page_service").Logger(),
	}
}

func (s *pageService) Get(ctx context.Context, url string, subject access.Subject) (dto.PageResponse, error) {
	page, err := s.pages.GetByURL(ctx, normalizePageURL(url))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PageResponse{}, ErrPageNotFound
		}
		return dto.PageResponse{}, err
	}

	switch access.CanView(page.AllowedGroups, subject) {
	case access.Allowed:
		return dto.NewPageResponse(page), nil
	case access.LoginRequired:
		return dto.PageResponse{}, ErrLoginRequired
	default:
		s.logger.Debug().Str("url", page.URL).Msg("page access denied")
		return dto.PageResponse{}, ErrForbidden
	}
}

// normalizePageURL stores URLs with a leading and trailing slash.
func normalizePageURL(url string) string {
	url = strings.Trim(strings.TrimSpace(url), "/")
	if url == "" {
		return "/"
	}
	return "/" + url + "/"
}
