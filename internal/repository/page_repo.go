package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// PageRepository reads static content pages.
type PageRepository interface {
	GetByURL(ctx context.Context, url string) (models.Page, error)
}

type pageRepository struct {
	db *gorm.DB
}

// NewPageRepository instantiates the repository.
func NewPageRepository(db *gorm.DB) PageRepository {
	return &pageRepository{db: db}
}

func (r *pageRepository) GetByURL(ctx context.Context, url string) (models.Page, error) {
	var page models.Page
	if err := r.db.WithContext(ctx).Where("url = ?", url).First(&page).Error; err != nil {
		return models.Page{}, err
	}
	return page, nil
}
