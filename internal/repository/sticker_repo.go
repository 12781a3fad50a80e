package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// StickerRepository reads the sticker catalogue.
type StickerRepository interface {
	List(ctx context.Context) ([]models.Sticker, error)
	ListByNumbers(ctx context.Context, numbers []int) ([]models.Sticker, error)
}

type stickerRepository struct {
	db *gorm.DB
}

// NewStickerRepository instantiates the repository.
func NewStickerRepository(db *gorm.DB) StickerRepository {
	return &stickerRepository{db: db}
}

func (r *stickerRepository) List(ctx context.Context) ([]models.Sticker, error) {
	var stickers []models.Sticker
	if err := r.db.WithContext(ctx).Order("number ASC").Find(&stickers).Error; err != nil {
		return nil, err
	}
	return stickers, nil
}

func (r *stickerRepository) ListByNumbers(ctx context.Context, numbers []int) ([]models.Sticker, error) {
	stickers := []models.Sticker{}
	if len(numbers) == 0 {
		return stickers, nil
	}
	if err := r.db.WithContext(ctx).Where("number IN ?", numbers).Order("number ASC").Find(&stickers).Error; err != nil {
		return nil, err
	}
	return stickers, nil
}
