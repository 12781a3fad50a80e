package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// SeriesAttachmentRepository stores the supplementary files of series.
type SeriesAttachmentRepository interface {
	Create(ctx context.Context, attachment *models.SeriesAttachment) error
	GetByID(ctx context.Context, id uint) (models.SeriesAttachment, error)
	ListBySeries(ctx context.Context, seriesID uuid.UUID) ([]models.SeriesAttachment, error)
	Delete(ctx context.Context, id uint) error
}

type seriesAttachmentRepository struct {
	db *gorm.DB
}

// NewSeriesAttachmentRepository instantiates the repository.
func NewSeriesAttachmentRepository(db *gorm.DB) SeriesAttachmentRepository {
	return &seriesAttachmentRepository{db: db}
}

func (r *seriesAttachmentRepository) Create(ctx context.Context, attachment *models.SeriesAttachment) error {
	return translateWriteError(r.db.WithContext(ctx).Create(attachment).Error)
}

func (r *seriesAttachmentRepository) GetByID(ctx context.Context, id uint) (models.SeriesAttachment, error) {
	var attachment models.SeriesAttachment
	if err := r.db.WithContext(ctx).First(&attachment, id).Error; err != nil {
		return models.SeriesAttachment{}, err
	}
	return attachment, nil
}

// ListBySeries returns the attachments of a series ordered by title.
func (r *seriesAttachmentRepository) ListBySeries(ctx context.Context, seriesID uuid.UUID) ([]models.SeriesAttachment, error) {
	var attachments []models.SeriesAttachment
	if err := r.db.WithContext(ctx).
		Where("series_id = ?", seriesID).
		Order("title ASC, id ASC").
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *seriesAttachmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SeriesAttachment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
