package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// SeriesRepository defines data operations for series.
type SeriesRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Series, error)
	ListByGrade(ctx context.Context, gradeID uuid.UUID) ([]models.Series, error)
	Update(ctx context.Context, series *models.Series) error
	HasSubmissions(ctx context.Context, seriesID uuid.UUID) (bool, error)
}

type seriesRepository struct {
	db *gorm.DB
}

// NewSeriesRepository instantiates the repository.
func NewSeriesRepository(db *gorm.DB) SeriesRepository {
	return &seriesRepository{db: db}
}

func (r *seriesRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Series, error) {
	var series models.Series
	if err := r.db.WithContext(ctx).
		Preload("Grade").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") }).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("title ASC, id ASC") }).
		First(&series, "id = ?", id).Error; err != nil {
		return models.Series{}, err
	}

	return series, nil
}

// ListByGrade returns the series of a grade ordered by number.
func (r *seriesRepository) ListByGrade(ctx context.Context, gradeID uuid.UUID) ([]models.Series, error) {
	var series []models.Series
	if err := r.db.WithContext(ctx).
		Where("grade_id = ?", gradeID).
		Order("number ASC").
		Find(&series).Error; err != nil {
		return nil, err
	}

	return series, nil
}

func (r *seriesRepository) Update(ctx context.Context, series *models.Series) error {
	return r.db.WithContext(ctx).Model(series).
		Select("SubmissionDeadline", "TaskFile", "ResultsPublished").
		Updates(series).Error
}

func (r *seriesRepository) HasSubmissions(ctx context.Context, seriesID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Joins("JOIN tasks ON tasks.id = submissions.task_id").
		Where("tasks.series_id = ?", seriesID).
		Count(&count).Error
	return count > 0, err
}
