package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// GradeRepository persists competition years together with their series.
type GradeRepository interface {
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Grade, error)
	List(ctx context.Context) ([]models.Grade, error)
	Current(ctx context.Context, day time.Time) (models.Grade, error)
	Archive(ctx context.Context, day time.Time) ([]models.Grade, error)
}

type gradeRepository struct {
	db *gorm.DB
}

// NewGradeRepository instantiates the repository.
func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Grade{}).
		Preload("Series", func(db *gorm.DB) *gorm.DB { return db.Order("number ASC") })
}

// Create stores the grade along with any series and tasks attached to it.
func (r *gradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	return translateWriteError(r.db.WithContext(ctx).Create(grade).Error)
}

func (r *gradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	err := r.db.WithContext(ctx).Model(grade).
		Select("SchoolYear", "Errata", "StartDate", "EndDate").
		Updates(grade).Error
	return translateWriteError(err)
}

func (r *gradeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seriesIDs := tx.Model(&models.Series{}).Select("id").Where("grade_id = ?", id)
		if err := tx.Where("series_id IN (?)", seriesIDs).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("series_id IN (?)", seriesIDs).Delete(&models.SeriesAttachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("grade_id = ?", id).Delete(&models.Series{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Grade{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *gradeRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Grade, error) {
	var grade models.Grade
	if err := r.baseQuery(ctx).First(&grade, "id = ?", id).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

func (r *gradeRepository) List(ctx context.Context) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.db.WithContext(ctx).Order("start_date DESC").Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}

// Current returns the grade whose date range contains day.
func (r *gradeRepository) Current(ctx context.Context, day time.Time) (models.Grade, error) {
	d := models.DateOf(day)

	var grade models.Grade
	if err := r.baseQuery(ctx).
		Where("start_date <= ? AND end_date >= ?", d, d).
		Order("start_date DESC").
		First(&grade).Error; err != nil {
		return models.Grade{}, err
	}

	return grade, nil
}

// Archive lists grades that ended before day.
func (r *gradeRepository) Archive(ctx context.Context, day time.Time) ([]models.Grade, error) {
	var grades []models.Grade
	if err := r.db.WithContext(ctx).
		Where("end_date < ?", models.DateOf(day)).
		Order("start_date DESC").
		Find(&grades).Error; err != nil {
		return nil, err
	}

	return grades, nil
}
