package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// TaskRepository defines data operations for tasks.
type TaskRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (models.Task, error)
	ListBySeries(ctx context.Context, seriesID uuid.UUID) ([]models.Task, error)
	ListByGradeUpTo(ctx context.Context, gradeID uuid.UUID, number int) ([]models.Task, error)
	SumPoints(ctx context.Context, gradeID uuid.UUID, number int) (float64, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	HasSubmissions(ctx context.Context, taskID uuid.UUID) (bool, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository instantiates the repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).Preload("Series").First(&task, "id = ?", id).Error; err != nil {
		return models.Task{}, err
	}

	return task, nil
}

func (r *taskRepository) ListBySeries(ctx context.Context, seriesID uuid.UUID) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Preload("Series").
		Where("series_id = ?", seriesID).
		Order("number ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// ListByGradeUpTo returns tasks of series numbered up to number, in series then task order.
func (r *taskRepository) ListByGradeUpTo(ctx context.Context, gradeID uuid.UUID, number int) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Preload("Series").
		Joins("JOIN series ON series.id = tasks.series_id").
		Where("series.grade_id = ? AND series.number <= ?", gradeID, number).
		Order("series.number ASC, tasks.number ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// SumPoints returns the maximum attainable score of the cumulative series range.
func (r *taskRepository) SumPoints(ctx context.Context, gradeID uuid.UUID, number int) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Select("COALESCE(SUM(tasks.points), 0)").
		Joins("JOIN series ON series.id = tasks.series_id").
		Where("series.grade_id = ? AND series.number <= ?", gradeID, number).
		Scan(&total).Error
	return total, err
}

func (r *taskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Model(task).Select("Title", "Points").Updates(task).Error
}

func (r *taskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *taskRepository) HasSubmissions(ctx context.Context, taskID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).Where("task_id = ?", taskID).Count(&count).Error
	return count > 0, err
}
