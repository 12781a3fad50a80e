package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	SeriesID      *uuid.UUID
	TaskID        *uuid.UUID
	ApplicationID *uint
	Graded        *bool
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	ListByGradeUpTo(ctx context.Context, gradeID uuid.UUID, number int) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByApplicationAndTask(ctx context.Context, applicationID uint, taskID uuid.UUID) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	ReplaceStickers(ctx context.Context, submission *models.Submission, stickers []models.Sticker) error
	Delete(ctx context.Context, id uint) error
	CountByTasks(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Application").
		Preload("Application.Participant").
		Preload("Application.Participant.User").
		Preload("Task").
		Preload("Task.Series").
		Preload("Stickers")
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.baseQuery(ctx)

	if filter.SeriesID != nil {
		query = query.Where("task_id IN (?)", r.db.Model(&models.Task{}).Select("id").Where("series_id = ?", *filter.SeriesID))
	}

	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}

	if filter.ApplicationID != nil {
		query = query.Where("application_id = ?", *filter.ApplicationID)
	}

	if filter.Graded != nil {
		if *filter.Graded {
			query = query.Where("score IS NOT NULL")
		} else {
			query = query.Where("score IS NULL")
		}
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at ASC, id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// ListByGradeUpTo returns every submission to tasks of series numbered up to number.
func (r *submissionRepository) ListByGradeUpTo(ctx context.Context, gradeID uuid.UUID, number int) ([]models.Submission, error) {
	tasks := r.db.Model(&models.Task{}).
		Select("tasks.id").
		Joins("JOIN series ON series.id = tasks.series_id").
		Where("series.grade_id = ? AND series.number <= ?", gradeID, number)

	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Task").
		Preload("Task.Series").
		Where("task_id IN (?)", tasks).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByApplicationAndTask(ctx context.Context, applicationID uint, taskID uuid.UUID) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).
		Where("application_id = ? AND task_id = ?", applicationID, taskID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	err := r.db.WithContext(ctx).Omit("Application", "Task", "Stickers").Create(submission).Error
	return translateWriteError(err)
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Model(submission).
		Select("FileKey", "ExportNormalKey", "ExportDuplexKey", "Score").
		Updates(submission).Error
}

func (r *submissionRepository) ReplaceStickers(ctx context.Context, submission *models.Submission, stickers []models.Sticker) error {
	association := r.db.WithContext(ctx).Model(submission).Association("Stickers")
	if len(stickers) == 0 {
		return association.Clear()
	}
	return association.Replace(stickers)
}

func (r *submissionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM submission_stickers WHERE submission_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Submission{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// CountByTasks returns the number of submissions per task. Tasks without submissions are omitted.
func (r *submissionRepository) CountByTasks(ctx context.Context, taskIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(taskIDs))
	if len(taskIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		TaskID uuid.UUID
		Total  int64
	}
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("task_id, COUNT(*) AS total").
		Where("task_id IN ?", taskIDs).
		Group("task_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.TaskID] = row.Total
	}
	return counts, nil
}
