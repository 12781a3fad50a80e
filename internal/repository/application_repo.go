package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// ApplicationRepository defines data operations for grade applications.
type ApplicationRepository interface {
	Create(ctx context.Context, application *models.Application) error
	GetByID(ctx context.Context, id uint) (models.Application, error)
	GetByGradeAndParticipant(ctx context.Context, gradeID uuid.UUID, participantID uint) (models.Application, error)
	ListByGrade(ctx context.Context, gradeID uuid.UUID) ([]models.Application, error)
	ListWithSubmissions(ctx context.Context, gradeID uuid.UUID) ([]models.Application, error)
	ListCreatedBetween(ctx context.Context, gradeID uuid.UUID, after, until time.Time) ([]models.Application, error)
	PasteSchoolYear(ctx context.Context, gradeID uuid.UUID) (int64, error)
}

type applicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository instantiates the repository.
func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Application{}).
		Preload("Participant").
		Preload("Participant.User")
}

func (r *applicationRepository) Create(ctx context.Context, application *models.Application) error {
	return translateWriteError(r.db.WithContext(ctx).Omit("Participant", "Grade").Create(application).Error)
}

func (r *applicationRepository) GetByID(ctx context.Context, id uint) (models.Application, error) {
	var application models.Application
	if err := r.baseQuery(ctx).First(&application, "id = ?", id).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

func (r *applicationRepository) GetByGradeAndParticipant(ctx context.Context, gradeID uuid.UUID, participantID uint) (models.Application, error) {
	var application models.Application
	if err := r.baseQuery(ctx).
		Where("grade_id = ? AND participant_id = ?", gradeID, participantID).
		First(&application).Error; err != nil {
		return models.Application{}, err
	}

	return application, nil
}

// ListByGrade returns every application of the grade in enrolment order.
func (r *applicationRepository) ListByGrade(ctx context.Context, gradeID uuid.UUID) ([]models.Application, error) {
	var applications []models.Application
	if err := r.baseQuery(ctx).
		Where("grade_id = ?", gradeID).
		Order("created_at ASC, id ASC").
		Find(&applications).Error; err != nil {
		return nil, err
	}

	return applications, nil
}

// ListWithSubmissions returns applications of the grade with at least one submission.
func (r *applicationRepository) ListWithSubmissions(ctx context.Context, gradeID uuid.UUID) ([]models.Application, error) {
	submitted := r.db.Model(&models.Submission{}).Select("application_id")

	var applications []models.Application
	if err := r.baseQuery(ctx).
		Where("grade_id = ? AND id IN (?)", gradeID, submitted).
		Order("created_at ASC, id ASC").
		Find(&applications).Error; err != nil {
		return nil, err
	}

	return applications, nil
}

// ListCreatedBetween returns applications created in the half-open window (after, until].
func (r *applicationRepository) ListCreatedBetween(ctx context.Context, gradeID uuid.UUID, after, until time.Time) ([]models.Application, error) {
	var applications []models.Application
	if err := r.baseQuery(ctx).
		Where("grade_id = ? AND created_at > ? AND created_at <= ?", gradeID, after.UTC(), until.UTC()).
		Order("created_at ASC, id ASC").
		Find(&applications).Error; err != nil {
		return nil, err
	}

	return applications, nil
}

// PasteSchoolYear copies each participant's current school year into their application snapshot.
func (r *applicationRepository) PasteSchoolYear(ctx context.Context, gradeID uuid.UUID) (int64, error) {
	schoolYear := r.db.Model(&models.Participant{}).
		Select("school_year").
		Where("participants.user_id = applications.participant_id")

	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("grade_id = ?", gradeID).
		Update("participant_current_grade", schoolYear)
	return result.RowsAffected, result.Error
}
