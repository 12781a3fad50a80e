package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// ParticipantRepository defines data operations for participant profiles.
type ParticipantRepository interface {
	GetByUserID(ctx context.Context, userID uint) (models.Participant, error)
	ListByUserIDs(ctx context.Context, userIDs []uint) ([]models.Participant, error)
	UpdateSchoolYear(ctx context.Context, userID uint, schoolYear string) error
}

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository instantiates the repository.
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) GetByUserID(ctx context.Context, userID uint) (models.Participant, error) {
	var participant models.Participant
	if err := r.db.WithContext(ctx).Preload("User").First(&participant, "user_id = ?", userID).Error; err != nil {
		return models.Participant{}, err
	}

	return participant, nil
}

func (r *participantRepository) ListByUserIDs(ctx context.Context, userIDs []uint) ([]models.Participant, error) {
	var participants []models.Participant
	if len(userIDs) == 0 {
		return participants, nil
	}
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id IN ?", userIDs).
		Order("user_id ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}

	return participants, nil
}

func (r *participantRepository) UpdateSchoolYear(ctx context.Context, userID uint, schoolYear string) error {
	return r.db.WithContext(ctx).Model(&models.Participant{}).
		Where("user_id = ?", userID).
		Update("school_year", schoolYear).Error
}
