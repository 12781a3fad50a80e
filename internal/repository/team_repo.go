package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// TeamMemberRepository manages the public organiser roster.
type TeamMemberRepository interface {
	List(ctx context.Context) ([]models.TeamMember, error)
	GetByID(ctx context.Context, id uint) (models.TeamMember, error)
	Create(ctx context.Context, member *models.TeamMember) error
	Update(ctx context.Context, member *models.TeamMember) error
	Delete(ctx context.Context, id uint) error
}

type teamMemberRepository struct {
	db *gorm.DB
}

// NewTeamMemberRepository instantiates the repository.
func NewTeamMemberRepository(db *gorm.DB) TeamMemberRepository {
	return &teamMemberRepository{db: db}
}

// List returns the roster by position, then by insertion.
func (r *teamMemberRepository) List(ctx context.Context) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := r.db.WithContext(ctx).Order("position ASC, id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *teamMemberRepository) GetByID(ctx context.Context, id uint) (models.TeamMember, error) {
	var member models.TeamMember
	if err := r.db.WithContext(ctx).First(&member, id).Error; err != nil {
		return models.TeamMember{}, err
	}
	return member, nil
}

func (r *teamMemberRepository) Create(ctx context.Context, member *models.TeamMember) error {
	return translateWriteError(r.db.WithContext(ctx).Create(member).Error)
}

func (r *teamMemberRepository) Update(ctx context.Context, member *models.TeamMember) error {
	return r.db.WithContext(ctx).Model(member).
		Select("Name", "Role", "Bio", "ImageURL", "Position", "URLFacebook", "URLInstagram", "URLOther").
		Updates(member).Error
}

func (r *teamMemberRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.TeamMember{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
