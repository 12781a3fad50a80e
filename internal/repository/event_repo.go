package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/models"
)

// EventFilter narrows event listings.
type EventFilter struct {
	// UserID limits private events to those visible to the user. Zero means anonymous.
	UserID uint
	// Privileged users see every event.
	Privileged bool
	Future     bool
	Past       bool
	Today      time.Time
}

// EventRepository defines data operations for events and their attendees.
type EventRepository interface {
	List(ctx context.Context, filter EventFilter) ([]models.Event, error)
	GetByID(ctx context.Context, id uint) (models.Event, error)
	CountAttendees(ctx context.Context, eventID uint) (int64, error)
	CreateAttendee(ctx context.Context, attendee *models.EventAttendee) error
	ListAttendees(ctx context.Context, eventID uint) ([]models.EventAttendee, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository instantiates the repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{}).Preload("RewardStickers")

	if !filter.Privileged {
		visible := r.db.Table("event_visible_users").Select("event_id").Where("user_id = ?", filter.UserID)
		query = query.Where("is_public = ? OR id IN (?)", true, visible)
	}

	today := models.DateOf(filter.Today)
	switch {
	case filter.Future:
		query = query.Where("end_date >= ?", today).Order("start_date ASC")
	case filter.Past:
		query = query.Where("end_date < ?", today).Order("start_date DESC")
	default:
		query = query.Order("start_date DESC")
	}

	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id uint) (models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).
		Preload("VisibleTo").
		Preload("RewardStickers").
		First(&event, id).Error; err != nil {
		return models.Event{}, err
	}

	return event, nil
}

func (r *eventRepository) CountAttendees(ctx context.Context, eventID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EventAttendee{}).Where("event_id = ?", eventID).Count(&count).Error
	return count, err
}

func (r *eventRepository) CreateAttendee(ctx context.Context, attendee *models.EventAttendee) error {
	return translateWriteError(r.db.WithContext(ctx).Omit("User").Create(attendee).Error)
}

func (r *eventRepository) ListAttendees(ctx context.Context, eventID uint) ([]models.EventAttendee, error) {
	var attendees []models.EventAttendee
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ?", eventID).
		Order("signup_date ASC, id ASC").
		Find(&attendees).Error; err != nil {
		return nil, err
	}

	return attendees, nil
}
