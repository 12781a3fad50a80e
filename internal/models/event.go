package models

import "time"

// Event is an auxiliary happening (camp, excursion, lecture) participants may enlist to.
type Event struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Title              string          `gorm:"size:150;not null" json:"title"`
	Description        string          `gorm:"type:text" json:"description"`
	Place              *string         `gorm:"size:150" json:"place"`
	StartDate          time.Time       `gorm:"type:date;index;not null" json:"start_date"`
	EndDate            time.Time       `gorm:"type:date;index;not null" json:"end_date"`
	Capacity           *int            `json:"capacity"`
	EnlistmentMessage  string          `gorm:"type:text" json:"enlistment_message"`
	EnlistmentEnabled  bool            `gorm:"not null;default:false" json:"enlistment_enabled"`
	RequireBirthDate   bool            `gorm:"not null;default:false" json:"require_birth_date"`
	RequirePhoneNumber bool            `gorm:"not null;default:false" json:"require_phone_number"`
	IsPublic           bool            `gorm:"not null;default:true" json:"is_public"`
	PublishOccupancy   bool            `gorm:"not null;default:true" json:"publish_occupancy"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	Attendees          []EventAttendee `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"attendees,omitempty"`
	VisibleTo          []User          `gorm:"many2many:event_visible_users" json:"-"`
	RewardStickers     []Sticker       `gorm:"many2many:event_reward_stickers" json:"reward_stickers,omitempty"`
}

// IsAcceptingEnlistments reports whether users may still sign up on the given day.
func (e Event) IsAcceptingEnlistments(today time.Time) bool {
	return e.EnlistmentEnabled && !DateOf(today).After(DateOf(e.EndDate))
}

// IsVisibleTo reports whether a private event lists the user among its audience.
func (e Event) IsVisibleTo(userID uint) bool {
	if e.IsPublic {
		return true
	}
	if userID == 0 {
		return false
	}
	for _, user := range e.VisibleTo {
		if user.ID == userID {
			return true
		}
	}
	return false
}

// EventAttendee records a user's enlistment with the contact details valid at that time.
type EventAttendee struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;uniqueIndex:idx_attendee_user_event" json:"user_id"`
	EventID       uint       `gorm:"not null;uniqueIndex:idx_attendee_user_event" json:"event_id"`
	SignupDate    time.Time  `gorm:"autoCreateTime" json:"signup_date"`
	UserBirthDate *time.Time `gorm:"type:date" json:"user_birth_date"`
	UserPhone     *string    `gorm:"size:20" json:"user_phone"`
	User          User       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user"`
}
