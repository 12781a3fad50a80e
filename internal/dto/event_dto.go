package dto

import (
	"time"

	"github.com/ksicht/ksicht-api/internal/models"
)

// EventListRequest selects which events to list.
type EventListRequest struct {
	When string `query:"when" validate:"omitempty,oneof=future past"`
}

// EventResponse serializes an event. Occupancy is present only when the event publishes it.
type EventResponse struct {
	ID                 uint      `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Place              *string   `json:"place"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	Capacity           *int      `json:"capacity"`
	Occupancy          *int64    `json:"occupancy,omitempty"`
	EnlistmentMessage  string    `json:"enlistment_message"`
	AcceptsEnlistments bool      `json:"accepts_enlistments"`
	RequireBirthDate   bool      `json:"require_birth_date"`
	RequirePhoneNumber bool      `json:"require_phone_number"`
	IsPublic           bool      `json:"is_public"`
}

// AttendeeResponse serializes an enlistment.
type AttendeeResponse struct {
	UserID     uint       `json:"user_id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	SignupDate time.Time  `json:"signup_date"`
	BirthDate  *time.Time `json:"birth_date"`
	Phone      *string    `json:"phone"`
}

// NewEventResponse converts an event model into a DTO.
func NewEventResponse(event models.Event, today time.Time) EventResponse {
	return EventResponse{
		ID:                 event.ID,
		Title:              event.Title,
		Description:        event.Description,
		Place:              event.Place,
		StartDate:          event.StartDate,
		EndDate:            event.EndDate,
		Capacity:           event.Capacity,
		EnlistmentMessage:  event.EnlistmentMessage,
		AcceptsEnlistments: event.IsAcceptingEnlistments(today),
		RequireBirthDate:   event.RequireBirthDate,
		RequirePhoneNumber: event.RequirePhoneNumber,
		IsPublic:           event.IsPublic,
	}
}

// NewAttendeeResponse converts an attendee model into a DTO.
func NewAttendeeResponse(attendee models.EventAttendee) AttendeeResponse {
	name := attendee.User.FullName()
	if name == "" {
		name = attendee.User.Email
	}
	return AttendeeResponse{
		UserID:     attendee.UserID,
		Name:       name,
		Email:      attendee.User.Email,
		SignupDate: attendee.SignupDate,
		BirthDate:  attendee.UserBirthDate,
		Phone:      attendee.UserPhone,
	}
}
