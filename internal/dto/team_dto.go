package dto

import "github.com/ksicht/ksicht-api/internal/models"

// TeamMemberCreateRequest adds an organiser to the team page.
type TeamMemberCreateRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Role         string `json:"role" validate:"max=150"`
	Bio          string `json:"bio" validate:"required,max=5000"`
	ImageURL     string `json:"image_url" validate:"required,url,max=512"`
	Position     int    `json:"position" validate:"gte=0"`
	URLFacebook  string `json:"url_facebook" validate:"omitempty,url,max=200"`
	URLInstagram string `json:"url_instagram" validate:"omitempty,url,max=200"`
	URLOther     string `json:"url_other" validate:"omitempty,url,max=200"`
}

// TeamMemberUpdateRequest captures partial roster updates.
type TeamMemberUpdateRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=255"`
	Role         *string `json:"role" validate:"omitempty,max=150"`
	Bio          *string `json:"bio" validate:"omitempty,min=1,max=5000"`
	ImageURL     *string `json:"image_url" validate:"omitempty,url,max=512"`
	Position     *int    `json:"position" validate:"omitempty,gte=0"`
	URLFacebook  *string `json:"url_facebook" validate:"omitempty,url,max=200"`
	URLInstagram *string `json:"url_instagram" validate:"omitempty,url,max=200"`
	URLOther     *string `json:"url_other" validate:"omitempty,url,max=200"`
}

// TeamMemberResponse serializes a roster entry.
type TeamMemberResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Bio          string `json:"bio"`
	ImageURL     string `json:"image_url"`
	Position     int    `json:"position"`
	URLFacebook  string `json:"url_facebook,omitempty"`
	URLInstagram string `json:"url_instagram,omitempty"`
	URLOther     string `json:"url_other,omitempty"`
}

// NewTeamMemberResponse converts a team member model into a DTO.
func NewTeamMemberResponse(model models.TeamMember) TeamMemberResponse {
	return TeamMemberResponse{
		ID:           model.ID,
		Name:         model.Name,
		Role:         model.Role,
		Bio:          model.Bio,
		ImageURL:     model.ImageURL,
		Position:     model.Position,
		URLFacebook:  model.URLFacebook,
		URLInstagram: model.URLInstagram,
		URLOther:     model.URLOther,
	}
}
