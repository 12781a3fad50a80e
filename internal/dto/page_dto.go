package dto

import "github.com/ksicht/ksicht-api/internal/models"

// PageResponse serializes a content page.
type PageResponse struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Keywords    string `json:"keywords"`
	Description string `json:"description"`
}

// NewPageResponse converts a page model into a DTO.
func NewPageResponse(page models.Page) PageResponse {
	return PageResponse{
		URL:         page.URL,
		Title:       page.Title,
		Content:     page.Content,
		Keywords:    page.Keywords,
		Description: page.Description,
	}
}
