package dto

import (
	"sort"

	"github.com/google/uuid"

	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/ranking"
)

// RankingTask is a column of the results table.
type RankingTask struct {
	ID           uuid.UUID `json:"id"`
	SeriesNumber int       `json:"series_number"`
	Number       int       `json:"number"`
	Title        string    `json:"title"`
	Points       int       `json:"points"`
}

// RankingRow is one ranked application. Scores line up with RankingResponse.Tasks.
type RankingRow struct {
	Rank            int        `json:"rank"`
	ApplicationID   uint       `json:"application_id"`
	ParticipantID   uint       `json:"participant_id"`
	ParticipantName string     `json:"participant_name"`
	School          string     `json:"school"`
	SchoolYear      *string    `json:"school_year"`
	Scores          []*float64 `json:"scores"`
	Total           float64    `json:"total"`
}

// RankingResponse is the cumulative results table of a series.
type RankingResponse struct {
	GradeID      uuid.UUID     `json:"grade_id"`
	SeriesID     uuid.UUID     `json:"series_id"`
	SeriesNumber int           `json:"series_number"`
	MaxScore     float64       `json:"max_score"`
	Tasks        []RankingTask `json:"tasks"`
	Listing      []RankingRow  `json:"listing"`
}

// NewRankingResponse flattens an engine result into table form with tasks ordered by series and number.
func NewRankingResponse(series models.Series, tasks []models.Task, result ranking.Result) RankingResponse {
	ordered := make([]models.Task, len(tasks))
	copy(ordered, tasks)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SeriesNumber() != ordered[j].SeriesNumber() {
			return ordered[i].SeriesNumber() < ordered[j].SeriesNumber()
		}
		return ordered[i].Number < ordered[j].Number
	})

	columns := make([]RankingTask, 0, len(ordered))
	for _, task := range ordered {
		columns = append(columns, RankingTask{
			ID:           task.ID,
			SeriesNumber: task.SeriesNumber(),
			Number:       task.Number,
			Title:        task.Title,
			Points:       task.Points,
		})
	}

	listing := make([]RankingRow, 0, len(result.Listing))
	for _, row := range result.Listing {
		scores := make([]*float64, len(ordered))
		for i, task := range ordered {
			scores[i] = row.Scores[task.ID]
		}

		participant := row.Application.Participant
		listing = append(listing, RankingRow{
			Rank:            row.Rank,
			ApplicationID:   row.Application.ID,
			ParticipantID:   row.Application.ParticipantID,
			ParticipantName: participant.FullName(),
			School:          participant.SchoolName(),
			SchoolYear:      row.Application.ParticipantCurrentGrade,
			Scores:          scores,
			Total:           row.Total,
		})
	}

	return RankingResponse{
		GradeID:      series.GradeID,
		SeriesID:     series.ID,
		SeriesNumber: series.Number,
		MaxScore:     result.MaxScore,
		Tasks:        columns,
		Listing:      listing,
	}
}
