// Package ranking turns a snapshot of applications, tasks and submissions into
// cumulative series results. It performs no I/O; callers fetch the snapshot.
package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/ksicht/ksicht-api/internal/models"
)

var (
	// ErrUnknownApplication indicates a submission points to an application outside the scored population.
	ErrUnknownApplication = errors.New("submission references unknown application")
	// ErrMissingSeries indicates a submission was loaded without its task series.
	ErrMissingSeries = errors.New("submission task series not loaded")
)

// Input is the data snapshot for a single series.
type Input struct {
	Series       models.Series
	Tasks        []models.Task
	Applications []models.Application
	Submissions  []models.Submission
	MaxScore     float64
}

// Row is one ranked application. Scores holds a slot for every task of the
// input; a nil slot means either no submission or an ungraded one.
type Row struct {
	Application models.Application     `json:"application"`
	Rank        int                    `json:"rank"`
	Scores      map[uuid.UUID]*float64 `json:"scores"`
	Total       float64                `json:"total"`
}

// Result is the ranked listing of a series.
type Result struct {
	MaxScore float64 `json:"max_score"`
	Listing  []Row   `json:"listing"`
}

// Cumulative keeps submissions whose series number is at most number.
func Cumulative(submissions []models.Submission, number int) ([]models.Submission, error) {
	filtered := make([]models.Submission, 0, len(submissions))
	for _, submission := range submissions {
		if submission.Task.Series == nil {
			return nil, fmt.Errorf("%w: submission %d", ErrMissingSeries, submission.ID)
		}
		if submission.Task.Series.Number <= number {
			filtered = append(filtered, submission)
		}
	}
	return filtered, nil
}

// Aggregate sums submission scores per application and ranks the result.
//
// Every submission counts towards its application's total, but only
// submissions of tasks present in in.Tasks fill the per-task breakdown.
// Submissions are expected to be scoped to the cumulative series range already.
func Aggregate(in Input) (Result, error) {
	tasks := make(map[uuid.UUID]struct{}, len(in.Tasks))
	for _, task := range in.Tasks {
		tasks[task.ID] = struct{}{}
	}

	rows := make([]Row, len(in.Applications))
	index := make(map[uint]int, len(in.Applications))
	for i, application := range in.Applications {
		scores := make(map[uuid.UUID]*float64, len(in.Tasks))
		for _, task := range in.Tasks {
			scores[task.ID] = nil
		}
		rows[i] = Row{Application: application, Scores: scores}
		index[application.ID] = i
	}

	for _, submission := range in.Submissions {
		i, ok := index[submission.ApplicationID]
		if !ok {
			return Result{}, fmt.Errorf("%w: submission %d, application %d", ErrUnknownApplication, submission.ID, submission.ApplicationID)
		}

		if _, ok := tasks[submission.TaskID]; ok {
			rows[i].Scores[submission.TaskID] = submission.Score
		}
		if submission.Score != nil {
			rows[i].Total += *submission.Score
		}
	}

	for i := range rows {
		rows[i].Total = roundScore(rows[i].Total)
	}

	Rank(rows)

	return Result{MaxScore: in.MaxScore, Listing: rows}, nil
}

// Rank orders rows by total descending and numbers them from one.
// Equal totals keep their input order and still receive distinct ranks.
func Rank(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Total > rows[j].Total
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
}

// roundScore trims float noise; scores carry two decimal places.
func roundScore(value float64) float64 {
	return math.Round(value*100) / 100
}
