package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/dto"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/observability"
	"github.com/ksicht/ksicht-api/internal/ranking"
	"github.com/ksicht/ksicht-api/internal/repository"
)

// ErrResultsNotPublished indicates a series whose results are still hidden from participants.
var ErrResultsNotPublished = errors.New("series results are not published")

// RankingOptions tunes a ranking computation. The caches let callers ranking
// several series of one grade fetch the shared data only once.
type RankingOptions struct {
	// IncludeSubmissionless keeps applications without any submission.
	// It has no effect when Applications is supplied.
	IncludeSubmissionless bool
	// Applications replaces the application lookup when non-nil.
	Applications []models.Application
	// Tasks replaces the task lookup when non-empty. A grade always has tasks,
	// so an empty slice, nil or not, still loads them, unlike the other two.
	Tasks []models.Task
	// Submissions replaces the submission lookup when non-nil. They are
	// filtered to the cumulative series range again, so a grade-wide slice is fine.
	Submissions []models.Submission
}

func (o RankingOptions) cached() bool {
	return o.Applications != nil || len(o.Tasks) > 0 || o.Submissions != nil
}

// RankingQuery selects a results table.
type RankingQuery struct {
	IncludeSubmissionless bool
	// PublishedOnly hides series whose results are not published yet.
	PublishedOnly bool
}

// RankingInvalidator drops cached rankings of a grade after its scores change.
type RankingInvalidator interface {
	InvalidateGrade(ctx context.Context, gradeID uuid.UUID)
}

// RankingService computes series results and resolves who takes part in a series.
type RankingService interface {
	RankingInvalidator
	Compute(ctx context.Context, seriesID uuid.UUID, opts RankingOptions) (ranking.Result, error)
	Rankings(ctx context.Context, seriesID uuid.UUID, query RankingQuery) (dto.RankingResponse, error)
	GradeRankings(ctx context.Context, gradeID uuid.UUID, query RankingQuery) ([]dto.RankingResponse, error)
	ActiveParticipants(ctx context.Context, seriesID uuid.UUID) ([]models.Participant, error)
}

type rankingService struct {
	series       repository.SeriesRepository
	tasks        repository.TaskRepository
	applications repository.ApplicationRepository
	submissions  repository.SubmissionRepository
	cache        *redis.Client
	cacheTTL     time.Duration
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewRankingService builds the ranking service. A nil cache disables result caching.
func NewRankingService(
	series repository.SeriesRepository,
	tasks repository.TaskRepository,
	applications repository.ApplicationRepository,
	submissions repository.SubmissionRepository,
	cache *redis.Client,
	ttl time.Duration,
	logger zerolog.Logger,
) RankingService {
	return &rankingService{
		series:       series,
		tasks:        tasks,
		applications: applications,
		submissions:  submissions,
		cache:        cache,
		cacheTTL:     ttl,
		logger:       logger.With().Str("component", "ranking_service").Logger(),
		tracer:       otel.Tracer("github.com/ksicht/ksicht-api/internal/service/ranking"),
	}
}

func (s *rankingService) Compute(ctx context.Context, seriesID uuid.UUID, opts RankingOptions) (ranking.Result, error) {
	series, err := s.loadSeries(ctx, seriesID)
	if err != nil {
		return ranking.Result{}, err
	}

	_, result, err := s.compute(ctx, series, opts)
	return result, err
}

func (s *rankingService) compute(ctx context.Context, series models.Series, opts RankingOptions) ([]models.Task, ranking.Result, error) {
	ctx, span := s.tracer.Start(ctx, "ranking.compute")
	defer span.End()
	span.SetAttributes(
		attribute.String("ranking.series_id", series.ID.String()),
		attribute.Int("ranking.series_number", series.Number),
		attribute.Bool("ranking.cached_input", opts.cached()),
	)

	start := time.Now()
	source := "fetched"
	if opts.cached() {
		source = "cached_input"
	}
	defer func() {
		observability.RankingCompute().WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	fail := func(err error, status string) ([]models.Task, ranking.Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return nil, ranking.Result{}, err
	}

	applications := opts.Applications
	if applications == nil {
		var err error
		if opts.IncludeSubmissionless {
			applications, err = s.applications.ListByGrade(ctx, series.GradeID)
		} else {
			applications, err = s.applications.ListWithSubmissions(ctx, series.GradeID)
		}
		if err != nil {
			return fail(err, "applications_lookup_failed")
		}
	}

	tasks := opts.Tasks
	if len(tasks) == 0 {
		var err error
		tasks, err = s.tasks.ListBySeries(ctx, series.ID)
		if err != nil {
			return fail(err, "tasks_lookup_failed")
		}
	}

	var submissions []models.Submission
	if opts.Submissions == nil {
		var err error
		submissions, err = s.submissions.ListByGradeUpTo(ctx, series.GradeID, series.Number)
		if err != nil {
			return fail(err, "submissions_lookup_failed")
		}
	} else {
		var err error
		submissions, err = ranking.Cumulative(opts.Submissions, series.Number)
		if err != nil {
			return fail(err, "submissions_filter_failed")
		}
	}

	maxScore, err := s.tasks.SumPoints(ctx, series.GradeID, series.Number)
	if err != nil {
		return fail(err, "max_score_failed")
	}

	result, err := ranking.Aggregate(ranking.Input{
		Series:       series,
		Tasks:        tasks,
		Applications: applications,
		Submissions:  submissions,
		MaxScore:     maxScore,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("series_id", series.ID.String()).Msg("ranking aggregation failed")
		return fail(err, "aggregation_failed")
	}

	span.SetAttributes(
		attribute.Int("ranking.applications", len(applications)),
		attribute.Int("ranking.submissions", len(submissions)),
	)
	return tasks, result, nil
}

func (s *rankingService) Rankings(ctx context.Context, seriesID uuid.UUID, query RankingQuery) (dto.RankingResponse, error) {
	series, err := s.loadSeries(ctx, seriesID)
	if err != nil {
		return dto.RankingResponse{}, err
	}
	if query.PublishedOnly && !series.ResultsPublished {
		return dto.RankingResponse{}, ErrResultsNotPublished
	}

	cacheKey := s.cacheKey(ctx, series, query.IncludeSubmissionless)
	if response, ok := s.readCache(ctx, cacheKey); ok {
		return response, nil
	}

	tasks, result, err := s.compute(ctx, series, RankingOptions{IncludeSubmissionless: query.IncludeSubmissionless})
	if err != nil {
		return dto.RankingResponse{}, err
	}

	response := dto.NewRankingResponse(series, tasks, result)
	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

// GradeRankings ranks every series of a grade, sharing applications and submissions between the series.
func (s *rankingService) GradeRankings(ctx context.Context, gradeID uuid.UUID, query RankingQuery) ([]dto.RankingResponse, error) {
	series, err := s.series.ListByGrade(ctx, gradeID)
	if err != nil {
		return nil, err
	}

	var applications []models.Application
	if query.IncludeSubmissionless {
		applications, err = s.applications.ListByGrade(ctx, gradeID)
	} else {
		applications, err = s.applications.ListWithSubmissions(ctx, gradeID)
	}
	if err != nil {
		return nil, err
	}

	submissions, err := s.submissions.ListByGradeUpTo(ctx, gradeID, models.SeriesPerGrade)
	if err != nil {
		return nil, err
	}
	if submissions == nil {
		submissions = []models.Submission{}
	}

	responses := make([]dto.RankingResponse, 0, len(series))
	for _, current := range series {
		if query.PublishedOnly && !current.ResultsPublished {
			continue
		}

		tasks, result, err := s.compute(ctx, current, RankingOptions{
			Applications: applications,
			Submissions:  submissions,
		})
		if err != nil {
			return nil, err
		}
		responses = append(responses, dto.NewRankingResponse(current, tasks, result))
	}

	return responses, nil
}

// ActiveParticipants lists participants taking part in a series: everyone who
// has submitted anything in the grade plus, past the first series, everyone who
// applied after the previous series closed.
func (s *rankingService) ActiveParticipants(ctx context.Context, seriesID uuid.UUID) ([]models.Participant, error) {
	ctx, span := s.tracer.Start(ctx, "ranking.active_participants")
	defer span.End()

	target, err := s.loadSeries(ctx, seriesID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	all, err := s.series.ListByGrade(ctx, target.GradeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	models.SortSeriesByNumber(all)

	index := -1
	for i := range all {
		if all[i].ID == target.ID {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrSeriesNotFound
	}

	applications, err := s.applications.ListWithSubmissions(ctx, target.GradeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if index > 0 {
		previous := all[index-1]
		late, err := s.applications.ListCreatedBetween(ctx, target.GradeID, previous.SubmissionDeadline, target.SubmissionDeadline)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		applications = append(applications, late...)
	}

	seen := make(map[uint]struct{}, len(applications))
	unique := make([]models.Application, 0, len(applications))
	for _, application := range applications {
		if _, ok := seen[application.ID]; ok {
			continue
		}
		seen[application.ID] = struct{}{}
		unique = append(unique, application)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		if !unique[i].CreatedAt.Equal(unique[j].CreatedAt) {
			return unique[i].CreatedAt.Before(unique[j].CreatedAt)
		}
		return unique[i].ID < unique[j].ID
	})

	participants := make([]models.Participant, 0, len(unique))
	for _, application := range unique {
		participants = append(participants, application.Participant)
	}

	span.SetAttributes(attribute.Int("ranking.active_participants", len(participants)))
	return participants, nil
}

// InvalidateGrade bumps the grade version so cached rankings of every series stop matching.
func (s *rankingService) InvalidateGrade(ctx context.Context, gradeID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, gradeVersionKey(gradeID)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("grade_id", gradeID.String()).Msg("failed to invalidate ranking cache")
	}
}

func (s *rankingService) loadSeries(ctx context.Context, seriesID uuid.UUID) (models.Series, error) {
	series, err := s.series.GetByID(ctx, seriesID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Series{}, ErrSeriesNotFound
		}
		return models.Series{}, err
	}
	return series, nil
}

func (s *rankingService) cacheKey(ctx context.Context, series models.Series, includeSubmissionless bool) string {
	if s.cache == nil {
		return ""
	}

	version, err := s.cache.Get(ctx, gradeVersionKey(series.GradeID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("failed to read ranking cache version")
		return ""
	}

	scope := "active"
	if includeSubmissionless {
		scope = "all"
	}
	return fmt.Sprintf("rankings:grade:%s:v%d:series:%s:%s", series.GradeID, version, series.ID, scope)
}

func (s *rankingService) readCache(ctx context.Context, key string) (dto.RankingResponse, bool) {
	if key == "" {
		return dto.RankingResponse{}, false
	}

	cached, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observability.RankingCache().WithLabelValues("miss").Inc()
		} else {
			observability.RankingCache().WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Msg("failed to read ranking cache")
		}
		return dto.RankingResponse{}, false
	}

	var response dto.RankingResponse
	if err := json.Unmarshal(cached, &response); err != nil {
		observability.RankingCache().WithLabelValues("error").Inc()
		return dto.RankingResponse{}, false
	}

	observability.RankingCache().WithLabelValues("hit").Inc()
	s.logger.Debug().Str("key", key).Msg("ranking cache hit")
	return response, true
}

func (s *rankingService) writeCache(ctx context.Context, key string, response dto.RankingResponse) {
	if key == "" {
		return
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store ranking cache")
	}
}

func gradeVersionKey(gradeID uuid.UUID) string {
	return fmt.Sprintf("rankings:grade:%s:version", gradeID)
}
