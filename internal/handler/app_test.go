package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/blob"
	"github.com/ksicht/ksicht-api/internal/config"
	"github.com/ksicht/ksicht-api/internal/database"
	"github.com/ksicht/ksicht-api/internal/handler"
	"github.com/ksicht/ksicht-api/internal/middleware"
	"github.com/ksicht/ksicht-api/internal/models"
	"github.com/ksicht/ksicht-api/internal/repository"
	"github.com/ksicht/ksicht-api/internal/router"
	"github.com/ksicht/ksicht-api/internal/service"
)

const testSecret = "handler-secret"

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type stubBrochures struct{}

func (stubBrochures) Upload(_ context.Context, name string, _ io.Reader) (string, error) {
	return "https://files.test/" + name, nil
}

type envelope[T any] struct {
	Success bool              `json:"success"`
	Data    T                 `json:"data"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

type testApp struct {
	app   *fiber.App
	db    *gorm.DB
	store *blob.MemoryStore
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	store := blob.NewMemoryStore()

	gradeRepo := repository.NewGradeRepository(db)
	seriesRepo := repository.NewSeriesRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	rankingService := service.NewRankingService(seriesRepo, taskRepo, applicationRepo, submissionRepo, cache, time.Minute, logger)
	gradeService := service.NewGradeService(gradeRepo, seriesRepo, validate, activityService, logger)
	seriesService := service.NewSeriesService(service.SeriesServiceConfig{
		Series:      seriesRepo,
		Tasks:       taskRepo,
		Submissions: submissionRepo,
		Attachments: repository.NewSeriesAttachmentRepository(db),
		Store:       store,
		Brochures:   stubBrochures{},
		Rankings:    rankingService,
		Activity:    activityService,
		Validator:   validate,
		MaxUpload:   1 << 20,
	}, logger)
	submissionService := service.NewSubmissionService(service.SubmissionServiceConfig{
		Submissions:  submissionRepo,
		Tasks:        taskRepo,
		Series:       seriesRepo,
		Applications: applicationRepo,
		Stickers:     repository.NewStickerRepository(db),
		Store:        store,
		Rankings:     rankingService,
		Activity:     activityService,
		Validator:    validate,
		MaxUpload:    1 << 20,
	}, logger)
	exportService := service.NewExportService(submissionRepo, store, nil, activityService, logger)
	participantService := service.NewParticipantService(participantRepo, applicationRepo, gradeRepo, rankingService, validate, activityService, logger)
	eventService := service.NewEventService(repository.NewEventRepository(db), participantRepo, validate, activityService, logger)
	pageService := service.NewPageService(repository.NewPageRepository(db), logger)
	teamService := service.NewTeamService(repository.NewTeamMemberRepository(db), validate, activityService, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", JWTSecret: testSecret}, router.Dependencies{
		GradeHandler:       handler.NewGradeHandler(gradeService, seriesService, logger),
		SeriesHandler:      handler.NewSeriesHandler(seriesService, logger),
		RankingHandler:     handler.NewRankingHandler(rankingService, logger),
		SubmissionHandler:  handler.NewSubmissionHandler(submissionService, exportService, validate, logger),
		ParticipantHandler: handler.NewParticipantHandler(participantService, logger),
		EventHandler:       handler.NewEventHandler(eventService, logger),
		PageHandler:        handler.NewPageHandler(pageService, logger),
		ActivityHandler:    handler.NewActivityHandler(activityService, logger),
		TeamHandler:        handler.NewTeamHandler(teamService, logger),
	})

	return &testApp{app: app, db: db, store: store}
}

func token(t *testing.T, userID uint, role string, groups ...string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  fmt.Sprint(userID),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if len(groups) > 0 {
		claims["groups"] = groups
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (a *testApp) do(t *testing.T, method, path, bearer string, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (a *testApp) upload(t *testing.T, path, bearer string, fields map[string]string, content []byte) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("file", "reseni.pdf")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(fiber.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func seedParticipant(t *testing.T, db *gorm.DB, id uint, firstName, lastName string) {
	t.Helper()

	user := models.User{ID: id, Email: fmt.Sprintf("user%d@example.com", id), FirstName: firstName, LastName: lastName}
	require.NoError(t, db.Create(&user).Error)
	participant := models.Participant{
		UserID:     id,
		Street:     "Náměstí 1",
		City:       "Brno",
		ZipCode:    "60200",
		Country:    "cz",
		School:     "Gymnázium Brno",
		SchoolYear: models.SchoolYearSecond,
	}
	require.NoError(t, db.Omit("User").Create(&participant).Error)
}

// gradePayload describes a grade running from a month ago with deadlines ten days apart from now on.
func gradePayload(now time.Time) map[string]interface{} {
	series := make([]map[string]interface{}, 0, models.SeriesPerGrade)
	for number := 1; number <= models.SeriesPerGrade; number++ {
		tasks := make([]map[string]interface{}, 0, models.TasksPerSeries)
		for n := 1; n <= models.TasksPerSeries; n++ {
			tasks = append(tasks, map[string]interface{}{"title": fmt.Sprintf("Úloha %d", n), "points": 5})
		}
		series = append(series, map[string]interface{}{
			"submission_deadline": now.AddDate(0, 0, 10*number).UTC().Format(time.RFC3339),
			"tasks":               tasks,
		})
	}
	return map[string]interface{}{
		"school_year": "2099/2100",
		"start_date":  models.DateOf(now.AddDate(0, -1, 0)).Format(time.RFC3339),
		"end_date":    models.DateOf(now.AddDate(0, 10, 0)).Format(time.RFC3339),
		"series":      series,
	}
}
