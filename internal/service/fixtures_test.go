package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/database"
	"github.com/ksicht/ksicht-api/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// gradeFixture is a grade with four series of five tasks, deadlines one month apart starting at base.
type gradeFixture struct {
	Grade  models.Grade
	Series []models.Series
	Tasks  [][]models.Task
}

func seedGrade(t *testing.T, db *gorm.DB, base time.Time) gradeFixture {
	t.Helper()

	grade := models.Grade{
		ID:         uuid.New(),
		SchoolYear: fmt.Sprintf("%d/%d", base.Year(), base.Year()+1),
		StartDate:  models.DateOf(base.AddDate(0, -2, 0)),
		EndDate:    models.DateOf(base.AddDate(0, 10, 0)),
	}
	require.NoError(t, db.Create(&grade).Error)

	fixture := gradeFixture{Grade: grade}
	for number := 1; number <= models.SeriesPerGrade; number++ {
		file := fmt.Sprintf("rocniky/%s/serie-%d.pdf", grade.ID, number)
		series := models.Series{
			ID:                 uuid.New(),
			GradeID:            grade.ID,
			Number:             number,
			SubmissionDeadline: base.AddDate(0, number-1, 0).UTC(),
			TaskFile:           &file,
		}
		require.NoError(t, db.Omit("Grade", "Tasks").Create(&series).Error)

		tasks := make([]models.Task, 0, models.TasksPerSeries)
		for n := 1; n <= models.TasksPerSeries; n++ {
			task := models.Task{ID: uuid.New(), SeriesID: series.ID, Number: n, Title: fmt.Sprintf("Úloha %d", n), Points: n * 2}
			require.NoError(t, db.Omit("Series").Create(&task).Error)
			tasks = append(tasks, task)
		}

		fixture.Series = append(fixture.Series, series)
		fixture.Tasks = append(fixture.Tasks, tasks)
	}

	return fixture
}

func seedParticipant(t *testing.T, db *gorm.DB, id uint, firstName, lastName, schoolYear string) models.Participant {
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
		SchoolYear: schoolYear,
	}
	require.NoError(t, db.Omit("User").Create(&participant).Error)
	participant.User = user
	return participant
}

func seedApplication(t *testing.T, db *gorm.DB, gradeID uuid.UUID, participantID uint, createdAt time.Time) models.Application {
	t.Helper()

	application := models.Application{GradeID: gradeID, ParticipantID: participantID, CreatedAt: createdAt.UTC()}
	require.NoError(t, db.Omit("Participant", "Grade").Create(&application).Error)
	return application
}

func seedSubmission(t *testing.T, db *gorm.DB, applicationID uint, taskID uuid.UUID, score *float64) models.Submission {
	t.Helper()

	submission := models.Submission{ApplicationID: applicationID, TaskID: taskID, Score: score}
	require.NoError(t, db.Omit("Application", "Task", "Stickers").Create(&submission).Error)
	return submission
}

func points(v float64) *float64 {
	return &v
}
