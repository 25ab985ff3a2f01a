package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
)

var levelRecordColumns = []string{"id", "student_id", "nivel", "calificacion", "fuente", "enrollment_id", "exam_id", "recorded_at"}

func TestEnglishProgressRepositoryFindWithoutRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnglishProgressRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM english_progress WHERE student_id = $1")).
		WithArgs("s1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("FROM english_level_records WHERE student_id = $1 ORDER BY nivel")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(levelRecordColumns))

	progress, err := repo.Find(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, models.MinEnglishLevel, progress.NivelActual)
	assert.Empty(t, progress.Niveles)
	assert.Nil(t, progress.Promedio)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnglishProgressRepositoryLock(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnglishProgressRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id) DO NOTHING")).
		WithArgs("s1", models.MinEnglishLevel, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM english_progress WHERE student_id = $1 FOR UPDATE")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "nivel_actual", "promedio", "requisito_cumplido", "certificado_diagnostico", "updated_at"}).
			AddRow("s1", 3, 82.5, false, false, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM english_level_records")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(levelRecordColumns).
			AddRow("r1", "s1", 1, 80.0, models.EnglishSourceDiagnosticSkip, nil, "ex1", now).
			AddRow("r2", "s1", 2, 85.0, models.EnglishSourceCourse, "enr-1", nil, now))

	progress, err := repo.Lock(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, progress.NivelActual)
	assert.Equal(t, 82.5, *progress.Promedio)
	require.Len(t, progress.Niveles, 2)
	assert.Equal(t, models.EnglishSourceCourse, progress.Niveles[2].Fuente)
	assert.Equal(t, "enr-1", *progress.Niveles[2].EnrollmentID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnglishProgressRepositorySave(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnglishProgressRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO english_progress")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, nivel) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	avg := 90.0
	progress := &models.EnglishProgress{
		StudentID:   "s1",
		NivelActual: 2,
		Promedio:    &avg,
		Niveles: map[int]models.EnglishLevelRecord{
			1: {Nivel: 1, Calificacion: 90, Fuente: models.EnglishSourceCourse},
		},
	}
	require.NoError(t, repo.Save(context.Background(), progress))

	rec := progress.Niveles[1]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "s1", rec.StudentID)
	assert.False(t, rec.RecordedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
