package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/pkg/database"
)

// EnglishProgressRepository stores per-student english level records and their aggregate.
type EnglishProgressRepository struct {
	db *sqlx.DB
}

// NewEnglishProgressRepository constructs the repository.
func NewEnglishProgressRepository(db *sqlx.DB) *EnglishProgressRepository {
	return &EnglishProgressRepository{db: db}
}

// Find returns the progress of a student, or a fresh level-1 progress when none is stored.
func (r *EnglishProgressRepository) Find(ctx context.Context, studentID string) (*models.EnglishProgress, error) {
	return r.load(ctx, studentID, false)
}

// Lock ensures a progress row exists for the student and locks it, serialising english writes per student.
func (r *EnglishProgressRepository) Lock(ctx context.Context, studentID string) (*models.EnglishProgress, error) {
	const ensure = `INSERT INTO english_progress (student_id, nivel_actual, requisito_cumplido, certificado_diagnostico, updated_at)
        VALUES ($1, $2, FALSE, FALSE, $3) ON CONFLICT (student_id) DO NOTHING`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, ensure, studentID, models.MinEnglishLevel, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ensure english progress: %w", err)
	}
	return r.load(ctx, studentID, true)
}

func (r *EnglishProgressRepository) load(ctx context.Context, studentID string, forUpdate bool) (*models.EnglishProgress, error) {
	conn := database.Conn(ctx, r.db)
	query := `SELECT student_id, nivel_actual, promedio, requisito_cumplido, certificado_diagnostico, updated_at
        FROM english_progress WHERE student_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	progress := models.EnglishProgress{StudentID: studentID, NivelActual: models.MinEnglishLevel}
	if err := conn.GetContext(ctx, &progress, query, studentID); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load english progress: %w", err)
	}

	const recordsQuery = `SELECT id, student_id, nivel, calificacion, fuente, enrollment_id, exam_id, recorded_at
        FROM english_level_records WHERE student_id = $1 ORDER BY nivel`
	var records []models.EnglishLevelRecord
	if err := conn.SelectContext(ctx, &records, recordsQuery, studentID); err != nil {
		return nil, fmt.Errorf("load english level records: %w", err)
	}
	progress.Niveles = make(map[int]models.EnglishLevelRecord, len(records))
	for _, rec := range records {
		progress.Niveles[rec.Nivel] = rec
	}
	return &progress, nil
}

// Save upserts the aggregate row and every level record of the progress.
func (r *EnglishProgressRepository) Save(ctx context.Context, progress *models.EnglishProgress) error {
	conn := database.Conn(ctx, r.db)
	progress.UpdatedAt = time.Now().UTC()
	const upsertProgress = `INSERT INTO english_progress (student_id, nivel_actual, promedio, requisito_cumplido, certificado_diagnostico, updated_at)
        VALUES (:student_id, :nivel_actual, :promedio, :requisito_cumplido, :certificado_diagnostico, :updated_at)
        ON CONFLICT (student_id) DO UPDATE SET nivel_actual = EXCLUDED.nivel_actual, promedio = EXCLUDED.promedio,
        requisito_cumplido = EXCLUDED.requisito_cumplido, certificado_diagnostico = EXCLUDED.certificado_diagnostico,
        updated_at = EXCLUDED.updated_at`
	if _, err := conn.NamedExecContext(ctx, upsertProgress, progress); err != nil {
		return fmt.Errorf("save english progress: %w", err)
	}

	const upsertRecord = `INSERT INTO english_level_records (id, student_id, nivel, calificacion, fuente, enrollment_id, exam_id, recorded_at)
        VALUES (:id, :student_id, :nivel, :calificacion, :fuente, :enrollment_id, :exam_id, :recorded_at)
        ON CONFLICT (student_id, nivel) DO UPDATE SET calificacion = EXCLUDED.calificacion, fuente = EXCLUDED.fuente,
        enrollment_id = EXCLUDED.enrollment_id, exam_id = EXCLUDED.exam_id, recorded_at = EXCLUDED.recorded_at`
	for level, rec := range progress.Niveles {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.RecordedAt.IsZero() {
			rec.RecordedAt = progress.UpdatedAt
		}
		rec.StudentID = progress.StudentID
		progress.Niveles[level] = rec
		if _, err := conn.NamedExecContext(ctx, upsertRecord, rec); err != nil {
			return fmt.Errorf("save english level %d: %w", level, err)
		}
	}
	return nil
}
