package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/pkg/database"
)

const examColumns = `id, student_id, exam_type, estatus, resultado, nivel_ingles, estado_pago, fecha_solicitud, fecha_aplicacion, updated_at`

// DiagnosticExamRepository persists english diagnostic exams.
type DiagnosticExamRepository struct {
	db *sqlx.DB
}

// NewDiagnosticExamRepository constructs the repository.
func NewDiagnosticExamRepository(db *sqlx.DB) *DiagnosticExamRepository {
	return &DiagnosticExamRepository{db: db}
}

// Create inserts a requested exam.
func (r *DiagnosticExamRepository) Create(ctx context.Context, exam *models.DiagnosticExam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exam.FechaSolicitud.IsZero() {
		exam.FechaSolicitud = now
	}
	exam.UpdatedAt = now
	const query = `INSERT INTO diagnostic_exams (id, student_id, exam_type, estatus, resultado, nivel_ingles, estado_pago, fecha_solicitud, fecha_aplicacion, updated_at)
        VALUES (:id, :student_id, :exam_type, :estatus, :resultado, :nivel_ingles, :estado_pago, :fecha_solicitud, :fecha_aplicacion, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create diagnostic exam: %w", err)
	}
	return nil
}

// FindByID returns an exam by id.
func (r *DiagnosticExamRepository) FindByID(ctx context.Context, id string) (*models.DiagnosticExam, error) {
	var exam models.DiagnosticExam
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exam, "SELECT "+examColumns+" FROM diagnostic_exams WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// LockByID returns an exam holding its row lock.
func (r *DiagnosticExamRepository) LockByID(ctx context.Context, id string) (*models.DiagnosticExam, error) {
	var exam models.DiagnosticExam
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exam, "SELECT "+examColumns+" FROM diagnostic_exams WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// Update stores the result columns of an exam.
func (r *DiagnosticExamRepository) Update(ctx context.Context, exam *models.DiagnosticExam) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE diagnostic_exams SET estatus = :estatus, resultado = :resultado, nivel_ingles = :nivel_ingles,
        estado_pago = :estado_pago, fecha_aplicacion = :fecha_aplicacion, updated_at = :updated_at WHERE id = :id`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("update diagnostic exam: %w", err)
	}
	return nil
}

// SetPaymentState updates the payment sub-state of an exam.
func (r *DiagnosticExamRepository) SetPaymentState(ctx context.Context, id string, state models.PaymentState) error {
	const query = `UPDATE diagnostic_exams SET estado_pago = $2, updated_at = $3 WHERE id = $1`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update exam payment state: %w", err)
	}
	return nil
}
