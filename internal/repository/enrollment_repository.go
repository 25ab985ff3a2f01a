package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/pkg/database"
)

const enrollmentColumns = `id, student_id, group_id, tipo_inscripcion, estatus, nivel_ingles, estado_pago,
        calificacion_parcial1, calificacion_parcial2, calificacion_parcial3, calificacion_final, calificacion_extra,
        asistencias, faltas, retardos, porcentaje_asistencia, aprobado, fecha_aprobacion, observaciones,
        fecha_inscripcion, fecha_baja, updated_at`

const enrollmentDetailColumns = `e.id, e.student_id, e.group_id, e.tipo_inscripcion, e.estatus, e.nivel_ingles, e.estado_pago,
        e.calificacion_parcial1, e.calificacion_parcial2, e.calificacion_parcial3, e.calificacion_final, e.calificacion_extra,
        e.asistencias, e.faltas, e.retardos, e.porcentaje_asistencia, e.aprobado, e.fecha_aprobacion, e.observaciones,
        e.fecha_inscripcion, e.fecha_baja, e.updated_at,
        s.full_name AS student_name, s.matricula AS matricula, g.clave AS group_clave, g.nombre AS group_name`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN groups g ON g.id = e.group_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("e.group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.Estatus != "" {
		conditions = append(conditions, fmt.Sprintf("e.estatus = $%d", len(args)+1))
		args = append(args, filter.Estatus)
	}
	if filter.TipoInscripcion != "" {
		conditions = append(conditions, fmt.Sprintf("e.tipo_inscripcion = $%d", len(args)+1))
		args = append(args, filter.TipoInscripcion)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"fecha_inscripcion": "e.fecha_inscripcion",
		"student_name":      "s.full_name",
		"group_clave":       "g.clave",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.fecha_inscripcion"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := normalisePage(filter.Page, filter.PageSize)
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, enrollmentDetailColumns, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments WHERE id = $1"
	var enrollment models.Enrollment
	if err := database.Conn(ctx, r.db).GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// LockByID returns an enrollment holding its row lock for the surrounding transaction.
func (r *EnrollmentRepository) LockByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := "SELECT " + enrollmentColumns + " FROM enrollments WHERE id = $1 FOR UPDATE"
	var enrollment models.Enrollment
	if err := database.Conn(ctx, r.db).GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := `SELECT ` + enrollmentDetailColumns + `
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN groups g ON g.id = e.group_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := database.Conn(ctx, r.db).GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActive checks whether the student already holds a seat in the group.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, groupID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM enrollments WHERE student_id = $1 AND group_id = $2 AND estatus IN ($3, $4)"
	args := []interface{}{studentID, groupID, models.EnrollmentStatusInscrito, models.EnrollmentStatusEnCurso}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	query += " LIMIT 1"
	var exists int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &exists, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.FechaInscripcion.IsZero() {
		enrollment.FechaInscripcion = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Estatus == "" {
		enrollment.Estatus = models.EnrollmentStatusInscrito
	}
	const query = `INSERT INTO enrollments (id, student_id, group_id, tipo_inscripcion, estatus, nivel_ingles, estado_pago,
        asistencias, faltas, retardos, aprobado, observaciones, fecha_inscripcion, updated_at)
        VALUES (:id, :student_id, :group_id, :tipo_inscripcion, :estatus, :nivel_ingles, :estado_pago,
        :asistencias, :faltas, :retardos, :aprobado, :observaciones, :fecha_inscripcion, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update writes every mutable column of the enrollment.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET group_id = :group_id, estatus = :estatus, estado_pago = :estado_pago,
        calificacion_parcial1 = :calificacion_parcial1, calificacion_parcial2 = :calificacion_parcial2,
        calificacion_parcial3 = :calificacion_parcial3, calificacion_final = :calificacion_final,
        calificacion_extra = :calificacion_extra, asistencias = :asistencias, faltas = :faltas, retardos = :retardos,
        porcentaje_asistencia = :porcentaje_asistencia, aprobado = :aprobado, fecha_aprobacion = :fecha_aprobacion,
        observaciones = :observaciones, fecha_baja = :fecha_baja, updated_at = :updated_at
        WHERE id = :id`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// UpdateObservations writes only the free-text observations, which stay editable in terminal states.
func (r *EnrollmentRepository) UpdateObservations(ctx context.Context, id, observaciones string) error {
	const query = `UPDATE enrollments SET observaciones = $2, updated_at = $3 WHERE id = $1`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, observaciones, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment observations: %w", err)
	}
	return nil
}

// SetPaymentState updates the payment sub-state of an enrollment.
func (r *EnrollmentRepository) SetPaymentState(ctx context.Context, id string, state models.PaymentState) error {
	const query = `UPDATE enrollments SET estado_pago = $2, updated_at = $3 WHERE id = $1`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment payment state: %w", err)
	}
	return nil
}
