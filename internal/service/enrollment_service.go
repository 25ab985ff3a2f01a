package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	LockByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsActive(ctx context.Context, studentID, groupID, excludeID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	UpdateObservations(ctx context.Context, id, observaciones string) error
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type seatLedger interface {
	Reserve(ctx context.Context, groupID string) error
	Release(ctx context.Context, groupID string) error
}

type paymentCreator interface {
	Create(ctx context.Context, payment *models.Payment) error
}

type auditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// CreateEnrollmentRequest describes enrollment creation request.
type CreateEnrollmentRequest struct {
	StudentID       string                `json:"student_id" validate:"required"`
	GroupID         string                `json:"group_id" validate:"required"`
	TipoInscripcion models.EnrollmentType `json:"tipo_inscripcion" validate:"required"`
	NivelIngles     *int                  `json:"nivel_ingles,omitempty" validate:"omitempty,min=1,max=6"`
	RequierePago    bool                  `json:"requiere_pago"`
	MontoPago       *float64              `json:"monto_pago,omitempty" validate:"omitempty,gt=0"`
}

// ChangeStatusRequest describes a status transition.
type ChangeStatusRequest struct {
	Estatus models.EnrollmentStatus `json:"estatus" validate:"required"`
}

// ChangeGroupRequest describes a group transfer.
type ChangeGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

// UpdateGradesRequest carries optional grade fields; nil means "leave unchanged".
type UpdateGradesRequest struct {
	Parcial1 *float64 `json:"calificacion_parcial1,omitempty"`
	Parcial2 *float64 `json:"calificacion_parcial2,omitempty"`
	Parcial3 *float64 `json:"calificacion_parcial3,omitempty"`
	Final    *float64 `json:"calificacion_final,omitempty"`
	Extra    *float64 `json:"calificacion_extra,omitempty"`
}

// UpdateAttendanceRequest carries optional attendance counters.
type UpdateAttendanceRequest struct {
	Asistencias *int `json:"asistencias,omitempty"`
	Faltas      *int `json:"faltas,omitempty"`
	Retardos    *int `json:"retardos,omitempty"`
}

// UpdateObservationsRequest replaces the free-text observations.
type UpdateObservationsRequest struct {
	Observaciones string `json:"observaciones" validate:"max=2000"`
}

// EnrollmentService owns the enrollment lifecycle: creation, status transitions, group changes and
// grade/attendance writes. Seat accounting is delegated to the capacity ledger inside the same transaction.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	groups    groupReader
	ledger    seatLedger
	payments  paymentCreator
	tx        txRunner
	grades    *GradeAggregator
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, groups groupReader, ledger seatLedger, payments paymentCreator, tx txRunner, grades *GradeAggregator, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if grades == nil {
		grades = NewGradeAggregator(nil)
	}
	return &EnrollmentService{
		repo:      repo,
		students:  students,
		groups:    groups,
		ledger:    ledger,
		payments:  payments,
		tx:        tx,
		grades:    grades,
		audit:     audit,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single enrollment with student and group info.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	return detail, nil
}

// Create registers a student in a group, reserving a seat. Payment-gated enrollments start in PENDIENTE_PAGO.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if !req.TipoInscripcion.Valid() {
		return nil, appErrors.Clonef(appErrors.ErrValidation, "unknown tipo_inscripcion %q", req.TipoInscripcion)
	}
	if req.TipoInscripcion == models.EnrollmentTypeCursoIngles && req.NivelIngles == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidLevel, "nivel_ingles is required for CURSO_INGLES enrollments")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	if !student.CanEnroll() {
		return nil, appErrors.Clonef(appErrors.ErrStudentNotEligible, "student %s is %s; only ACTIVO students may enroll", student.Matricula, student.Estatus)
	}

	enrollment := &models.Enrollment{
		StudentID:        req.StudentID,
		GroupID:          req.GroupID,
		TipoInscripcion:  req.TipoInscripcion,
		Estatus:          models.EnrollmentStatusInscrito,
		NivelIngles:      req.NivelIngles,
		FechaInscripcion: s.now().UTC(),
	}
	if req.RequierePago {
		pending := models.PaymentStatePendientePago
		enrollment.EstadoPago = &pending
	}

	var payment *models.Payment
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// Reserving first takes the group lock, which serialises the duplicate check below.
		if err := s.ledger.Reserve(ctx, req.GroupID); err != nil {
			return err
		}
		exists, err := s.repo.ExistsActive(ctx, req.StudentID, req.GroupID, "")
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "student already holds a seat in this group")
		}
		if err := s.repo.Create(ctx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		}
		if req.RequierePago {
			payment = &models.Payment{
				ItemType:      models.PaymentItemEnrollment,
				ItemID:        enrollment.ID,
				StudentID:     enrollment.StudentID,
				Estado:        models.PaymentStatePendientePago,
				RequierePago:  true,
				MontoEsperado: req.MontoPago,
			}
			if err := s.payments.Create(ctx, payment); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Info("enrollment rejected", zap.String("student_id", req.StudentID), zap.String("group_id", req.GroupID), zap.Error(err))
		return nil, err
	}

	s.metrics.EnrollmentCreated(string(enrollment.TipoInscripcion))
	s.record(ctx, actor, models.AuditActionEnrollmentCreate, enrollment.ID, nil, enrollment)
	s.logger.Info("enrollment created", zap.String("enrollment_id", enrollment.ID), zap.String("group_id", enrollment.GroupID), zap.Bool("requiere_pago", req.RequierePago))
	return enrollment, nil
}

// ChangeStatus applies a status transition from the transition table, moving seats as the table dictates.
func (s *EnrollmentService) ChangeStatus(ctx context.Context, id string, req ChangeStatusRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	var enrollment *models.Enrollment
	var from models.EnrollmentStatus
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		enrollment, err = s.lock(ctx, id)
		if err != nil {
			return err
		}
		from = enrollment.Estatus
		effect, err := checkTransition(from, req.Estatus)
		if err != nil {
			return err
		}
		if req.Estatus == models.EnrollmentStatusEnCurso && enrollment.AwaitingPayment() {
			return appErrors.Clonef(appErrors.ErrPaymentPending, "enrollment %s cannot start while payment is %s", enrollment.ID, *enrollment.EstadoPago)
		}
		if err := s.checkOutcome(enrollment, req.Estatus); err != nil {
			return err
		}

		switch effect {
		case seatRelease:
			if err := s.ledger.Release(ctx, enrollment.GroupID); err != nil {
				return err
			}
		case seatReserve:
			if err := s.ledger.Reserve(ctx, enrollment.GroupID); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		enrollment.Estatus = req.Estatus
		switch req.Estatus {
		case models.EnrollmentStatusBaja:
			enrollment.FechaBaja = &now
		case models.EnrollmentStatusEnCurso:
			enrollment.FechaBaja = nil
		case models.EnrollmentStatusAprobado, models.EnrollmentStatusReprobado:
			s.grades.ApplyFinal(enrollment, enrollment.CalificacionFinal)
		}
		if err := s.repo.Update(ctx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
		}
		return nil
	})
	if err != nil {
		s.logger.Info("status change rejected", zap.String("enrollment_id", id), zap.String("to", string(req.Estatus)), zap.Error(err))
		return nil, err
	}

	s.metrics.StatusTransition(string(from), string(req.Estatus))
	s.record(ctx, actor, models.AuditActionStatusChange, id, map[string]string{"estatus": string(from)}, map[string]string{"estatus": string(req.Estatus)})
	return enrollment, nil
}

// ChangeGroup moves an INSCRITO or EN_CURSO enrollment to another group. The new seat is reserved
// before the old one is released, and both happen in one transaction so a failed release rolls
// back the reservation instead of leaving the student counted twice.
func (s *EnrollmentService) ChangeGroup(ctx context.Context, id string, req ChangeGroupRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	var enrollment *models.Enrollment
	var oldGroupID string
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		enrollment, err = s.lock(ctx, id)
		if err != nil {
			return err
		}
		if err := mutableEnrollment(enrollment); err != nil {
			return err
		}
		if enrollment.Estatus != models.EnrollmentStatusInscrito && enrollment.Estatus != models.EnrollmentStatusEnCurso {
			return appErrors.Clonef(appErrors.ErrInvalidTransition, "group change not allowed while enrollment is %s", enrollment.Estatus)
		}
		if enrollment.GroupID == req.GroupID {
			return appErrors.Clone(appErrors.ErrValidation, "enrollment already belongs to the target group")
		}
		oldGroupID = enrollment.GroupID

		if err := s.ledger.Reserve(ctx, req.GroupID); err != nil {
			return err
		}
		exists, err := s.repo.ExistsActive(ctx, enrollment.StudentID, req.GroupID, enrollment.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate enrollment")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "student already holds a seat in the target group")
		}
		if err := s.ledger.Release(ctx, oldGroupID); err != nil {
			return err
		}
		enrollment.GroupID = req.GroupID
		if err := s.repo.Update(ctx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change enrollment group")
		}
		return nil
	})
	if err != nil {
		s.logger.Info("group change rejected", zap.String("enrollment_id", id), zap.String("group_id", req.GroupID), zap.Error(err))
		return nil, err
	}

	s.record(ctx, actor, models.AuditActionGroupChange, id, map[string]string{"group_id": oldGroupID}, map[string]string{"group_id": req.GroupID})
	return enrollment, nil
}

// UpdateGrades writes partial, final and extra grades. Partials recompute the final; an explicit final
// overrides the computed one. Either way the aprobado/fechaAprobacion rule is re-applied.
func (s *EnrollmentService) UpdateGrades(ctx context.Context, id string, req UpdateGradesRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	hasGrade := false
	for _, g := range []*float64{req.Parcial1, req.Parcial2, req.Parcial3, req.Final, req.Extra} {
		if g == nil {
			continue
		}
		hasGrade = true
		if err := ValidateGrade(*g); err != nil {
			return nil, err
		}
	}
	if !hasGrade {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no grades supplied")
	}

	var enrollment *models.Enrollment
	var before models.Enrollment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		enrollment, err = s.lock(ctx, id)
		if err != nil {
			return err
		}
		if err := mutableEnrollment(enrollment); err != nil {
			return err
		}
		if err := s.authorizeGroupWrite(ctx, actor, enrollment.GroupID); err != nil {
			return err
		}
		before = *enrollment

		partialsChanged := false
		for i, p := range []*float64{req.Parcial1, req.Parcial2, req.Parcial3} {
			if p == nil {
				continue
			}
			partialsChanged = true
			v := *p
			switch i {
			case 0:
				enrollment.CalificacionParcial1 = &v
			case 1:
				enrollment.CalificacionParcial2 = &v
			case 2:
				enrollment.CalificacionParcial3 = &v
			}
		}
		if partialsChanged {
			s.grades.ApplyFinal(enrollment, s.grades.RecomputeFinal(enrollment.Partials()))
		}
		if req.Final != nil {
			v := *req.Final
			s.grades.ApplyFinal(enrollment, &v)
		}
		if req.Extra != nil {
			v := *req.Extra
			enrollment.CalificacionExtra = &v
		}
		if err := s.repo.Update(ctx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grades")
		}
		return nil
	})
	if err != nil {
		s.logger.Info("grade update rejected", zap.String("enrollment_id", id), zap.Error(err))
		return nil, err
	}

	s.record(ctx, actor, models.AuditActionGradesUpdate, id, gradeSnapshot(before), gradeSnapshot(*enrollment))
	return enrollment, nil
}

// UpdateAttendance writes attendance counters and recomputes the attendance percentage.
func (s *EnrollmentService) UpdateAttendance(ctx context.Context, id string, req UpdateAttendanceRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	if req.Asistencias == nil && req.Faltas == nil && req.Retardos == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no attendance counters supplied")
	}
	for _, c := range []*int{req.Asistencias, req.Faltas, req.Retardos} {
		if c != nil && *c < 0 {
			return nil, appErrors.Clonef(appErrors.ErrInvalidAttendance, "attendance counter %d must be >= 0", *c)
		}
	}

	var enrollment *models.Enrollment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		enrollment, err = s.lock(ctx, id)
		if err != nil {
			return err
		}
		if err := mutableEnrollment(enrollment); err != nil {
			return err
		}
		if err := s.authorizeGroupWrite(ctx, actor, enrollment.GroupID); err != nil {
			return err
		}
		if req.Asistencias != nil {
			enrollment.Asistencias = *req.Asistencias
		}
		if req.Faltas != nil {
			enrollment.Faltas = *req.Faltas
		}
		if req.Retardos != nil {
			enrollment.Retardos = *req.Retardos
		}
		pct, err := RecomputeAttendance(enrollment.Asistencias, enrollment.Faltas)
		if err != nil {
			return err
		}
		enrollment.PorcentajeAsistencia = pct
		if err := s.repo.Update(ctx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, models.AuditActionAttendanceUpdate, id, nil, map[string]interface{}{
		"asistencias": enrollment.Asistencias, "faltas": enrollment.Faltas, "retardos": enrollment.Retardos,
	})
	return enrollment, nil
}

// UpdateObservations replaces the observations. Allowed in every state, terminal ones included.
func (s *EnrollmentService) UpdateObservations(ctx context.Context, id string, req UpdateObservationsRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid observations payload")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	if err := s.authorizeGroupWrite(ctx, actor, enrollment.GroupID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateObservations(ctx, id, req.Observaciones); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update observations")
	}
	enrollment.Observaciones = req.Observaciones
	s.record(ctx, actor, models.AuditActionObservationsUpdate, id, nil, map[string]string{"observaciones": req.Observaciones})
	return enrollment, nil
}

// checkOutcome keeps APROBADO/REPROBADO consistent with calificacion_final. English courses close
// through CompleteCourse so the level record is written.
func (s *EnrollmentService) checkOutcome(enrollment *models.Enrollment, to models.EnrollmentStatus) error {
	if to != models.EnrollmentStatusAprobado && to != models.EnrollmentStatusReprobado {
		return nil
	}
	if enrollment.TipoInscripcion == models.EnrollmentTypeCursoIngles {
		return appErrors.Clonef(appErrors.ErrInvalidTransition, "enrollment %s is %s; close it through course completion", enrollment.ID, enrollment.TipoInscripcion)
	}
	if enrollment.CalificacionFinal == nil {
		return appErrors.Clonef(appErrors.ErrInvalidTransition, "enrollment %s has no calificacion_final; %s requires a final grade", enrollment.ID, to)
	}
	if s.grades.Passed(*enrollment.CalificacionFinal) != (to == models.EnrollmentStatusAprobado) {
		return appErrors.Clonef(appErrors.ErrInvalidTransition, "calificacion_final %.2f does not allow %s (passing grade %.0f)", *enrollment.CalificacionFinal, to, models.PassingGrade)
	}
	return nil
}

func (s *EnrollmentService) lock(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.repo.LockByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "enrollment")
	}
	return enrollment, nil
}

// authorizeGroupWrite limits teachers to groups they teach. Students never write enrollment records.
func (s *EnrollmentService) authorizeGroupWrite(ctx context.Context, actor *models.JWTClaims, groupID string) error {
	if actor == nil || actor.Role.IsAdmin() {
		return nil
	}
	if actor.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators and the group's teacher may update enrollment records")
	}
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return lookupError(err, "group")
	}
	if !group.TaughtBy(actor.UserID) {
		return appErrors.Clonef(appErrors.ErrForbidden, "teacher does not own group %s", group.Clave)
	}
	return nil
}

func (s *EnrollmentService) record(ctx context.Context, actor *models.JWTClaims, action, id string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor.Actor(), Action: action, Resource: "enrollment", ResourceID: id, Before: before, After: after})
}

func gradeSnapshot(e models.Enrollment) map[string]interface{} {
	return map[string]interface{}{
		"parcial1": e.CalificacionParcial1,
		"parcial2": e.CalificacionParcial2,
		"parcial3": e.CalificacionParcial3,
		"final":    e.CalificacionFinal,
		"extra":    e.CalificacionExtra,
		"aprobado": e.Aprobado,
	}
}

// lookupError maps sql.ErrNoRows to NOT_FOUND and passes typed errors through.
func lookupError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clonef(appErrors.ErrNotFound, "%s not found", what)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}
