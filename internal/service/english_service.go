package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

type diagnosticExamRepository interface {
	Create(ctx context.Context, exam *models.DiagnosticExam) error
	FindByID(ctx context.Context, id string) (*models.DiagnosticExam, error)
	LockByID(ctx context.Context, id string) (*models.DiagnosticExam, error)
	Update(ctx context.Context, exam *models.DiagnosticExam) error
}

type englishProgressRepository interface {
	Find(ctx context.Context, studentID string) (*models.EnglishProgress, error)
	Lock(ctx context.Context, studentID string) (*models.EnglishProgress, error)
	Save(ctx context.Context, progress *models.EnglishProgress) error
}

type courseEnrollmentRepository interface {
	LockByID(ctx context.Context, id string) (*models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
}

type courseEnroller interface {
	Create(ctx context.Context, req CreateEnrollmentRequest, actor *models.JWTClaims) (*models.Enrollment, error)
}

// RequestDiagnosticExamRequest opens a diagnostic exam for a student.
type RequestDiagnosticExamRequest struct {
	StudentID    string          `json:"student_id" validate:"required"`
	ExamType     models.ExamType `json:"exam_type" validate:"required,oneof=DIAGNOSTICO UBICACION"`
	RequierePago bool            `json:"requiere_pago"`
	MontoPago    *float64        `json:"monto_pago,omitempty" validate:"omitempty,gt=0"`
}

// ProcessDiagnosticRequest carries the result of an applied exam. NivelFinal 0 or absent means no level assigned.
type ProcessDiagnosticRequest struct {
	Resultado              float64         `json:"resultado"`
	NivelFinal             *int            `json:"nivel_final,omitempty"`
	CalificacionesPorNivel map[int]float64 `json:"calificaciones_por_nivel,omitempty"`
}

// EnrollInCourseRequest enrolls a student in an english course group.
type EnrollInCourseRequest struct {
	StudentID    string   `json:"student_id" validate:"required"`
	GroupID      string   `json:"group_id" validate:"required"`
	NivelIngles  int      `json:"nivel_ingles" validate:"min=1,max=6"`
	RequierePago bool     `json:"requiere_pago"`
	MontoPago    *float64 `json:"monto_pago,omitempty" validate:"omitempty,gt=0"`
}

// CompleteCourseRequest carries the final grade of an english course.
type CompleteCourseRequest struct {
	Calificacion float64 `json:"calificacion"`
}

// EnglishService tracks per-student english level progression from diagnostic exams and courses.
type EnglishService struct {
	exams       diagnosticExamRepository
	progress    englishProgressRepository
	enrollments courseEnrollmentRepository
	enroller    courseEnroller
	students    studentReader
	groups      groupReader
	payments    paymentCreator
	tx          txRunner
	grades      *GradeAggregator
	cache       *ProgressCache
	audit       auditRecorder
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnglishService constructs EnglishService.
func NewEnglishService(exams diagnosticExamRepository, progress englishProgressRepository, enrollments courseEnrollmentRepository, enroller courseEnroller, students studentReader, groups groupReader, payments paymentCreator, tx txRunner, grades *GradeAggregator, cache *ProgressCache, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnglishService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if grades == nil {
		grades = NewGradeAggregator(nil)
	}
	return &EnglishService{
		exams:       exams,
		progress:    progress,
		enrollments: enrollments,
		enroller:    enroller,
		students:    students,
		groups:      groups,
		payments:    payments,
		tx:          tx,
		grades:      grades,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// GetProgress returns the student's level map, average and requirement flag.
func (s *EnglishService) GetProgress(ctx context.Context, studentID string, actor *models.JWTClaims) (*models.EnglishProgress, error) {
	if err := authorizeSelf(actor, studentID); err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(ctx, studentID); ok {
		return cached, nil
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, lookupError(err, "student")
	}
	progress, err := s.progress.Find(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load english progress")
	}
	s.cache.Put(ctx, progress)
	return progress, nil
}

// GetExam returns a diagnostic exam.
func (s *EnglishService) GetExam(ctx context.Context, id string, actor *models.JWTClaims) (*models.DiagnosticExam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "exam")
	}
	if err := authorizeSelf(actor, exam.StudentID); err != nil {
		return nil, err
	}
	return exam, nil
}

// RequestDiagnosticExam registers a pending diagnostic exam, optionally gated behind a payment.
func (s *EnglishService) RequestDiagnosticExam(ctx context.Context, req RequestDiagnosticExamRequest, actor *models.JWTClaims) (*models.DiagnosticExam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	if err := authorizeSelf(actor, req.StudentID); err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	if !student.CanEnroll() {
		return nil, appErrors.Clonef(appErrors.ErrStudentNotEligible, "student %s is %s", student.Matricula, student.Estatus)
	}

	exam := &models.DiagnosticExam{
		StudentID:      req.StudentID,
		ExamType:       req.ExamType,
		Estatus:        models.ExamStatusSolicitado,
		FechaSolicitud: s.now().UTC(),
	}
	if req.RequierePago {
		pending := models.PaymentStatePendientePago
		exam.EstadoPago = &pending
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.exams.Create(ctx, exam); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
		}
		if !req.RequierePago {
			return nil
		}
		payment := &models.Payment{
			ItemType:      models.PaymentItemDiagnosticExam,
			ItemID:        exam.ID,
			StudentID:     exam.StudentID,
			Estado:        models.PaymentStatePendientePago,
			RequierePago:  true,
			MontoEsperado: req.MontoPago,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("diagnostic exam requested", zap.String("exam_id", exam.ID), zap.String("student_id", exam.StudentID))
	return exam, nil
}

// ProcessDiagnosticResult records a diagnostic exam result and credits the skipped levels.
func (s *EnglishService) ProcessDiagnosticResult(ctx context.Context, examID string, req ProcessDiagnosticRequest, actor *models.JWTClaims) (*models.DiagnosticOutcome, error) {
	var outcome *models.DiagnosticOutcome
	var exam *models.DiagnosticExam
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		exam, err = s.exams.LockByID(ctx, examID)
		if err != nil {
			return lookupError(err, "exam")
		}
		if exam.Estatus != models.ExamStatusSolicitado {
			return appErrors.Clonef(appErrors.ErrImmutableState, "exam %s is already %s", exam.ID, exam.Estatus)
		}
		if exam.AwaitingPayment() {
			return appErrors.Clonef(appErrors.ErrPaymentPending, "exam %s cannot be processed while payment is %s", exam.ID, *exam.EstadoPago)
		}

		plan, err := planDiagnostic(exam.ExamType, req.Resultado, req.NivelFinal, req.CalificacionesPorNivel)
		if err != nil {
			return err
		}

		progress, err := s.lockProgress(ctx, exam.StudentID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		examRef := exam.ID
		for _, level := range plan.levels() {
			mergeLevelRecord(progress, models.EnglishLevelRecord{
				StudentID:    exam.StudentID,
				Nivel:        level,
				Calificacion: plan.grades[level],
				Fuente:       models.EnglishSourceDiagnosticSkip,
				ExamID:       &examRef,
				RecordedAt:   now,
			})
		}
		if plan.certified {
			progress.CertificadoDiagnostico = true
		}
		positionAt(progress, plan.nivel)
		recomputeProgress(progress)
		if err := s.progress.Save(ctx, progress); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save english progress")
		}

		resultado := req.Resultado
		nivel := plan.nivel
		exam.Resultado = &resultado
		exam.NivelIngles = &nivel
		exam.Estatus = models.ExamStatusCompletado
		exam.FechaAplicacion = &now
		if err := s.exams.Update(ctx, exam); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
		}

		outcome = &models.DiagnosticOutcome{
			Kind:               plan.kind,
			ExamID:             exam.ID,
			NivelAsignado:      plan.nivel,
			NivelesAcreditados: plan.levels(),
			Mensaje:            plan.message,
			Progress:           progress,
		}
		return nil
	})
	if err != nil {
		s.logger.Info("diagnostic result rejected", zap.String("exam_id", examID), zap.Error(err))
		return nil, err
	}

	s.cache.Invalidate(ctx, exam.StudentID)
	s.metrics.DiagnosticProcessed(string(outcome.Kind))
	s.record(ctx, actor, models.AuditActionDiagnosticResult, "diagnostic_exam", exam.ID, nil, outcome)
	s.logger.Info("diagnostic result processed", zap.String("exam_id", exam.ID), zap.String("kind", string(outcome.Kind)), zap.Int("nivel", outcome.NivelAsignado))
	return outcome, nil
}

// EnrollInCourse enrolls a student in an english course for a level they have reached.
func (s *EnglishService) EnrollInCourse(ctx context.Context, req EnrollInCourseRequest, actor *models.JWTClaims) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if err := authorizeSelf(actor, req.StudentID); err != nil {
		return nil, err
	}
	group, err := s.groups.FindByID(ctx, req.GroupID)
	if err != nil {
		return nil, lookupError(err, "group")
	}
	if group.NivelIngles == nil {
		return nil, appErrors.Clonef(appErrors.ErrLevelNotAllowed, "group %s is not an english course", group.Clave)
	}
	if *group.NivelIngles != req.NivelIngles {
		return nil, appErrors.Clonef(appErrors.ErrLevelNotAllowed, "group %s teaches level %d, not %d", group.Clave, *group.NivelIngles, req.NivelIngles)
	}
	progress, err := s.progress.Find(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load english progress")
	}
	if req.NivelIngles > progress.NivelActual {
		return nil, appErrors.Clonef(appErrors.ErrLevelNotAllowed, "level %d not reachable; student is positioned at level %d", req.NivelIngles, progress.NivelActual)
	}

	nivel := req.NivelIngles
	return s.enroller.Create(ctx, CreateEnrollmentRequest{
		StudentID:       req.StudentID,
		GroupID:         req.GroupID,
		TipoInscripcion: models.EnrollmentTypeCursoIngles,
		NivelIngles:     &nivel,
		RequierePago:    req.RequierePago,
		MontoPago:       req.MontoPago,
	}, actor)
}

// CompleteCourse closes an EN_CURSO english course with its grade and records the level as course-sourced.
func (s *EnglishService) CompleteCourse(ctx context.Context, enrollmentID string, req CompleteCourseRequest, actor *models.JWTClaims) (*models.CourseOutcome, error) {
	if err := ValidateGrade(req.Calificacion); err != nil {
		return nil, err
	}

	var outcome *models.CourseOutcome
	var enrollment *models.Enrollment
	var from models.EnrollmentStatus
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		enrollment, err = s.enrollments.LockByID(ctx, enrollmentID)
		if err != nil {
			return lookupError(err, "enrollment")
		}
		if enrollment.TipoInscripcion != models.EnrollmentTypeCursoIngles {
			return appErrors.Clonef(appErrors.ErrValidation, "enrollment %s is %s; only CURSO_INGLES enrollments complete english levels", enrollment.ID, enrollment.TipoInscripcion)
		}
		if enrollment.NivelIngles == nil {
			return appErrors.Clonef(appErrors.ErrInvalidLevel, "enrollment %s has no nivel_ingles", enrollment.ID)
		}

		passed := s.grades.Passed(req.Calificacion)
		target := models.EnrollmentStatusReprobado
		if passed {
			target = models.EnrollmentStatusAprobado
		}
		from = enrollment.Estatus
		if _, err := checkTransition(from, target); err != nil {
			return err
		}

		grade := req.Calificacion
		s.grades.ApplyFinal(enrollment, &grade)
		enrollment.Estatus = target
		if err := s.enrollments.Update(ctx, enrollment); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
		}

		progress, err := s.lockProgress(ctx, enrollment.StudentID)
		if err != nil {
			return err
		}
		nivel := *enrollment.NivelIngles
		enrollmentRef := enrollment.ID
		mergeLevelRecord(progress, models.EnglishLevelRecord{
			StudentID:    enrollment.StudentID,
			Nivel:        nivel,
			Calificacion: grade,
			Fuente:       models.EnglishSourceCourse,
			EnrollmentID: &enrollmentRef,
			RecordedAt:   s.now().UTC(),
		})
		if passed {
			positionAt(progress, nivel+1)
		}
		recomputeProgress(progress)
		if err := s.progress.Save(ctx, progress); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save english progress")
		}

		outcome = &models.CourseOutcome{
			EnrollmentID: enrollment.ID,
			Nivel:        nivel,
			Calificacion: grade,
			Aprobado:     passed,
			Progress:     progress,
		}
		return nil
	})
	if err != nil {
		s.logger.Info("course completion rejected", zap.String("enrollment_id", enrollmentID), zap.Error(err))
		return nil, err
	}

	s.cache.Invalidate(ctx, enrollment.StudentID)
	s.metrics.StatusTransition(string(from), string(enrollment.Estatus))
	s.record(ctx, actor, models.AuditActionCourseComplete, "enrollment", enrollment.ID, map[string]string{"estatus": string(from)}, outcome)
	return outcome, nil
}

func (s *EnglishService) lockProgress(ctx context.Context, studentID string) (*models.EnglishProgress, error) {
	progress, err := s.progress.Lock(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock english progress")
	}
	if progress.Niveles == nil {
		progress.Niveles = make(map[int]models.EnglishLevelRecord)
	}
	return progress, nil
}

func (s *EnglishService) record(ctx context.Context, actor *models.JWTClaims, action, resource, id string, before, after interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, AuditEntry{Actor: actor.Actor(), Action: action, Resource: resource, ResourceID: id, Before: before, After: after})
}

// authorizeSelf restricts students to their own records. Other roles pass; route-level RBAC filters them.
func authorizeSelf(actor *models.JWTClaims, studentID string) error {
	if actor == nil || actor.Role != models.RoleStudent {
		return nil
	}
	if actor.StudentID == "" || actor.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only act on their own records")
	}
	return nil
}
