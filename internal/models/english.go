package models

import "time"

// English level bounds and the grade that counts as passing.
const (
	MinEnglishLevel = 1
	MaxEnglishLevel = 6
	PassingGrade    = 70.0
)

// EnglishLevelSource tells where a level grade came from.
type EnglishLevelSource string

// Level record sources. Course records take precedence over diagnostic ones.
const (
	EnglishSourceCourse         EnglishLevelSource = "COURSE"
	EnglishSourceDiagnosticSkip EnglishLevelSource = "DIAGNOSTIC_SKIP"
)

// EnglishLevelRecord is the completion record of one english level for a student.
type EnglishLevelRecord struct {
	ID           string             `db:"id" json:"id"`
	StudentID    string             `db:"student_id" json:"student_id"`
	Nivel        int                `db:"nivel" json:"nivel"`
	Calificacion float64            `db:"calificacion" json:"calificacion"`
	Fuente       EnglishLevelSource `db:"fuente" json:"fuente"`
	EnrollmentID *string            `db:"enrollment_id" json:"enrollment_id,omitempty"`
	ExamID       *string            `db:"exam_id" json:"exam_id,omitempty"`
	RecordedAt   time.Time          `db:"recorded_at" json:"recorded_at"`
}

// EnglishProgress aggregates a student's english levels.
type EnglishProgress struct {
	StudentID              string                     `db:"student_id" json:"student_id"`
	NivelActual            int                        `db:"nivel_actual" json:"nivel_actual"`
	Promedio               *float64                   `db:"promedio" json:"promedio,omitempty"`
	RequisitoCumplido      bool                       `db:"requisito_cumplido" json:"requisito_cumplido"`
	CertificadoDiagnostico bool                       `db:"certificado_diagnostico" json:"certificado_diagnostico"`
	UpdatedAt              time.Time                  `db:"updated_at" json:"updated_at"`
	Niveles                map[int]EnglishLevelRecord `db:"-" json:"niveles"`
}

// ExamType distinguishes diagnostic exams from other english exams.
type ExamType string

// Exam types.
const (
	ExamTypeDiagnostico ExamType = "DIAGNOSTICO"
	ExamTypeUbicacion   ExamType = "UBICACION"
)

// ExamStatus is the lifecycle status of an english exam.
type ExamStatus string

// Exam statuses.
const (
	ExamStatusSolicitado ExamStatus = "SOLICITADO"
	ExamStatusCompletado ExamStatus = "COMPLETADO"
	ExamStatusCancelado  ExamStatus = "CANCELADO"
)

// DiagnosticExam is an english placement exam taken by a student.
type DiagnosticExam struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	ExamType        ExamType      `db:"exam_type" json:"exam_type"`
	Estatus         ExamStatus    `db:"estatus" json:"estatus"`
	Resultado       *float64      `db:"resultado" json:"resultado,omitempty"`
	NivelIngles     *int          `db:"nivel_ingles" json:"nivel_ingles,omitempty"`
	EstadoPago      *PaymentState `db:"estado_pago" json:"estado_pago,omitempty"`
	FechaSolicitud  time.Time     `db:"fecha_solicitud" json:"fecha_solicitud"`
	FechaAplicacion *time.Time    `db:"fecha_aplicacion" json:"fecha_aplicacion,omitempty"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// AwaitingPayment reports whether the exam is blocked behind an unapproved payment.
func (e DiagnosticExam) AwaitingPayment() bool {
	return e.EstadoPago != nil && *e.EstadoPago != PaymentStateAprobado
}

// DiagnosticOutcomeKind tags the result of processing a diagnostic exam.
type DiagnosticOutcomeKind string

// Diagnostic outcomes.
const (
	OutcomeAllLevelsSkipped DiagnosticOutcomeKind = "ALL_LEVELS_SKIPPED"
	OutcomeLevelsSkippedTo  DiagnosticOutcomeKind = "LEVELS_SKIPPED_TO"
	OutcomeNoSkip           DiagnosticOutcomeKind = "NO_SKIP"
)

// DiagnosticOutcome reports what a processed diagnostic exam did to the student's progress.
type DiagnosticOutcome struct {
	Kind               DiagnosticOutcomeKind `json:"kind"`
	ExamID             string                `json:"exam_id"`
	NivelAsignado      int                   `json:"nivel_asignado"`
	NivelesAcreditados []int                 `json:"niveles_acreditados"`
	Mensaje            string                `json:"mensaje"`
	Progress           *EnglishProgress      `json:"progress,omitempty"`
}

// CourseOutcome reports the result of completing an english course.
type CourseOutcome struct {
	EnrollmentID string           `json:"enrollment_id"`
	Nivel        int              `json:"nivel"`
	Calificacion float64          `json:"calificacion"`
	Aprobado     bool             `json:"aprobado"`
	Progress     *EnglishProgress `json:"progress,omitempty"`
}
