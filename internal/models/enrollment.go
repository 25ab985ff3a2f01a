package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusInscrito  EnrollmentStatus = "INSCRITO"
	EnrollmentStatusEnCurso   EnrollmentStatus = "EN_CURSO"
	EnrollmentStatusBaja      EnrollmentStatus = "BAJA"
	EnrollmentStatusAprobado  EnrollmentStatus = "APROBADO"
	EnrollmentStatusReprobado EnrollmentStatus = "REPROBADO"
	EnrollmentStatusCancelado EnrollmentStatus = "CANCELADO"
)

// Terminal reports whether the status freezes every field except observations.
func (s EnrollmentStatus) Terminal() bool {
	switch s {
	case EnrollmentStatusAprobado, EnrollmentStatusReprobado, EnrollmentStatusCancelado:
		return true
	}
	return false
}

// EnrollmentType classifies why a student is enrolled.
type EnrollmentType string

// Enrollment types.
const (
	EnrollmentTypeNormal       EnrollmentType = "NORMAL"
	EnrollmentTypeEspecial     EnrollmentType = "ESPECIAL"
	EnrollmentTypeRepeticion   EnrollmentType = "REPETICION"
	EnrollmentTypeEquivalencia EnrollmentType = "EQUIVALENCIA"
	EnrollmentTypeCursoIngles  EnrollmentType = "CURSO_INGLES"
)

// Valid reports whether t is a known enrollment type.
func (t EnrollmentType) Valid() bool {
	switch t {
	case EnrollmentTypeNormal, EnrollmentTypeEspecial, EnrollmentTypeRepeticion, EnrollmentTypeEquivalencia, EnrollmentTypeCursoIngles:
		return true
	}
	return false
}

// Enrollment captures a student's registration to a group.
type Enrollment struct {
	ID                   string           `db:"id" json:"id"`
	StudentID            string           `db:"student_id" json:"student_id"`
	GroupID              string           `db:"group_id" json:"group_id"`
	TipoInscripcion      EnrollmentType   `db:"tipo_inscripcion" json:"tipo_inscripcion"`
	Estatus              EnrollmentStatus `db:"estatus" json:"estatus"`
	NivelIngles          *int             `db:"nivel_ingles" json:"nivel_ingles,omitempty"`
	EstadoPago           *PaymentState    `db:"estado_pago" json:"estado_pago,omitempty"`
	CalificacionParcial1 *float64         `db:"calificacion_parcial1" json:"calificacion_parcial1,omitempty"`
	CalificacionParcial2 *float64         `db:"calificacion_parcial2" json:"calificacion_parcial2,omitempty"`
	CalificacionParcial3 *float64         `db:"calificacion_parcial3" json:"calificacion_parcial3,omitempty"`
	CalificacionFinal    *float64         `db:"calificacion_final" json:"calificacion_final,omitempty"`
	CalificacionExtra    *float64         `db:"calificacion_extra" json:"calificacion_extra,omitempty"`
	Asistencias          int              `db:"asistencias" json:"asistencias"`
	Faltas               int              `db:"faltas" json:"faltas"`
	Retardos             int              `db:"retardos" json:"retardos"`
	PorcentajeAsistencia *float64         `db:"porcentaje_asistencia" json:"porcentaje_asistencia,omitempty"`
	Aprobado             bool             `db:"aprobado" json:"aprobado"`
	FechaAprobacion      *time.Time       `db:"fecha_aprobacion" json:"fecha_aprobacion,omitempty"`
	Observaciones        string           `db:"observaciones" json:"observaciones"`
	FechaInscripcion     time.Time        `db:"fecha_inscripcion" json:"fecha_inscripcion"`
	FechaBaja            *time.Time       `db:"fecha_baja" json:"fecha_baja,omitempty"`
	UpdatedAt            time.Time        `db:"updated_at" json:"updated_at"`
}

// Partials returns the three partial grades in order.
func (e Enrollment) Partials() []*float64 {
	return []*float64{e.CalificacionParcial1, e.CalificacionParcial2, e.CalificacionParcial3}
}

// AwaitingPayment reports whether the enrollment is blocked behind an unapproved payment.
func (e Enrollment) AwaitingPayment() bool {
	return e.EstadoPago != nil && *e.EstadoPago != PaymentStateAprobado
}

// EnrollmentDetail enriches Enrollment with student and group info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	Matricula   string `db:"matricula" json:"matricula"`
	GroupClave  string `db:"group_clave" json:"group_clave"`
	GroupName   string `db:"group_name" json:"group_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID       string
	GroupID         string
	Estatus         EnrollmentStatus
	TipoInscripcion EnrollmentType
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
