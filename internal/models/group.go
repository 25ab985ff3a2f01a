package models

import "time"

// GroupStatus is the lifecycle status of a course group.
type GroupStatus string

// Group statuses.
const (
	GroupStatusAbierto    GroupStatus = "ABIERTO"
	GroupStatusEnCurso    GroupStatus = "EN_CURSO"
	GroupStatusCerrado    GroupStatus = "CERRADO"
	GroupStatusCancelado  GroupStatus = "CANCELADO"
	GroupStatusFinalizado GroupStatus = "FINALIZADO"
)

// AcceptsEnrollments reports whether seats may still be reserved in a group with this status.
func (s GroupStatus) AcceptsEnrollments() bool {
	switch s {
	case GroupStatusCerrado, GroupStatusCancelado, GroupStatusFinalizado:
		return false
	}
	return true
}

// Group is a course group with seat accounting. Only the capacity ledger mutates CupoActual.
type Group struct {
	ID          string      `db:"id" json:"id"`
	Clave       string      `db:"clave" json:"clave"`
	Nombre      string      `db:"nombre" json:"nombre"`
	MateriaID   *string     `db:"materia_id" json:"materia_id,omitempty"`
	DocenteID   *string     `db:"docente_id" json:"docente_id,omitempty"`
	NivelIngles *int        `db:"nivel_ingles" json:"nivel_ingles,omitempty"`
	CupoActual  int         `db:"cupo_actual" json:"cupo_actual"`
	CupoMaximo  int         `db:"cupo_maximo" json:"cupo_maximo"`
	CupoMinimo  int         `db:"cupo_minimo" json:"cupo_minimo"`
	Estatus     GroupStatus `db:"estatus" json:"estatus"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// SeatsAvailable returns the number of free seats, never negative.
func (g Group) SeatsAvailable() int {
	if g.CupoActual >= g.CupoMaximo {
		return 0
	}
	return g.CupoMaximo - g.CupoActual
}

// TaughtBy reports whether the given teacher owns the group.
func (g Group) TaughtBy(teacherID string) bool {
	return g.DocenteID != nil && *g.DocenteID == teacherID
}

// GroupFilter defines filter criteria for listing groups.
type GroupFilter struct {
	Estatus     GroupStatus
	NivelIngles *int
	Page        int
	PageSize    int
}
