package models

import "time"

// StudentStatus is the academic status of a student.
type StudentStatus string

// Student statuses.
const (
	StudentStatusActivo   StudentStatus = "ACTIVO"
	StudentStatusInactivo StudentStatus = "INACTIVO"
	StudentStatusEgresado StudentStatus = "EGRESADO"
)

// Student is the read-only directory view of a student.
type Student struct {
	ID        string        `db:"id" json:"id"`
	Matricula string        `db:"matricula" json:"matricula"`
	FullName  string        `db:"full_name" json:"full_name"`
	UserID    *string       `db:"user_id" json:"user_id,omitempty"`
	Estatus   StudentStatus `db:"estatus" json:"estatus"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// CanEnroll reports whether the student may gain new enrollments.
func (s Student) CanEnroll() bool {
	return s.Estatus == StudentStatusActivo
}
