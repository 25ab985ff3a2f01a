package models

import "time"

// PaymentState is the approval state of a payment-gated item.
type PaymentState string

// Payment states. A rejection returns the item to PENDIENTE_PAGO.
const (
	PaymentStatePendientePago     PaymentState = "PENDIENTE_PAGO"
	PaymentStatePendienteRevision PaymentState = "PAGO_PENDIENTE_APROBACION"
	PaymentStateAprobado          PaymentState = "PAGO_APROBADO"
)

// PaymentItemType identifies what a payment unblocks.
type PaymentItemType string

// Payment item types.
const (
	PaymentItemEnrollment     PaymentItemType = "ENROLLMENT"
	PaymentItemDiagnosticExam PaymentItemType = "DIAGNOSTIC_EXAM"
)

// Payment carries the payment information attached to an enrollment or exam.
type Payment struct {
	ID            string          `db:"id" json:"id"`
	ItemType      PaymentItemType `db:"item_type" json:"item_type"`
	ItemID        string          `db:"item_id" json:"item_id"`
	StudentID     string          `db:"student_id" json:"student_id"`
	Estado        PaymentState    `db:"estado" json:"estado"`
	RequierePago  bool            `db:"requiere_pago" json:"requiere_pago"`
	MontoEsperado *float64        `db:"monto_esperado" json:"monto_esperado,omitempty"`
	MontoPago     *float64        `db:"monto_pago" json:"monto_pago,omitempty"`
	PagoAprobado  *bool           `db:"pago_aprobado" json:"pago_aprobado"`
	Referencia    *string         `db:"referencia" json:"referencia,omitempty"`
	Motivo        *string         `db:"motivo" json:"motivo,omitempty"`
	Observaciones *string         `db:"observaciones" json:"observaciones,omitempty"`
	DecididoPor   *string         `db:"decidido_por" json:"decidido_por,omitempty"`
	FechaDecision *time.Time      `db:"fecha_decision" json:"fecha_decision,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// AwaitingDecision reports whether an administrator can still approve or reject the payment.
func (p Payment) AwaitingDecision() bool {
	return p.Estado == PaymentStatePendientePago || p.Estado == PaymentStatePendienteRevision
}
