package models

import "time"

// AuditAction constants represent engine actions recorded in the audit trail.
const (
	AuditActionEnrollmentCreate   = "ENROLLMENT_CREATE"
	AuditActionStatusChange       = "ENROLLMENT_STATUS_CHANGE"
	AuditActionGroupChange        = "ENROLLMENT_GROUP_CHANGE"
	AuditActionGradesUpdate       = "ENROLLMENT_GRADES_UPDATE"
	AuditActionAttendanceUpdate   = "ENROLLMENT_ATTENDANCE_UPDATE"
	AuditActionObservationsUpdate = "ENROLLMENT_OBSERVATIONS_UPDATE"
	AuditActionDiagnosticResult   = "DIAGNOSTIC_RESULT"
	AuditActionCourseComplete     = "ENGLISH_COURSE_COMPLETE"
	AuditActionPaymentProof       = "PAYMENT_PROOF"
	AuditActionPaymentApprove     = "PAYMENT_APPROVE"
	AuditActionPaymentReject      = "PAYMENT_REJECT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	RequestID  *string   `db:"request_id" json:"request_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
