package service

import (
	"context"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

// PaymentItem is the item a payment gates (enrollment or exam).
type PaymentItem interface {
	// LockPayable locks the item and fails when its payment can no longer change.
	LockPayable(ctx context.Context, id string) error
	SetPaymentState(ctx context.Context, id string, state models.PaymentState) error
}

type enrollmentItemRepository interface {
	LockByID(ctx context.Context, id string) (*models.Enrollment, error)
	SetPaymentState(ctx context.Context, id string, state models.PaymentState) error
}

type examItemRepository interface {
	LockByID(ctx context.Context, id string) (*models.DiagnosticExam, error)
	SetPaymentState(ctx context.Context, id string, state models.PaymentState) error
}

type enrollmentPaymentItem struct {
	enrollmentItemRepository
}

// EnrollmentPaymentItem gates enrollments. Terminal enrollments are frozen; BAJA stays payable
// because reactivation requires an approved payment.
func EnrollmentPaymentItem(repo enrollmentItemRepository) PaymentItem {
	return enrollmentPaymentItem{repo}
}

func (i enrollmentPaymentItem) LockPayable(ctx context.Context, id string) error {
	enrollment, err := i.LockByID(ctx, id)
	if err != nil {
		return lookupError(err, "enrollment")
	}
	if enrollment.Estatus.Terminal() {
		return appErrors.Clonef(appErrors.ErrImmutableState, "enrollment %s is %s; its payment can no longer change", enrollment.ID, enrollment.Estatus)
	}
	return nil
}

type examPaymentItem struct {
	examItemRepository
}

// ExamPaymentItem gates diagnostic exams. Only requested exams are payable.
func ExamPaymentItem(repo examItemRepository) PaymentItem {
	return examPaymentItem{repo}
}

func (i examPaymentItem) LockPayable(ctx context.Context, id string) error {
	exam, err := i.LockByID(ctx, id)
	if err != nil {
		return lookupError(err, "exam")
	}
	if exam.Estatus != models.ExamStatusSolicitado {
		return appErrors.Clonef(appErrors.ErrImmutableState, "exam %s is %s; its payment can no longer change", exam.ID, exam.Estatus)
	}
	return nil
}
