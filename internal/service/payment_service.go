package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

type paymentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	LockByID(ctx context.Context, id string) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
}

// SubmitProofRequest carries the student's payment reference.
type SubmitProofRequest struct {
	Referencia string   `json:"referencia" validate:"required,max=120"`
	MontoPago  *float64 `json:"monto_pago,omitempty" validate:"omitempty,gt=0"`
}

// ApprovePaymentRequest records a received payment.
type ApprovePaymentRequest struct {
	MontoPago     float64 `json:"monto_pago"`
	Observaciones *string `json:"observaciones,omitempty"`
}

// RejectPaymentRequest returns a payment to PENDIENTE_PAGO.
type RejectPaymentRequest struct {
	Motivo string `json:"motivo"`
}

// PaymentService moves payment-gated items through PENDIENTE_PAGO -> PAGO_PENDIENTE_APROBACION -> PAGO_APROBADO.
type PaymentService struct {
	repo      paymentRepository
	items     map[models.PaymentItemType]PaymentItem
	tx        txRunner
	audit     auditRecorder
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService constructs PaymentService. items maps each item type to the item holding its estado_pago.
func NewPaymentService(repo paymentRepository, items map[models.PaymentItemType]PaymentItem, tx txRunner, audit auditRecorder, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, items: items, tx: tx, audit: audit, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Get returns a payment by id.
func (s *PaymentService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment")
	}
	if err := authorizeSelf(actor, payment.StudentID); err != nil {
		return nil, err
	}
	return payment, nil
}

// SubmitProof attaches a payment reference and queues the payment for administrative review.
func (s *PaymentService) SubmitProof(ctx context.Context, id string, req SubmitProofRequest, actor *models.JWTClaims) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment proof")
	}
	var payment *models.Payment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lock(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeSelf(actor, payment.StudentID); err != nil {
			return err
		}
		if payment.Estado != models.PaymentStatePendientePago {
			return appErrors.Clonef(appErrors.ErrPaymentState, "proof can only be submitted while %s; payment is %s", models.PaymentStatePendientePago, payment.Estado)
		}
		ref := strings.TrimSpace(req.Referencia)
		payment.Referencia = &ref
		if req.MontoPago != nil {
			monto := *req.MontoPago
			payment.MontoPago = &monto
		}
		payment.Estado = models.PaymentStatePendienteRevision
		return s.persist(ctx, payment)
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, models.AuditActionPaymentProof, payment, models.PaymentStatePendientePago)
	return payment, nil
}

// Approve records the received amount and unblocks the gated item.
func (s *PaymentService) Approve(ctx context.Context, id string, req ApprovePaymentRequest, actor *models.JWTClaims) (*models.Payment, error) {
	if math.IsNaN(req.MontoPago) || math.IsInf(req.MontoPago, 0) || req.MontoPago <= 0 {
		return nil, appErrors.Clonef(appErrors.ErrInvalidAmount, "monto_pago must be greater than 0, got %v", req.MontoPago)
	}
	var payment *models.Payment
	var from models.PaymentState
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lock(ctx, id)
		if err != nil {
			return err
		}
		if !payment.AwaitingDecision() {
			return appErrors.Clonef(appErrors.ErrPaymentState, "payment %s is already %s", payment.ID, payment.Estado)
		}
		from = payment.Estado
		now := s.now().UTC()
		approved := true
		monto := req.MontoPago
		payment.MontoPago = &monto
		payment.PagoAprobado = &approved
		payment.Observaciones = req.Observaciones
		payment.Motivo = nil
		payment.DecididoPor = actor.Actor()
		payment.FechaDecision = &now
		payment.Estado = models.PaymentStateAprobado
		return s.persist(ctx, payment)
	})
	if err != nil {
		s.logger.Info("payment approval rejected", zap.String("payment_id", id), zap.Error(err))
		return nil, err
	}
	s.metrics.PaymentDecided("approved")
	s.record(ctx, actor, models.AuditActionPaymentApprove, payment, from)
	return payment, nil
}

// Reject returns the payment to PENDIENTE_PAGO so the student can resubmit.
func (s *PaymentService) Reject(ctx context.Context, id string, req RejectPaymentRequest, actor *models.JWTClaims) (*models.Payment, error) {
	motivo := strings.TrimSpace(req.Motivo)
	if motivo == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingReason, "motivo is required to reject a payment")
	}
	var payment *models.Payment
	var from models.PaymentState
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = s.lock(ctx, id)
		if err != nil {
			return err
		}
		if !payment.AwaitingDecision() {
			return appErrors.Clonef(appErrors.ErrPaymentState, "payment %s is already %s", payment.ID, payment.Estado)
		}
		from = payment.Estado
		now := s.now().UTC()
		approved := false
		payment.PagoAprobado = &approved
		payment.Motivo = &motivo
		payment.DecididoPor = actor.Actor()
		payment.FechaDecision = &now
		payment.Estado = models.PaymentStatePendientePago
		return s.persist(ctx, payment)
	})
	if err != nil {
		s.logger.Info("payment rejection rejected", zap.String("payment_id", id), zap.Error(err))
		return nil, err
	}
	s.metrics.PaymentDecided("rejected")
	s.record(ctx, actor, models.AuditActionPaymentReject, payment, from)
	return payment, nil
}

// lock takes the payment row and then the gated item, so decisions never land on a frozen item.
func (s *PaymentService) lock(ctx context.Context, id string) (*models.Payment, error) {
	payment, err := s.repo.LockByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment")
	}
	item, err := s.item(payment)
	if err != nil {
		return nil, err
	}
	if err := item.LockPayable(ctx, payment.ItemID); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) item(payment *models.Payment) (PaymentItem, error) {
	item, ok := s.items[payment.ItemType]
	if !ok {
		return nil, appErrors.Clonef(appErrors.ErrInternal, "no payment item for %s", payment.ItemType)
	}
	return item, nil
}

// persist writes the payment and mirrors its state onto the gated item in the same transaction.
func (s *PaymentService) persist(ctx context.Context, payment *models.Payment) error {
	if err := s.repo.Update(ctx, payment); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment")
	}
	item, err := s.item(payment)
	if err != nil {
		return err
	}
	if err := item.SetPaymentState(ctx, payment.ItemID, payment.Estado); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update payment item")
	}
	return nil
}

func (s *PaymentService) record(ctx context.Context, actor *models.JWTClaims, action string, payment *models.Payment, from models.PaymentState) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Actor:      actor.Actor(),
		Action:     action,
		Resource:   "payment",
		ResourceID: payment.ID,
		Before:     map[string]string{"estado": string(from)},
		After:      map[string]interface{}{"estado": payment.Estado, "item_type": payment.ItemType, "item_id": payment.ItemID, "monto_pago": payment.MontoPago},
	})
}
