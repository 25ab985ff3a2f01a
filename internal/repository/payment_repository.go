package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/pkg/database"
)

const paymentColumns = `id, item_type, item_id, student_id, estado, requiere_pago, monto_esperado, monto_pago, pago_aprobado,
        referencia, motivo, observaciones, decidido_por, fecha_decision, created_at, updated_at`

// PaymentRepository persists payment information of gated items.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a payment in PENDIENTE_PAGO.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if payment.Estado == "" {
		payment.Estado = models.PaymentStatePendientePago
	}
	query := `INSERT INTO payments (` + paymentColumns + `) VALUES (:id, :item_type, :item_id, :student_id, :estado, :requiere_pago,
        :monto_esperado, :monto_pago, :pago_aprobado, :referencia, :motivo, :observaciones, :decidido_por, :fecha_decision, :created_at, :updated_at)`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// FindByID returns a payment by id.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := database.Conn(ctx, r.db).GetContext(ctx, &payment, "SELECT "+paymentColumns+" FROM payments WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// LockByID returns a payment holding its row lock.
func (r *PaymentRepository) LockByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := database.Conn(ctx, r.db).GetContext(ctx, &payment, "SELECT "+paymentColumns+" FROM payments WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Update stores the decision columns of a payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payments SET estado = :estado, monto_pago = :monto_pago, pago_aprobado = :pago_aprobado,
        referencia = :referencia, motivo = :motivo, observaciones = :observaciones, decidido_por = :decidido_por,
        fecha_decision = :fecha_decision, updated_at = :updated_at WHERE id = :id`
	if _, err := database.Conn(ctx, r.db).NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	return nil
}
