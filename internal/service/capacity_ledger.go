package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

type groupLedgerRepository interface {
	LockByID(ctx context.Context, id string) (*models.Group, error)
	UpdateCupoActual(ctx context.Context, id string, cupoActual int) error
}

// txRunner executes fn atomically. Nested calls join the outer unit of work.
type txRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CapacityLedger is the only writer of a group's cupoActual. Every operation reads and writes the
// counter under the group's row lock inside one transaction.
type CapacityLedger struct {
	groups  groupLedgerRepository
	tx      txRunner
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCapacityLedger constructs a CapacityLedger.
func NewCapacityLedger(groups groupLedgerRepository, tx txRunner, metrics *MetricsService, logger *zap.Logger) *CapacityLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityLedger{groups: groups, tx: tx, metrics: metrics, logger: logger}
}

// Reserve takes one seat in the group, failing with GroupFull or GroupUnavailable.
func (l *CapacityLedger) Reserve(ctx context.Context, groupID string) error {
	return l.tx.WithinTx(ctx, func(ctx context.Context) error {
		group, err := l.lock(ctx, groupID)
		if err != nil {
			return err
		}
		if err := checkReservable(group); err != nil {
			l.metrics.CapacityRejected(appErrors.FromError(err).Code)
			l.logger.Info("seat reservation rejected", zap.String("group_id", groupID), zap.Int("cupo_actual", group.CupoActual), zap.Int("cupo_maximo", group.CupoMaximo), zap.Error(err))
			return err
		}
		if err := l.groups.UpdateCupoActual(ctx, groupID, group.CupoActual+1); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve seat")
		}
		l.metrics.SeatMoved("reserve")
		return nil
	})
}

// Release frees one seat in the group. The counter never drops below zero.
func (l *CapacityLedger) Release(ctx context.Context, groupID string) error {
	return l.tx.WithinTx(ctx, func(ctx context.Context) error {
		group, err := l.lock(ctx, groupID)
		if err != nil {
			return err
		}
		next := group.CupoActual - 1
		if next < 0 {
			l.logger.Warn("release on empty group", zap.String("group_id", groupID))
			next = 0
		}
		if next == group.CupoActual {
			return nil
		}
		if err := l.groups.UpdateCupoActual(ctx, groupID, next); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release seat")
		}
		l.metrics.SeatMoved("release")
		return nil
	})
}

func (l *CapacityLedger) lock(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := l.groups.LockByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clonef(appErrors.ErrNotFound, "group %s not found", groupID)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock group")
	}
	return group, nil
}

func checkReservable(group *models.Group) error {
	if !group.Estatus.AcceptsEnrollments() {
		return appErrors.Clonef(appErrors.ErrGroupUnavailable, "group %s is %s", group.Clave, group.Estatus)
	}
	if group.CupoActual >= group.CupoMaximo {
		return appErrors.Clonef(appErrors.ErrGroupFull, "group %s is full (%d/%d)", group.Clave, group.CupoActual, group.CupoMaximo)
	}
	return nil
}
