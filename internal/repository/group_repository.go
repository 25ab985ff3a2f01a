package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	"github.com/noah-isme/sia-enrollment-engine/pkg/database"
)

const groupColumns = `id, clave, nombre, materia_id, docente_id, nivel_ingles, cupo_actual, cupo_maximo, cupo_minimo, estatus, created_at, updated_at`

// GroupRepository reads groups and persists their seat counter.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs the repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID returns a group without locking it.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	query := "SELECT " + groupColumns + " FROM groups WHERE id = $1"
	var group models.Group
	if err := database.Conn(ctx, r.db).GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// LockByID reads a group holding a row lock until the surrounding transaction ends.
// Callers must run inside a transaction; outside one the lock is released immediately.
func (r *GroupRepository) LockByID(ctx context.Context, id string) (*models.Group, error) {
	query := "SELECT " + groupColumns + " FROM groups WHERE id = $1 FOR UPDATE"
	var group models.Group
	if err := database.Conn(ctx, r.db).GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateCupoActual writes the seat counter. The CHECK constraint on groups backs the ledger's bounds.
func (r *GroupRepository) UpdateCupoActual(ctx context.Context, id string, cupoActual int) error {
	const query = `UPDATE groups SET cupo_actual = $2, updated_at = $3 WHERE id = $1`
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, cupoActual, time.Now().UTC()); err != nil {
		return fmt.Errorf("update group capacity: %w", err)
	}
	return nil
}

// List returns groups filtered by status and english level.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Estatus != "" {
		conditions = append(conditions, fmt.Sprintf("estatus = $%d", len(args)+1))
		args = append(args, filter.Estatus)
	}
	if filter.NivelIngles != nil {
		conditions = append(conditions, fmt.Sprintf("nivel_ingles = $%d", len(args)+1))
		args = append(args, *filter.NivelIngles)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}
	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM groups%s ORDER BY clave LIMIT %d OFFSET %d", groupColumns, clause, size, (page-1)*size)

	var groups []models.Group
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}
	var total int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) FROM groups"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}
	return groups, total, nil
}

func normalisePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
