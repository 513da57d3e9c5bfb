// Package postgres stores goals in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"savings/internal/core"
	"savings/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS savings_goals (
    id             UUID PRIMARY KEY,
    owner_id       TEXT NOT NULL,
    name           TEXT NOT NULL,
    target_amount  NUMERIC(14, 2) NOT NULL CHECK (target_amount > 0),
    current_amount NUMERIC(14, 2) NOT NULL CHECK (current_amount >= 0),
    deadline       DATE NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_savings_goals_owner_created
    ON savings_goals (owner_id, created_at DESC);
`

const selectGoal = `SELECT id::text, owner_id, name, target_amount::text, current_amount::text,
       deadline::text, created_at, updated_at
  FROM savings_goals`

type Repository struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and creates the schema if needed.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	slog.InfoContext(ctx, "Connected to PostgreSQL", "max_conns", pool.Config().MaxConns)
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]core.SavingsGoal, error) {
	rows, err := r.pool.Query(ctx, selectGoal+` WHERE owner_id = $1 ORDER BY created_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []core.SavingsGoal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return goals, nil
}

func (r *Repository) Get(ctx context.Context, ownerID, id string) (core.SavingsGoal, error) {
	if !validID(id) {
		return core.SavingsGoal{}, storage.ErrNoRecord
	}
	row := r.pool.QueryRow(ctx, selectGoal+` WHERE id = $1::uuid AND owner_id = $2`, id, ownerID)
	return scanGoal(row)
}

func (r *Repository) Insert(ctx context.Context, g core.SavingsGoal) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO savings_goals (id, owner_id, name, target_amount, current_amount, deadline, created_at, updated_at)
VALUES ($1::uuid, $2, $3, $4::numeric, $5::numeric, $6::date, $7, $8)`,
		g.ID, g.OwnerID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(),
		g.Deadline.String(), g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

// Update applies p in a single statement; unset fields keep their value.
func (r *Repository) Update(ctx context.Context, ownerID, id string, p core.Patch, updatedAt time.Time) (core.SavingsGoal, error) {
	if !validID(id) {
		return core.SavingsGoal{}, storage.ErrNoRecord
	}
	var deadline *string
	if p.Deadline != nil {
		s := p.Deadline.String()
		deadline = &s
	}
	row := r.pool.QueryRow(ctx, `
UPDATE savings_goals
   SET name           = COALESCE($3, name),
       target_amount  = COALESCE($4::numeric, target_amount),
       current_amount = COALESCE($5::numeric, current_amount),
       deadline       = COALESCE($6::date, deadline),
       updated_at     = $7
 WHERE id = $1::uuid AND owner_id = $2
RETURNING id::text, owner_id, name, target_amount::text, current_amount::text,
          deadline::text, created_at, updated_at`,
		id, ownerID, p.Name, decimalArg(p.TargetAmount), decimalArg(p.CurrentAmount), deadline, updatedAt)
	return scanGoal(row)
}

func (r *Repository) Delete(ctx context.Context, ownerID, id string) error {
	if !validID(id) {
		return storage.ErrNoRecord
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM savings_goals WHERE id = $1::uuid AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNoRecord
	}
	return nil
}

// validID filters ids the uuid column could never hold.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func decimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func scanGoal(row pgx.Row) (core.SavingsGoal, error) {
	var (
		g                   core.SavingsGoal
		target, current, dl string
	)
	err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &target, &current, &dl, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.SavingsGoal{}, storage.ErrNoRecord
	}
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("scan goal: %w", err)
	}
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return g, fmt.Errorf("decode target_amount of %s: %w", g.ID, err)
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return g, fmt.Errorf("decode current_amount of %s: %w", g.ID, err)
	}
	if g.Deadline, err = core.ParseDate(dl); err != nil {
		return g, fmt.Errorf("decode deadline of %s: %w", g.ID, err)
	}
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return g, nil
}
