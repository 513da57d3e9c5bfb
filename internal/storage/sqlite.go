package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"savings/internal/core"

	_ "modernc.org/sqlite"
)

// timeLayout keeps a fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const goalColumns = `id, owner_id, name, target_amount, current_amount, deadline, created_at, updated_at`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListByOwner implements GoalRecords.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID)
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

// Get implements GoalRecords.
func (r *SQLiteRepository) Get(ctx context.Context, ownerID, id string) (core.SavingsGoal, error) {
	return r.get(ctx, r.db, ownerID, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteRepository) get(ctx context.Context, q querier, ownerID, id string) (core.SavingsGoal, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM savings_goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, ErrNoRecord
	}
	return g, err
}

// Insert implements GoalRecords.
func (r *SQLiteRepository) Insert(ctx context.Context, g core.SavingsGoal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.OwnerID, g.Name,
		g.TargetAmount.String(), g.CurrentAmount.String(), g.Deadline.String(),
		g.CreatedAt.UTC().Format(timeLayout), g.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}

	slog.DebugContext(ctx, "Goal saved to SQLite", "goal_id", g.ID, "owner_id", g.OwnerID)
	return nil
}

// Update implements GoalRecords. The read and the write run in one
// transaction so a concurrent delete cannot resurrect the row.
func (r *SQLiteRepository) Update(ctx context.Context, ownerID, id string, p core.Patch, updatedAt time.Time) (core.SavingsGoal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := r.get(ctx, tx, ownerID, id)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	next := p.Apply(current)
	next.UpdatedAt = updatedAt

	_, err = tx.ExecContext(ctx,
		`UPDATE savings_goals
		    SET name = ?, target_amount = ?, current_amount = ?, deadline = ?, updated_at = ?
		  WHERE id = ? AND owner_id = ?`,
		next.Name, next.TargetAmount.String(), next.CurrentAmount.String(), next.Deadline.String(),
		updatedAt.UTC().Format(timeLayout), id, ownerID)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("update goal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.SavingsGoal{}, fmt.Errorf("commit update: %w", err)
	}
	return next, nil
}

// Delete implements GoalRecords.
func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n == 0 {
		return ErrNoRecord
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGoal(s scanner) (core.SavingsGoal, error) {
	var (
		g                    core.SavingsGoal
		target, current, dl  string
		createdAt, updatedAt string
	)
	if err := s.Scan(&g.ID, &g.OwnerID, &g.Name, &target, &current, &dl, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return g, err
		}
		return g, fmt.Errorf("scan goal: %w", err)
	}

	var err error
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return g, fmt.Errorf("decode target_amount of %s: %w", g.ID, err)
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return g, fmt.Errorf("decode current_amount of %s: %w", g.ID, err)
	}
	if g.Deadline, err = core.ParseDate(dl); err != nil {
		return g, fmt.Errorf("decode deadline of %s: %w", g.ID, err)
	}
	if g.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return g, fmt.Errorf("decode created_at of %s: %w", g.ID, err)
	}
	if g.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return g, fmt.Errorf("decode updated_at of %s: %w", g.ID, err)
	}
	return g, nil
}
