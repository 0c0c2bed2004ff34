package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/ndo/internal/domain"
)

// RunRepo — архив завершённых runs.
type RunRepo struct {
	pool *pgxpool.Pool
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Save записывает run (повторная запись с тем же ID обновляет статус).
func (r *RunRepo) Save(ctx context.Context, run *domain.Run) error {
	argsJSON, err := json.Marshal(run.Args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}

	query := `
		INSERT INTO runs (id, procedure, args, status, source, started_at, finished_at, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET status      = EXCLUDED.status,
		    started_at  = EXCLUDED.started_at,
		    finished_at = EXCLUDED.finished_at,
		    error       = EXCLUDED.error
	`
	_, err = r.pool.Exec(ctx, query,
		run.ID,
		run.Procedure,
		argsJSON,
		string(run.Status),
		nullString(run.Source),
		run.StartedAt,
		run.FinishedAt,
		nullString(run.Error),
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetByID возвращает run по ID.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, procedure, args, status, source, started_at, finished_at, error, created_at
		FROM runs
		WHERE id = $1
	`
	run, err := scanRun(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	Procedure string
	Status    domain.RunStatus
	Limit     int
}

// List возвращает runs, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, procedure, args, status, source, started_at, finished_at, error, created_at
		FROM runs
		WHERE ($1::text IS NULL OR procedure = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.Procedure),
		nullString(string(filter.Status)),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanRun сканирует одну строку в Run. pgx.Rows тоже реализует pgx.Row.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var (
		run      domain.Run
		status   string
		argsJSON []byte
		source   *string
		runError *string
	)

	err := row.Scan(
		&run.ID,
		&run.Procedure,
		&argsJSON,
		&status,
		&source,
		&run.StartedAt,
		&run.FinishedAt,
		&runError,
		&run.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	if argsJSON != nil {
		if err := json.Unmarshal(argsJSON, &run.Args); err != nil {
			return nil, fmt.Errorf("unmarshal args: %w", err)
		}
	}
	if source != nil {
		run.Source = *source
	}
	if runError != nil {
		run.Error = *runError
	}
	return &run, nil
}
