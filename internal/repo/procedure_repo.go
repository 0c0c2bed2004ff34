package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/ndo/internal/domain"
)

// ProcedureRepo — каталог определений процедур.
//
// Определение целиком хранится в JSONB колонке definition, name
// и description дублируются для выборок без декодирования.
type ProcedureRepo struct {
	pool *pgxpool.Pool
}

// NewProcedureRepo создаёт новый ProcedureRepo.
func NewProcedureRepo(pool *pgxpool.Pool) *ProcedureRepo {
	return &ProcedureRepo{pool: pool}
}

// Upsert создаёт или заменяет определение с тем же именем.
func (r *ProcedureRepo) Upsert(ctx context.Context, def *domain.ProcedureDef) error {
	if def.UpdatedAt.IsZero() {
		def.UpdatedAt = time.Now()
	}
	definition, err := encodeDefinition(def)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO procedures (name, description, definition, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET description = EXCLUDED.description,
		    definition  = EXCLUDED.definition,
		    updated_at  = EXCLUDED.updated_at
	`
	_, err = r.pool.Exec(ctx, query,
		def.Name,
		nullString(def.Description),
		definition,
		def.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert procedure: %w", err)
	}
	return nil
}

// Get возвращает определение по имени.
func (r *ProcedureRepo) Get(ctx context.Context, name string) (*domain.ProcedureDef, error) {
	query := `
		SELECT definition, updated_at
		FROM procedures
		WHERE name = $1
	`
	var (
		definition []byte
		updatedAt  time.Time
	)
	err := r.pool.QueryRow(ctx, query, name).Scan(&definition, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get procedure: %w", err)
	}
	return decodeDefinition(definition, updatedAt)
}

// List возвращает все определения, отсортированные по имени.
func (r *ProcedureRepo) List(ctx context.Context) ([]*domain.ProcedureDef, error) {
	query := `
		SELECT definition, updated_at
		FROM procedures
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list procedures: %w", err)
	}
	defer rows.Close()

	var defs []*domain.ProcedureDef
	for rows.Next() {
		var (
			definition []byte
			updatedAt  time.Time
		)
		if err := rows.Scan(&definition, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan procedure: %w", err)
		}
		def, err := decodeDefinition(definition, updatedAt)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// Delete удаляет определение.
func (r *ProcedureRepo) Delete(ctx context.Context, name string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM procedures WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete procedure: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func encodeDefinition(def *domain.ProcedureDef) ([]byte, error) {
	data, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal procedure %s: %w", def.Name, err)
	}
	return data, nil
}

// decodeDefinition восстанавливает определение из JSONB.
// updated_at колонки приоритетнее значения внутри JSON.
func decodeDefinition(data []byte, updatedAt time.Time) (*domain.ProcedureDef, error) {
	var def domain.ProcedureDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("%w: procedure without name", ErrCorrupted)
	}
	def.UpdatedAt = updatedAt
	return &def, nil
}
