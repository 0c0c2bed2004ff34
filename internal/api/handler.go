package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/ndo/internal/domain"
	"github.com/shaiso/ndo/internal/engine"
	"github.com/shaiso/ndo/internal/procedure"
)

// Runs — операции над run (runner.Service).
type Runs interface {
	Start(ctx context.Context, name string, args []any, source string) (*domain.Run, error)
	Get(id uuid.UUID) (*domain.Run, error)
	List() []domain.Run
	Cancel(id uuid.UUID) error
}

// Catalog — постоянное хранилище определений (repo.ProcedureRepo).
type Catalog interface {
	Upsert(ctx context.Context, def *domain.ProcedureDef) error
	Delete(ctx context.Context, name string) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	registry *engine.Registry
	compiler *procedure.Compiler
	runs     Runs
	catalog  Catalog
	logger   *slog.Logger

	mu   sync.RWMutex
	defs map[string]*domain.ProcedureDef
}

// Config — конфигурация для создания Handler.
type Config struct {
	Registry *engine.Registry
	Compiler *procedure.Compiler
	Runs     Runs
	Logger   *slog.Logger

	// Catalog — опционально. Без него PUT меняет только реестр в памяти.
	Catalog Catalog

	// Definitions — уже установленные декларативные определения.
	Definitions []*domain.ProcedureDef
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	compiler := cfg.Compiler
	if compiler == nil {
		compiler = procedure.NewCompiler(nil)
	}

	h := &Handler{
		registry: cfg.Registry,
		compiler: compiler,
		runs:     cfg.Runs,
		catalog:  cfg.Catalog,
		logger:   cfg.Logger,
		defs:     make(map[string]*domain.ProcedureDef, len(cfg.Definitions)),
	}
	for _, def := range cfg.Definitions {
		h.defs[def.Name] = def
	}
	return h
}

func (h *Handler) definition(name string) (*domain.ProcedureDef, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	def, ok := h.defs[name]
	return def, ok
}
