package steps

import (
	"fmt"
	"slices"
	"sync"
)

// Registry сопоставляет тип листового шага с его реализацией.
//
// Шаги run и parallel сюда не попадают: они порождают вложенные run
// и собираются компилятором процедур.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Step
}

// NewRegistry создаёт реестр с заданными шагами.
func NewRegistry(steps ...Step) *Registry {
	r := &Registry{byType: make(map[string]Step, len(steps))}
	for _, s := range steps {
		r.byType[s.Type()] = s
	}
	return r
}

// DefaultRegistry — delay, http, transform и fail.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewDelayStep(),
		NewHTTPStep(),
		NewTransformStep(),
		NewFailStep(),
	)
}

// Register добавляет шаг, заменяя прежний того же типа.
func (r *Registry) Register(step Step) {
	r.mu.Lock()
	r.byType[step.Type()] = step
	r.mu.Unlock()
}

// Get возвращает шаг или ErrStepNotFound.
func (r *Registry) Get(stepType string) (Step, error) {
	r.mu.RLock()
	step, ok := r.byType[stepType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, stepType)
	}
	return step, nil
}

func (r *Registry) Has(stepType string) bool {
	_, err := r.Get(stepType)
	return err == nil
}

// Types возвращает отсортированные типы шагов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
