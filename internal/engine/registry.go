package engine

import (
	"sort"
	"sync"
)

// Registry — реестр именованных процедур.
//
// Повторная регистрация имени перезаписывает определение. Уже запущенные
// run не затрагиваются: они держат собственную Sequence, а не ссылку на реестр.
// Потокобезопасен.
type Registry struct {
	mu         sync.RWMutex
	procedures map[string]Procedure
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		procedures: make(map[string]Procedure),
	}
}

// Register регистрирует процедуру под именем name.
// Форма процедуры не проверяется — это делает планировщик при запуске.
func (r *Registry) Register(name string, proc Procedure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.procedures[name] = proc
}

// Lookup возвращает процедуру по имени.
func (r *Registry) Lookup(name string) (Procedure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	proc, exists := r.procedures[name]
	return proc, exists
}

// Get возвращает процедуру по имени или *ProcedureNotFoundError.
func (r *Registry) Get(name string) (Procedure, error) {
	proc, exists := r.Lookup(name)
	if !exists {
		return nil, &ProcedureNotFoundError{Name: name}
	}
	return proc, nil
}

// Has проверяет, зарегистрирована ли процедура.
func (r *Registry) Has(name string) bool {
	_, exists := r.Lookup(name)
	return exists
}

// Names возвращает отсортированный список имён.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.procedures))
	for name := range r.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count возвращает количество зарегистрированных процедур.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.procedures)
}

// Unregister удаляет процедуру из реестра.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procedures, name)
}
