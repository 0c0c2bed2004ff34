package engine

import "errors"

// Ошибки планировщика.
var (
	// ErrInvalidProcedure — в Run передано значение, не являющееся процедурой,
	// или процедура не вернула последовательность шагов.
	ErrInvalidProcedure = errors.New("invalid procedure")

	// ErrProcedureNotFound — процедура с таким именем не зарегистрирована.
	ErrProcedureNotFound = errors.New("procedure not found")

	// ErrInvalidYield — процедура отдала пустое значение вместо операции.
	ErrInvalidYield = errors.New("invalid yield")

	// ErrCancelled — run отменён через контекст.
	ErrCancelled = errors.New("run cancelled")
)

// ProcedureNotFoundError — ошибка поиска процедуры по имени.
type ProcedureNotFoundError struct {
	Name string // запрошенное имя
}

// Error реализует интерфейс error.
func (e *ProcedureNotFoundError) Error() string {
	return "procedure '" + e.Name + "' does not exist"
}

// Unwrap возвращает базовую ошибку.
func (e *ProcedureNotFoundError) Unwrap() error {
	return ErrProcedureNotFound
}
