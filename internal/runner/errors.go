package runner

import "errors"

var (
	// ErrRunNotFound — run с таким ID неизвестен сервису.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinished — run уже завершён и не может быть отменён.
	ErrRunFinished = errors.New("run already finished")

	// ErrCancelledByUser — причина отмены через Cancel.
	ErrCancelledByUser = errors.New("cancelled by user")

	// ErrShuttingDown — сервис останавливается и не принимает новые run.
	ErrShuttingDown = errors.New("runner is shutting down")
)
