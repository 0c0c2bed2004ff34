package mq

import "errors"

var (
	// ErrNoChannel — канал ещё не открыт или соединение потеряно.
	ErrNoChannel = errors.New("no channel available")

	// ErrConnectionClosed — соединение закрыто через Close.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrPermanent — обработка не удастся и при повторе.
	// Такие сообщения уходят в DLQ без requeue.
	ErrPermanent = errors.New("permanent failure")
)

// Permanent помечает ошибку обработчика как неисправимую.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrPermanent, err)
}
