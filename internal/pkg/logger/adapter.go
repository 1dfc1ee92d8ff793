package logger

import "conviction_voting/internal/app/port"

// slogAdapter реализует интерфейс port.Logger через глобальные функции пакета logger.
type slogAdapter struct{}

// NewSlogAdapter создает port.Logger поверх глобального логгера.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// Info логирует информационное сообщение.
func (a *slogAdapter) Info(msg string, args ...any) {
	Info(msg, args...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	Debug(msg, args...)
}

// Warn логирует предупреждение.
func (a *slogAdapter) Warn(msg string, args ...any) {
	Warn(msg, args...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	Error(msg, args...)
}
