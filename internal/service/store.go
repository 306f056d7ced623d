package service

import (
	"context"
	"time"

	"github.com/bigkaa/woo-publications/internal/repository"
)

// Store — доступ сервисов к хранилищу записей.
// Реализуется repository.Store; в тестах — хранилищем в памяти.
type Store interface {
	// Repos — репозитории вне транзакции.
	Repos() *repository.Repositories
	// InTx выполняет fn в одной транзакции; ошибка fn откатывает всё.
	InTx(ctx context.Context, fn func(r *repository.Repositories) error) error
}

// Notifier будит синхронизатор индекса после фиксации задач.
type Notifier interface {
	Notify()
}

// clock — источник времени (подменяется в тестах).
type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}
