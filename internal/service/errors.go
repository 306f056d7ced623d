// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/woo-publications/internal/docstore"
	"github.com/bigkaa/woo-publications/internal/domain/status"
	"github.com/bigkaa/woo-publications/internal/repository"
)

var (
	// ErrNotFound — сущность не найдена.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrConflict — конфликт с текущим состоянием записи.
	ErrConflict = errors.New("конфликт с текущим состоянием")
	// ErrInvalidTransition — переход статуса недопустим.
	ErrInvalidTransition = errors.New("недопустимый переход статуса")
	// ErrUploadIncomplete — публикация документа без полностью загруженного файла.
	ErrUploadIncomplete = errors.New("файл документа загружен не полностью")
	// ErrIncompleteRanges — принятые диапазоны не покрывают файл целиком.
	ErrIncompleteRanges = errors.New("диапазоны загрузки покрывают файл не полностью")
	// ErrUploadExpired — сессия загрузки истекла.
	ErrUploadExpired = errors.New("сессия загрузки истекла")
	// ErrDocumentAlreadyComplete — файл документа уже загружен.
	ErrDocumentAlreadyComplete = errors.New("файл документа уже загружен")
	// ErrExternalServiceUnavailable — внешнее хранилище документов недоступно.
	ErrExternalServiceUnavailable = errors.New("внешний сервис недоступен")
	// ErrIndexSyncExhausted — задача синхронизации индекса исчерпала попытки.
	ErrIndexSyncExhausted = errors.New("попытки синхронизации индекса исчерпаны")
)

// mapRepoErr переводит ошибки репозитория в ошибки сервиса.
func mapRepoErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %s: %v", ErrConflict, what, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

// transitionErr оборачивает *status.TransitionError в ErrInvalidTransition.
func transitionErr(err error) error {
	var te *status.TransitionError
	if errors.As(err, &te) {
		return fmt.Errorf("%w: %s", ErrInvalidTransition, te.Message)
	}
	return err
}

// mapStoreErr переводит ошибки хранилища документов.
func mapStoreErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrMisaligned), errors.Is(err, docstore.ErrShortBody):
		return fmt.Errorf("%w: %s: %v", ErrValidation, op, err)
	case errors.Is(err, docstore.ErrNotComplete):
		return fmt.Errorf("%w: %s: %v", ErrIncompleteRanges, op, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrExternalServiceUnavailable, op, err)
	}
}
