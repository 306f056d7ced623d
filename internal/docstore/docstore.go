// Пакет docstore — внешнее хранилище содержимого документов.
//
// Publication Engine не хранит байты файлов: части загрузки потоком
// передаются в хранилище, а локально ведётся только учёт диапазонов.
// Реализации: Documents API (механизм bestandsdelen) и S3-совместимое хранилище.
package docstore

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/bigkaa/woo-publications/internal/domain/ranges"
)

// Ошибки хранилища документов.
var (
	// ErrUnavailable — хранилище недоступно (сеть, 5xx). Клиент может повторить часть.
	ErrUnavailable = errors.New("хранилище документов недоступно")
	// ErrRejected — хранилище отклонило запрос (4xx).
	ErrRejected = errors.New("хранилище документов отклонило запрос")
	// ErrMisaligned — диапазон не совпадает с границами частей хранилища.
	ErrMisaligned = errors.New("диапазон не совпадает с границами частей")
	// ErrNotComplete — хранилище не подтвердило полноту загрузки.
	ErrNotComplete = errors.New("хранилище не подтвердило полноту загрузки")
)

// CreateRequest — метаданные нового документа во внешнем хранилище.
type CreateRequest struct {
	// Identifier — UUID документа в Publication Engine
	Identifier   string
	Title        string
	Description  string
	FileName     string
	ContentType  string
	Size         int64
	CreationDate time.Time
}

// Remote — документ, созданный во внешнем хранилище.
type Remote struct {
	// ID — идентификатор документа в хранилище
	ID string
	// Lock — токен блокировки, требуемый для записи частей
	Lock string
	// Parts — ожидаемые границы частей; nil — допускаются произвольные диапазоны
	Parts []ranges.Range
}

// Store — контракт внешнего хранилища документов.
type Store interface {
	// Name — идентификатор бэкенда (сохраняется в документе как upload_service).
	Name() string
	// Create регистрирует документ и возвращает его идентификатор и блокировку.
	Create(ctx context.Context, req CreateRequest) (Remote, error)
	// Layout возвращает ожидаемые границы частей уже созданного документа.
	Layout(ctx context.Context, remoteID string) ([]ranges.Range, error)
	// WriteRange потоком записывает size байт из r начиная с offset.
	// Возвращает актуальный токен блокировки.
	WriteRange(ctx context.Context, remoteID, lock string, offset int64, r io.Reader, size int64) (string, error)
	// Finalize проверяет полноту загрузки и снимает блокировку.
	Finalize(ctx context.Context, remoteID, lock string) error
	// Delete удаляет документ из хранилища. Отсутствующий документ — не ошибка.
	Delete(ctx context.Context, remoteID string) error
}
