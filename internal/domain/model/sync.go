package model

import (
	"time"

	"github.com/bigkaa/woo-publications/internal/domain/ranges"
)

// IndexOperation — операция над поисковым индексом.
type IndexOperation string

const (
	IndexUpsert IndexOperation = "upsert"
	IndexRemove IndexOperation = "remove"
)

// IndexTaskState — состояние задачи синхронизации.
type IndexTaskState string

const (
	// TaskPending — ожидает обработки (в том числе после неудачной попытки).
	TaskPending IndexTaskState = "pending"
	// TaskFailed — исчерпан лимит попыток, требуется внимание оператора.
	TaskFailed IndexTaskState = "failed"
)

// IndexSyncTask — задача синхронизации с поисковым индексом (outbox).
// Хранится в таблице index_sync_tasks, порядок задач задаётся ID.
type IndexSyncTask struct {
	// ID — монотонный идентификатор (порядок постановки)
	ID int64
	// EntityType — тип сущности
	EntityType EntityType
	// EntityID — UUID сущности
	EntityID string
	// Operation — upsert или remove
	Operation IndexOperation
	// Force — удалить из индекса независимо от текущего статуса
	Force bool
	// EnqueuedAt — время постановки в очередь
	EnqueuedAt time.Time
	// AttemptCount — количество неудачных попыток
	AttemptCount int
	// LastError — текст последней ошибки
	LastError *string
	// State — pending или failed
	State IndexTaskState
	// NextAttemptAt — не раньше этого времени задача может быть взята
	NextAttemptAt time.Time
	// LockedUntil — конец аренды; nil — задача не арендована
	LockedUntil *time.Time
}

// IndexTaskStats — сводка очереди синхронизации.
type IndexTaskStats struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// UploadSessionState — состояние сессии загрузки.
type UploadSessionState string

const (
	UploadActive    UploadSessionState = "active"
	UploadCompleted UploadSessionState = "completed"
	UploadAborted   UploadSessionState = "aborted"
	UploadExpired   UploadSessionState = "expired"
)

// UploadSession — учёт частичной загрузки файла документа.
// Хранится в таблице upload_sessions; содержимое файла не хранится.
type UploadSession struct {
	ID          string
	DocumentID  string
	TotalSize   int64
	Ranges      ranges.Set
	ChunkCount  int
	State       UploadSessionState
	StartedAt   time.Time
	LastChunkAt *time.Time
	ExpiresAt   time.Time
}

// ReceivedBytes возвращает число покрытых байтов.
func (s *UploadSession) ReceivedBytes() int64 {
	return s.Ranges.Covered()
}

// Complete проверяет, что диапазоны покрывают весь файл.
func (s *UploadSession) Complete() bool {
	return s.Ranges.CoversExactly(s.TotalSize)
}
