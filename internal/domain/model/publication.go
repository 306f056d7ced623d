package model

import (
	"time"

	"github.com/bigkaa/woo-publications/internal/domain/retention"
	"github.com/bigkaa/woo-publications/internal/domain/status"
)

// EntityType — тип индексируемой сущности.
type EntityType string

const (
	EntityPublication EntityType = "publication"
	EntityDocument    EntityType = "document"
	EntityTopic       EntityType = "topic"
)

// Valid проверяет допустимость типа сущности.
func (t EntityType) Valid() bool {
	switch t {
	case EntityPublication, EntityDocument, EntityTopic:
		return true
	default:
		return false
	}
}

// EntityRef — ссылка на сущность (тип + UUID).
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// Owner — владелец записи (идентификатор + отображаемое имя).
// Хранится в таблице owners.
type Owner struct {
	// ID — UUID записи владельца
	ID string
	// Identifier — внешний идентификатор (например, логин)
	Identifier string
	// DisplayName — отображаемое имя
	DisplayName string
}

// Publication — публикация (акт раскрытия), владеет жизненным циклом документов.
// Хранится в таблице publications.
type Publication struct {
	// ID — UUID публикации
	ID string
	// OfficialTitle — официальное название
	OfficialTitle string
	// ShortTitle — краткое название
	ShortTitle string
	// Description — описание
	Description string
	// Status — статус раскрытия
	Status status.Status
	// PublisherID — организация-публикатор (опционально)
	PublisherID *string
	// ResponsibleID — ответственная организация (опционально)
	ResponsibleID *string
	// DrafterID — организация-составитель (опционально)
	DrafterID *string
	// CategoryIDs — связанные информационные категории
	CategoryIDs []string
	// TopicIDs — связанные темы
	TopicIDs []string
	// Owner — владелец
	Owner Owner
	// RegisteredAt — время регистрации (неизменяемое)
	RegisteredAt time.Time
	// LastModifiedAt — время последнего изменения
	LastModifiedAt time.Time
	// PublishedAt — время публикации
	PublishedAt *time.Time
	// RevokedAt — время отзыва
	RevokedAt *time.Time
	// ValidFrom, ValidUntil — период действия
	ValidFrom  *time.Time
	ValidUntil *time.Time
	// Retention — поля срока хранения (вычисляемые или заданные оператором)
	Retention retention.State
}

// Document — документ (файл + метаданные), принадлежит ровно одной публикации.
// Хранится в таблице documents.
type Document struct {
	// ID — UUID документа
	ID string
	// PublicationID — UUID публикации-владельца
	PublicationID string
	// Identifier — внешний идентификатор документа
	Identifier string
	// OfficialTitle — официальное название
	OfficialTitle string
	// ShortTitle — краткое название
	ShortTitle string
	// Description — описание
	Description string
	// CreationDate — дата создания документа
	CreationDate time.Time
	// FileFormat — MIME-тип файла
	FileFormat string
	// FileName — имя файла
	FileName string
	// FileSize — размер файла в байтах
	FileSize int64
	// Status — статус раскрытия
	Status status.Status
	// Owner — владелец
	Owner Owner
	// RegisteredAt — время регистрации (неизменяемое)
	RegisteredAt time.Time
	// LastModifiedAt — время последнего изменения
	LastModifiedAt time.Time
	PublishedAt    *time.Time
	RevokedAt      *time.Time
	ReceivedDate   *time.Time
	SignedDate     *time.Time
	SourceURL      string
	// Upload — состояние загрузки во внешнее хранилище документов
	Upload UploadState
}

// UploadState — ссылки на документ во внешнем хранилище.
type UploadState struct {
	// Service — идентификатор бэкенда хранилища (documents-api, s3)
	Service string
	// RemoteID — идентификатор документа во внешнем хранилище
	RemoteID string
	// Lock — токен блокировки/версии, выданный хранилищем
	Lock string
	// Complete — файл загружен полностью
	Complete bool
}

// HandlingKindReceipt — вид записи обработки документа по умолчанию.
const HandlingKindReceipt = "ontvangst"

// DocumentHandling — запись об обработке документа (одна на документ).
// Хранится в таблице document_handlings.
type DocumentHandling struct {
	DocumentID     string
	Kind           string
	OccurredAt     time.Time
	OrganisationID *string
}

// Topic — тема, объединяющая публикации.
// Хранится в таблице topics.
type Topic struct {
	ID             string
	OfficialTitle  string
	Description    string
	Status         status.Status
	Promoted       bool
	Owner          Owner
	RegisteredAt   time.Time
	LastModifiedAt time.Time
	PublishedAt    *time.Time
	RevokedAt      *time.Time
}

// Organisation — организация из справочника (входные данные проекции).
type Organisation struct {
	ID   string
	Name string
	RSIN string
}

// InformationCategory — информационная категория с правилом хранения.
// Хранится в таблице information_categories.
type InformationCategory struct {
	ID                string
	Name              string
	Order             int
	RetentionYears    int
	Nomination        retention.Nomination
	StartEvent        retention.StartEvent
	Source            string
	SelectionCategory string
	Explanation       string
}

// Rule преобразует категорию в правило калькулятора хранения.
func (c *InformationCategory) Rule() retention.Rule {
	return retention.Rule{
		CategoryID:        c.ID,
		Order:             c.Order,
		Years:             c.RetentionYears,
		Nomination:        c.Nomination,
		StartEvent:        c.StartEvent,
		Source:            c.Source,
		SelectionCategory: c.SelectionCategory,
		Explanation:       c.Explanation,
	}
}
