package model

import "time"

// Actor — инициатор изменения (для журнала аудита).
type Actor struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	// Remarks — комментарий инициатора (необязательный)
	Remarks string `json:"-"`
}

// FieldChange — значение поля до и после изменения.
type FieldChange struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// AuditEntry — неизменяемая запись журнала аудита.
// Хранится в таблице audit_entries, только добавление.
type AuditEntry struct {
	ID         int64
	Actor      Actor
	Timestamp  time.Time
	EntityType EntityType
	EntityID   string
	Action     string
	Changes    map[string]FieldChange
	Remarks    string
}

// Действия журнала аудита.
const (
	AuditCreate         = "create"
	AuditUpdate         = "update"
	AuditStatusChange   = "status_change"
	AuditCascade        = "cascade_status_change"
	AuditOwnerChange    = "owner_change"
	AuditRetention      = "retention_recalculated"
	AuditOverride       = "retention_override"
	AuditUploadComplete = "upload_complete"
	AuditDelete         = "delete"
)
