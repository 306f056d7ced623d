// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности или ссылочной целостности.
	ErrConflict = errors.New("конфликт — запись уже существует")
	// ErrLeaseLost — аренда задачи истекла и задачу взял другой обработчик.
	ErrLeaseLost = errors.New("аренда задачи потеряна")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories — набор репозиториев, привязанных к одному DBTX.
type Repositories struct {
	Publications  PublicationRepository
	Documents     DocumentRepository
	Topics        TopicRepository
	Owners        OwnerRepository
	Categories    CategoryRepository
	Organisations OrganisationRepository
	Uploads       UploadSessionRepository
	Tasks         IndexTaskRepository
	Audit         AuditRepository
}

// NewRepositories создаёт репозитории поверх пула или транзакции.
func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Publications:  NewPublicationRepository(db),
		Documents:     NewDocumentRepository(db),
		Topics:        NewTopicRepository(db),
		Owners:        NewOwnerRepository(db),
		Categories:    NewCategoryRepository(db),
		Organisations: NewOrganisationRepository(db),
		Uploads:       NewUploadSessionRepository(db),
		Tasks:         NewIndexTaskRepository(db),
		Audit:         NewAuditRepository(db),
	}
}

// TxRunner позволяет выполнять операции в транзакции.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner создаёт TxRunner для управления транзакциями.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInTx выполняет fn внутри транзакции.
// При ошибке fn — транзакция откатывается, при успехе — коммитится.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// Store — точка входа сервисного слоя в хранилище записей.
type Store struct {
	repos  *Repositories
	runner *TxRunner
}

// NewStore создаёт Store поверх пула подключений.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		repos:  NewRepositories(pool),
		runner: NewTxRunner(pool),
	}
}

// Repos возвращает репозитории вне транзакции (чтение, воркеры).
func (s *Store) Repos() *Repositories {
	return s.repos
}

// InTx выполняет fn с репозиториями, привязанными к одной транзакции.
func (s *Store) InTx(ctx context.Context, fn func(r *Repositories) error) error {
	return s.runner.RunInTx(ctx, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isForeignKeyViolation — ссылка на несуществующую запись.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// isCheckViolation — нарушение CHECK-ограничения.
func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23514" // check_violation
	}
	return false
}
