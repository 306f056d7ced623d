// upload.go — учёт возобновляемых загрузок файлов документов.
//
// Байты частей потоком передаются во внешнее хранилище документов и
// никогда не буферизуются целиком. Локально хранится только множество
// принятых диапазонов [start,end). Перекрывающиеся и повторные части
// идемпотентны: покрытие не считается дважды.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/woo-publications/internal/docstore"
	"github.com/bigkaa/woo-publications/internal/domain/model"
	"github.com/bigkaa/woo-publications/internal/domain/ranges"
	"github.com/bigkaa/woo-publications/internal/repository"
)

// Prometheus-метрики загрузок.
var (
	uploadSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pe_upload_sessions_total",
		Help: "Количество сессий загрузки по итоговому состоянию.",
	}, []string{"state"}) // started, completed, aborted, expired

	uploadChunksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pe_upload_chunks_total",
		Help: "Количество принятых частей загрузки.",
	}, []string{"result"}) // ok, error

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pe_upload_bytes_total",
		Help: "Объём байтов, переданных во внешнее хранилище документов.",
	})
)

// UploadLimits — ограничения сессий загрузки.
type UploadLimits struct {
	// MaxDuration — максимальная длительность сессии
	MaxDuration time.Duration
	// MaxChunks — максимальное число частей в сессии
	MaxChunks int
	// IdleTimeout — сессия без частей дольше этого срока истекает
	IdleTimeout time.Duration
}

// UploadView — состояние сессии для вызывающей стороны.
type UploadView struct {
	Session *model.UploadSession
	// Missing — ещё не принятые диапазоны
	Missing []ranges.Range
	// Parts — ожидаемые границы частей хранилища (nil — произвольные)
	Parts []ranges.Range
}

// UploadService — трекер сессий загрузки.
type UploadService struct {
	store  Store
	docs   docstore.Store
	limits UploadLimits
	now    clock
	logger *slog.Logger
}

// NewUploadService создаёт трекер загрузок.
func NewUploadService(store Store, docs docstore.Store, limits UploadLimits, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:  store,
		docs:   docs,
		limits: limits,
		now:    utcNow,
		logger: logger.With(slog.String("component", "upload")),
	}
}

// BeginUpload открывает сессию загрузки файла документа размером totalSize.
// Документ во внешнем хранилище создаётся при первой сессии; предыдущая
// активная сессия документа прерывается.
func (s *UploadService) BeginUpload(ctx context.Context, documentID string, totalSize int64) (*UploadView, error) {
	if totalSize <= 0 {
		return nil, fmt.Errorf("%w: размер файла должен быть положительным", ErrValidation)
	}

	d, err := s.store.Repos().Documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, mapRepoErr(err, "документ "+documentID)
	}
	if d.Upload.Complete {
		return nil, fmt.Errorf("%w: документ %s", ErrDocumentAlreadyComplete, documentID)
	}
	if d.FileSize > 0 && d.FileSize != totalSize {
		return nil, fmt.Errorf("%w: размер %d не совпадает с размером файла документа %d",
			ErrValidation, totalSize, d.FileSize)
	}
	if d.Upload.RemoteID != "" && d.Upload.Service != s.docs.Name() {
		return nil, fmt.Errorf("%w: документ загружается в хранилище %q", ErrConflict, d.Upload.Service)
	}

	// Внешний вызов — вне транзакции.
	var (
		remote  docstore.Remote
		created bool
	)
	if d.Upload.RemoteID == "" {
		remote, err = s.docs.Create(ctx, docstore.CreateRequest{
			Identifier:   d.ID,
			Title:        d.OfficialTitle,
			Description:  d.Description,
			FileName:     d.FileName,
			ContentType:  d.FileFormat,
			Size:         totalSize,
			CreationDate: d.CreationDate,
		})
		if err != nil {
			return nil, mapStoreErr(err, "создание документа в хранилище")
		}
		created = true
	} else {
		parts, err := s.docs.Layout(ctx, d.Upload.RemoteID)
		if err != nil {
			return nil, mapStoreErr(err, "чтение частей документа")
		}
		remote = docstore.Remote{ID: d.Upload.RemoteID, Lock: d.Upload.Lock, Parts: parts}
	}
	if n := len(remote.Parts); n > 0 && remote.Parts[n-1].End != totalSize {
		return nil, fmt.Errorf("%w: размер %d не совпадает с документом в хранилище (%d)",
			ErrValidation, totalSize, remote.Parts[n-1].End)
	}

	now := s.now()
	sess := &model.UploadSession{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		TotalSize:  totalSize,
		State:      model.UploadActive,
		StartedAt:  now,
		ExpiresAt:  now.Add(s.limits.MaxDuration),
	}

	orphan := ""
	err = s.store.InTx(ctx, func(r *repository.Repositories) error {
		d, err := r.Documents.GetForUpdate(ctx, documentID)
		if err != nil {
			return mapRepoErr(err, "документ "+documentID)
		}
		if d.Upload.Complete {
			return fmt.Errorf("%w: документ %s", ErrDocumentAlreadyComplete, documentID)
		}

		switch {
		case d.Upload.RemoteID == "":
			d.Upload = model.UploadState{Service: s.docs.Name(), RemoteID: remote.ID, Lock: remote.Lock}
		case created && d.Upload.RemoteID != remote.ID:
			// Параллельная сессия успела создать документ раньше.
			orphan = remote.ID
			remote.ID, remote.Lock = d.Upload.RemoteID, d.Upload.Lock
		}
		d.FileSize = totalSize
		d.LastModifiedAt = now
		if err := r.Documents.Update(ctx, d); err != nil {
			return mapRepoErr(err, "обновление документа")
		}

		closed, err := r.Uploads.CloseActive(ctx, documentID, model.UploadAborted)
		if err != nil {
			return fmt.Errorf("закрытие предыдущей сессии: %w", err)
		}
		if closed > 0 {
			uploadSessionsTotal.WithLabelValues(string(model.UploadAborted)).Add(float64(closed))
		}
		return mapRepoErr(r.Uploads.Create(ctx, sess), "создание сессии загрузки")
	})
	if err != nil {
		if created && orphan == "" {
			s.deleteRemote(ctx, remote.ID)
		}
		return nil, err
	}
	if orphan != "" {
		s.deleteRemote(ctx, orphan)
	}

	uploadSessionsTotal.WithLabelValues("started").Inc()
	s.logger.Info("Сессия загрузки открыта",
		slog.String("session_id", sess.ID),
		slog.String("document_id", documentID),
		slog.Int64("total_size", totalSize),
		slog.String("store", s.docs.Name()),
	)
	return &UploadView{
		Session: sess,
		Missing: sess.Ranges.Missing(totalSize),
		Parts:   remote.Parts,
	}, nil
}

// ReceiveChunk передаёт size байт из body в хранилище начиная с offset
// и добавляет диапазон в покрытие сессии.
func (s *UploadService) ReceiveChunk(ctx context.Context, sessionID string, offset int64, body io.Reader, size int64) (*UploadView, error) {
	repos := s.store.Repos()
	sess, err := repos.Uploads.GetByID(ctx, sessionID)
	if err != nil {
		return nil, mapRepoErr(err, "сессия загрузки "+sessionID)
	}
	if err := s.checkActive(ctx, sess, true); err != nil {
		uploadChunksTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if offset < 0 || size <= 0 || offset+size > sess.TotalSize {
		uploadChunksTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: диапазон [%d,%d) вне файла размером %d",
			ErrValidation, offset, offset+size, sess.TotalSize)
	}

	d, err := repos.Documents.GetByID(ctx, sess.DocumentID)
	if err != nil {
		return nil, mapRepoErr(err, "документ "+sess.DocumentID)
	}

	lock, err := s.docs.WriteRange(ctx, d.Upload.RemoteID, d.Upload.Lock, offset, body, size)
	if err != nil {
		uploadChunksTotal.WithLabelValues("error").Inc()
		s.logger.Warn("Ошибка передачи части в хранилище",
			slog.String("session_id", sessionID),
			slog.Int64("offset", offset),
			slog.Int64("size", size),
			slog.String("error", err.Error()),
		)
		return nil, mapStoreErr(err, "запись части")
	}
	uploadBytesTotal.Add(float64(size))

	chunk := ranges.Range{Start: offset, End: offset + size}
	var updated *model.UploadSession
	err = s.store.InTx(ctx, func(r *repository.Repositories) error {
		cur, err := r.Uploads.GetForUpdate(ctx, sessionID)
		if err != nil {
			return mapRepoErr(err, "сессия загрузки "+sessionID)
		}
		// Сессию могли закрыть, пока шла передача.
		if cur.State != model.UploadActive {
			return sessionStateErr(cur)
		}
		if s.limits.MaxChunks > 0 && cur.ChunkCount >= s.limits.MaxChunks {
			return fmt.Errorf("%w: превышено число частей (%d)", ErrUploadExpired, s.limits.MaxChunks)
		}
		// Хранилище может сменить токен блокировки после записи части;
		// Finalize использует последний выданный.
		if lock != "" {
			doc, err := r.Documents.GetForUpdate(ctx, cur.DocumentID)
			if err != nil {
				return mapRepoErr(err, "документ "+cur.DocumentID)
			}
			if doc.Upload.Lock != lock {
				doc.Upload.Lock = lock
				if err := r.Documents.Update(ctx, doc); err != nil {
					return mapRepoErr(err, "обновление блокировки документа")
				}
			}
		}
		now := s.now()
		cur.Ranges = cur.Ranges.Add(chunk)
		cur.ChunkCount++
		cur.LastChunkAt = &now
		if err := r.Uploads.Update(ctx, cur); err != nil {
			return mapRepoErr(err, "обновление сессии загрузки")
		}
		updated = cur
		return nil
	})
	if err != nil {
		uploadChunksTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	uploadChunksTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("Часть принята",
		slog.String("session_id", sessionID),
		slog.String("range", chunk.String()),
		slog.Int64("received", updated.ReceivedBytes()),
		slog.Int64("total", updated.TotalSize),
	)
	return &UploadView{Session: updated, Missing: updated.Ranges.Missing(updated.TotalSize)}, nil
}

// Finalize завершает загрузку: проверяет покрытие, подтверждает полноту
// в хранилище, снимает блокировку и отмечает файл документа загруженным.
func (s *UploadService) Finalize(ctx context.Context, actor model.Actor, sessionID string) (*DocumentResult, error) {
	repos := s.store.Repos()
	sess, err := repos.Uploads.GetByID(ctx, sessionID)
	if err != nil {
		return nil, mapRepoErr(err, "сессия загрузки "+sessionID)
	}
	if sess.State == model.UploadCompleted {
		return nil, fmt.Errorf("%w: сессия %s уже завершена", ErrDocumentAlreadyComplete, sessionID)
	}
	if err := s.checkActive(ctx, sess, false); err != nil {
		return nil, err
	}
	if !sess.Ranges.CoversExactly(sess.TotalSize) {
		return nil, fmt.Errorf("%w: недостаёт %v", ErrIncompleteRanges, sess.Ranges.Missing(sess.TotalSize))
	}

	d, err := repos.Documents.GetByID(ctx, sess.DocumentID)
	if err != nil {
		return nil, mapRepoErr(err, "документ "+sess.DocumentID)
	}
	if d.Upload.Complete {
		return nil, fmt.Errorf("%w: документ %s", ErrDocumentAlreadyComplete, d.ID)
	}

	if err := s.docs.Finalize(ctx, d.Upload.RemoteID, d.Upload.Lock); err != nil {
		return nil, mapStoreErr(err, "завершение загрузки в хранилище")
	}

	res := &DocumentResult{}
	err = s.store.InTx(ctx, func(r *repository.Repositories) error {
		cur, err := r.Uploads.GetForUpdate(ctx, sessionID)
		if err != nil {
			return mapRepoErr(err, "сессия загрузки "+sessionID)
		}
		if cur.State == model.UploadCompleted {
			return fmt.Errorf("%w: сессия %s уже завершена", ErrDocumentAlreadyComplete, sessionID)
		}
		if cur.State != model.UploadActive {
			return sessionStateErr(cur)
		}

		d, err := r.Documents.GetForUpdate(ctx, cur.DocumentID)
		if err != nil {
			return mapRepoErr(err, "документ "+cur.DocumentID)
		}
		if d.Upload.Complete {
			return fmt.Errorf("%w: документ %s", ErrDocumentAlreadyComplete, d.ID)
		}

		now := s.now()
		changes := changeSet{}
		changes.set("uploadComplete", false, true)
		d.Upload.Complete = true
		d.Upload.Lock = ""
		d.FileSize = cur.TotalSize
		d.LastModifiedAt = now
		if err := r.Documents.Update(ctx, d); err != nil {
			return mapRepoErr(err, "обновление документа")
		}

		cur.State = model.UploadCompleted
		if err := r.Uploads.Update(ctx, cur); err != nil {
			return mapRepoErr(err, "обновление сессии загрузки")
		}

		res.Document = d
		res.AuditID, err = appendAudit(ctx, r, actor, documentRef(d.ID), model.AuditUploadComplete, changes, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	uploadSessionsTotal.WithLabelValues(string(model.UploadCompleted)).Inc()
	s.logger.Info("Загрузка завершена",
		slog.String("session_id", sessionID),
		slog.String("document_id", res.Document.ID),
		slog.Int64("size", res.Document.FileSize),
	)
	return res, nil
}

// Abort прерывает сессию. Повторный вызов для закрытой сессии — no-op.
func (s *UploadService) Abort(ctx context.Context, sessionID string) (*model.UploadSession, error) {
	var out *model.UploadSession
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		cur, err := r.Uploads.GetForUpdate(ctx, sessionID)
		if err != nil {
			return mapRepoErr(err, "сессия загрузки "+sessionID)
		}
		out = cur
		switch cur.State {
		case model.UploadCompleted:
			return fmt.Errorf("%w: сессия %s уже завершена", ErrDocumentAlreadyComplete, sessionID)
		case model.UploadAborted, model.UploadExpired:
			return nil
		}
		cur.State = model.UploadAborted
		return mapRepoErr(r.Uploads.Update(ctx, cur), "обновление сессии загрузки")
	})
	if err != nil {
		return nil, err
	}
	uploadSessionsTotal.WithLabelValues(string(model.UploadAborted)).Inc()
	return out, nil
}

// GetSession возвращает состояние сессии и недостающие диапазоны.
func (s *UploadService) GetSession(ctx context.Context, sessionID string) (*UploadView, error) {
	sess, err := s.store.Repos().Uploads.GetByID(ctx, sessionID)
	if err != nil {
		return nil, mapRepoErr(err, "сессия загрузки "+sessionID)
	}
	return &UploadView{Session: sess, Missing: sess.Ranges.Missing(sess.TotalSize)}, nil
}

// ExpireStale закрывает сессии с истёкшим сроком или без активности.
func (s *UploadService) ExpireStale(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.store.Repos().Uploads.ExpireStale(ctx, now, now.Add(-s.limits.IdleTimeout))
	if err != nil {
		return 0, fmt.Errorf("закрытие просроченных сессий: %w", err)
	}
	if n > 0 {
		uploadSessionsTotal.WithLabelValues(string(model.UploadExpired)).Add(float64(n))
	}
	return n, nil
}

// checkActive проверяет, что сессия активна и не вышла за лимиты.
// Лимит числа частей проверяется только перед приёмом новой части
// (nextChunk): сессия ровно с MaxChunks частями ещё может быть завершена.
// Сессия, превысившая лимит, помечается expired.
func (s *UploadService) checkActive(ctx context.Context, sess *model.UploadSession, nextChunk bool) error {
	if sess.State != model.UploadActive {
		return sessionStateErr(sess)
	}
	now := s.now()
	overTime := !now.Before(sess.ExpiresAt)
	overChunks := nextChunk && s.limits.MaxChunks > 0 && sess.ChunkCount >= s.limits.MaxChunks
	if !overTime && !overChunks {
		return nil
	}

	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		cur, err := r.Uploads.GetForUpdate(ctx, sess.ID)
		if err != nil {
			return err
		}
		if cur.State != model.UploadActive {
			return nil
		}
		cur.State = model.UploadExpired
		return r.Uploads.Update(ctx, cur)
	})
	if err != nil {
		s.logger.Warn("Не удалось пометить сессию истёкшей",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	} else {
		uploadSessionsTotal.WithLabelValues(string(model.UploadExpired)).Inc()
	}

	reason := "истёк срок сессии"
	if overChunks {
		reason = fmt.Sprintf("превышено число частей (%d)", s.limits.MaxChunks)
	}
	return fmt.Errorf("%w: %s", ErrUploadExpired, reason)
}

func sessionStateErr(sess *model.UploadSession) error {
	switch sess.State {
	case model.UploadExpired:
		return fmt.Errorf("%w: сессия %s", ErrUploadExpired, sess.ID)
	case model.UploadCompleted:
		return fmt.Errorf("%w: сессия %s", ErrDocumentAlreadyComplete, sess.ID)
	default:
		return fmt.Errorf("%w: сессия %s в состоянии %s", ErrConflict, sess.ID, sess.State)
	}
}

func (s *UploadService) deleteRemote(ctx context.Context, remoteID string) {
	if err := s.docs.Delete(ctx, remoteID); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Не удалось удалить неиспользуемый документ в хранилище",
			slog.String("remote_id", remoteID),
			slog.String("error", err.Error()),
		)
	}
}

// UploadJanitor периодически закрывает неактивные сессии загрузки.
type UploadJanitor struct {
	uploads  *UploadService
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewUploadJanitor создаёт фоновый процесс очистки сессий.
func NewUploadJanitor(uploads *UploadService, interval time.Duration, logger *slog.Logger) *UploadJanitor {
	return &UploadJanitor{
		uploads:  uploads,
		interval: interval,
		logger:   logger.With(slog.String("component", "upload_janitor")),
	}
}

// Start запускает фоновую горутину.
func (j *UploadJanitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go func() {
		defer close(j.done)
		j.logger.Info("Очистка сессий загрузки запущена", slog.String("interval", j.interval.String()))

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				j.logger.Info("Очистка сессий загрузки остановлена")
				return
			case <-ticker.C:
				n, err := j.uploads.ExpireStale(ctx)
				if err != nil {
					j.logger.Error("Ошибка очистки сессий загрузки", slog.String("error", err.Error()))
					continue
				}
				if n > 0 {
					j.logger.Info("Сессии загрузки закрыты по неактивности", slog.Int64("count", n))
				}
			}
		}
	}()
}

// Stop останавливает горутину и ждёт её завершения.
func (j *UploadJanitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	if j.done != nil {
		<-j.done
	}
}
