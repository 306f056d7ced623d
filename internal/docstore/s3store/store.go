// Пакет s3store — хранилище содержимого документов в S3-совместимом бакете
// (AWS S3, MinIO).
//
// Раскладка объектов документа <id>:
//
//	documents/<id>/meta.json                   — заявленный размер и тип
//	documents/<id>/ranges/<start>-<end>        — принятый диапазон байтов
//	documents/<id>/manifest.json               — итоговый список диапазонов
//
// Каждый диапазон — отдельный объект, поэтому части можно присылать в любом
// порядке и с перекрытиями. Токен блокировки — ETag последнего записанного объекта.
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/bigkaa/woo-publications/internal/docstore"
	"github.com/bigkaa/woo-publications/internal/domain/ranges"
)

// ServiceS3 — имя бэкенда S3.
const ServiceS3 = "s3"

// Config — параметры подключения к бакету.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // пустая строка — AWS по умолчанию
	PathStyle bool
	// AccessKeyID/SecretAccessKey — опционально, иначе стандартная цепочка AWS
	AccessKeyID     string
	SecretAccessKey string
}

// Store реализует docstore.Store поверх S3.
type Store struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
}

// New создаёт Store из конфигурации.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: не задан бакет")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: загрузка конфигурации AWS: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Bucket, logger), nil
}

// NewWithClient создаёт Store поверх готового клиента.
func NewWithClient(client *s3.Client, bucket string, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		logger: logger.With(slog.String("component", "s3_docstore")),
	}
}

type meta struct {
	Identifier  string `json:"identifier"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
}

// manifest — итог загрузки. Lock — ETag последней записанной части,
// с которым клиент завершил загрузку.
type manifest struct {
	Size   int64      `json:"size"`
	Ranges ranges.Set `json:"ranges"`
	Meta   meta       `json:"meta"`
	Lock   string     `json:"lock,omitempty"`
}

func prefix(remoteID string) string       { return "documents/" + remoteID + "/" }
func metaKey(remoteID string) string      { return prefix(remoteID) + "meta.json" }
func manifestKey(remoteID string) string  { return prefix(remoteID) + "manifest.json" }
func rangesPrefix(remoteID string) string { return prefix(remoteID) + "ranges/" }

// rangeKey — ключ объекта диапазона; смещения дополнены нулями для сортировки.
func rangeKey(remoteID string, r ranges.Range) string {
	return fmt.Sprintf("%s%020d-%020d", rangesPrefix(remoteID), r.Start, r.End)
}

// Name возвращает идентификатор бэкенда.
func (s *Store) Name() string {
	return ServiceS3
}

// Create записывает meta.json нового документа.
func (s *Store) Create(ctx context.Context, req docstore.CreateRequest) (docstore.Remote, error) {
	remoteID := uuid.NewString()
	body, err := json.Marshal(meta{
		Identifier:  req.Identifier,
		Size:        req.Size,
		ContentType: req.ContentType,
		FileName:    req.FileName,
	})
	if err != nil {
		return docstore.Remote{}, fmt.Errorf("s3: сериализация meta: %w", err)
	}

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(metaKey(remoteID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return docstore.Remote{}, classify("создание документа", err)
	}

	s.logger.Info("Документ создан в S3",
		slog.String("document_id", req.Identifier),
		slog.String("remote_id", remoteID),
	)
	return docstore.Remote{ID: remoteID, Lock: etag(out.ETag)}, nil
}

// Layout — S3 принимает произвольные диапазоны.
func (s *Store) Layout(context.Context, string) ([]ranges.Range, error) {
	return nil, nil
}

// WriteRange записывает диапазон отдельным объектом, потоком из r.
func (s *Store) WriteRange(ctx context.Context, remoteID, _ string, offset int64, r io.Reader, size int64) (string, error) {
	rng := ranges.Range{Start: offset, End: offset + size}
	counted := &countingReader{r: io.LimitReader(r, size)}

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(rangeKey(remoteID, rng)),
		Body:          counted,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/octet-stream"),
	})
	if counted.eof && counted.n < size {
		return "", docstore.ErrShortBody
	}
	if err != nil {
		return "", classify("запись диапазона "+rng.String(), err)
	}
	return etag(out.ETag), nil
}

// Finalize проверяет, что объекты диапазонов покрывают файл целиком,
// и записывает manifest.json.
func (s *Store) Finalize(ctx context.Context, remoteID, lock string) error {
	m, err := s.readMeta(ctx, remoteID)
	if err != nil {
		return err
	}

	keys, err := s.list(ctx, rangesPrefix(remoteID))
	if err != nil {
		return err
	}
	var set ranges.Set
	for _, key := range keys {
		rng, ok := parseRangeKey(strings.TrimPrefix(key, rangesPrefix(remoteID)))
		if !ok {
			s.logger.Warn("Посторонний объект в каталоге диапазонов", slog.String("key", key))
			continue
		}
		set = set.Add(rng)
	}
	if !set.CoversExactly(m.Size) {
		return fmt.Errorf("%w: покрыто %d из %d байт", docstore.ErrNotComplete, set.Covered(), m.Size)
	}

	body, err := json.Marshal(manifest{Size: m.Size, Ranges: set, Meta: m, Lock: lock})
	if err != nil {
		return fmt.Errorf("s3: сериализация manifest: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(manifestKey(remoteID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return classify("запись manifest", err)
	}
	return nil
}

// Delete удаляет все объекты документа.
func (s *Store) Delete(ctx context.Context, remoteID string) error {
	keys, err := s.list(ctx, prefix(remoteID))
	if err != nil {
		return err
	}
	for _, key := range keys {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return classify("удаление "+key, err)
		}
	}
	return nil
}

func (s *Store) readMeta(ctx context.Context, remoteID string) (meta, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(metaKey(remoteID)),
	})
	if err != nil {
		return meta{}, classify("чтение meta", err)
	}
	defer out.Body.Close()

	var m meta
	if err := json.NewDecoder(out.Body).Decode(&m); err != nil {
		return meta{}, fmt.Errorf("%w: повреждён meta.json: %v", docstore.ErrRejected, err)
	}
	return m, nil
}

func (s *Store) list(ctx context.Context, p string) ([]string, error) {
	var keys []string
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(p),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, classify("список объектов", err)
		}
		for _, obj := range out.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		return keys, nil
	}
}

// parseRangeKey разбирает "<start>-<end>".
func parseRangeKey(name string) (ranges.Range, bool) {
	startStr, endStr, ok := strings.Cut(name, "-")
	if !ok {
		return ranges.Range{}, false
	}
	start, err1 := strconv.ParseInt(startStr, 10, 64)
	end, err2 := strconv.ParseInt(endStr, 10, 64)
	if err1 != nil || err2 != nil || start < 0 || end <= start {
		return ranges.Range{}, false
	}
	return ranges.Range{Start: start, End: end}, true
}

// classify относит ошибку SDK к ErrRejected (4xx) или ErrUnavailable.
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		var fault smithy.ErrorFault = apiErr.ErrorFault()
		if fault == smithy.FaultClient {
			return fmt.Errorf("%w: s3 %s: %s", docstore.ErrRejected, op, apiErr.ErrorCode())
		}
	}
	return fmt.Errorf("%w: s3 %s: %v", docstore.ErrUnavailable, op, err)
}

func etag(v *string) string {
	return strings.Trim(aws.ToString(v), `"`)
}

// countingReader считает переданные байты, чтобы отличить короткое тело от сбоя сети.
type countingReader struct {
	r   io.Reader
	n   int64
	eof bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if errors.Is(err, io.EOF) {
		c.eof = true
	}
	return n, err
}
