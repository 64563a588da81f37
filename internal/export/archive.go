package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dukerupert/famwell/internal/model"
	"github.com/dukerupert/famwell/internal/store"
)

// ErrNotConfigured is returned when archive storage has no bucket or credentials.
var ErrNotConfigured = errors.New("export archive storage not configured")

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Archiver uploads passphrase-encrypted export bundles to object storage.
type Archiver struct {
	bucket  string
	client  s3Client
	exports *store.ExportStore
	logger  *slog.Logger
}

func NewArchiver(cfg S3Config, exports *store.ExportStore, logger *slog.Logger) *Archiver {
	a := &Archiver{
		bucket:  cfg.Bucket,
		exports: exports,
		logger:  logger.With("component", "export"),
	}
	if cfg.complete() {
		a.client = newS3Client(cfg)
	}
	return a
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether archives can be uploaded.
func (a *Archiver) Enabled() bool {
	return a.client != nil
}

// Archive encrypts the bundle with passphrase and uploads it under a random
// object key. The export record tracks the upload's outcome.
func (a *Archiver) Archive(ctx context.Context, userID int64, b *Bundle, passphrase string) (*model.Export, error) {
	if a.client == nil {
		return nil, ErrNotConfigured
	}

	key := fmt.Sprintf("exports/%d/%s.json.enc", userID, uuid.NewString())
	record, err := a.exports.Create(userID, key)
	if err != nil {
		return nil, fmt.Errorf("create export record: %w", err)
	}

	fail := func(err error) (*model.Export, error) {
		if uerr := a.exports.UpdateStatus(record.ID, model.ExportStatusFailed, err.Error()); uerr != nil {
			a.logger.Error("mark export failed", "id", record.ID, "error", uerr)
		}
		return nil, err
	}

	plaintext, err := json.Marshal(b)
	if err != nil {
		return fail(fmt.Errorf("encode bundle: %w", err))
	}
	sealed, err := Encrypt(plaintext, passphrase)
	if err != nil {
		return fail(fmt.Errorf("encrypt: %w", err))
	}

	a.exports.UpdateStatus(record.ID, model.ExportStatusUploading, "")
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return fail(fmt.Errorf("upload to s3: %w", err))
	}

	if err := a.exports.UpdateCompleted(record.ID, int64(len(sealed))); err != nil {
		return nil, err
	}
	a.logger.Info("export archived", "user_id", userID, "key", key, "bytes", len(sealed))
	return a.exports.GetByID(record.ID)
}

// Open downloads and decrypts an archive owned by userID.
func (a *Archiver) Open(ctx context.Context, exportID, userID int64, passphrase string) (*Bundle, error) {
	if a.client == nil {
		return nil, ErrNotConfigured
	}
	record, err := a.exports.GetByID(exportID)
	if err != nil {
		return nil, fmt.Errorf("get export: %w", err)
	}
	if record == nil || record.UserID != userID || record.Status != model.ExportStatusCompleted {
		return nil, nil
	}

	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	plaintext, err := Decrypt(sealed, passphrase)
	if err != nil {
		return nil, err
	}
	var b Bundle
	if err := json.Unmarshal(plaintext, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return &b, nil
}

// Purge deletes every uploaded archive of a user. Used on account deletion;
// object deletion failures are logged, not returned.
func (a *Archiver) Purge(ctx context.Context, userID int64) error {
	if a.client == nil {
		return nil
	}
	records, err := a.exports.ListByUser(userID, -1)
	if err != nil {
		return err
	}
	for _, r := range records {
		if _, err := a.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(r.ObjectKey),
		}); err != nil {
			a.logger.Warn("delete archive object", "key", r.ObjectKey, "error", err)
		}
	}
	return nil
}
