package infra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/Vovarama1992/voice_roundtrip/internal/config"
	"github.com/Vovarama1992/voice_roundtrip/internal/ports"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type s3Store struct {
	client *minio.Client
	core   minio.Core
	bucket string
	prefix string
}

func NewS3Store(ctx context.Context, cfg config.S3Config) (ports.ResourceStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}

	// проверим, что бакет существует
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &s3Store{
		client: client,
		core:   minio.Core{Client: client},
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Put — один PutObject: S3 не отдаёт частично записанный объект.
func (s *s3Store) Put(ctx context.Context, slot ports.Slot, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(slot), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "audio/wav",
		UserMetadata: map[string]string{"uploaded-at": time.Now().Format(time.RFC3339)},
	})
	if err != nil {
		return fmt.Errorf("upload %s failed: %w", slot, err)
	}
	return nil
}

// Open — один GET: размер и тело из одного ответа.
func (s *s3Store) Open(ctx context.Context, slot ports.Slot) (io.ReadCloser, int64, error) {
	body, info, _, err := s.core.GetObject(ctx, s.bucket, s.objectKey(slot), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, 0, ports.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get %s: %w", slot, err)
	}
	return body, info.Size, nil
}

func (s *s3Store) objectKey(slot ports.Slot) string {
	return ObjectKey(s.prefix, slot)
}

// ObjectKey — путь слота в бакете.
func ObjectKey(prefix string, slot ports.Slot) string {
	return path.Join(prefix, path.Base(string(slot)))
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
