package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kerbaras/skypack/pkg/config"
)

// ObjectClient downloads whole objects. Used for mocking in tests.
type ObjectClient interface {
	DownloadFile(ctx context.Context, bucket, key string) ([]byte, error)
}

type minioClient struct {
	api *minio.Client
}

var _ ObjectClient = (*minioClient)(nil)

func (c *minioClient) DownloadFile(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapObjectError(key, err)
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, mapObjectError(key, err)
	}
	return buf.Bytes(), nil
}

func mapObjectError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return err
}

// ObjectStore reads item descriptors from an S3-compatible bucket mirror.
type ObjectStore struct {
	client ObjectClient
	bucket string
	prefix string
}

func NewObjectStore(cfg config.S3Config) (*ObjectStore, error) {
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return NewObjectStoreWithClient(&minioClient{api: api}, cfg.Bucket, cfg.Prefix), nil
}

func NewObjectStoreWithClient(client ObjectClient, bucket, prefix string) *ObjectStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ObjectStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *ObjectStore) Name() string {
	return "s3:" + s.bucket
}

// ObjectKey joins the configured prefix and the lookup key.
func (s *ObjectStore) ObjectKey(key string) string {
	return s.prefix + strings.TrimPrefix(key, "/")
}

func (s *ObjectStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	return s.client.DownloadFile(ctx, s.bucket, s.ObjectKey(key))
}
