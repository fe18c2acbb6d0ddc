package source

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// S3Config configures an S3-compatible remote store.
type S3Config struct {
	Endpoint  string // host[:port], no scheme
	Bucket    string
	Prefix    string // key prefix treated as the logical root
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool

	// MaxBytes caps a single download (default: DefaultMaxFetchBytes).
	MaxBytes int64

	Retry amanerrors.RetryConfig
}

// objectAPI is the slice of the S3 client the source needs.
type objectAPI interface {
	list(ctx context.Context, prefix string) <-chan minio.ObjectInfo
	open(ctx context.Context, key string) (io.ReadCloser, error)
}

type minioAPI struct {
	client *minio.Client
	bucket string
}

func (m minioAPI) list(ctx context.Context, prefix string) <-chan minio.ObjectInfo {
	return m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	})
}

func (m minioAPI) open(ctx context.Context, key string) (io.ReadCloser, error) {
	return m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
}

// S3Source lists and fetches objects from a bucket. Folders are the common
// prefixes of a delimited listing; files are objects with a supported
// extension.
type S3Source struct {
	api      objectAPI
	bucket   string
	prefix   string
	maxBytes int64
	retry    amanerrors.RetryConfig
}

// NewS3Source connects to the configured bucket.
func NewS3Source(cfg S3Config) (*S3Source, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, amanerrors.ConfigError("s3 source needs an endpoint and a bucket", nil)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, amanerrors.ConfigError("invalid s3 endpoint", err).WithDetail("endpoint", cfg.Endpoint)
	}
	return newS3Source(minioAPI{client: client, bucket: cfg.Bucket}, cfg), nil
}

func newS3Source(api objectAPI, cfg S3Config) *S3Source {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxFetchBytes
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry = amanerrors.NetworkRetryConfig()
	}
	return &S3Source{
		api:      api,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		maxBytes: cfg.MaxBytes,
		retry:    cfg.Retry,
	}
}

// Name identifies the source in logs.
func (s *S3Source) Name() string {
	return "s3://" + path.Join(s.bucket, s.prefix)
}

// keyFor maps a logical path to an object key.
func (s *S3Source) keyFor(logical string) string {
	rel := strings.TrimPrefix(path.Clean("/"+logical), "/")
	if s.prefix == "" {
		return rel
	}
	if rel == "" {
		return s.prefix
	}
	return s.prefix + "/" + rel
}

// folderKey is the listing prefix for a logical folder.
func (s *S3Source) folderKey(logical string) string {
	k := s.keyFor(logical)
	if k == "" {
		return ""
	}
	return k + "/"
}

// logicalFor maps an object key back to a logical path.
func (s *S3Source) logicalFor(key string) string {
	key = strings.TrimSuffix(key, "/")
	if s.prefix != "" {
		key = strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
	}
	return "/" + key
}

func (s *S3Source) listing(ctx context.Context, folder string) ([]minio.ObjectInfo, error) {
	prefix := s.folderKey(folder)
	return amanerrors.RetryWithResult(ctx, s.retry, func() ([]minio.ObjectInfo, error) {
		lctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var out []minio.ObjectInfo
		for obj := range s.api.list(lctx, prefix) {
			if obj.Err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				return nil, amanerrors.ListError(folder, obj.Err)
			}
			if obj.Key == prefix {
				continue // folder placeholder object
			}
			out = append(out, obj)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
		return out, nil
	})
}

// ListFiles returns supported objects directly under folder.
func (s *S3Source) ListFiles(ctx context.Context, folder string) ([]FileEntry, error) {
	objs, err := s.listing(ctx, folder)
	if err != nil {
		return nil, err
	}

	var out []FileEntry
	for _, obj := range objs {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		name := path.Base(obj.Key)
		if !IsSupported(name) {
			continue
		}
		fe, err := NewFileEntry(name, s.logicalFor(obj.Key), obj.Size, FormatModified(obj.LastModified))
		if err != nil {
			return nil, err
		}
		out = append(out, fe)
	}
	return out, nil
}

// ListSubfolders returns the common prefixes directly under folder.
func (s *S3Source) ListSubfolders(ctx context.Context, folder string) ([]Folder, error) {
	objs, err := s.listing(ctx, folder)
	if err != nil {
		return nil, err
	}

	var out []Folder
	for _, obj := range objs {
		if !strings.HasSuffix(obj.Key, "/") {
			continue
		}
		logical := s.logicalFor(obj.Key)
		f, err := NewFolder(path.Base(logical), logical)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Fetch downloads one object. Missing objects fail at once; other errors
// are retried with backoff.
func (s *S3Source) Fetch(ctx context.Context, filePath string) FetchResult {
	key := s.keyFor(filePath)
	data, err := amanerrors.RetryWithResult(ctx, s.retry, func() ([]byte, error) {
		return s.download(ctx, filePath, key)
	})
	if err != nil {
		return FetchResult{Err: err}
	}
	return FetchResult{Data: data}
}

func (s *S3Source) download(ctx context.Context, filePath, key string) ([]byte, error) {
	rc, err := s.api.open(ctx, key)
	if err != nil {
		return nil, s.classify(ctx, filePath, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, s.maxBytes+1))
	if err != nil {
		return nil, s.classify(ctx, filePath, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, amanerrors.New(amanerrors.ErrCodeFileTooLarge, "file exceeds fetch limit", nil).
			WithDetail("path", filePath)
	}
	return data, nil
}

func (s *S3Source) classify(ctx context.Context, filePath string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return amanerrors.New(amanerrors.ErrCodeFileNotFound, "object not found", err).WithDetail("path", filePath)
	}
	return amanerrors.FetchError(filePath, err)
}
