// Package s3store implements objstore.Store on top of Amazon S3 or any
// S3-compatible service, following the retry and range-read conventions the
// rest of this codebase uses for remote object access.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/brookdb/brookdb/internal/logger"
	"github.com/brookdb/brookdb/pkg/bufpool"
	"github.com/brookdb/brookdb/pkg/objstore"
)

// Config configures a Store.
type Config struct {
	Bucket          string
	KeyPrefix       string
	Endpoint        string // optional, for S3-compatible services (e.g. MinIO)
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool

	MaxRetries        uint
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

func (c *Config) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 2 * time.Second
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2.0
	}
}

// Store implements objstore.Store against an S3-compatible bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	retry  Config
	bufs   *bufpool.Pool
}

// New builds a Store from cfg, resolving AWS credentials the same way the
// AWS SDK default chain does unless static credentials are supplied.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.applyDefaults()

	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.KeyPrefix,
		retry:  cfg,
		bufs:   bufpool.NewPool(nil),
	}, nil
}

func (s *Store) objectKey(path string) string {
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

func (s *Store) calculateBackoff(attempt int) time.Duration {
	backoff := float64(s.retry.InitialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= s.retry.BackoffMultiplier
	}
	if backoff > float64(s.retry.MaxBackoff) {
		backoff = float64(s.retry.MaxBackoff)
	}
	return time.Duration(backoff)
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if code == "NoSuchKey" || code == "NotFound" || code == "404" {
			return true
		}
	}

	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "Throttling", "ThrottlingException", "RequestThrottled", "SlowDown",
			"ProvisionedThroughputExceededException",
			"InternalError", "ServiceUnavailable", "ServiceException", "InternalServiceException":
			return true
		case "NoSuchKey", "NotFound", "AccessDenied", "Forbidden", "InvalidRange", "InvalidRequest":
			return false
		}
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "500")
}

// Read returns the requested byte range, or the whole object if rng is nil.
func (s *Store) Read(ctx context.Context, path string, rng *objstore.Range) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := s.objectKey(path)
	input := &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}
	if rng != nil {
		end := rng.Offset + rng.Size - 1
		input.Range = aws.String(fmt.Sprintf("bytes=%d-%d", rng.Offset, end))
	}

	var result *s3.GetObjectOutput
	var lastErr error

	for attempt := 0; attempt <= int(s.retry.MaxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.calculateBackoff(attempt - 1)
			logger.Debug("s3store: retrying read", "key", key, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, lastErr = s.client.GetObject(ctx, input)
		if lastErr == nil {
			break
		}
		if isNotFoundError(lastErr) {
			return nil, objstore.ErrNotFound
		}
		if !isRetryableError(lastErr) {
			break
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("s3 get %s: %w", key, lastErr)
	}
	defer result.Body.Close()

	contentLength := aws.ToInt64(result.ContentLength)
	if contentLength < 0 {
		// S3 didn't report a length (e.g. chunked transfer-encoding);
		// fall back to an unbounded read since bufpool is sized by
		// known length.
		data, err := io.ReadAll(result.Body)
		if err != nil {
			return nil, fmt.Errorf("s3 read body %s: %w", key, err)
		}
		return data, nil
	}

	buf := s.bufs.Get(int(contentLength))
	defer s.bufs.Put(buf)

	n, err := io.ReadFull(result.Body, buf)
	if err != nil {
		return nil, fmt.Errorf("s3 read body %s: %w", key, err)
	}

	data := make([]byte, n)
	copy(data, buf[:n])
	return data, nil
}

// Upload writes data as the complete contents of path.
func (s *Store) Upload(ctx context.Context, path string, data []byte) error {
	return s.putWithRetry(ctx, path, bytesReader(data))
}

// UploadStream reads r fully into memory and uploads it to path with
// PutObject, retrying the same way Upload does.
func (s *Store) UploadStream(ctx context.Context, path string, r io.Reader) error {
	return s.putWithRetry(ctx, path, r)
}

func (s *Store) putWithRetry(ctx context.Context, path string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := s.objectKey(path)

	// PutObject consumes the reader; buffer it once so retries can replay it.
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("buffer upload body: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= int(s.retry.MaxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.calculateBackoff(attempt - 1)
			logger.Debug("s3store: retrying upload", "key", key, "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, lastErr = s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
			Body:   bytesReader(data),
		})
		if lastErr == nil {
			return nil
		}
		if !isRetryableError(lastErr) {
			break
		}
	}

	return fmt.Errorf("s3 put %s: %w", key, lastErr)
}

// Delete removes the object at path. Deleting a non-existent object is not
// an error.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := s.objectKey(path)

	var lastErr error
	for attempt := 0; attempt <= int(s.retry.MaxRetries); attempt++ {
		if attempt > 0 {
			backoff := s.calculateBackoff(attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, lastErr = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if lastErr == nil || isNotFoundError(lastErr) {
			return nil
		}
		if !isRetryableError(lastErr) {
			break
		}
	}

	return fmt.Errorf("s3 delete %s: %w", key, lastErr)
}

var _ objstore.Store = (*Store)(nil)
