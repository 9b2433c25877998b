package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/cenkalti/backoff/v4"

	"lifelog/internal/config"
	"lifelog/internal/logging"
	"lifelog/internal/services"
)

// objectAPI is the slice of the S3 client the gateway needs. Tests substitute
// an in-memory fake.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// presignAPI produces time-limited read URLs.
type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error)
}

type sdkPresigner struct {
	client *s3.PresignClient
}

func (p *sdkPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (string, error) {
	req, err := p.client.PresignGetObject(ctx, params, optFns...)
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Gateway stores and retrieves video blobs in an S3-compatible object store.
type Gateway struct {
	client     objectAPI
	presigner  presignAPI
	bucket     string
	presignTTL time.Duration
	logger     *slog.Logger
}

// NewGateway connects to the configured object store and ensures the bucket
// exists, retrying briefly so a storage backend that starts alongside the
// daemon has time to come up.
func NewGateway(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	st := cfg.Storage
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(st.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			st.AccessKey,
			st.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage credentials: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(st.Endpoint)
		o.UsePathStyle = st.ForcePathStyle
	})

	gw := &Gateway{
		client:     client,
		presigner:  &sdkPresigner{client: s3.NewPresignClient(client)},
		bucket:     st.Bucket,
		presignTTL: time.Duration(st.PresignTTL) * time.Second,
		logger:     logger,
	}

	if err := gw.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return gw, nil
}

// newGatewayWithClient wires a gateway around explicit dependencies for tests.
func newGatewayWithClient(client objectAPI, presigner presignAPI, bucket string, ttl time.Duration, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gateway{
		client:     client,
		presigner:  presigner,
		bucket:     bucket,
		presignTTL: ttl,
		logger:     logger,
	}
}

// Bucket returns the configured bucket name.
func (g *Gateway) Bucket() string {
	return g.bucket
}

func (g *Gateway) ensureBucket(ctx context.Context) error {
	probe := func() error {
		_, err := g.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(g.bucket)})
		if err == nil {
			return nil
		}
		if isNotFound(err) {
			_, createErr := g.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(g.bucket)})
			if createErr == nil || isBucketExists(createErr) {
				g.logger.Info("created storage bucket", logging.String("bucket", g.bucket))
				return nil
			}
			return createErr
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(probe, policy); err != nil {
		return services.Wrap(services.ErrTransient, "storage", "ensure-bucket", g.bucket, err)
	}
	return nil
}

// Put uploads a blob under the given key. Re-uploading the same key simply
// overwrites, which makes retried uploads idempotent.
func (g *Gateway) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if strings.TrimSpace(key) == "" {
		return services.Wrap(services.ErrValidation, "storage", "put", "empty key", nil)
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := g.client.PutObject(ctx, input); err != nil {
		return services.Wrap(services.ErrTransient, "storage", "put", key, err)
	}
	return nil
}

// PutFile uploads a local file under the given key.
func (g *Gateway) PutFile(ctx context.Context, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "storage", "put", path, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return services.Wrap(services.ErrTransient, "storage", "put", path, err)
	}
	return g.Put(ctx, key, f, info.Size(), contentType)
}

// FetchToLocal downloads a blob into destDir, preserving the key's file
// extension, and returns the local path.
func (g *Gateway) FetchToLocal(ctx context.Context, key, destDir string) (string, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return "", services.Wrap(services.ErrNotFound, "storage", "fetch", key, err)
		}
		return "", services.Wrap(services.ErrTransient, "storage", "fetch", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "fetch", destDir, err)
	}
	local := filepath.Join(destDir, "source"+filepath.Ext(key))
	f, err := os.Create(local)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "fetch", local, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		os.Remove(local)
		return "", services.Wrap(services.ErrTransient, "storage", "fetch", key, err)
	}
	return local, nil
}

// Delete removes a blob. A key that is already gone is not an error; the
// gateway reports false and moves on so entry deletion never wedges on a
// missing thumbnail.
func (g *Gateway) Delete(ctx context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, nil
	}
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, services.Wrap(services.ErrTransient, "storage", "delete", key, err)
	}
	return true, nil
}

// PresignGet returns a time-limited read URL for a blob.
func (g *Gateway) PresignGet(ctx context.Context, key string) (string, error) {
	url, err := g.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(g.presignTTL))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "presign", key, err)
	}
	return url, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound", "404":
			return true
		}
	}
	return false
}

func isBucketExists(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return true
		}
	}
	return false
}
