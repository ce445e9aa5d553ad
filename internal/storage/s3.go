package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// s3Storage implements ports.Storage on AWS S3 (or any S3-compatible
// endpoint such as MinIO).
type s3Storage struct {
	client  *s3.Client
	cfg     *config.S3Config
	logger  ports.Logger
	metrics ports.Metrics
}

// NewS3 creates an S3-backed artifact store.
func NewS3(cfg *config.StorageConfig, logger ports.Logger, metrics ports.Metrics) (ports.Storage, error) {
	awsCfg, err := buildAWSConfig(&cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3.Endpoint)
		}
		o.UsePathStyle = cfg.S3.PathStyle || cfg.S3.Endpoint != ""
	})

	s := &s3Storage{
		client:  client,
		cfg:     &cfg.S3,
		logger:  logger.WithFields(map[string]interface{}{"adapter": "s3"}),
		metrics: metrics.WithTags(map[string]string{"storage": "s3"}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.ensureBucket(ctx, cfg.Bucket); err != nil {
		logger.Error("Failed to verify bucket", "error", err, "bucket", cfg.Bucket)
		return nil, fmt.Errorf("failed to verify bucket: %w", err)
	}

	logger.Info("S3 storage initialized", "bucket", cfg.Bucket, "region", cfg.S3.Region)
	return s, nil
}

func buildAWSConfig(cfg *config.S3Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	return awsconfig.LoadDefaultConfig(context.Background(), opts...)
}

func (s *s3Storage) ensureBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}

	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
		return err
	}
	return err
}

// Put uploads the full content in one PutObject call. S3 publishes the key
// only once the upload completes, so readers never see a partial object.
func (s *s3Storage) Put(ctx context.Context, bucket, key string, reader io.Reader) (int64, error) {
	start := time.Now()
	s.metrics.IncrementCounter("storage.put.attempts", map[string]string{"bucket": bucket})

	buf := &bytes.Buffer{}
	bytesRead, err := io.Copy(buf, reader)
	if err != nil {
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "read"})
		return 0, fmt.Errorf("failed to read content: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		s.logger.Error("Failed to put object", "bucket", bucket, "key", key, "error", err)
		s.metrics.IncrementCounter("storage.put.errors", map[string]string{"bucket": bucket, "error": "put"})
		return 0, fmt.Errorf("failed to put object: %w", err)
	}

	s.logger.Info("Object stored",
		"bucket", bucket,
		"key", key,
		"bytes", bytesRead,
		"duration_ms", time.Since(start).Milliseconds())
	s.metrics.IncrementCounter("storage.put.success", map[string]string{"bucket": bucket})
	s.metrics.RecordHistogram("storage.put.bytes", float64(bytesRead), map[string]string{"bucket": bucket})

	return bytesRead, nil
}

func (s *s3Storage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	s.metrics.IncrementCounter("storage.get.attempts", map[string]string{"bucket": bucket})

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ports.ErrObjectNotFound
		}
		s.metrics.IncrementCounter("storage.get.errors", map[string]string{"bucket": bucket})
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return out.Body, nil
}

func (s *s3Storage) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}
	return true, nil
}

func (s *s3Storage) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *s3Storage) List(ctx context.Context, bucket, prefix string) ([]ports.ObjectInfo, error) {
	var out []ports.ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			info := ports.ObjectInfo{Key: aws.ToString(obj.Key)}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			out = append(out, info)
		}
	}
	return out, nil
}

// Location returns the s3:// URI of the object.
func (s *s3Storage) Location(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
