// Package resolver acquires product files for a processing window: the
// Downloader runs the bounded retry loop against a single source, the
// Resolver walks a category's sources in tier order until one yields the
// artifact or all are exhausted.
package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
	"github.com/georgisalene/gnss-rt/internal/registry"
	"github.com/georgisalene/gnss-rt/internal/retry"
	"github.com/georgisalene/gnss-rt/internal/transport"
)

// Download is the result of a successful acquisition from one source.
type Download struct {
	Source     entity.ProductSource
	RemotePath string
	// LocalPath is the storage location handed to the processing engine.
	LocalPath string
	Size      int64
	Checksum  string
}

// Downloader executes the scoped attempt loop for one (category, source)
// pair. Every attempt, successful or not, lands in the append-only audit log.
type Downloader struct {
	fetcher  transport.Fetcher
	storage  ports.Storage
	attempts ports.DownloadAttemptRepository
	policy   retry.Policy
	bucket   string
	logger   ports.Logger
	metrics  ports.Metrics
}

// NewDownloader wires the downloader. bucket is the storage namespace the
// artifacts are committed under.
func NewDownloader(
	fetcher transport.Fetcher,
	storage ports.Storage,
	attempts ports.DownloadAttemptRepository,
	policy retry.Policy,
	bucket string,
	logger ports.Logger,
	metrics ports.Metrics,
) *Downloader {
	return &Downloader{
		fetcher:  fetcher,
		storage:  storage,
		attempts: attempts,
		policy:   policy,
		bucket:   bucket,
		logger:   logger,
		metrics:  metrics,
	}
}

// Fetch tries one source up to the policy's attempt budget. Transient
// failures back off and retry; a permanent failure stops immediately and
// advances the caller to the next source. The artifact is streamed into
// storage and committed only after the full body was read, so a failed
// attempt never leaves a partial file behind.
func (d *Downloader) Fetch(ctx context.Context, sessionID string, category entity.ProductCategory, source entity.ProductSource, epoch time.Time) (*Download, error) {
	remotePath := registry.ExpandTemplate(source.PathTemplate, epoch)

	var lastErr error
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		started := time.Now()
		dl, err := d.tryOnce(ctx, sessionID, category, source, remotePath)
		duration := time.Since(started)

		outcome := entity.AttemptSuccess
		if err != nil {
			outcome = entity.AttemptTransientFailure
			if transport.IsPermanent(err) {
				outcome = entity.AttemptPermanentFailure
			}
		}

		record := entity.NewDownloadAttempt(sessionID, category, source, remotePath, attempt, outcome, err, started, duration)
		if auditErr := d.attempts.Append(ctx, record); auditErr != nil {
			d.logger.Error("Failed to record download attempt",
				"error", auditErr, "session_id", sessionID, "category", category)
		}

		d.metrics.IncrementCounter("downloader.attempts", map[string]string{
			"category": string(category),
			"provider": source.Provider,
			"outcome":  string(outcome),
		})

		if err == nil {
			d.logger.Info("Product downloaded",
				"session_id", sessionID,
				"category", category,
				"source", source.Label(),
				"remote_path", remotePath,
				"bytes", dl.Size,
				"attempt", attempt)
			d.metrics.RecordHistogram("downloader.duration_ms",
				float64(duration.Milliseconds()),
				map[string]string{"category": string(category), "provider": source.Provider})
			return dl, nil
		}

		lastErr = err
		d.logger.Error("Download attempt failed",
			"error", err,
			"session_id", sessionID,
			"category", category,
			"source", source.Label(),
			"attempt", attempt,
			"outcome", outcome)

		if outcome == entity.AttemptPermanentFailure {
			return nil, fmt.Errorf("source %s: %w", source.Label(), err)
		}
		if attempt < d.policy.MaxAttempts {
			if err := d.policy.Sleep(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("source %s exhausted after %d attempts: %w",
		source.Label(), d.policy.MaxAttempts, lastErr)
}

func (d *Downloader) tryOnce(ctx context.Context, sessionID string, category entity.ProductCategory, source entity.ProductSource, remotePath string) (*Download, error) {
	body, err := d.fetcher.Fetch(ctx, source, remotePath)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	key := artifactKey(sessionID, category, remotePath)
	hasher := sha256.New()

	size, err := d.storage.Put(ctx, d.bucket, key, io.TeeReader(body, hasher))
	if err != nil {
		return nil, transport.NewTransient("store", key, err)
	}
	if size == 0 {
		// Empty bodies show up when an archive publishes a placeholder
		// before the real product lands.
		_ = d.storage.Delete(ctx, d.bucket, key)
		return nil, transport.NewTransient("store", key, entity.ErrEmptyArtifact)
	}

	return &Download{
		Source:     source,
		RemotePath: remotePath,
		LocalPath:  d.storage.Location(d.bucket, key),
		Size:       size,
		Checksum:   hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// artifactKey lays the store out as session/category/filename.
func artifactKey(sessionID string, category entity.ProductCategory, remotePath string) string {
	return path.Join(sessionID, string(category), path.Base(remotePath))
}
