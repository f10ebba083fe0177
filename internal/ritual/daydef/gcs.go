package daydef

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/firstflame-backend/internal/domain/ritual"
	"github.com/yungbote/firstflame-backend/internal/platform/logger"
)

type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	// EmulatorHost points the client at a fake-gcs-server style emulator.
	EmulatorHost string
}

// GCS reads day-<n>.json objects from a bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
	log    *logger.Logger
}

func NewGCS(ctx context.Context, cfg GCSConfig, baseLog *logger.Logger) (*GCS, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("day definition bucket is required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadOnly)}
	switch {
	case strings.TrimSpace(cfg.EmulatorHost) != "":
		_ = os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/"))
		opts = []option.ClientOption{option.WithoutAuthentication()}
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		opts = append(opts, option.WithCredentialsFile(strings.TrimSpace(cfg.CredentialsFile)))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return NewGCSWithClient(client, bucket, cfg.Prefix, baseLog), nil
}

func NewGCSWithClient(client *storage.Client, bucket, prefix string, baseLog *logger.Logger) *GCS {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix != "" {
		prefix += "/"
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix, log: baseLog.With("service", "GCSDayDefinitions")}
}

func (g *GCS) Load(ctx context.Context, day int) (*ritual.DayDefinition, error) {
	key := g.prefix + ObjectName(day, ".json")
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	g.log.Debug("day definition fetched", "bucket", g.bucket, "key", key, "bytes", len(raw))
	return Decode(raw, ".json", day)
}

func (g *GCS) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}
