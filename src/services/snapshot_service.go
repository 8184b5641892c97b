package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/svacron/metals/backend/src/logger"
	"github.com/svacron/metals/backend/src/models"
)

const snapshotTTL = 5 * time.Minute

// snapshotPublisher mirrors records to the secondary snapshot store: JSON
// files for static hosting, plus redis keys when an address is configured.
// Both targets are best-effort; the primary sqlite write has already
// committed by the time these run.
type snapshotPublisher struct {
	dir   string
	redis *redis.Client
}

func NewSnapshotPublisher(dir, redisAddr string) SnapshotPublisher {
	p := &snapshotPublisher{dir: dir}
	if redisAddr != "" {
		p.redis = redis.NewClient(&redis.Options{Addr: redisAddr})
		logger.L.Info("Redis snapshot publisher enabled", "addr", redisAddr)
	}
	return p
}

func (p *snapshotPublisher) PublishMetal(ctx context.Context, metal models.MetalKind, record *models.MetalRecord) error {
	return p.publish(ctx, fmt.Sprintf("%s.json", metal), fmt.Sprintf("metals:snapshot:%s", metal), record)
}

func (p *snapshotPublisher) PublishAll(ctx context.Context, all *models.AllMetalsResponse) error {
	return p.publish(ctx, "all-metals.json", "metals:snapshot:all", all)
}

func (p *snapshotPublisher) publish(ctx context.Context, fileName, redisKey string, payload interface{}) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", fileName, err)
	}

	var errs []error
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		errs = append(errs, fmt.Errorf("creating snapshot dir: %w", err))
	} else if err := os.WriteFile(filepath.Join(p.dir, fileName), data, 0o644); err != nil {
		errs = append(errs, fmt.Errorf("writing snapshot %s: %w", fileName, err))
	}

	if p.redis != nil {
		if err := p.redis.Set(ctx, redisKey, data, snapshotTTL).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publishing snapshot %s to redis: %w", redisKey, err))
		}
	}
	return errors.Join(errs...)
}
