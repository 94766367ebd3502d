package template

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
)

// NewStore builds the configured template store.
func NewStore(ctx context.Context, cfg common.TemplateConfig, rc common.RedisConfig, logger *slog.Logger) (Store, error) {
	switch constants.CanonicalVariant(cfg.Store) {
	case constants.StoreInvoke:
		return NewInvokeStore(cfg.Dapr, cfg.Timeout, logger), nil
	case constants.StoreState:
		return NewStateStore(cfg.Dapr, cfg.Timeout, logger), nil
	case constants.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		return NewRedisStore(client, cfg.RedisPrefix), nil
	case constants.StoreFirestore:
		return NewFirestoreStore(ctx, cfg.FirestoreProject, cfg.FirestoreCollection)
	default:
		return nil, common.UnsupportedVariant("template store", cfg.Store)
	}
}
