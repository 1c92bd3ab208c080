package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const cacheOpTimeout = 200 * time.Millisecond

// Refresh escribe el valor de forma síncrona con un timeout corto.
// Si la escritura falla se borra la clave para no dejar una versión antigua.
func Refresh(ctx context.Context, cache Cache, key string, value interface{}, ttl int, log *zap.Logger) {
	if cache == nil {
		return
	}

	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()

	if err := cache.Set(cacheCtx, key, value, ttl); err != nil {
		log.Warn("Cache update failed",
			zap.String("key", key),
			zap.Error(err))
		Invalidate(ctx, cache, key, log)
	}
}

// Invalidate elimina la clave de forma síncrona con un timeout corto.
// Un fallo solo se registra: la caché nunca hace fallar una escritura.
func Invalidate(ctx context.Context, cache Cache, key string, log *zap.Logger) {
	if cache == nil {
		return
	}

	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()

	if err := cache.Delete(cacheCtx, key); err != nil {
		log.Warn("Cache deletion failed",
			zap.String("key", key),
			zap.Error(err))
	}
}
