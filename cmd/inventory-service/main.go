package main

import (
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/service/inventory/application"
	"storefront/internal/service/inventory/domain"
	"storefront/internal/service/inventory/infrastructure"
	"storefront/internal/service/inventory/infrastructure/cache"
	"storefront/internal/service/inventory/interfaces"
)

const serviceName = "inventory-service"

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8082,
		ConfigPath:  bootstrap.GetEnv("CONFIG_PATH", "configs/config.yaml"),
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := appCtx.Config

			var repo domain.ProductRepository
			switch cfg.Storage {
			case "mysql":
				db, err := infrastructure.OpenMySQL(cfg.Infra.MySQL.DSN,
					cfg.Infra.MySQL.MaxOpenConns, cfg.Infra.MySQL.MaxIdleConns, cfg.Infra.MySQL.ConnMaxLifetime.Std())
				if err != nil {
					log.Fatal().Err(err).Msg("failed to open mysql")
				}
				repo, err = infrastructure.NewGormProductRepository(db)
				if err != nil {
					log.Fatal().Err(err).Msg("failed to initialize product repository")
				}
			default:
				log.Info().Msg("using in-memory product repository")
				repo = infrastructure.NewMemoryProductRepository()
			}

			var productCache application.ProductCache
			if cfg.Infra.Redis.Enabled {
				rdb := redis.NewClient(&redis.Options{
					Addr:     cfg.Infra.Redis.Addr,
					Password: cfg.Infra.Redis.Password,
				})
				productCache = cache.NewRedisProductCache(rdb, cfg.Infra.Redis.CacheTTL.Std())
			}

			tracer := otel.Tracer(serviceName)
			service := application.NewInventoryApplicationService(repo, productCache, tracer)
			interfaces.NewInventoryHandler(service).RegisterRoutes(appCtx.Mux)
		},
	})
}
