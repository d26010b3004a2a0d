package main

import (
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/httpclient"
	"storefront/internal/pkg/mq"
	"storefront/internal/service/order/application"
	"storefront/internal/service/order/application/saga"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/infrastructure"
	"storefront/internal/service/order/infrastructure/adapter"
	"storefront/internal/service/order/interfaces"
	"storefront/internal/service/order/port"
)

const serviceName = "order-service"

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8083,
		ConfigPath:  bootstrap.GetEnv("CONFIG_PATH", "configs/config.yaml"),
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			cfg := appCtx.Config
			tracer := otel.Tracer(serviceName)

			var repo domain.OrderRepository
			switch cfg.Storage {
			case "mysql":
				db, err := infrastructure.OpenMySQL(cfg.Infra.MySQL.DSN,
					cfg.Infra.MySQL.MaxOpenConns, cfg.Infra.MySQL.MaxIdleConns, cfg.Infra.MySQL.ConnMaxLifetime.Std())
				if err != nil {
					log.Fatal().Err(err).Msg("failed to open mysql")
				}
				repo, err = infrastructure.NewGormOrderRepository(db)
				if err != nil {
					log.Fatal().Err(err).Msg("failed to initialize order repository")
				}
			default:
				log.Info().Msg("using in-memory order repository")
				repo = infrastructure.NewMemoryOrderRepository()
			}

			inventory := adapter.NewInventoryHTTPAdapter(
				httpclient.NewClient(tracer),
				cfg.Inventory.BaseURL,
				cfg.Inventory.RequestTimeout.Std(),
			)

			var events port.EventProducer
			if cfg.Infra.Kafka.Enabled {
				writer := mq.NewWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrdersTopic)
				events = adapter.NewKafkaEventProducer(writer)
			}

			coordinator := saga.NewCoordinator(inventory, repo, tracer,
				saga.WithRetryPolicy(cfg.Checkout.MaxReserveAttempts, cfg.Checkout.RetryBackoffBase.Std()),
				saga.WithReleaseRetries(cfg.Checkout.ReleaseRetries),
			)

			service := application.NewOrderApplicationService(repo, coordinator, events, tracer)
			interfaces.NewOrderHandler(service).RegisterRoutes(appCtx.Mux)
		},
	})
}
