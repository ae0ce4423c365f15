//go:build wireinject
// +build wireinject

package di

import (
	"ElemPulse/pkg/config"
	"ElemPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
    wire.Build(
        // Observability
        ProvideLogger,
        ProvideMetrics,

        // Infrastructure clients
        ProvideClickHouseClient,
        ProvideKafkaProducer,
        ProvideKafkaConsumer,
        ProvideRedisClient,

        // Repositories (with business logic)
        ProvideSnapshotStore,
        ProvideTelemetryPublisher,
        ProvideTelemetryStream,

        // Use cases
        ProvideInsightService,
        ProvideTelemetryProcessor,
        ProvideTelemetryCollector,
        ProvideKafkaTelemetryHandler,
        ProvideKafkaContributionsHandler,
        ProvideDeferredQueue,
        ProvideSnapshotSync,
        ProvideHistoryUseCase,

        // HTTP surface
        ProvideHTTPHandler,

        // Application server
        ProvideApp,
    )
    return &server.App{}, nil
}
