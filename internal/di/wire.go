//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"TickerPulse/pkg/config"
	"TickerPulse/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideStorage,
		ProvidePublisher,
		ProvideLatestStore,
		ProvideSymbolIndex,
		ProvideDocumentBuffer,
		ProvideSnapshotBoard,
		ProvideCommentExpander,

		// Domain services
		ProvideClassifier,
		ProvideSentiment,
		ProvideAggregator,
		ProvideRateLimiter,

		// Use cases
		ProvideIgnoreList,
		ProvideReportRunner,
		ProvideCommentStreamer,
		ProvideSnapshotCollector,
		ProvideLiveWindows,
		ProvideKafkaHandlers,

		// Transport
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
