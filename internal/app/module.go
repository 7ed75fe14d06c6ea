// Package app composes the sync library into an fx module consumed by
// the host UI shell.
package app

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Imrannnnn/Skillconnect-sub001/internal/bus"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/config"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/connectivity"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/convlist"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/logging"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/push"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/rest"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/storage"
	intsync "github.com/Imrannnnn/Skillconnect-sub001/internal/sync"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/typing"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/unread"
	"github.com/Imrannnnn/Skillconnect-sub001/internal/upload"
)

// Params identifies the signed-in user and the profile configuration.
// Authentication itself is an external collaborator; the library only
// needs the resolved viewer id.
type Params struct {
	ViewerID string
	Config   *config.Config
}

// Module returns the fx module wiring every sync component.
func Module(p Params) fx.Option {
	return fx.Module("chatsync",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideMonitor,
			provideStore,
			provideFeed,
			provideLedger,
			provideTyping,
			provideRESTClient,
			provideUploadClient,
			providePushChannel,
			provideEngine,
			provideListSync,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) *config.Config {
	return p.Config
}

func provideLogger(cfg *config.Config, p Params) (*zap.Logger, error) {
	return logging.New(cfg.LogPath(), p.ViewerID)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideMonitor(b *bus.Bus) *connectivity.Monitor {
	return connectivity.NewMonitor(b)
}

func provideStore(cfg *config.Config, logger *zap.Logger) (*storage.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, err
	}
	db, err := storage.Open(cfg.StatePath())
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("client state store initialized", zap.String("path", cfg.StatePath()))
	return db, nil
}

func provideFeed() *storage.Feed {
	return storage.NewFeed()
}

func provideLedger(db *storage.DB, feed *storage.Feed, b *bus.Bus, logger *zap.Logger) *unread.Ledger {
	return unread.NewLedger(db, feed, b, logger)
}

func provideTyping(cfg *config.Config) *typing.Coordinator {
	return typing.NewCoordinator(cfg.TypingTTL())
}

func provideRESTClient(cfg *config.Config, monitor *connectivity.Monitor) *rest.Client {
	return rest.NewClient(cfg.APIBaseURL, cfg.Timeout(), monitor)
}

func provideUploadClient(cfg *config.Config, monitor *connectivity.Monitor) *upload.Client {
	return upload.NewClient(cfg.APIBaseURL+"/uploads", 0, monitor)
}

func providePushChannel(cfg *config.Config, b *bus.Bus, monitor *connectivity.Monitor, logger *zap.Logger) *push.Channel {
	return push.NewChannel(cfg.PushURL, b, monitor, logger)
}

func provideEngine(p Params, client *rest.Client, ledger *unread.Ledger, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(p.ViewerID, client, ledger, b, logger)
}

func provideListSync(p Params, client *rest.Client, ledger *unread.Ledger, b *bus.Bus, logger *zap.Logger) *convlist.ListSync {
	return convlist.NewListSync(p.ViewerID, client, ledger, b, logger)
}

func registerLifecycle(lc fx.Lifecycle, db *storage.DB, ledger *unread.Ledger, coordinator *typing.Coordinator, engine *intsync.Engine, channel *push.Channel, list *convlist.ListSync, b *bus.Bus, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			ledger.Start(context.Background())
			coordinator.Start(context.Background(), b)
			engine.Start(context.Background())
			channel.Start(context.Background())
			list.Start(context.Background())
			logger.Info("conversation sync started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			list.Stop()
			channel.Stop()
			engine.Stop()
			coordinator.Stop()
			ledger.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing state store", zap.Error(err))
			}
			logger.Info("conversation sync stopped")
			return nil
		},
	})
}
