// Command server runs the accrual engine's HTTP entrypoint: the single
// process_contracts RPC (spec.md §6) wired through fx, in the shape of
// the teacher's cmd/server/main.go.
package main

import (
	"context"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/accrualengine"
	"github.com/fourgeeks/accrual-engine/internal/aggregate"
	"github.com/fourgeeks/accrual-engine/internal/api"
	"github.com/fourgeeks/accrual-engine/internal/batch"
	"github.com/fourgeeks/accrual-engine/internal/config"
	"github.com/fourgeeks/accrual-engine/internal/domain/accrual"
	"github.com/fourgeeks/accrual-engine/internal/domain/accruedperiod"
	"github.com/fourgeeks/accrual-engine/internal/domain/client"
	"github.com/fourgeeks/accrual-engine/internal/domain/contract"
	"github.com/fourgeeks/accrual-engine/internal/domain/invoice"
	"github.com/fourgeeks/accrual-engine/internal/domain/period"
	"github.com/fourgeeks/accrual-engine/internal/lms"
	"github.com/fourgeeks/accrual-engine/internal/logger"
	"github.com/fourgeeks/accrual-engine/internal/postgres"
	pgrepo "github.com/fourgeeks/accrual-engine/internal/repository/postgres"
	"github.com/fourgeeks/accrual-engine/internal/sentry"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			provideLogger,

			postgres.NewDB,

			provideContractRepository,
			providePeriodRepository,
			provideAccrualRepository,
			provideAccruedPeriodRepository,
			provideClientRepository,
			provideInvoiceRepository,

			provideTransactor,
			aggregate.NewMutator,

			provideLMSClient,
			lms.NewReconciler,

			accrualengine.NewProcessor,

			provideBatchConfig,
			batch.NewDriver,

			sentry.NewService,

			api.NewBatchHandler,
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)
	app.Run()
}

func provideLogger(cfg *config.Configuration) (*logger.Logger, error) {
	return logger.NewLogger(logger.Level(cfg.Logging.Level))
}

func provideContractRepository(db *postgres.DB) contract.Repository {
	return pgrepo.NewContractRepository(db)
}

func providePeriodRepository(db *postgres.DB) period.Repository {
	return pgrepo.NewPeriodRepository(db)
}

func provideAccrualRepository(db *postgres.DB) accrual.Repository {
	return pgrepo.NewAccrualRepository(db)
}

func provideAccruedPeriodRepository(db *postgres.DB) accruedperiod.Repository {
	return pgrepo.NewAccruedPeriodRepository(db)
}

func provideClientRepository(db *postgres.DB) client.Repository {
	return pgrepo.NewClientRepository(db)
}

func provideInvoiceRepository(db *postgres.DB) invoice.Repository {
	return pgrepo.NewInvoiceRepository(db)
}

func provideTransactor(db *postgres.DB) aggregate.Transactor {
	return db
}

func provideLMSClient(cfg *config.Configuration) lms.Client {
	return lms.NewHTTPClient(lms.HTTPConfig{
		BaseURL: cfg.LMS.BaseURL,
		APIKey:  cfg.LMS.APIKey,
		Timeout: time.Duration(cfg.LMS.TimeoutSeconds) * time.Second,
	})
}

func provideBatchConfig(cfg *config.Configuration) config.BatchConfig {
	return cfg.Batch
}

func provideHandlers(batchHandler *api.BatchHandler) api.Handlers {
	return api.Handlers{Batch: batchHandler}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, log)
}

func startServer(lc fx.Lifecycle, r *gin.Engine, cfg *config.Configuration, db *postgres.DB, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting accrual engine server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Errorw("server stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down accrual engine server")
			db.Close()
			return nil
		},
	})
}
