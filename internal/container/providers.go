package container

import (
	"database/sql"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/forcing-workflow/internal/application/dispatcher"
	"github.com/garyjia/forcing-workflow/internal/application/port"
	"github.com/garyjia/forcing-workflow/internal/application/service"
	appwf "github.com/garyjia/forcing-workflow/internal/application/workflow"
	"github.com/garyjia/forcing-workflow/internal/domain/decision"
	"github.com/garyjia/forcing-workflow/internal/domain/policy"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/external/lark"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/forcing-workflow/internal/infrastructure/worker"
	httpserver "github.com/garyjia/forcing-workflow/internal/interfaces/http"
	"github.com/garyjia/forcing-workflow/pkg/database"
	"github.com/garyjia/forcing-workflow/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// DomainBundle holds the pure decision components.
type DomainBundle struct {
	Policy     *policy.Policy
	Engine     *decision.Engine
	Calculator *policy.Calculator
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.Run(os.DirFS(cfg.MigrationsDir))
	} else {
		err = migrator.RunEmbedded()
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Request:      repository.NewRequestRepository(sqlDB, logger),
		History:      repository.NewHistoryRepository(sqlDB, logger),
		Notification: repository.NewNotificationRepository(sqlDB, logger),
	}, nil
}

// ProvideMessenger creates the Lark IM sender, or nil when Lark is disabled.
func ProvideMessenger(cfg *LarkConfig, logger *zap.Logger) (port.MessageSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if !cfg.Enabled {
		logger.Info("Lark notifier disabled")
		return nil, nil
	}

	client := lark.NewClient(lark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
	}, logger)

	return lark.NewMessenger(client, logger), nil
}

// ProvideDomain builds the decision engine over a validated policy.
func ProvideDomain(p *policy.Policy, logger *zap.Logger) (*DomainBundle, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &DomainBundle{
		Policy:     p,
		Engine:     decision.NewEngine(p, decision.WithTracer(decision.NewZapTracer(logger.Named("decision")))),
		Calculator: policy.NewCalculator(p),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
		dispatcher.WithHandlerTimeout(defaultHandlerTimeout),
	), nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Domain     *DomainBundle
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the transactional workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (appwf.WorkflowEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	return appwf.NewEngine(
		deps.Domain.Engine,
		deps.Repos.Request,
		deps.Repos.History,
		deps.TxManager,
		appwf.WithDispatcher(deps.Dispatcher),
		appwf.WithLogger(utils.NewKVLogger(deps.Logger.Named("workflow"))),
	), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	Domain     *DomainBundle
	Workflow   appwf.WorkflowEngine
	Dispatcher dispatcher.Dispatcher
	Messenger  port.MessageSender
	Chats      map[policy.Role]string
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notifier when a messenger is configured.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Workflow == nil {
		return nil, fmt.Errorf("workflow engine is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := utils.NewKVLogger(deps.Logger.Named("service"))

	bundle := &ServiceBundle{
		Forcing: service.NewForcingService(
			deps.Repos.Request,
			deps.Repos.History,
			deps.Workflow,
			deps.Domain.Policy,
			deps.Domain.Calculator,
			deps.Dispatcher,
			serviceLogger,
		),
	}

	if deps.Messenger != nil {
		bundle.Notification = service.NewNotificationService(
			deps.Repos.Request,
			deps.Repos.Notification,
			deps.Messenger,
			deps.Domain.Calculator,
			service.ChatRouting(deps.Chats),
			serviceLogger,
		)
		bundle.Notification.Register(deps.Dispatcher)
	}

	return bundle, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Repos      *RepositoryBundle
	Domain     *DomainBundle
	Workflow   appwf.WorkflowEngine
	Dispatcher dispatcher.Dispatcher
	WorkerCfg  *WorkerConfig
	Logger     *zap.Logger
}

// ProvideWorkers creates and registers all background workers.
// Returns the manager with all workers registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewManager(deps.Logger)

	if deps.WorkerCfg.SLAEnabled {
		manager.Register(worker.NewSLAWorker(
			worker.SLAWorkerConfig{
				PollInterval:  deps.WorkerCfg.SLAPollInterval,
				BatchSize:     deps.WorkerCfg.SLABatchSize,
				Horizon:       deps.WorkerCfg.SLAHorizon,
				FollowUpAfter: deps.WorkerCfg.SLAFollowUpAfter,
			},
			deps.Repos.Request,
			deps.Domain.Calculator,
			deps.Dispatcher,
			deps.Workflow,
			deps.Logger.Named("sla"),
		))
	}

	return manager, nil
}

// ProvideHTTPServer creates the API server.
func ProvideHTTPServer(cfg *ServerConfig, services *ServiceBundle, p *policy.Policy, logger *zap.Logger) (*httpserver.Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if services == nil || services.Forcing == nil {
		return nil, fmt.Errorf("forcing service is required")
	}

	return httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Host,
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Version:      cfg.Version,
	}, services.Forcing, p, utils.NewKVLogger(logger.Named("http"))), nil
}
