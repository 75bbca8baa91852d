package di

import (
	"fmt"
	"time"

	"tabletalk/backend/internal/game"
	"tabletalk/backend/internal/store"
	"tabletalk/backend/pkg/config"
	"tabletalk/backend/pkg/health"
	"tabletalk/backend/pkg/logger"
)

// Container holds all the dependencies for the application
type Container struct {
	Config  *config.Config
	Logger  *logger.Logger
	Store   *store.Store
	Manager *game.Manager
	Health  *health.Checker
}

// New wires the application together: logger, snapshot store, table manager
// and health checks. The caller owns shutdown via Close.
func New(cfg *config.Config) (*Container, error) {
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	st, err := store.Open(cfg.Store.Path, cfg.Store.QueueDepth, log)
	if err != nil {
		return nil, fmt.Errorf("open table store: %w", err)
	}

	manager := game.NewManager(st, cfg, log)
	if err := manager.LoadAll(); err != nil {
		st.Close()
		return nil, fmt.Errorf("load tables: %w", err)
	}

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterStoreCheck(st.Ping)
	checker.RegisterUploadsCheck(cfg.Store.UploadsDir)
	checker.Start()

	return &Container{
		Config:  cfg,
		Logger:  log,
		Store:   st,
		Manager: manager,
		Health:  checker,
	}, nil
}

// Close flushes pending snapshot writes and releases the store.
func (c *Container) Close() error {
	return c.Store.Close()
}
