package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"rekubricks/config"
	"rekubricks/handlers"
	"rekubricks/repository"
	"rekubricks/services"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "rekubricks",
	Short:         "RekuBricks piece catalog and cart",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.Logging.Debug)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the storefront HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "rekubricks.yaml", "config file")
	rootCmd.AddCommand(serveCmd, catalogCmd, cartCmd, handoffsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	kv, closeKV, err := openCartStore(ctx)
	if err != nil {
		return err
	}
	defer closeKV()
	logger.Info("cart store ready", zap.String("store", cfg.Cart.Store))

	catalog, handoffs, closeCatalog, err := openCatalog()
	if err != nil {
		return err
	}
	defer closeCatalog()

	var hr repository.HandoffRepository
	if cfg.Order.LogHandoffs && handoffs != nil {
		hr = handoffs
	}
	ha := handlers.NewHandler(handlers.HandlerParams{
		CartStore:      kv,
		CatService:     services.NewCatalogService(catalog, logger),
		OrdService:     services.NewOrderService(cfg.Order.WhatsAppPhone, hr, logger),
		Logger:         logger,
		PageSize:       cfg.Catalog.PageSize,
		RevealCooldown: cfg.RevealCooldown(),
	})

	addr := ":" + cfg.Server.Port
	logger.Info("starting server...", zap.String("addr", addr))
	srv := &http.Server{
		Addr:              addr,
		Handler:           ha.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func openCartStore(ctx context.Context) (repository.KVStore, func(), error) {
	switch cfg.Cart.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: "",
			DB:       0,
		})
		pingCtx, cncl := context.WithTimeout(ctx, 5*time.Second)
		defer cncl()
		if status := rdb.Ping(pingCtx); status.Err() != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("redis is not working: %w", status.Err())
		}
		store, err := repository.NewRedisStore(rdb, ctx, cfg.CartTTL(), logger)
		if err != nil {
			rdb.Close()
			return nil, nil, err
		}
		return store, func() { rdb.Close() }, nil
	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.Cart.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		store, err := repository.NewSQLiteStore(db, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { db.Close() }, nil
	default:
		return repository.NewMemoryStore(), func() {}, nil
	}
}

// openCatalog returns the configured catalog and, for database catalogs, the
// handoff log sharing the same connection.
func openCatalog() (repository.CatalogRepository, repository.HandoffRepository, func(), error) {
	if cfg.Catalog.Driver == "" {
		fc, err := repository.NewFileCatalog(cfg.Catalog.File, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return fc, nil, func() {}, nil
	}
	db, err := sql.Open(cfg.Catalog.Driver, cfg.Catalog.DSN)
	if err != nil {
		return nil, nil, nil, err
	}
	cr, err := repository.NewCatalogRepository(db, logger)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	if err = cr.Migrate(); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	logger.Info("db connected", zap.String("driver", cfg.Catalog.Driver))
	hr, err := repository.NewHandoffRepository(db, logger)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return cr, hr, func() { db.Close() }, nil
}
