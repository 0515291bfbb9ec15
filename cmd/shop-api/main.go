// Command shop-api serves the storefront catalog and account API.
//
//	@title						Shop API
//	@version					1.0
//	@description				Catalog and account API of the storefront.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/shop-api/internal/api"
	"github.com/storefront/shop-api/internal/api/handler"
	"github.com/storefront/shop-api/internal/core/ports"
	"github.com/storefront/shop-api/internal/core/service"
	"github.com/storefront/shop-api/internal/infrastructure/config"
	mongostore "github.com/storefront/shop-api/internal/infrastructure/db/mongo"
	"github.com/storefront/shop-api/internal/infrastructure/db/postgres"
	rediscache "github.com/storefront/shop-api/internal/infrastructure/db/redis"
	"github.com/storefront/shop-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// store bundles the repositories of the selected backend.
type store struct {
	users    ports.UserRepository
	roles    ports.RoleRepository
	products ports.ProductRepository
	tags     ports.TagRepository
	pinger   handler.Pinger
	close    func(context.Context) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "shop-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction(), Service: "shop-api"})

	st, err := openStore(ctx, cfg, logger.Component(log, "store"))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()

	readiness := map[string]handler.Pinger{cfg.DB.Driver: st.pinger}

	var cache ports.CatalogCache
	if cfg.Catalog.CacheTTL > 0 {
		rdb, err := rediscache.Connect(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, serving the catalog without cache")
		} else {
			defer rdb.Close()
			cache = rediscache.NewCatalogCache(rdb, cfg.Catalog.CacheTTL)
			readiness["redis"] = rediscache.Pinger{Client: rdb}
		}
	}

	roles, err := service.LoadRoles(ctx, st.roles)
	if err != nil {
		return err
	}

	tokens := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	auth := service.NewAuthService(st.users, tokens, roles, cfg.Auth.BcryptCost, logger.Component(log, "auth"))
	catalogLog := logger.Component(log, "catalog")

	router := api.NewRouter(api.Dependencies{
		Log:   logger.Component(log, "http"),
		Auth:  auth,
		Users: service.NewUserService(st.users),
		Products: service.NewProductService(st.products, st.tags, cache, service.CatalogOptions{
			LegacyTagListing: cfg.Catalog.LegacyTagListing,
		}, catalogLog),
		Tags:      service.NewTagService(st.tags, cache, catalogLog),
		Readiness: readiness,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.DB.Driver).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.DB.Driver {
	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &store{
			users:    mongostore.NewUserRepository(db),
			roles:    mongostore.NewRoleRepository(db),
			products: mongostore.NewProductRepository(db),
			tags:     mongostore.NewTagRepository(db),
			pinger:   mongostore.Pinger{Client: client},
			close:    client.Disconnect,
		}, nil

	default:
		db, err := postgres.Connect(ctx, postgres.Config{DSN: cfg.DB.URL}, log)
		if err != nil {
			return nil, err
		}
		return &store{
			users:    postgres.NewUserRepository(db),
			roles:    postgres.NewRoleRepository(db),
			products: postgres.NewProductRepository(db),
			tags:     postgres.NewTagRepository(db),
			pinger:   postgres.Pinger{DB: db},
			close:    func(context.Context) error { return postgres.Close(db) },
		}, nil
	}
}
