package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	grpchealth "google.golang.org/grpc/health"

	"github.com/dtroode/authkeeper/internal/api/grpc/health"
	grpcrouter "github.com/dtroode/authkeeper/internal/api/grpc/router"
	grpcserver "github.com/dtroode/authkeeper/internal/api/grpc/server"
	httpctx "github.com/dtroode/authkeeper/internal/api/http/context"
	"github.com/dtroode/authkeeper/internal/api/http/handler"
	httprouter "github.com/dtroode/authkeeper/internal/api/http/router"
	httpserver "github.com/dtroode/authkeeper/internal/api/http/server"
	"github.com/dtroode/authkeeper/internal/config"
	"github.com/dtroode/authkeeper/internal/hash"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/metrics"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/repository/memory"
	"github.com/dtroode/authkeeper/internal/repository/postgres"
	"github.com/dtroode/authkeeper/internal/server"
	"github.com/dtroode/authkeeper/internal/service"
	"github.com/dtroode/authkeeper/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

// stores groups the repositories of one database driver.
type stores struct {
	users         model.UserStore
	refreshTokens model.RefreshTokenStore
	pinger        model.Pinger
	close         func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err, "driver", cfg.Database.Driver)
	}
	defer st.close()

	minter, err := token.NewMinter(token.Config{
		Algorithm: cfg.JWT.Algorithm,
		Key:       cfg.JWT.Secret,
		TTL:       cfg.JWT.AccessTTL(),
	})
	if err != nil {
		logger.Fatal("failed to initialize token minter", "error", err)
	}

	recorder := metrics.New()
	tokenService := service.NewTokenService(minter, st.refreshTokens, cfg.RefreshToken.TTL(), recorder, logger)
	authService := service.NewAuth(st.users, hash.NewBcrypt(cfg.Password.BcryptCost), tokenService, service.AuthConfig{
		AutoActivate: cfg.Registration.AutoActivate,
		DefaultRole:  cfg.Registration.DefaultRole,
	}, recorder, logger)

	httpRouter := httprouter.New(
		authService,
		tokenService,
		httpctx.NewManager(),
		st.pinger,
		recorder.Handler(),
		handler.CookieConfig{Secure: cfg.HTTP.CookieSecure},
		logger,
	)
	httpSrv := httpserver.NewHTTPServer(httpRouter.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	healthServer := grpchealth.NewServer()
	grpcSrv := grpcserver.NewGRPCServer(grpcrouter.New(healthServer, logger).Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))

	sl := server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)

	var wg sync.WaitGroup
	for _, s := range []model.Server{httpSrv, grpcSrv} {
		wg.Add(1)
		go func(s model.Server) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(s)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		service.NewPurger(tokenService, logger).Run(ctx, cfg.RefreshToken.PurgeInterval)
	}()
	go func() {
		defer wg.Done()
		health.NewWatcher(healthServer, st.pinger, logger).Run(ctx, cfg.GRPC.HealthInterval)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range []model.Server{httpSrv, grpcSrv} {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func openStores(ctx context.Context, cfg config.Database) (*stores, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewConnection(ctx, cfg.DSN, cfg.Schema)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:         postgres.NewUserRepository(db),
			refreshTokens: postgres.NewRefreshTokenRepository(db),
			pinger:        db,
			close:         db.Close,
		}, nil
	case config.DriverMemory:
		db := memory.NewDB()
		return &stores{
			users:         memory.NewUserRepository(db),
			refreshTokens: memory.NewRefreshTokenRepository(db),
			pinger:        db,
			close:         db.Close,
		}, nil
	default:
		return nil, errors.New("unknown database driver")
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
