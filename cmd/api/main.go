package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"hosi.com/identity/internal/auth"
	"hosi.com/identity/internal/config"
	"hosi.com/identity/internal/httpapi"
	"hosi.com/identity/internal/migrate"
	"hosi.com/identity/internal/obs"
	"hosi.com/identity/internal/store/sqlstore"
	"hosi.com/identity/ops/migrations"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := sqlstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if cfg.AutoMigrate {
		mgr := migrate.NewManager(store.DB(), migrations.SQL(), migrations.Seeds())
		if err := mgr.Up(startCtx); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		if err := mgr.Seed(startCtx); err != nil {
			log.Fatalf("migrate seed: %v", err)
		}
	}

	svc, err := auth.NewService(cfg.Auth(), store, store)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	if _, err := auth.EnsureAdmin(startCtx, store, cfg.AdminPassword); err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}
	startCancel()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := auth.NewSweeper(store, cfg.SweepInterval(), svc.RevocationGrace(), auth.SystemClock)
	go sweeper.Run(ctx)

	proxies, err := cfg.Proxies()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	probe := httpapi.ReadyProbe{Store: store}
	api := httpapi.New(probe, version, svc,
		httpapi.WithLoginRateLimit(cfg.LoginRate, cfg.LoginBurst),
		httpapi.WithTrustedProxies(proxies),
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	health := httpapi.NewGRPCHealth(probe)
	grpcSrv := grpc.NewServer()
	health.Register(grpcSrv)
	go health.Run(ctx, 10*time.Second)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen grpc: %v", err)
	}
	go func() {
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	obs.Info("starting identity", map[string]any{
		"version":   version,
		"http_addr": srv.Addr,
		"grpc_addr": cfg.GRPCAddr,
		"driver":    cfg.DBDriver,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	obs.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health.Shutdown()
	_ = srv.Shutdown(shutdownCtx)
	grpcSrv.GracefulStop()
	obs.Info("stopped", nil)
}
